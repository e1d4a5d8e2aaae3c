package app

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"exchange_go/internal/infra"
	"exchange_go/internal/strategy"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config     *infra.Config
	Metrics    *infra.Metrics
	Policy     strategy.CommissionPolicy
	Settlement *infra.SettlementClient
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration and prepares the shared collaborators
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping exchange session service...")

	// 1. Load Config
	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Commission policy from config (stock tier by default)
	b.Policy = strategy.NewPercentOverFreeOps(
		cfg.Commission.FreeOperations,
		decimal.NewFromFloat(cfg.Commission.RatePercent),
	)

	// 4. Settlement client
	b.Settlement = infra.NewSettlementClient(
		cfg.Settlement.BaseURL,
		time.Duration(cfg.Settlement.TimeoutSec)*time.Second,
	)

	b.Metrics = &infra.Metrics{}

	slog.Info("✅ Bootstrap complete",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.Int("free_operations", cfg.Commission.FreeOperations),
	)
	return nil
}
