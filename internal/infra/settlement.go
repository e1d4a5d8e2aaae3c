package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"exchange_go/internal/domain"
)

// settlementResponse is the exchange API payload: the settled amount in the
// destination currency.
type settlementResponse struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// SettlementClient fetches the settled amount for a conversion from the
// commercial exchange API. One call per validated attempt, no retries: a
// failure is terminal for the attempt.
type SettlementClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSettlementClient creates a settlement client for the given base URL
func NewSettlementClient(baseURL string, timeout time.Duration) *SettlementClient {
	return &SettlementClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchSettledAmount asks the exchange API how much of the destination
// currency the given source amount settles to. The path shape is
// {amount}-{FROM}/{TO}/latest appended to the base URL.
func (c *SettlementClient) FetchSettledAmount(ctx context.Context, amount decimal.Decimal, from, to domain.Code) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/%s-%s/%s/latest", c.baseURL, amount.StringFixed(domain.Scale), from, to)

	slog.Debug("fetching settlement", slog.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, domain.NewFetchError("request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, domain.NewFetchError("get", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, domain.NewFetchError("get", fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, domain.NewFetchError("read", err)
	}
	if len(body) == 0 {
		return decimal.Zero, domain.ErrEmptyResponse
	}

	var payload settlementResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Zero, domain.NewFetchError("decode", err)
	}

	return domain.Quantize(payload.Amount), nil
}
