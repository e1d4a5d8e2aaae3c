package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exchange_go/internal/app"
	"exchange_go/internal/server"
	"exchange_go/internal/service"
)

func main() {
	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Session wiring: hub receives every balance change and outcome
	hub := server.NewHub(bootstrap.Metrics)
	session := service.NewSession(bootstrap.Policy, bootstrap.Settlement, hub, bootstrap.Metrics)
	session.Start()

	srv := &http.Server{
		Addr:    bootstrap.Config.Server.Addr,
		Handler: server.NewServer(session, hub),
	}

	go func() {
		slog.Info("✅ HTTP server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown", slog.Any("error", err))
	}
	hub.Close()
	session.Close()
	slog.Info("Session closed")
}
