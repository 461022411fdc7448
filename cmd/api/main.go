package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nsoren/payhook/internal/config"
	"github.com/nsoren/payhook/internal/dedup"
	"github.com/nsoren/payhook/internal/handler"
	"github.com/nsoren/payhook/internal/logging"
	"github.com/nsoren/payhook/internal/middleware"
	"github.com/nsoren/payhook/internal/notify"
	"github.com/nsoren/payhook/internal/processor"
	"github.com/nsoren/payhook/internal/provider"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("payhook", cfg.LogLevel, cfg.AppEnv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache := dedup.New(time.Duration(cfg.DedupTTLSeconds) * time.Second)
	go cache.Start(ctx)

	alerts := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
	if !alerts.Enabled() {
		slog.Warn("telegram credentials missing, alerts disabled")
	}
	mail := notify.NewBrevo(cfg.BrevoAPIKey, cfg.EmailSenderName, cfg.EmailSenderAddress, cfg.AdminCopyEmail)
	if !mail.Enabled() {
		slog.Warn("email credentials missing, customer emails disabled")
	}

	mollie := provider.NewMollie(cfg.MollieAPIKey, provider.MollieAPIBaseURL, cfg.MollieWebhookURL)
	adapters := []provider.Adapter{mollie}
	if cfg.RazorpayKeyID != "" && cfg.RazorpayKeySecret != "" {
		adapters = append(adapters, provider.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, provider.RazorpayAPIBaseURL))
	}

	dispatcher := processor.NewDispatcher(alerts, mail)
	orchestrator := processor.NewOrchestrator(cache, dispatcher, time.Duration(cfg.SubscriptionDelaySeconds)*time.Second)
	proc := processor.New(cache, dispatcher, orchestrator)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.Health)
	handler.NewWebhookHandler(proc, adapters...).Register(mux)
	handler.NewAdminHandler(mollie, cfg.AdminPassword).Register(mux)

	chain := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           chain,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr, "providers", len(adapters))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Join in-flight dispatch and orchestration tasks so acknowledged
	// notifications get their effects before the process exits.
	done := make(chan struct{})
	go func() {
		proc.Wait()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("background effects drained")
	case <-shutdownCtx.Done():
		slog.Warn("gave up waiting for background effects")
	}

	slog.Info("server stopped")
}
