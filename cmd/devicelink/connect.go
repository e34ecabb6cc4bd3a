package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/ufogalaxy/devicelink/internal/adapters/http"
	"github.com/ufogalaxy/devicelink/internal/adapters/metrics"
	"github.com/ufogalaxy/devicelink/internal/adapters/tracing"
	"github.com/ufogalaxy/devicelink/internal/link"
)

// connectCmd keeps the device linked until interrupted
func connectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Connect to the gateway and stay linked",
		Long: `Connect to the gateway, register this device and keep the link alive
with heartbeats, reconnecting with linear backoff when it drops.

The command exits on SIGINT/SIGTERM, or with an error once the reconnect
attempts are exhausted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(cmd.Context())
		},
	}
}

func runConnect(ctx context.Context) error {
	logger := slog.Default()

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(cfg.Tracing.ServiceName)
		if err != nil {
			logger.Warn("failed to initialize tracing", "error", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Warn("error shutting down tracer", "error", err)
				}
			}()
		}
	}

	exhausted := make(chan error, 1)
	var once sync.Once
	handler := link.HandlerFuncs{
		Connected: func() {
			logger.Info("linked to gateway", "url", maskURL(cfg.Gateway.URL))
		},
		Disconnected: func(err error) {
			if err != nil {
				logger.Warn("link lost", "error", err)
				return
			}
			logger.Info("link closed")
		},
		Message: func(content string) {
			logger.Info("message", "content", content)
		},
		Command: func(action string, payload map[string]any) {
			logger.Info("command", "action", action, "payload", payload)
		},
		Error: func(err error) {
			if errors.Is(err, link.ErrReconnectExhausted) {
				once.Do(func() { exhausted <- err })
				return
			}
			logger.Error("gateway error", "error", err)
		},
	}

	client := link.New(cfg.ToLinkConfig(), handler,
		link.WithLogger(logger),
		link.WithObserver(metrics.NewLinkObserver()),
	)
	defer client.Close()

	if cfg.Server.MetricsAddr != "" {
		srv := http.NewServer(cfg.Server.MetricsAddr, client, version, logger)
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("status server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				logger.Warn("status server shutdown", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("connecting",
		"url", maskURL(cfg.Gateway.URL),
		"device_id", client.DeviceID(),
		"state", client.Connect(),
	)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		client.Disconnect()
		return nil
	case err := <-exhausted:
		return fmt.Errorf("giving up: %w", err)
	}
}
