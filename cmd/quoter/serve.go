package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/tire-quoter/bot"
	"github.com/aluiziolira/tire-quoter/config"
	"github.com/aluiziolira/tire-quoter/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the liveness endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
}

func runServe(cfg *config.Config) error {
	if err := cfg.ValidateBot(); err != nil {
		if errors.Is(err, config.ErrMissingToken) {
			slog.Error("cannot start without a telegram token", slog.Any("error", err))
		} else {
			slog.Error("invalid bot configuration", slog.Any("error", err))
		}
		return err
	}

	quoter, metrics, err := buildQuoter(cfg)
	if err != nil {
		slog.Error("initialising quoter", slog.Any("error", err))
		return err
	}

	b, err := bot.New(cfg.Bot, quoter)
	if err != nil {
		slog.Error("initialising bot", slog.Any("error", err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var registry *prometheus.Registry
	if cfg.Server.Metrics {
		registry = metrics.Registry
	}
	srv := server.New(cfg.Server.Addr, registry)

	slog.Info("starting quoter",
		slog.String("base_url", cfg.Catalog.BaseURL),
		slog.String("addr", cfg.Server.Addr),
		slog.Int("max_results", cfg.Catalog.MaxResults),
		slog.String("currency_format", cfg.Report.CurrencyFormat),
	)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer stop()
		if err := srv.Run(ctx); err != nil {
			errCh <- err
		}
	}()
	go func() {
		defer wg.Done()
		defer stop()
		if err := b.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, waiting for in-flight quotes to finish")
	wg.Wait()
	close(errCh)

	var runErr error
	for err := range errCh {
		slog.Error("component failed", slog.Any("error", err))
		runErr = errors.Join(runErr, err)
	}
	return runErr
}
