package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"github.com/HAMMOU2310/CryptoAutoTrader/api"
	"github.com/HAMMOU2310/CryptoAutoTrader/internal/config"
	"github.com/HAMMOU2310/CryptoAutoTrader/internal/core"
	"github.com/HAMMOU2310/CryptoAutoTrader/internal/exchange"
	"github.com/HAMMOU2310/CryptoAutoTrader/internal/model"
	"github.com/HAMMOU2310/CryptoAutoTrader/internal/service"
	"github.com/HAMMOU2310/CryptoAutoTrader/internal/simulation"
)

// bootstrap resolves configuration and the logger shared by every command
func bootstrap(cmd *cli.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: cmd.String("config"),
		EnvFile:    cmd.String("env-file"),
	})
	if err != nil {
		return nil, nil, err
	}

	logger := config.NewLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	if !cfg.EnvFileLoaded {
		logger.Warn("env file not found, using environment variables", "path", cmd.String("env-file"))
	}
	return cfg, logger, nil
}

func serviceOptions(cfg *config.Config) service.Options {
	return service.Options{
		Credentials: service.Credentials{
			APIKey:    cfg.Exchange.APIKey,
			APISecret: cfg.Exchange.APISecret,
		},
		Testnet:           cfg.Exchange.Testnet,
		ExchangeEnabled:   cfg.Exchange.Enabled,
		IndicatorsEnabled: cfg.Indicators.Enabled,
		Environment:       cfg.Environment,
		DefaultSymbol:     cfg.Exchange.Symbol,
		ProbeTimeout:      cfg.Exchange.ProbeTimeout,
	}
}

func newMarketService(cfg *config.Config, logger *slog.Logger) *service.MarketService {
	return service.NewMarketService(
		serviceOptions(cfg),
		service.BinanceFactory,
		simulation.NewSimulator(),
		logger.With("component", "market_service"),
	)
}

// newMonitor builds the price monitor when it is enabled and the exchange is reachable
func newMonitor(cfg *config.Config, state model.ConnectionState, logger *slog.Logger) (*core.PriceMonitor, error) {
	if !cfg.Monitor.Enabled {
		logger.Info("price monitor disabled by configuration")
		return nil, nil
	}
	if state != model.StateConnected {
		logger.Info("price monitor not started", "state", state)
		return nil, nil
	}

	client, err := exchange.NewBinanceClient(exchange.Config{
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.APISecret,
		Testnet:   cfg.Exchange.Testnet,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create monitor client: %w", err)
	}

	return core.NewPriceMonitor(client, core.MonitorConfig{
		Symbol:      cfg.Exchange.Symbol,
		MinInterval: cfg.Monitor.MinInterval,
		MaxInterval: cfg.Monitor.MaxInterval,
		CallTimeout: exchange.DefaultTimeout,
	}, logger), nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := bootstrap(cmd)
	if err != nil {
		return err
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 1. Exchange facade, probed once before accepting traffic
	svc := newMarketService(cfg, logger)
	state := svc.Init(ctx)

	// 2. Optional background price monitor with its own lifecycle
	monitor, err := newMonitor(cfg, state, logger)
	if err != nil {
		return err
	}
	if monitor != nil {
		monitor.Start(ctx)
	}

	// 3. HTTP surface
	server := api.NewAPIHandler(svc, logger).
		WithTimeout(cfg.Server.RequestTimeout).
		NewServer(cfg.Server.Port)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting",
			"port", cfg.Server.Port,
			"environment", cfg.Environment,
			"state", state,
			"testnet", cfg.Exchange.Testnet)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}
	if monitor != nil {
		select {
		case <-monitor.Done():
		case <-shutdownCtx.Done():
			logger.Warn("price monitor did not stop before shutdown timeout")
		}
	}

	logger.Info("service stopped")
	return nil
}

func probe(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	return runProbe(ctx, newMarketService(cfg, logger), os.Stdout)
}

// runProbe prints the diagnostics after one probe and fails unless connected
func runProbe(ctx context.Context, svc *service.MarketService, w io.Writer) error {
	state := svc.Init(ctx)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(svc.Diagnostics()); err != nil {
		return fmt.Errorf("failed to write diagnostics: %w", err)
	}

	if state != model.StateConnected {
		return fmt.Errorf("exchange not connected: %s", state)
	}
	return nil
}
