package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HAMMOU2310/CryptoAutoTrader/internal/config"
	"github.com/HAMMOU2310/CryptoAutoTrader/internal/model"
	"github.com/HAMMOU2310/CryptoAutoTrader/internal/service"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Port:            10000,
			RequestTimeout:  time.Second,
			ShutdownTimeout: time.Second,
		},
		Exchange: config.ExchangeConfig{
			Enabled:      true,
			Testnet:      true,
			Symbol:       "ETHUSDT",
			ProbeTimeout: 2 * time.Second,
		},
		Indicators: config.IndicatorsConfig{Enabled: false},
		Monitor: config.MonitorConfig{
			Enabled:     true,
			MinInterval: 30 * time.Second,
			MaxInterval: 60 * time.Second,
		},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServiceOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Exchange.APIKey = "key"
	cfg.Exchange.APISecret = "secret"

	opts := serviceOptions(cfg)

	assert.Equal(t, service.Credentials{APIKey: "key", APISecret: "secret"}, opts.Credentials)
	assert.True(t, opts.Testnet)
	assert.True(t, opts.ExchangeEnabled)
	assert.False(t, opts.IndicatorsEnabled)
	assert.Equal(t, "test", opts.Environment)
	assert.Equal(t, "ETHUSDT", opts.DefaultSymbol)
	assert.Equal(t, 2*time.Second, opts.ProbeTimeout)
}

func TestNewMonitorSkipped(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		state   model.ConnectionState
	}{
		{"disabled", false, model.StateConnected},
		{"no keys", true, model.StateNoKeys},
		{"probe failed", true, model.StateError},
		{"exchange disabled", true, model.StateLibraryMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Monitor.Enabled = tt.enabled

			monitor, err := newMonitor(cfg, tt.state, discardLogger())
			require.NoError(t, err)
			assert.Nil(t, monitor)
		})
	}
}

func TestNewMonitorConnected(t *testing.T) {
	cfg := testConfig()
	cfg.Exchange.APIKey = "abcdefghijklmnopqrstuvwxyz012345"
	cfg.Exchange.APISecret = "zyxwvutsrqponmlkjihgfedcba543210"

	monitor, err := newMonitor(cfg, model.StateConnected, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, monitor)

	mc := monitor.Config()
	assert.Equal(t, "ETHUSDT", mc.Symbol)
	assert.Equal(t, 30*time.Second, mc.MinInterval)
	assert.Equal(t, 60*time.Second, mc.MaxInterval)
}

func TestRunProbeWithoutKeys(t *testing.T) {
	svc := newMarketService(testConfig(), discardLogger())

	var out bytes.Buffer
	err := runProbe(context.Background(), svc, &out)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_keys")

	var diag map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &diag))
	assert.Equal(t, "no_keys", diag["state"])
	assert.Equal(t, "missing_credentials", diag["last_error_kind"])
	assert.Equal(t, "ETHUSDT", diag["symbol"])
}
