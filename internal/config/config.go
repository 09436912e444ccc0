package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/HAMMOU2310/CryptoAutoTrader/internal/model"
)

// Config is the process configuration, resolved once at startup
type Config struct {
	Environment string           `mapstructure:"environment" validate:"required"`
	Server      ServerConfig     `mapstructure:"server"`
	Exchange    ExchangeConfig   `mapstructure:"exchange"`
	Indicators  IndicatorsConfig `mapstructure:"indicators"`
	Monitor     MonitorConfig    `mapstructure:"monitor"`
	Logging     LoggingConfig    `mapstructure:"logging"`

	// EnvFileLoaded reports whether a .env file was found and applied
	EnvFileLoaded bool `mapstructure:"-"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"gt=0,lt=65536"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// ExchangeConfig holds the Binance credentials and client switches
type ExchangeConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	APIKey       string        `mapstructure:"api_key"`
	APISecret    string        `mapstructure:"api_secret"`
	Testnet      bool          `mapstructure:"testnet"`
	Symbol       string        `mapstructure:"symbol" validate:"required,alphanum"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout" validate:"gt=0"`
}

// IndicatorsConfig switches the indicator library on or off
type IndicatorsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MonitorConfig controls the background price monitor
type MonitorConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MinInterval time.Duration `mapstructure:"min_interval" validate:"gt=0"`
	MaxInterval time.Duration `mapstructure:"max_interval" validate:"gtefield=MinInterval"`
}

// LoggingConfig captures basic logging preferences for the service
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// LoadOptions says where configuration comes from besides the environment
type LoadOptions struct {
	ConfigFile string
	EnvFile    string
}

// environment variable names per config key
var envBindings = map[string][]string{
	"environment":         {"ENVIRONMENT"},
	"server.port":         {"PORT"},
	"exchange.enabled":    {"EXCHANGE_ENABLED"},
	"exchange.api_key":    {"BINANCE_API_KEY"},
	"exchange.api_secret": {"BINANCE_SECRET_KEY", "BINANCE_API_SECRET"},
	"exchange.testnet":    {"BINANCE_TESTNET"},
	"exchange.symbol":     {"SYMBOL"},
	"indicators.enabled":  {"INDICATORS_ENABLED"},
	"monitor.enabled":     {"MONITOR_ENABLED"},
	"logging.level":       {"LOG_LEVEL"},
	"logging.format":      {"LOG_FORMAT"},
}

// Load reads the .env file, the optional YAML file and the environment, in
// increasing order of precedence, and validates the result
func Load(opts LoadOptions) (*Config, error) {
	envLoaded, err := loadEnvFile(opts.EnvFile)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if opts.ConfigFile != "" {
		absPath, err := filepath.Abs(opts.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}

		v.SetConfigFile(absPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to load configuration file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.EnvFileLoaded = envLoaded
	return cfg, nil
}

// loadEnvFile applies path to the process environment. A missing file is not an error.
func loadEnvFile(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return true, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("server.port", 10000)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("exchange.enabled", true)
	v.SetDefault("exchange.api_key", "")
	v.SetDefault("exchange.api_secret", "")
	v.SetDefault("exchange.testnet", true)
	v.SetDefault("exchange.symbol", "BTCUSDT")
	v.SetDefault("exchange.probe_timeout", 15*time.Second)
	v.SetDefault("indicators.enabled", true)
	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.min_interval", 30*time.Second)
	v.SetDefault("monitor.max_interval", 60*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	cfg.Exchange.Symbol = model.NormalizeSymbol(cfg.Exchange.Symbol)
	cfg.Exchange.APIKey = strings.TrimSpace(cfg.Exchange.APIKey)
	cfg.Exchange.APISecret = strings.TrimSpace(cfg.Exchange.APISecret)
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// NewLogger builds the process logger from the logging section
func NewLogger(cfg LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
