package service

import (
	"strings"
	"time"

	"github.com/HAMMOU2310/CryptoAutoTrader/internal/exchange"
	"github.com/HAMMOU2310/CryptoAutoTrader/internal/model"
)

// KeyStatus describes the configured key pair without revealing it
type KeyStatus struct {
	APIKeyPresent    bool   `json:"api_key_present"`
	APISecretPresent bool   `json:"api_secret_present"`
	APIKeyLength     int    `json:"api_key_length"`
	APISecretLength  int    `json:"api_secret_length"`
	Valid            bool   `json:"valid"`
	APIKeyPreview    string `json:"api_key_preview,omitempty"`
}

// Diagnostics is the operator view of the facade
type Diagnostics struct {
	State             model.ConnectionState `json:"state"`
	LastError         string                `json:"last_error,omitempty"`
	LastErrorKind     exchange.Kind         `json:"last_error_kind,omitempty"`
	LastErrorAt       string                `json:"last_error_at,omitempty"`
	Testnet           bool                  `json:"testnet"`
	ExchangeEnabled   bool                  `json:"exchange_enabled"`
	IndicatorsEnabled bool                  `json:"indicators_enabled"`
	Environment       string                `json:"environment"`
	Symbol            string                `json:"symbol"`
	Keys              KeyStatus             `json:"keys"`
	StartedAt         string                `json:"started_at"`
	UptimeSeconds     int64                 `json:"uptime_seconds"`
}

// Keys reports presence and shape of the configured credentials
func (s *MarketService) Keys() KeyStatus {
	key := strings.TrimSpace(s.opts.Credentials.APIKey)
	secret := strings.TrimSpace(s.opts.Credentials.APISecret)

	return KeyStatus{
		APIKeyPresent:    key != "",
		APISecretPresent: secret != "",
		APIKeyLength:     len(key),
		APISecretLength:  len(secret),
		Valid:            s.opts.Credentials.Valid(),
		APIKeyPreview:    maskKey(key),
	}
}

// Diagnostics returns the state, last error and configuration flags
func (s *MarketService) Diagnostics() Diagnostics {
	s.mu.RLock()
	state, lastErr, lastErrAt := s.state, s.lastErr, s.lastErrAt
	s.mu.RUnlock()

	d := Diagnostics{
		State:             state,
		Testnet:           s.opts.Testnet,
		ExchangeEnabled:   s.opts.ExchangeEnabled,
		IndicatorsEnabled: s.opts.IndicatorsEnabled,
		Environment:       s.opts.Environment,
		Symbol:            s.opts.DefaultSymbol,
		Keys:              s.Keys(),
		StartedAt:         s.startedAt.UTC().Format(time.RFC3339),
		UptimeSeconds:     int64(time.Since(s.startedAt).Seconds()),
	}
	if lastErr != nil {
		d.LastError = lastErr.Error()
		d.LastErrorKind = exchange.Classify(lastErr)
		d.LastErrorAt = lastErrAt.UTC().Format(time.RFC3339)
	}
	return d
}

// maskKey keeps the first and last four characters of long keys
func maskKey(key string) string {
	if len(key) < 12 {
		return ""
	}
	return key[:4] + "..." + key[len(key)-4:]
}
