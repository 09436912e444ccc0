package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/HAMMOU2310/CryptoAutoTrader/internal/exchange"
	"github.com/HAMMOU2310/CryptoAutoTrader/internal/indicators"
	"github.com/HAMMOU2310/CryptoAutoTrader/internal/model"
	"github.com/HAMMOU2310/CryptoAutoTrader/internal/simulation"
)

// Configuration constants
const (
	DefaultSymbol       = "BTCUSDT"
	CandleInterval      = "1h"
	SummaryWindow       = 24
	IndicatorWindow     = 100
	MinCredentialLength = 16
	ProbeTimeout        = 15 * time.Second
)

// Outcome tells whether a result came from the exchange or the simulator
type Outcome string

const (
	OutcomeLive     Outcome = "live"
	OutcomeFallback Outcome = "fallback"
)

// Result is what every facade operation returns. Cause is set on fallback.
type Result[T any] struct {
	Value   T
	Outcome Outcome
	Cause   error
}

// Fallback reports whether the value was simulated
func (r Result[T]) Fallback() bool {
	return r.Outcome == OutcomeFallback
}

// Credentials is the exchange key pair
type Credentials struct {
	APIKey    string
	APISecret string
}

// Valid applies the presence and length heuristic
func (c Credentials) Valid() bool {
	return len(strings.TrimSpace(c.APIKey)) >= MinCredentialLength &&
		len(strings.TrimSpace(c.APISecret)) >= MinCredentialLength
}

// Options configures the facade. Capability flags are resolved once at startup.
type Options struct {
	Credentials       Credentials
	Testnet           bool
	ExchangeEnabled   bool
	IndicatorsEnabled bool
	Environment       string
	DefaultSymbol     string
	ProbeTimeout      time.Duration
}

// ClientFactory builds the exchange client during a probe
type ClientFactory func(cfg exchange.Config) (exchange.Client, error)

// BinanceFactory is the production ClientFactory
func BinanceFactory(cfg exchange.Config) (exchange.Client, error) {
	return exchange.NewBinanceClient(cfg)
}

// MarketService is the facade between request handlers and the exchange.
// It never fails a caller because of the exchange: every upstream error
// turns into a simulated payload for that one call.
type MarketService struct {
	opts      Options
	newClient ClientFactory
	sim       *simulation.Simulator
	logger    *slog.Logger
	startedAt time.Time
	initOnce  sync.Once

	mu        sync.RWMutex
	client    exchange.Client
	state     model.ConnectionState
	lastErr   error
	lastErrAt time.Time
}

// NewMarketService creates the facade in the uninitialized state
func NewMarketService(opts Options, newClient ClientFactory, sim *simulation.Simulator, logger *slog.Logger) *MarketService {
	if logger == nil {
		logger = slog.Default()
	}
	if sim == nil {
		sim = simulation.NewSimulator()
	}
	if newClient == nil {
		newClient = BinanceFactory
	}
	if opts.DefaultSymbol == "" {
		opts.DefaultSymbol = DefaultSymbol
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = ProbeTimeout
	}

	return &MarketService{
		opts:      opts,
		newClient: newClient,
		sim:       sim,
		logger:    logger,
		startedAt: time.Now(),
		state:     model.StateUninitialized,
	}
}

// Init probes the exchange once per process; later calls are no-ops
func (s *MarketService) Init(ctx context.Context) model.ConnectionState {
	s.initOnce.Do(func() {
		s.Probe(ctx)
	})
	return s.State()
}

// Probe re-evaluates the connection state
func (s *MarketService) Probe(ctx context.Context) model.ConnectionState {
	state, client, err := s.probe(ctx)

	s.mu.Lock()
	s.state = state
	s.client = client
	if err != nil {
		s.lastErr = err
		s.lastErrAt = time.Now()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("exchange probe failed",
			"state", state,
			"kind", exchange.Classify(err),
			"testnet", s.opts.Testnet,
			"error", err)
	} else {
		s.logger.Info("exchange connected", "testnet", s.opts.Testnet)
	}
	return state
}

func (s *MarketService) probe(ctx context.Context) (model.ConnectionState, exchange.Client, error) {
	if !s.opts.Credentials.Valid() {
		return model.StateNoKeys, nil, exchange.ErrMissingCredentials
	}
	if !s.opts.ExchangeEnabled {
		return model.StateLibraryMissing, nil, exchange.ErrExchangeDisabled
	}

	client, err := s.newClient(exchange.Config{
		APIKey:    s.opts.Credentials.APIKey,
		APISecret: s.opts.Credentials.APISecret,
		Testnet:   s.opts.Testnet,
	})
	if err != nil {
		return model.StateLibraryMissing, nil, fmt.Errorf("%w: %w", exchange.ErrExchangeDisabled, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.ProbeTimeout)
	defer cancel()

	if _, err := client.Account(ctx); err != nil {
		return model.StateError, nil, err
	}
	return model.StateConnected, client, nil
}

// State returns the current connection state
func (s *MarketService) State() model.ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// live returns the client when the facade is connected, or the reason it is not
func (s *MarketService) live() (exchange.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.state {
	case model.StateConnected:
		return s.client, nil
	case model.StateNoKeys:
		return nil, exchange.ErrMissingCredentials
	case model.StateLibraryMissing:
		return nil, exchange.ErrExchangeDisabled
	case model.StateError:
		return nil, fmt.Errorf("%w: %v", exchange.ErrNotConnected, s.lastErr)
	default:
		return nil, exchange.ErrNotConnected
	}
}

// recordFailure keeps the error for diagnostics; the state is left alone so the next call goes live again
func (s *MarketService) recordFailure(operation, symbol string, err error) {
	s.mu.Lock()
	s.lastErr = err
	s.lastErrAt = time.Now()
	s.mu.Unlock()

	s.logger.Warn("live call failed, serving fallback",
		"operation", operation,
		"symbol", symbol,
		"kind", exchange.Classify(err),
		"error", err)
}

func (s *MarketService) symbolOrDefault(symbol string) string {
	if symbol == "" {
		return s.opts.DefaultSymbol
	}
	return symbol
}

func provenance(source model.Source, cause error) model.Provenance {
	p := model.Provenance{Success: true, Source: source}
	if cause != nil {
		p.Note = fmt.Sprintf("%s: %v", exchange.Classify(cause), cause)
	}
	return p
}

func liveResult[T any](v T) Result[T] {
	return Result[T]{Value: v, Outcome: OutcomeLive}
}

func fallbackResult[T any](v T, cause error) Result[T] {
	return Result[T]{Value: v, Outcome: OutcomeFallback, Cause: cause}
}

// GetPrice returns the spot price of symbol
func (s *MarketService) GetPrice(ctx context.Context, symbol string) Result[model.PriceQuote] {
	symbol = s.symbolOrDefault(symbol)

	client, err := s.live()
	if err == nil {
		var price float64
		price, err = client.TickerPrice(ctx, symbol)
		if err == nil {
			return liveResult(model.PriceQuote{
				Symbol:     symbol,
				Price:      price,
				Timestamp:  timestamp(),
				Provenance: provenance(model.SourceLive, nil),
			})
		}
		s.recordFailure("price", symbol, err)
	}

	quote := s.sim.Quote(symbol)
	quote.Provenance = provenance(model.SourceFallback, err)
	return fallbackResult(quote, err)
}

// GetMarketSummary returns the 24h view of symbol built from hourly candles
func (s *MarketService) GetMarketSummary(ctx context.Context, symbol string) Result[model.MarketSummary] {
	symbol = s.symbolOrDefault(symbol)

	client, err := s.live()
	if err == nil {
		var candles []model.Candle
		candles, err = client.Klines(ctx, symbol, CandleInterval, SummaryWindow)
		if err == nil && len(candles) == 0 {
			err = exchange.ErrNoData
		}
		if err == nil {
			summary := Summarize(symbol, candles)
			summary.Provenance = provenance(model.SourceLive, nil)
			return liveResult(summary)
		}
		s.recordFailure("market_summary", symbol, err)
	}

	summary := s.sim.Summary(symbol)
	summary.Provenance = provenance(model.SourceFallback, err)
	return fallbackResult(summary, err)
}

// GetIndicators returns RSI, MACD and SMA readings for symbol.
// A live window shorter than indicators.MinCandles is a hard error.
func (s *MarketService) GetIndicators(ctx context.Context, symbol string) (Result[model.IndicatorSet], error) {
	symbol = s.symbolOrDefault(symbol)

	client, err := s.live()
	if err == nil && !s.opts.IndicatorsEnabled {
		err = exchange.ErrIndicatorsDisabled
	}
	if err == nil {
		var candles []model.Candle
		candles, err = client.Klines(ctx, symbol, CandleInterval, IndicatorWindow)
		if err == nil {
			if len(candles) < indicators.MinCandles {
				return Result[model.IndicatorSet]{}, fmt.Errorf("%s: got %d candles, need %d: %w",
					symbol, len(candles), indicators.MinCandles, exchange.ErrInsufficientData)
			}
			set := Analyze(symbol, candles)
			set.Provenance = provenance(model.SourceLive, nil)
			return liveResult(set), nil
		}
		s.recordFailure("indicators", symbol, err)
	}

	set := s.sim.Indicators(symbol)
	set.Provenance = provenance(model.SourceFallback, err)
	return fallbackResult(set, err), nil
}

// GetAccountBalances returns the non-zero balances of the account
func (s *MarketService) GetAccountBalances(ctx context.Context) Result[model.AccountSnapshot] {
	client, err := s.live()
	if err == nil {
		var account exchange.Account
		account, err = client.Account(ctx)
		if err == nil {
			return liveResult(model.AccountSnapshot{
				AccountType: account.Type,
				Balances:    FilterBalances(account.Balances),
				Timestamp:   timestamp(),
				Provenance:  provenance(model.SourceLive, nil),
			})
		}
		s.recordFailure("account", "", err)
	}

	snapshot := s.sim.Account()
	snapshot.Provenance = provenance(model.SourceFallback, err)
	return fallbackResult(snapshot, err)
}

// PlaceTestOrder validates a market order against the exchange without executing it
func (s *MarketService) PlaceTestOrder(ctx context.Context, order model.TestOrder) Result[model.OrderEcho] {
	order.Symbol = s.symbolOrDefault(order.Symbol)

	client, err := s.live()
	if err == nil {
		err = client.TestOrder(ctx, order)
		if err == nil {
			return liveResult(model.OrderEcho{
				OrderID:      "test",
				Symbol:       order.Symbol,
				Side:         order.Side,
				Type:         "MARKET",
				Quantity:     order.Quantity,
				Status:       "TEST_ACCEPTED",
				TransactTime: time.Now().UnixMilli(),
				Provenance:   provenance(model.SourceLive, nil),
			})
		}
		s.recordFailure("test_order", order.Symbol, err)
	}

	echo := s.sim.OrderEcho(order)
	echo.Provenance = provenance(model.SourceFallback, err)
	return fallbackResult(echo, err)
}

// Summarize aggregates a non-empty candle window (oldest first)
func Summarize(symbol string, candles []model.Candle) model.MarketSummary {
	summary := model.MarketSummary{
		Symbol:      symbol,
		CandleCount: len(candles),
		Timestamp:   timestamp(),
	}
	if len(candles) == 0 {
		return summary
	}

	first, latest := candles[0], candles[len(candles)-1]
	summary.CurrentPrice = latest.Close
	summary.High24h = first.High
	summary.Low24h = first.Low

	for _, c := range candles {
		if c.High > summary.High24h {
			summary.High24h = c.High
		}
		if c.Low < summary.Low24h {
			summary.Low24h = c.Low
		}
		summary.Volume24h += c.Volume
	}

	if len(candles) >= 2 && first.Close != 0 {
		summary.PriceChange24h = (latest.Close - first.Close) / first.Close * 100
	}
	return summary
}

// Analyze runs the indicator library over the closes of a candle window
func Analyze(symbol string, candles []model.Candle) model.IndicatorSet {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	v := indicators.Compute(closes)

	set := model.IndicatorSet{
		Symbol:      symbol,
		CandleCount: len(candles),
		Timestamp:   timestamp(),
		RSI: model.RSI{
			Value:  v.RSI,
			Signal: indicators.RSISignal(v.RSI),
		},
		MACD: model.MACD{
			MACD:      v.MACD,
			Signal:    v.MACDSignal,
			Histogram: v.MACDHist,
			Trend:     indicators.MACDTrend(v.MACD, v.MACDSignal),
		},
		SMA: model.SMA{
			SMA20: v.SMA20,
			SMA50: v.SMA50,
			Trend: indicators.SMATrend(v.SMA20, v.SMA50),
		},
	}
	if len(closes) > 0 {
		set.CurrentPrice = closes[len(closes)-1]
	}
	return set
}

// FilterBalances drops empty assets and totals the rest
func FilterBalances(balances []exchange.AssetBalance) []model.Balance {
	out := make([]model.Balance, 0, len(balances))
	for _, b := range balances {
		if !b.Free.IsPositive() && !b.Locked.IsPositive() {
			continue
		}
		out = append(out, model.Balance{
			Asset:  b.Asset,
			Free:   b.Free.InexactFloat64(),
			Locked: b.Locked.InexactFloat64(),
			Total:  b.Free.Add(b.Locked).InexactFloat64(),
		})
	}
	return out
}

// IsInsufficientData reports whether err is the hard indicator-window error
func IsInsufficientData(err error) bool {
	return errors.Is(err, exchange.ErrInsufficientData)
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
