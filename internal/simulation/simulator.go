package simulation

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HAMMOU2310/CryptoAutoTrader/internal/indicators"
	"github.com/HAMMOU2310/CryptoAutoTrader/internal/model"
)

// SimulatorConfig holds the ranges fallback payloads are drawn from
type SimulatorConfig struct {
	BasePrice      float64
	PriceJitter    float64
	MaxChangePct   float64
	RangePct       float64
	MinVolume      float64
	MaxVolume      float64
	SummaryCandles int
	MinRSI         float64
	MaxRSI         float64
	MaxMACD        float64
	DemoBalances   []model.Balance
}

// DefaultSimulatorConfig returns the ranges used when the exchange is unreachable
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		BasePrice:      45000.0,
		PriceJitter:    500.0,
		MaxChangePct:   3.0,
		RangePct:       0.02, // high/low at +-2% of price
		MinVolume:      500000.0,
		MaxVolume:      1500000.0,
		SummaryCandles: 24,
		MinRSI:         25.0,
		MaxRSI:         75.0,
		MaxMACD:        150.0,
		DemoBalances: []model.Balance{
			{Asset: "BTC", Free: 0.05, Locked: 0, Total: 0.05},
			{Asset: "USDT", Free: 1000, Locked: 0, Total: 1000},
		},
	}
}

// Simulator produces plausible market payloads. Safe for concurrent use.
type Simulator struct {
	config SimulatorConfig
	rng    *rand.Rand
	mu     sync.Mutex
}

// NewSimulator creates a simulator with default config
func NewSimulator() *Simulator {
	return NewSimulatorWithConfig(DefaultSimulatorConfig())
}

// NewSimulatorWithConfig creates a simulator with custom config
func NewSimulatorWithConfig(config SimulatorConfig) *Simulator {
	return NewSimulatorWithSeed(config, time.Now().UnixNano())
}

// NewSimulatorWithSeed creates a simulator with a fixed seed
func NewSimulatorWithSeed(config SimulatorConfig, seed int64) *Simulator {
	return &Simulator{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Config returns the simulator configuration
func (s *Simulator) Config() SimulatorConfig {
	return s.config
}

// uniform draws from [min, max)
func (s *Simulator) uniform(min, max float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + s.rng.Float64()*(max-min)
}

// Price returns the base price with a bounded perturbation
func (s *Simulator) Price() float64 {
	return s.config.BasePrice + s.uniform(-s.config.PriceJitter, s.config.PriceJitter)
}

// Quote builds a simulated price quote
func (s *Simulator) Quote(symbol string) model.PriceQuote {
	return model.PriceQuote{
		Symbol:    symbol,
		Price:     s.Price(),
		Timestamp: now(),
	}
}

// Summary builds a simulated 24h market summary
func (s *Simulator) Summary(symbol string) model.MarketSummary {
	price := s.Price()
	return model.MarketSummary{
		Symbol:         symbol,
		CurrentPrice:   price,
		PriceChange24h: s.uniform(-s.config.MaxChangePct, s.config.MaxChangePct),
		High24h:        price * (1 + s.config.RangePct),
		Low24h:         price * (1 - s.config.RangePct),
		Volume24h:      s.uniform(s.config.MinVolume, s.config.MaxVolume),
		CandleCount:    s.config.SummaryCandles,
		Timestamp:      now(),
	}
}

// Indicators builds a simulated indicator set read with the live thresholds
func (s *Simulator) Indicators(symbol string) model.IndicatorSet {
	price := s.Price()
	rsi := s.uniform(s.config.MinRSI, s.config.MaxRSI)
	macd := s.uniform(-s.config.MaxMACD, s.config.MaxMACD)
	signal := s.uniform(-s.config.MaxMACD, s.config.MaxMACD)
	hist := macd - signal
	sma20 := price * (1 + s.uniform(-s.config.RangePct, s.config.RangePct))
	sma50 := price * (1 + s.uniform(-s.config.RangePct, s.config.RangePct))

	return model.IndicatorSet{
		Symbol:       symbol,
		CurrentPrice: price,
		RSI: model.RSI{
			Value:  &rsi,
			Signal: indicators.RSISignal(&rsi),
		},
		MACD: model.MACD{
			MACD:      &macd,
			Signal:    &signal,
			Histogram: &hist,
			Trend:     indicators.MACDTrend(&macd, &signal),
		},
		SMA: model.SMA{
			SMA20: &sma20,
			SMA50: &sma50,
			Trend: indicators.SMATrend(&sma20, &sma50),
		},
		CandleCount: 0,
		Timestamp:   now(),
	}
}

// Account returns the fixed demo balances
func (s *Simulator) Account() model.AccountSnapshot {
	balances := make([]model.Balance, len(s.config.DemoBalances))
	copy(balances, s.config.DemoBalances)

	return model.AccountSnapshot{
		AccountType: "DEMO",
		Balances:    balances,
		Timestamp:   now(),
	}
}

// OrderEcho synthesizes the acknowledgement of a test order
func (s *Simulator) OrderEcho(order model.TestOrder) model.OrderEcho {
	return model.OrderEcho{
		OrderID:      "sim-" + uuid.New().String(),
		Symbol:       order.Symbol,
		Side:         order.Side,
		Type:         "MARKET",
		Quantity:     order.Quantity,
		Status:       "SIMULATED",
		TransactTime: time.Now().UnixMilli(),
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
