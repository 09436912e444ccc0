package core

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// Monitor defaults
const (
	DefaultMinInterval = 30 * time.Second
	DefaultMaxInterval = 60 * time.Second
	DefaultCallTimeout = 10 * time.Second
)

// PriceFetcher is the single exchange call the monitor needs
type PriceFetcher interface {
	TickerPrice(ctx context.Context, symbol string) (float64, error)
}

// MonitorConfig controls what is polled and how often
type MonitorConfig struct {
	Symbol      string
	MinInterval time.Duration
	MaxInterval time.Duration
	CallTimeout time.Duration
}

// Observation is the outcome of one poll
type Observation struct {
	Price float64
	Err   error
	At    time.Time
}

// PriceMonitor polls the spot price of one symbol on a jittered schedule and logs it
type PriceMonitor struct {
	fetcher PriceFetcher
	config  MonitorConfig
	logger  *slog.Logger
	rng     *rand.Rand

	startOnce sync.Once
	done      chan struct{}

	mu    sync.RWMutex
	last  Observation
	polls int
}

// NewPriceMonitor creates a monitor; zero config fields take the defaults
func NewPriceMonitor(fetcher PriceFetcher, config MonitorConfig, logger *slog.Logger) *PriceMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MinInterval <= 0 {
		config.MinInterval = DefaultMinInterval
	}
	if config.MaxInterval < config.MinInterval {
		config.MaxInterval = config.MinInterval
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = DefaultCallTimeout
	}

	return &PriceMonitor{
		fetcher: fetcher,
		config:  config,
		logger:  logger.With("component", "price_monitor", "symbol", config.Symbol),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		done:    make(chan struct{}),
	}
}

// Start runs the poll loop until ctx is cancelled. Calling Start again is a no-op.
func (m *PriceMonitor) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		m.logger.Info("starting price monitor",
			"min_interval", m.config.MinInterval,
			"max_interval", m.config.MaxInterval)

		go m.run(ctx)
	})
}

func (m *PriceMonitor) run(ctx context.Context) {
	defer close(m.done)
	defer m.logger.Info("price monitor stopped")

	for {
		m.poll(ctx)

		timer := time.NewTimer(m.nextDelay())
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (m *PriceMonitor) poll(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, m.config.CallTimeout)
	defer cancel()

	price, err := m.fetcher.TickerPrice(callCtx, m.config.Symbol)
	obs := Observation{Price: price, Err: err, At: time.Now()}

	m.mu.Lock()
	m.last = obs
	m.polls++
	m.mu.Unlock()

	if err != nil {
		// a failed poll never stops the loop
		m.logger.Warn("price poll failed", "error", err)
		return
	}
	m.logger.Info("price update", "price", price)
}

// nextDelay draws uniformly from [MinInterval, MaxInterval]
func (m *PriceMonitor) nextDelay() time.Duration {
	span := m.config.MaxInterval - m.config.MinInterval
	if span <= 0 {
		return m.config.MinInterval
	}
	return m.config.MinInterval + time.Duration(m.rng.Int63n(int64(span)+1))
}

// Done is closed once the loop has exited
func (m *PriceMonitor) Done() <-chan struct{} {
	return m.done
}

// Last returns the most recent observation, if any
func (m *PriceMonitor) Last() (Observation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.polls > 0
}

// Polls returns how many polls have completed
func (m *PriceMonitor) Polls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.polls
}

// Config returns the effective configuration
func (m *PriceMonitor) Config() MonitorConfig {
	return m.config
}
