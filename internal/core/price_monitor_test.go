package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// MockPriceFetcher implements PriceFetcher for testing
type MockPriceFetcher struct {
	prices []float64
	errs   []error
	mu     sync.Mutex

	calls   int
	symbols []string
}

func (m *MockPriceFetcher) TickerPrice(ctx context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.calls
	m.calls++
	m.symbols = append(m.symbols, symbol)

	if i < len(m.errs) && m.errs[i] != nil {
		return 0, m.errs[i]
	}
	if len(m.prices) == 0 {
		return 0, nil
	}
	if i < len(m.prices) {
		return m.prices[i], nil
	}
	return m.prices[len(m.prices)-1], nil
}

func (m *MockPriceFetcher) GetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func fastConfig() MonitorConfig {
	return MonitorConfig{
		Symbol:      "BTCUSDT",
		MinInterval: 5 * time.Millisecond,
		MaxInterval: 10 * time.Millisecond,
		CallTimeout: time.Second,
	}
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestNewPriceMonitorDefaults(t *testing.T) {
	monitor := NewPriceMonitor(&MockPriceFetcher{}, MonitorConfig{Symbol: "ETHUSDT"}, nil)

	config := monitor.Config()
	if config.MinInterval != 30*time.Second {
		t.Errorf("Expected min interval 30s, got %v", config.MinInterval)
	}
	if config.MaxInterval != 30*time.Second {
		t.Errorf("Expected max interval clamped to 30s, got %v", config.MaxInterval)
	}
	if config.CallTimeout != DefaultCallTimeout {
		t.Errorf("Expected call timeout %v, got %v", DefaultCallTimeout, config.CallTimeout)
	}
	if monitor.logger == nil {
		t.Error("Logger not initialized")
	}
	if _, ok := monitor.Last(); ok {
		t.Error("Monitor should have no observation before Start")
	}
}

func TestNextDelayWithinBounds(t *testing.T) {
	monitor := NewPriceMonitor(&MockPriceFetcher{}, MonitorConfig{
		MinInterval: DefaultMinInterval,
		MaxInterval: DefaultMaxInterval,
	}, nil)

	for i := 0; i < 1000; i++ {
		d := monitor.nextDelay()
		if d < 30*time.Second || d > 60*time.Second {
			t.Fatalf("Delay %v outside [30s, 60s]", d)
		}
	}
}

func TestNextDelayFixedInterval(t *testing.T) {
	monitor := NewPriceMonitor(&MockPriceFetcher{}, MonitorConfig{
		MinInterval: time.Second,
		MaxInterval: time.Second,
	}, nil)

	if d := monitor.nextDelay(); d != time.Second {
		t.Errorf("Expected fixed delay 1s, got %v", d)
	}
}

func TestStartPollsRepeatedly(t *testing.T) {
	fetcher := &MockPriceFetcher{prices: []float64{45000, 45100, 45200}}
	monitor := NewPriceMonitor(fetcher, fastConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor.Start(ctx)
	waitFor(t, time.Second, func() bool { return monitor.Polls() >= 3 })

	obs, ok := monitor.Last()
	if !ok {
		t.Fatal("Expected an observation")
	}
	if obs.Err != nil {
		t.Errorf("Unexpected error: %v", obs.Err)
	}
	if obs.Price != 45200 && obs.Price != 45100 {
		t.Errorf("Unexpected last price %f", obs.Price)
	}

	fetcher.mu.Lock()
	for _, s := range fetcher.symbols {
		if s != "BTCUSDT" {
			t.Errorf("Expected symbol BTCUSDT, got %s", s)
		}
	}
	fetcher.mu.Unlock()
}

func TestPollErrorDoesNotStopLoop(t *testing.T) {
	fetcher := &MockPriceFetcher{
		prices: []float64{0, 0, 46000},
		errs:   []error{errors.New("timeout"), errors.New("timeout")},
	}
	monitor := NewPriceMonitor(fetcher, fastConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor.Start(ctx)
	waitFor(t, time.Second, func() bool { return fetcher.GetCalls() >= 3 })

	select {
	case <-monitor.Done():
		t.Fatal("Monitor should keep running after failed polls")
	default:
	}
}

func TestStopOnContextCancel(t *testing.T) {
	fetcher := &MockPriceFetcher{prices: []float64{45000}}
	config := fastConfig()
	config.MinInterval = time.Hour
	config.MaxInterval = time.Hour
	monitor := NewPriceMonitor(fetcher, config, nil)

	ctx, cancel := context.WithCancel(context.Background())
	monitor.Start(ctx)
	waitFor(t, time.Second, func() bool { return monitor.Polls() == 1 })

	cancel()

	select {
	case <-monitor.Done():
	case <-time.After(time.Second):
		t.Fatal("Monitor did not stop after context cancellation")
	}

	if fetcher.GetCalls() != 1 {
		t.Errorf("Expected 1 call, got %d", fetcher.GetCalls())
	}
}

func TestStartIsIdempotent(t *testing.T) {
	fetcher := &MockPriceFetcher{prices: []float64{45000}}
	config := fastConfig()
	config.MinInterval = time.Hour
	config.MaxInterval = time.Hour
	monitor := NewPriceMonitor(fetcher, config, nil)

	ctx, cancel := context.WithCancel(context.Background())
	monitor.Start(ctx)
	monitor.Start(ctx)
	waitFor(t, time.Second, func() bool { return monitor.Polls() >= 1 })

	time.Sleep(20 * time.Millisecond)
	if fetcher.GetCalls() != 1 {
		t.Errorf("Expected a single poll loop, got %d calls", fetcher.GetCalls())
	}

	cancel()
	<-monitor.Done()
}
