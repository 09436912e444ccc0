package simulation

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HAMMOU2310/CryptoAutoTrader/internal/indicators"
	"github.com/HAMMOU2310/CryptoAutoTrader/internal/model"
)

func TestDefaultSimulatorConfig(t *testing.T) {
	config := DefaultSimulatorConfig()

	assert.Equal(t, 45000.0, config.BasePrice)
	assert.Equal(t, 500.0, config.PriceJitter)
	assert.Equal(t, 3.0, config.MaxChangePct)
	assert.Equal(t, 0.02, config.RangePct)
	assert.Equal(t, 24, config.SummaryCandles)
	assert.Equal(t, []model.Balance{
		{Asset: "BTC", Free: 0.05, Locked: 0, Total: 0.05},
		{Asset: "USDT", Free: 1000, Locked: 0, Total: 1000},
	}, config.DemoBalances)
}

func TestPriceBounds(t *testing.T) {
	sim := NewSimulatorWithSeed(DefaultSimulatorConfig(), 42)

	for i := 0; i < 1000; i++ {
		price := sim.Price()
		assert.GreaterOrEqual(t, price, 44500.0)
		assert.LessOrEqual(t, price, 45500.0)
	}
}

func TestSeededSimulatorIsDeterministic(t *testing.T) {
	a := NewSimulatorWithSeed(DefaultSimulatorConfig(), 7)
	b := NewSimulatorWithSeed(DefaultSimulatorConfig(), 7)

	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Price(), b.Price())
	}
}

func TestQuote(t *testing.T) {
	sim := NewSimulator()
	quote := sim.Quote("ETHUSDT")

	assert.Equal(t, "ETHUSDT", quote.Symbol)
	assert.NotEmpty(t, quote.Timestamp)
	assert.InDelta(t, 45000.0, quote.Price, 500.0)
}

func TestSummary(t *testing.T) {
	sim := NewSimulatorWithSeed(DefaultSimulatorConfig(), 1)

	for i := 0; i < 200; i++ {
		summary := sim.Summary("BTCUSDT")

		assert.Equal(t, "BTCUSDT", summary.Symbol)
		assert.GreaterOrEqual(t, summary.PriceChange24h, -3.0)
		assert.LessOrEqual(t, summary.PriceChange24h, 3.0)
		assert.InDelta(t, summary.CurrentPrice*1.02, summary.High24h, 1e-6)
		assert.InDelta(t, summary.CurrentPrice*0.98, summary.Low24h, 1e-6)
		assert.GreaterOrEqual(t, summary.Volume24h, 500000.0)
		assert.Less(t, summary.Volume24h, 1500000.0)
		assert.Equal(t, 24, summary.CandleCount)
	}
}

func TestIndicators(t *testing.T) {
	sim := NewSimulatorWithSeed(DefaultSimulatorConfig(), 3)

	for i := 0; i < 200; i++ {
		set := sim.Indicators("BTCUSDT")

		require.NotNil(t, set.RSI.Value)
		assert.GreaterOrEqual(t, *set.RSI.Value, 25.0)
		assert.Less(t, *set.RSI.Value, 75.0)
		assert.Equal(t, indicators.RSISignal(set.RSI.Value), set.RSI.Signal)

		require.NotNil(t, set.MACD.MACD)
		require.NotNil(t, set.MACD.Signal)
		require.NotNil(t, set.MACD.Histogram)
		assert.InDelta(t, *set.MACD.MACD-*set.MACD.Signal, *set.MACD.Histogram, 1e-9)
		assert.Equal(t, indicators.MACDTrend(set.MACD.MACD, set.MACD.Signal), set.MACD.Trend)

		require.NotNil(t, set.SMA.SMA20)
		require.NotNil(t, set.SMA.SMA50)
		assert.InDelta(t, set.CurrentPrice, *set.SMA.SMA20, set.CurrentPrice*0.02)
		assert.Equal(t, indicators.SMATrend(set.SMA.SMA20, set.SMA.SMA50), set.SMA.Trend)
	}
}

func TestAccountReturnsCopy(t *testing.T) {
	sim := NewSimulator()

	first := sim.Account()
	first.Balances[0].Free = 99

	second := sim.Account()
	assert.Equal(t, 0.05, second.Balances[0].Free)
	assert.Equal(t, "DEMO", second.AccountType)
	assert.Len(t, second.Balances, 2)
}

func TestOrderEcho(t *testing.T) {
	sim := NewSimulator()
	order := model.TestOrder{Symbol: "BTCUSDT", Side: model.SideSell, Quantity: 0.01}

	echo := sim.OrderEcho(order)

	assert.True(t, strings.HasPrefix(echo.OrderID, "sim-"))
	assert.Equal(t, "BTCUSDT", echo.Symbol)
	assert.Equal(t, model.SideSell, echo.Side)
	assert.Equal(t, "MARKET", echo.Type)
	assert.Equal(t, 0.01, echo.Quantity)
	assert.Equal(t, "SIMULATED", echo.Status)
	assert.Greater(t, echo.TransactTime, int64(0))
	assert.NotEqual(t, echo.OrderID, sim.OrderEcho(order).OrderID)
}

func TestConcurrentUse(t *testing.T) {
	sim := NewSimulator()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sim.Price()
				sim.Summary("BTCUSDT")
			}
		}()
	}
	wg.Wait()
}
