// Package indicators computes RSI, MACD and moving averages over close prices.
// The math is done by go-talib; this package only guards window lengths and
// turns values into readings.
package indicators

import (
	"github.com/markcheno/go-talib"
)

const (
	RSIPeriod    = 14
	MACDFast     = 12
	MACDSlow     = 26
	MACDSignal   = 9
	SMAShort     = 20
	SMALong      = 50
	MinCandles   = 14
	Oversold     = 30.0
	Overbought   = 70.0
	Insufficient = "insufficient_data"
)

// Readings
const (
	SignalOversold   = "oversold"
	SignalOverbought = "overbought"
	SignalNeutral    = "neutral"
	TrendBullish     = "bullish"
	TrendBearish     = "bearish"
)

// Values holds the latest value of every indicator, nil when the window was too short
type Values struct {
	RSI        *float64
	MACD       *float64
	MACDSignal *float64
	MACDHist   *float64
	SMA20      *float64
	SMA50      *float64
}

// Compute runs every indicator over closes (oldest first)
func Compute(closes []float64) Values {
	var v Values
	n := len(closes)

	// talib indexes past the end when the input is not longer than the lookback
	if n > RSIPeriod {
		v.RSI = last(talib.Rsi(closes, RSIPeriod))
	}

	if n >= MACDSlow+MACDSignal-1 {
		macd, signal, hist := talib.Macd(closes, MACDFast, MACDSlow, MACDSignal)
		v.MACD = last(macd)
		v.MACDSignal = last(signal)
		v.MACDHist = last(hist)
	}

	if n >= SMAShort {
		v.SMA20 = last(talib.Sma(closes, SMAShort))
	}
	if n >= SMALong {
		v.SMA50 = last(talib.Sma(closes, SMALong))
	}

	return v
}

// RSISignal reads an RSI value
func RSISignal(rsi *float64) string {
	switch {
	case rsi == nil:
		return Insufficient
	case *rsi < Oversold:
		return SignalOversold
	case *rsi > Overbought:
		return SignalOverbought
	default:
		return SignalNeutral
	}
}

// MACDTrend compares the MACD line with its signal line
func MACDTrend(macd, signal *float64) string {
	if macd == nil || signal == nil {
		return Insufficient
	}
	return crossTrend(*macd, *signal)
}

// SMATrend compares the short and long moving averages
func SMATrend(short, long *float64) string {
	if short == nil || long == nil {
		return Insufficient
	}
	return crossTrend(*short, *long)
}

func crossTrend(fast, slow float64) string {
	if fast > slow {
		return TrendBullish
	}
	return TrendBearish
}

func last(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	return &v
}
