package model

import "strings"

// Source tags where a payload came from
type Source string

const (
	SourceLive     Source = "binance_live"
	SourceFallback Source = "fallback_simulation"
)

// ConnectionState is the facade's view of the exchange
type ConnectionState string

const (
	StateUninitialized  ConnectionState = "uninitialized"
	StateConnected      ConnectionState = "connected"
	StateNoKeys         ConnectionState = "no_keys"
	StateLibraryMissing ConnectionState = "library_missing"
	StateError          ConnectionState = "error"
)

// Provenance is embedded in every payload returned to HTTP callers
type Provenance struct {
	Success bool   `json:"success"`
	Source  Source `json:"source"`
	Note    string `json:"note,omitempty"`
}

// Candle represents OHLCV data for a time interval
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	CloseTime int64   `json:"close_time"`
}

// PriceQuote is a spot price for a trading pair
type PriceQuote struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Timestamp string  `json:"timestamp"`
	Provenance
}

// MarketSummary aggregates the most recent hourly candles
type MarketSummary struct {
	Symbol         string  `json:"symbol"`
	CurrentPrice   float64 `json:"current_price"`
	PriceChange24h float64 `json:"price_change_24h"`
	High24h        float64 `json:"high_24h"`
	Low24h         float64 `json:"low_24h"`
	Volume24h      float64 `json:"volume_24h"`
	CandleCount    int     `json:"candle_count"`
	Timestamp      string  `json:"timestamp"`
	Provenance
}

// RSI holds the relative strength index and its reading
type RSI struct {
	Value  *float64 `json:"value"`
	Signal string   `json:"signal"`
}

// MACD holds the MACD line, its signal line and the histogram
type MACD struct {
	MACD      *float64 `json:"macd"`
	Signal    *float64 `json:"signal"`
	Histogram *float64 `json:"histogram"`
	Trend     string   `json:"trend"`
}

// SMA holds the 20 and 50 period simple moving averages
type SMA struct {
	SMA20 *float64 `json:"sma_20"`
	SMA50 *float64 `json:"sma_50"`
	Trend string   `json:"trend"`
}

// IndicatorSet is the technical analysis view of a symbol
type IndicatorSet struct {
	Symbol       string  `json:"symbol"`
	CurrentPrice float64 `json:"current_price"`
	RSI          RSI     `json:"rsi"`
	MACD         MACD    `json:"macd"`
	SMA          SMA     `json:"sma"`
	CandleCount  int     `json:"candle_count"`
	Timestamp    string  `json:"timestamp"`
	Provenance
}

// Balance is one asset of an account
type Balance struct {
	Asset  string  `json:"asset"`
	Free   float64 `json:"free"`
	Locked float64 `json:"locked"`
	Total  float64 `json:"total"`
}

// AccountSnapshot lists the non-zero balances of the account
type AccountSnapshot struct {
	AccountType string    `json:"account_type"`
	Balances    []Balance `json:"balances"`
	Timestamp   string    `json:"timestamp"`
	Provenance
}

// OrderSide is the direction of a test order
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// TestOrder is a market order submitted to the exchange's validation endpoint only
type TestOrder struct {
	Symbol   string    `json:"symbol"`
	Side     OrderSide `json:"side" binding:"required,oneof=BUY SELL"`
	Quantity float64   `json:"quantity" binding:"required,gt=0"`
}

// OrderEcho describes the outcome of a test order
type OrderEcho struct {
	OrderID      string    `json:"order_id"`
	Symbol       string    `json:"symbol"`
	Side         OrderSide `json:"side"`
	Type         string    `json:"type"`
	Quantity     float64   `json:"quantity"`
	Status       string    `json:"status"`
	TransactTime int64     `json:"transact_time"`
	Provenance
}

// NormalizeSymbol trims and upper-cases a trading pair and drops separators,
// so "btc/usdt", "BTC-USDT" and "btc_usdt" all become "BTCUSDT"
func NormalizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	return strings.NewReplacer("/", "", "-", "", "_", "").Replace(symbol)
}
