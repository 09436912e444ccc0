package exchange

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"github.com/HAMMOU2310/CryptoAutoTrader/internal/model"
)

const (
	liveBaseURL    = "https://api.binance.com"
	testnetBaseURL = "https://testnet.binance.vision"

	DefaultTimeout = 10 * time.Second
)

// Client is the subset of exchange calls the service needs
type Client interface {
	Account(ctx context.Context) (Account, error)
	TickerPrice(ctx context.Context, symbol string) (float64, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error)
	TestOrder(ctx context.Context, order model.TestOrder) error
}

// AssetBalance keeps exchange amounts as decimals until they are filtered and summed
type AssetBalance struct {
	Asset  string
	Free   decimal.Decimal
	Locked decimal.Decimal
}

// Account is the authenticated account view
type Account struct {
	Type     string
	Balances []AssetBalance
}

// Config holds what is needed to build a Binance client
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	// BaseURL overrides the endpoint picked from Testnet
	BaseURL string
	Timeout time.Duration
}

// BinanceClient implements Client on top of go-binance
type BinanceClient struct {
	api     *binance.Client
	testnet bool
}

// NewBinanceClient creates a Binance spot client
func NewBinanceClient(cfg Config) (*BinanceClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.APISecret) == "" {
		return nil, ErrMissingCredentials
	}

	baseURL := liveBaseURL
	if cfg.Testnet {
		baseURL = testnetBaseURL
	}
	if cfg.BaseURL != "" {
		baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	api := binance.NewClient(cfg.APIKey, cfg.APISecret)
	api.BaseURL = baseURL
	api.UserAgent = "crypto-auto-trader/1.0"
	api.HTTPClient = newHTTPClient(timeout)

	return &BinanceClient{
		api:     api,
		testnet: cfg.Testnet,
	}, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Testnet reports whether the client talks to the sandbox
func (c *BinanceClient) Testnet() bool {
	return c.testnet
}

// Account fetches every balance of the account
func (c *BinanceClient) Account(ctx context.Context) (Account, error) {
	res, err := c.api.NewGetAccountService().Do(ctx)
	if err != nil {
		return Account{}, fmt.Errorf("binance: get account: %w", err)
	}

	balances := make([]AssetBalance, 0, len(res.Balances))
	for _, b := range res.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			return Account{}, fmt.Errorf("binance: parse free balance of %s: %w", b.Asset, err)
		}
		locked, err := decimal.NewFromString(b.Locked)
		if err != nil {
			return Account{}, fmt.Errorf("binance: parse locked balance of %s: %w", b.Asset, err)
		}
		balances = append(balances, AssetBalance{
			Asset:  b.Asset,
			Free:   free,
			Locked: locked,
		})
	}

	return Account{
		Type:     res.AccountType,
		Balances: balances,
	}, nil
}

// TickerPrice fetches the latest price of a symbol
func (c *BinanceClient) TickerPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := c.api.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("binance: ticker price %s: %w", symbol, err)
	}
	for _, p := range prices {
		if p.Symbol != symbol {
			continue
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return 0, fmt.Errorf("binance: parse price of %s: %w", symbol, err)
		}
		return price.InexactFloat64(), nil
	}
	return 0, fmt.Errorf("binance: ticker price %s: %w", symbol, ErrNoData)
}

// Klines fetches the most recent candles, oldest first
func (c *BinanceClient) Klines(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	klines, err := c.api.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: klines %s %s: %w", symbol, interval, err)
	}

	candles := make([]model.Candle, 0, len(klines))
	for _, k := range klines {
		candle, err := toCandle(k)
		if err != nil {
			return nil, fmt.Errorf("binance: klines %s %s: %w", symbol, interval, err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// TestOrder submits a market order to the validation endpoint; nothing is executed
func (c *BinanceClient) TestOrder(ctx context.Context, order model.TestOrder) error {
	qty := decimal.NewFromFloat(order.Quantity).String()
	err := c.api.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(binance.SideType(order.Side)).
		Type(binance.OrderTypeMarket).
		Quantity(qty).
		Test(ctx)
	if err != nil {
		return fmt.Errorf("binance: test order %s: %w", order.Symbol, err)
	}
	return nil
}

func toCandle(k *binance.Kline) (model.Candle, error) {
	fields := []string{k.Open, k.High, k.Low, k.Close, k.Volume}
	values := make([]float64, len(fields))
	for i, f := range fields {
		d, err := decimal.NewFromString(f)
		if err != nil {
			return model.Candle{}, fmt.Errorf("parse kline at %d: %w", k.OpenTime, err)
		}
		values[i] = d.InexactFloat64()
	}

	return model.Candle{
		OpenTime:  k.OpenTime,
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
		CloseTime: k.CloseTime,
	}, nil
}
