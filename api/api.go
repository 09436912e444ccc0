package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/HAMMOU2310/CryptoAutoTrader/internal/model"
	"github.com/HAMMOU2310/CryptoAutoTrader/internal/service"
)

// This file defines the APIHandler and its dependencies. The rest of the package is split as:
// - handler.go: HTTP request handlers
// - middleware.go: Middleware functions
// - validator.go: Request validation and symbol normalisation

// Constants
const (
	DefaultTimeout      = 30 * time.Second
	ServiceVersion      = "1.0.0"
	ServiceName         = "crypto-auto-trader"
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"
)

// MarketService is what the HTTP layer needs from the exchange facade
type MarketService interface {
	GetPrice(ctx context.Context, symbol string) service.Result[model.PriceQuote]
	GetMarketSummary(ctx context.Context, symbol string) service.Result[model.MarketSummary]
	GetIndicators(ctx context.Context, symbol string) (service.Result[model.IndicatorSet], error)
	GetAccountBalances(ctx context.Context) service.Result[model.AccountSnapshot]
	PlaceTestOrder(ctx context.Context, order model.TestOrder) service.Result[model.OrderEcho]
	Probe(ctx context.Context) model.ConnectionState
	Keys() service.KeyStatus
	Diagnostics() service.Diagnostics
}

// APIHandler handles HTTP requests using Gin framework
type APIHandler struct {
	service   MarketService
	validator *Validator
	logger    *slog.Logger
	timeout   time.Duration
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(svc MarketService, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &APIHandler{
		service:   svc,
		validator: GetValidator(),
		logger:    logger,
		timeout:   DefaultTimeout,
	}
}

// WithTimeout sets the per-request deadline passed to the facade
func (h *APIHandler) WithTimeout(timeout time.Duration) *APIHandler {
	if timeout > 0 {
		h.timeout = timeout
	}
	return h
}

// NewServer wraps the routes in an http.Server listening on port
func (h *APIHandler) NewServer(port int) *http.Server {
	return &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           h.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      h.timeout + 5*time.Second,
	}
}

// SetupRoutes configures all API routes
func (h *APIHandler) SetupRoutes() *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(requestIDMiddleware())
	router.Use(ginLoggerMiddleware())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/", h.Index)
	router.GET("/health", h.HealthCheck)

	// Market data
	router.GET("/price", h.GetPrice)
	router.GET("/price/:symbol", h.GetPrice)
	router.GET("/market", h.GetMarketSummary)
	router.GET("/indicators", h.GetIndicators)

	// Account and orders
	router.GET("/account", h.GetAccount)
	router.POST("/order/test", h.PlaceTestOrder)

	// Operator endpoints
	router.GET("/check-keys", h.CheckKeys)
	router.GET("/debug", h.Debug)
	router.POST("/reconnect", h.Reconnect)

	return router
}
