package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/HAMMOU2310/CryptoAutoTrader/internal/model"
	"github.com/HAMMOU2310/CryptoAutoTrader/internal/service"
)

// Index handles GET / requests
func (h *APIHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": ServiceName,
		"version": ServiceVersion,
		"status":  h.service.Diagnostics().State,
		"endpoints": []string{
			"GET /health",
			"GET /price",
			"GET /price/:symbol",
			"GET /market?symbol=",
			"GET /indicators?symbol=",
			"GET /account",
			"POST /order/test",
			"GET /check-keys",
			"GET /debug",
			"POST /reconnect",
		},
	})
}

// HealthCheck handles GET /health requests
func (h *APIHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "active",
		"service":   ServiceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   ServiceVersion,
	})
}

// GetPrice handles GET /price and GET /price/:symbol requests
func (h *APIHandler) GetPrice(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	symbol := c.Param("symbol")
	if symbol == "" {
		symbol = c.Query("symbol")
	}

	cleanSymbol, err := h.validator.ValidateSymbol(symbol)
	if err != nil {
		h.handleValidationError(c, err)
		return
	}

	res := h.service.GetPrice(ctx, cleanSymbol)
	h.logFallback(c, "price", res.Outcome, res.Cause)
	c.JSON(http.StatusOK, res.Value)
}

// GetMarketSummary handles GET /market requests
func (h *APIHandler) GetMarketSummary(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	cleanSymbol, err := h.validator.ValidateSymbol(c.Query("symbol"))
	if err != nil {
		h.handleValidationError(c, err)
		return
	}

	res := h.service.GetMarketSummary(ctx, cleanSymbol)
	h.logFallback(c, "market", res.Outcome, res.Cause)
	c.JSON(http.StatusOK, res.Value)
}

// GetIndicators handles GET /indicators requests
func (h *APIHandler) GetIndicators(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	cleanSymbol, err := h.validator.ValidateSymbol(c.Query("symbol"))
	if err != nil {
		h.handleValidationError(c, err)
		return
	}

	res, err := h.service.GetIndicators(ctx, cleanSymbol)
	if err != nil {
		if service.IsInsufficientData(err) {
			h.logger.Warn("indicator window too short",
				slog.String("request_id", requestIDFrom(c)),
				slog.String("symbol", cleanSymbol),
				slog.String("error", err.Error()))

			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"success":    false,
				"status":     "insufficient_data",
				"error":      err.Error(),
				"request_id": requestIDFrom(c),
			})
			return
		}
		h.handleError(c, err, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.logFallback(c, "indicators", res.Outcome, res.Cause)
	c.JSON(http.StatusOK, res.Value)
}

// GetAccount handles GET /account requests
func (h *APIHandler) GetAccount(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	res := h.service.GetAccountBalances(ctx)
	h.logFallback(c, "account", res.Outcome, res.Cause)
	c.JSON(http.StatusOK, res.Value)
}

// PlaceTestOrder handles POST /order/test requests
func (h *APIHandler) PlaceTestOrder(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	var order model.TestOrder
	if err := c.ShouldBindJSON(&order); err != nil {
		h.handleValidationError(c, err)
		return
	}

	order, err := h.validator.ValidateOrder(order)
	if err != nil {
		h.handleValidationError(c, err)
		return
	}

	res := h.service.PlaceTestOrder(ctx, order)
	h.logFallback(c, "order_test", res.Outcome, res.Cause)
	c.JSON(http.StatusOK, res.Value)
}

// CheckKeys handles GET /check-keys requests
func (h *APIHandler) CheckKeys(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"keys":  h.service.Keys(),
		"state": h.service.Diagnostics().State,
	})
}

// Debug handles GET /debug requests
func (h *APIHandler) Debug(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Diagnostics())
}

// Reconnect handles POST /reconnect requests
func (h *APIHandler) Reconnect(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	state := h.service.Probe(ctx)
	h.logger.Info("exchange re-probed",
		slog.String("request_id", requestIDFrom(c)),
		slog.String("state", string(state)))

	c.JSON(http.StatusOK, h.service.Diagnostics())
}

// logFallback records at debug level that a request was served from the simulator
func (h *APIHandler) logFallback(c *gin.Context, endpoint string, outcome service.Outcome, cause error) {
	if outcome != service.OutcomeFallback {
		return
	}
	attrs := []any{
		slog.String("request_id", requestIDFrom(c)),
		slog.String("endpoint", endpoint),
	}
	if cause != nil {
		attrs = append(attrs, slog.String("cause", cause.Error()))
	}
	h.logger.Debug("served fallback", attrs...)
}

// handleError logs the error and sends appropriate HTTP response
func (h *APIHandler) handleError(c *gin.Context, err error, statusCode int, userMessage string) {
	requestIDStr := requestIDFrom(c)

	h.logger.Error("API error",
		slog.String("request_id", requestIDStr),
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("error", err.Error()),
		slog.Int("status_code", statusCode),
	)

	c.JSON(statusCode, gin.H{
		"success":    false,
		"error":      userMessage,
		"request_id": requestIDStr,
	})
}

// handleValidationError handles validation errors specifically
func (h *APIHandler) handleValidationError(c *gin.Context, err error) {
	h.handleError(c, err, http.StatusBadRequest, err.Error())
}

func requestIDFrom(c *gin.Context) string {
	requestID, exists := c.Get(RequestIDContextKey)
	if exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return "unknown"
}
