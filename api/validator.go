package api

import (
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/HAMMOU2310/CryptoAutoTrader/internal/model"
)

// Validator handles validation logic separate from HTTP concerns
type Validator struct {
	symbolRegex *regexp.Regexp
}

var (
	validatorInstance *Validator
	validatorOnce     sync.Once
)

// GetValidator returns the singleton validator instance
func GetValidator() *Validator {
	validatorOnce.Do(func() {
		validatorInstance = &Validator{
			// normalised pairs such as BTCUSDT or 1000SATSUSDT
			symbolRegex: regexp.MustCompile(`^[A-Z0-9]{2,20}$`),
		}
	})
	return validatorInstance
}

// ValidateSymbol normalises a symbol. An empty symbol is allowed and means
// the configured default.
func (v *Validator) ValidateSymbol(symbol string) (string, error) {
	cleanSymbol := model.NormalizeSymbol(v.sanitizeInput(symbol))
	if cleanSymbol == "" {
		return "", nil
	}
	if !v.symbolRegex.MatchString(cleanSymbol) {
		return "", errors.New("symbol must be 2-20 letters or digits, optionally separated by '/', '-' or '_'")
	}
	return cleanSymbol, nil
}

// ValidateOrder normalises the symbol of a bound test order
func (v *Validator) ValidateOrder(order model.TestOrder) (model.TestOrder, error) {
	symbol, err := v.ValidateSymbol(order.Symbol)
	if err != nil {
		return model.TestOrder{}, err
	}
	order.Symbol = symbol
	return order, nil
}

// sanitizeInput removes potentially dangerous characters and trims whitespace
func (v *Validator) sanitizeInput(input string) string {
	input = strings.TrimSpace(input)

	// Remove control characters
	input = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, input)

	// Limit length to prevent DoS
	if len(input) > 100 {
		input = input[:100]
	}

	return input
}
