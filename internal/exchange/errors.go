package exchange

import (
	"context"
	"errors"
	"net"
	"net/url"

	bncommon "github.com/adshao/go-binance/v2/common"
)

// Kind classifies why a live call could not be served
type Kind string

const (
	KindMissingCredentials   Kind = "missing_credentials"
	KindMissingDependency    Kind = "missing_dependency"
	KindUpstreamAuth         Kind = "upstream_auth"
	KindUpstreamNetwork      Kind = "upstream_network"
	KindInsufficientData     Kind = "insufficient_data"
	KindUpstreamUnclassified Kind = "upstream_unclassified"
)

var (
	// ErrMissingCredentials is returned when no usable key pair was configured
	ErrMissingCredentials = errors.New("exchange credentials are not configured")
	// ErrExchangeDisabled is returned when the exchange client is switched off or could not be built
	ErrExchangeDisabled = errors.New("exchange client is not available")
	// ErrIndicatorsDisabled is returned when the indicator library is switched off
	ErrIndicatorsDisabled = errors.New("indicator calculation is not available")
	// ErrNotConnected is returned when the initial probe failed
	ErrNotConnected = errors.New("exchange connection is not established")
	// ErrNoData is returned when the exchange answered with an empty window
	ErrNoData = errors.New("exchange returned no data")
	// ErrInsufficientData is returned when a candle window is too short for indicators
	ErrInsufficientData = errors.New("insufficient candle data")
)

// Binance error codes that mean the key pair was rejected
var authErrorCodes = map[int64]bool{
	-1022: true, // signature invalid
	-2008: true, // invalid api key id
	-2014: true, // api key format invalid
	-2015: true, // invalid api key, ip, or permissions
}

// Classify maps an error from the exchange layer onto a Kind
func Classify(err error) Kind {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrMissingCredentials):
		return KindMissingCredentials
	case errors.Is(err, ErrExchangeDisabled), errors.Is(err, ErrIndicatorsDisabled):
		return KindMissingDependency
	case errors.Is(err, ErrInsufficientData):
		return KindInsufficientData
	}

	var apiErr *bncommon.APIError
	if errors.As(err, &apiErr) {
		if authErrorCodes[apiErr.Code] {
			return KindUpstreamAuth
		}
		return KindUpstreamUnclassified
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindUpstreamNetwork
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindUpstreamNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindUpstreamNetwork
	}

	return KindUpstreamUnclassified
}
