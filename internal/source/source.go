package source

import (
	"context"
	"fmt"
)

// Payload is a raw, vendor-shaped response. Adapters flatten whatever the
// vendor returns into one of these; the normalizer turns it into a canonical
// struct. The cache stores payloads as-is so normalization rules can change
// without invalidating cached data.
type Payload map[string]any

// Code classifies adapter failures so callers can tell "symbol does not
// exist" apart from "the vendor was down" without parsing error strings.
type Code string

const (
	CodeNetwork         Code = "network"
	CodeBadResponse     Code = "bad_response"
	CodeNotFound        Code = "not_found"
	CodeInvalidArgument Code = "invalid_argument"
	// CodeExhausted is reported by the orchestrator when every configured
	// source failed for a request.
	CodeExhausted Code = "exhausted"
)

// Error is the only error type adapters return. Failures never propagate as
// panics past the adapter boundary; they are values carrying the offending
// symbol and a failure code.
type Error struct {
	Source string
	Symbol string
	Code   Code
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("%s: %s: %s (%s)", e.Source, e.Symbol, e.Reason, e.Code)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Source, e.Reason, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Errf builds an *Error with a formatted reason.
func Errf(src, symbol string, code Code, format string, args ...any) *Error {
	return &Error{Source: src, Symbol: symbol, Code: code, Reason: fmt.Sprintf(format, args...)}
}

// Client is implemented by each vendor adapter.
//
//go:generate mockgen -package=marketapi_test -destination=../marketapi/mock_source_test.go -source=source.go
type Client interface {
	Name() string
	RealTimePrice(ctx context.Context, symbol string) (Payload, error)
	HistoricalData(ctx context.Context, symbol, period, interval string) (Payload, error)
	MarketIndices(ctx context.Context) (Payload, error)
	// NormalizeSymbol applies the adapter's own suffixing/aliasing rule.
	// It must be idempotent.
	NormalizeSymbol(symbol string) string
}

// MoversClient is the optional gainers/losers capability.
type MoversClient interface {
	TopGainersLosers(ctx context.Context, count int) (Payload, error)
}

// FlowClient is the optional FII/DII institutional flow capability.
// Only the exchange adapter provides it.
type FlowClient interface {
	FIIDII(ctx context.Context) (Payload, error)
}

var validPeriods = map[string]struct{}{
	"1d": {}, "5d": {}, "1mo": {}, "3mo": {}, "6mo": {},
	"1y": {}, "2y": {}, "5y": {}, "10y": {}, "ytd": {}, "max": {},
}

var validIntervals = map[string]struct{}{
	"1m": {}, "2m": {}, "5m": {}, "15m": {}, "30m": {}, "60m": {}, "90m": {},
	"1h": {}, "1d": {}, "5d": {}, "1wk": {}, "1mo": {}, "3mo": {},
}

// ValidPeriod reports whether period is on the allow-list. Adapters check
// this before any network round trip.
func ValidPeriod(period string) bool {
	_, ok := validPeriods[period]
	return ok
}

func ValidInterval(interval string) bool {
	_, ok := validIntervals[interval]
	return ok
}
