// Package ratelimit gates adapter calls behind a token bucket so scraping
// stays under the vendors' informal limits.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"marketdata/internal/source"
)

// TokenBucket is a stdlib-only limiter.
// rate is tokens per second; capacity is the burst size.
type TokenBucket struct {
	rate     float64
	capacity float64

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
	if tokensPerSecond <= 0 {
		tokensPerSecond = 0.0000001
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		rate:     tokensPerSecond,
		capacity: float64(burst),
		tokens:   float64(burst), // start full to allow an initial burst
		last:     time.Now(),
	}
}

// wait blocks until one token is available or the context is canceled.
func (tb *TokenBucket) wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(tb.last).Seconds()
		if elapsed > 0 {
			tb.tokens += elapsed * tb.rate
			if tb.tokens > tb.capacity {
				tb.tokens = tb.capacity
			}
			tb.last = now
		}
		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}
		deficit := 1 - tb.tokens
		tb.mu.Unlock()
		waitDur := time.Duration(deficit / tb.rate * 1e9)
		if waitDur <= 0 {
			waitDur = time.Millisecond
		}
		timer := time.NewTimer(waitDur)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Client wraps a source client and gates every data call. The optional
// movers/flow capabilities pass through when the inner client has them and
// fail with a typed error when it does not, which the orchestrator treats
// the same as any other source failure.
type Client struct {
	C  source.Client
	TB *TokenBucket
}

func (r *Client) Name() string { return r.C.Name() }

func (r *Client) NormalizeSymbol(symbol string) string { return r.C.NormalizeSymbol(symbol) }

func (r *Client) RealTimePrice(ctx context.Context, symbol string) (source.Payload, error) {
	if err := r.gate(ctx); err != nil {
		return nil, err
	}
	return r.C.RealTimePrice(ctx, symbol)
}

func (r *Client) HistoricalData(ctx context.Context, symbol, period, interval string) (source.Payload, error) {
	if err := r.gate(ctx); err != nil {
		return nil, err
	}
	return r.C.HistoricalData(ctx, symbol, period, interval)
}

func (r *Client) MarketIndices(ctx context.Context) (source.Payload, error) {
	if err := r.gate(ctx); err != nil {
		return nil, err
	}
	return r.C.MarketIndices(ctx)
}

func (r *Client) TopGainersLosers(ctx context.Context, count int) (source.Payload, error) {
	m, ok := r.C.(source.MoversClient)
	if !ok {
		return nil, source.Errf(r.Name(), "", source.CodeInvalidArgument, "source does not provide gainers/losers")
	}
	if err := r.gate(ctx); err != nil {
		return nil, err
	}
	return m.TopGainersLosers(ctx, count)
}

func (r *Client) FIIDII(ctx context.Context) (source.Payload, error) {
	f, ok := r.C.(source.FlowClient)
	if !ok {
		return nil, source.Errf(r.Name(), "", source.CodeInvalidArgument, "source does not provide institutional flow")
	}
	if err := r.gate(ctx); err != nil {
		return nil, err
	}
	return f.FIIDII(ctx)
}

func (r *Client) Close() error {
	if c, ok := r.C.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (r *Client) gate(ctx context.Context) error {
	if r.TB == nil {
		return nil
	}
	if err := r.TB.wait(ctx); err != nil {
		return &source.Error{Source: r.Name(), Code: source.CodeNetwork, Reason: "rate limit wait canceled", Err: err}
	}
	return nil
}
