// Package marketapi is the unified facade over vendor sources, the
// normalizer and the cache.
package marketapi

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"marketdata/internal/cache"
	"marketdata/internal/market"
	"marketdata/internal/metrics"
	"marketdata/internal/normalize"
	"marketdata/internal/source"
)

// DefaultPriority orders sources per data category, reflecting each
// source's actual strength.
func DefaultPriority() map[string][]string {
	return map[string][]string{
		"real_time":      {"nse", "yahoo_finance"},
		"historical":     {"yahoo_finance", "nse"},
		"indices":        {"nse", "yahoo_finance"},
		"gainers_losers": {"yahoo_finance", "nse"},
		"company_info":   {"yahoo_finance", "nse"},
	}
}

// SymbolMatch is one row from the curated instrument table.
type SymbolMatch struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}

// commonStocks is a small curated table backing SearchSymbols.
var commonStocks = []SymbolMatch{
	{Symbol: "RELIANCE", Name: "Reliance Industries Limited", Type: "equity"},
	{Symbol: "TCS", Name: "Tata Consultancy Services Limited", Type: "equity"},
	{Symbol: "HDFCBANK", Name: "HDFC Bank Limited", Type: "equity"},
	{Symbol: "ICICIBANK", Name: "ICICI Bank Limited", Type: "equity"},
	{Symbol: "INFY", Name: "Infosys Limited", Type: "equity"},
	{Symbol: "ITC", Name: "ITC Limited", Type: "equity"},
	{Symbol: "SBIN", Name: "State Bank of India", Type: "equity"},
	{Symbol: "BHARTIARTL", Name: "Bharti Airtel Limited", Type: "equity"},
	{Symbol: "KOTAKBANK", Name: "Kotak Mahindra Bank Limited", Type: "equity"},
	{Symbol: "LT", Name: "Larsen & Toubro Limited", Type: "equity"},
}

// API iterates sources in priority order per request, merges partial
// results, writes raw payloads through the cache and returns canonical
// structures. Within one request sources are tried strictly sequentially;
// concurrent misses for the same key are coalesced by a singleflight group.
type API struct {
	clients  map[string]source.Client
	priority map[string][]string
	norm     *normalize.Normalizer
	cache    *cache.Manager // nil disables caching
	log      *zap.Logger

	sf  singleflight.Group
	now func() time.Time
}

func New(clients []source.Client, cm *cache.Manager, norm *normalize.Normalizer, log *zap.Logger) *API {
	if norm == nil {
		norm = normalize.New(nil, log)
	}
	if log == nil {
		log = zap.NewNop()
	}
	byName := make(map[string]source.Client, len(clients))
	for _, c := range clients {
		byName[c.Name()] = c
	}
	return &API{
		clients:  byName,
		priority: DefaultPriority(),
		norm:     norm,
		cache:    cm,
		log:      log,
		now:      time.Now,
	}
}

func (a *API) sourcesFor(category string) []source.Client {
	names, ok := a.priority[category]
	if !ok {
		names = a.priority["real_time"]
	}
	out := make([]source.Client, 0, len(names))
	for _, n := range names {
		if c, ok := a.clients[n]; ok {
			out = append(out, c)
		}
	}
	return out
}

// fetch is the core request path: cache first, then the priority loop. The
// loop stops at the first success; a later source is consulted only after
// an earlier one failed. Raw payloads are cached, not normalized structs.
func (a *API) fetch(ctx context.Context, cacheType, priorityCat, symbol string, params map[string]string,
	call func(source.Client) (source.Payload, error)) (source.Payload, error) {

	if a.cache != nil {
		if data, ok := a.cache.Get(cacheType, symbol, params); ok {
			return data, nil
		}
	}

	key := cache.Key(cacheType, symbol, params)
	v, err, _ := a.sf.Do(key, func() (any, error) {
		var primary, fallback source.Payload
		var errs []error

		for _, c := range a.sourcesFor(priorityCat) {
			data, err := call(c)
			if err != nil {
				metrics.SourceRequests.WithLabelValues(c.Name(), "error").Inc()
				a.log.Warn("source failed",
					zap.String("source", c.Name()), zap.String("symbol", symbol), zap.Error(err))
				errs = append(errs, err)
				continue
			}
			metrics.SourceRequests.WithLabelValues(c.Name(), "ok").Inc()
			if primary == nil {
				primary = data
			} else {
				fallback = data
			}
			break
		}

		if primary == nil {
			return nil, &source.Error{
				Source: "orchestrator",
				Symbol: symbol,
				Code:   source.CodeExhausted,
				Reason: "all sources failed",
				Err:    errors.Join(errs...),
			}
		}

		merged := normalize.Merge(primary, fallback)
		if a.cache != nil {
			if err := a.cache.Set(cacheType, symbol, merged, params); err != nil {
				a.log.Warn("cache write failed", zap.String("type", cacheType), zap.Error(err))
			}
		}
		return merged, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(source.Payload), nil
}

// RealTimePrice returns the canonical live quote, or nil with a typed
// exhaustion error when every source failed. The cache key uses the
// canonical symbol so every alias of an instrument shares one entry.
func (a *API) RealTimePrice(ctx context.Context, symbol string) (*normalize.Price, error) {
	symbol = a.norm.Symbol(symbol)
	raw, err := a.fetch(ctx, "real_time", "real_time", symbol, nil, func(c source.Client) (source.Payload, error) {
		return c.RealTimePrice(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return a.norm.Price(raw), nil
}

// HistoricalData returns the canonical OHLCV series.
func (a *API) HistoricalData(ctx context.Context, symbol, period, interval string) (*normalize.Historical, error) {
	symbol = a.norm.Symbol(symbol)
	cacheType := "historical_intraday"
	if interval == "1d" {
		cacheType = "historical_1d"
	}
	params := map[string]string{"period": period, "interval": interval}
	raw, err := a.fetch(ctx, cacheType, "historical", symbol, params, func(c source.Client) (source.Payload, error) {
		return c.HistoricalData(ctx, symbol, period, interval)
	})
	if err != nil {
		return nil, err
	}
	return a.norm.Historical(raw), nil
}

// MarketIndices returns the canonical index snapshots.
func (a *API) MarketIndices(ctx context.Context) (*normalize.Indices, error) {
	raw, err := a.fetch(ctx, "indices", "indices", "ALL_INDICES", nil, func(c source.Client) (source.Payload, error) {
		return c.MarketIndices(ctx)
	})
	if err != nil {
		return nil, err
	}
	return a.norm.Indices(raw), nil
}

// TopGainersLosers returns the day's top movers. Sources without the movers
// capability count as failed and the loop moves on.
func (a *API) TopGainersLosers(ctx context.Context, count int) (*normalize.GainersLosers, error) {
	if count <= 0 {
		count = 10
	}
	params := map[string]string{"count": strconv.Itoa(count)}
	raw, err := a.fetch(ctx, "gainers_losers", "gainers_losers", "NIFTY50", params, func(c source.Client) (source.Payload, error) {
		m, ok := c.(source.MoversClient)
		if !ok {
			return nil, source.Errf(c.Name(), "", source.CodeInvalidArgument, "source does not provide gainers/losers")
		}
		return m.TopGainersLosers(ctx, count)
	})
	if err != nil {
		return nil, err
	}
	return a.norm.GainersLosers(raw), nil
}

// FIIDII returns institutional flow data, raw: only the exchange provides
// it and its shape is already flat.
func (a *API) FIIDII(ctx context.Context) (source.Payload, error) {
	return a.fetch(ctx, "fii_dii", "real_time", "FII_DII_DATA", nil, func(c source.Client) (source.Payload, error) {
		f, ok := c.(source.FlowClient)
		if !ok {
			return nil, source.Errf(c.Name(), "", source.CodeInvalidArgument, "source does not provide institutional flow")
		}
		return f.FIIDII(ctx)
	})
}

// SearchSymbols matches the query against the curated instrument table.
func (a *API) SearchSymbols(query string, limit int) []SymbolMatch {
	if limit <= 0 {
		limit = 10
	}
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	out := make([]SymbolMatch, 0, limit)
	for _, s := range commonStocks {
		if strings.Contains(s.Symbol, q) || strings.Contains(strings.ToUpper(s.Name), q) {
			out = append(out, s)
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

// MarketStatus derives open/closed state and the next transition.
func (a *API) MarketStatus() market.Status {
	return market.CurrentStatus(a.now())
}

// CacheStats reports cache observability counters.
func (a *API) CacheStats() (cache.Stats, bool) {
	if a.cache == nil {
		return cache.Stats{}, false
	}
	return a.cache.Stats(), true
}

// ClearCache invalidates matching entries; empty filters clear everything.
func (a *API) ClearCache(category, symbol string) error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Invalidate(category, symbol)
}

// CleanupExpiredCache sweeps both tiers and reports the eviction count.
func (a *API) CleanupExpiredCache() int {
	if a.cache == nil {
		return 0
	}
	return a.cache.CleanupExpired()
}

// Close shuts down sources holding network sessions.
func (a *API) Close() error {
	var errs []error
	for _, c := range a.clients {
		if closer, ok := c.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// IsExhausted reports whether err is the orchestrator's all-sources-failed
// error, letting callers tell "no data exists" apart from "everything was
// down".
func IsExhausted(err error) bool {
	var se *source.Error
	return errors.As(err, &se) && se.Code == source.CodeExhausted
}
