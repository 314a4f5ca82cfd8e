package marketapi_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"marketdata/internal/cache"
	"marketdata/internal/marketapi"
	"marketdata/internal/source"
)

// namedClient pins the name a mock reports without a Name() expectation on
// every call site.
type namedClient struct {
	*MockClient
	name string
}

func (c *namedClient) Name() string { return c.name }

// moversCapable combines the base client with the gainers/losers capability.
type moversCapable struct {
	*namedClient
	*MockMoversClient
}

func newCache(t *testing.T) *cache.Manager {
	t.Helper()

	cm, err := cache.New(cache.Config{Dir: t.TempDir()}, nil)
	require.NoError(t, err)
	return cm
}

func TestRealTimePriceFirstSourceWins(t *testing.T) {
	t.Parallel()

	// Arrange: two sources; the first returns a valid quote.
	ctrl := gomock.NewController(t)
	nse := &namedClient{MockClient: NewMockClient(ctrl), name: "nse"}
	yahoo := &namedClient{MockClient: NewMockClient(ctrl), name: "yahoo_finance"}

	nse.EXPECT().
		RealTimePrice(gomock.Any(), "RELIANCE").
		Return(source.Payload{
			"symbol":    "RELIANCE",
			"price":     2850.5,
			"change":    12.3,
			"volume":    1200000,
			"timestamp": "2026-08-28T10:15:00+05:30",
			"source":    "nse",
		}, nil).
		Times(1)
	// The second source must never be consulted after a success.

	cm := newCache(t)
	api := marketapi.New([]source.Client{nse, yahoo}, cm, nil, nil)

	// Act
	price, err := api.RealTimePrice(context.Background(), "RELIANCE")

	// Assert: the quote came from the first source and was normalized.
	require.NoError(t, err)
	require.NotNil(t, price)
	require.Equal(t, "RELIANCE", price.Symbol)
	require.Equal(t, 2850.5, price.Price)
	require.Equal(t, "nse", price.Source)

	// Assert: the raw payload was written through to the cache.
	raw, ok := cm.Get("real_time", "RELIANCE", nil)
	require.True(t, ok)
	require.Equal(t, "nse", raw["source"])
}

func TestRealTimePriceFallsBackOnFailure(t *testing.T) {
	t.Parallel()

	// Arrange: the first source fails, the second succeeds.
	ctrl := gomock.NewController(t)
	nse := &namedClient{MockClient: NewMockClient(ctrl), name: "nse"}
	yahoo := &namedClient{MockClient: NewMockClient(ctrl), name: "yahoo_finance"}

	nse.EXPECT().
		RealTimePrice(gomock.Any(), "TCS").
		Return(nil, source.Errf("nse", "TCS", source.CodeNetwork, "connection refused")).
		Times(1)
	yahoo.EXPECT().
		RealTimePrice(gomock.Any(), "TCS").
		Return(source.Payload{
			"symbol":    "TCS",
			"price":     4120.0,
			"timestamp": "2026-08-28T10:15:00+05:30",
			"source":    "yahoo_finance",
		}, nil).
		Times(1)

	api := marketapi.New([]source.Client{nse, yahoo}, nil, nil, nil)

	// Act
	price, err := api.RealTimePrice(context.Background(), "TCS")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, price)
	require.Equal(t, "yahoo_finance", price.Source)
}

func TestRealTimePriceAllSourcesExhausted(t *testing.T) {
	t.Parallel()

	// Arrange: every source fails.
	ctrl := gomock.NewController(t)
	nse := &namedClient{MockClient: NewMockClient(ctrl), name: "nse"}
	yahoo := &namedClient{MockClient: NewMockClient(ctrl), name: "yahoo_finance"}

	nse.EXPECT().
		RealTimePrice(gomock.Any(), "BOGUS123").
		Return(nil, source.Errf("nse", "BOGUS123", source.CodeNotFound, "no quote")).
		Times(1)
	yahoo.EXPECT().
		RealTimePrice(gomock.Any(), "BOGUS123").
		Return(nil, source.Errf("yahoo_finance", "BOGUS123", source.CodeNotFound, "no quote")).
		Times(1)

	cm := newCache(t)
	api := marketapi.New([]source.Client{nse, yahoo}, cm, nil, nil)

	// Act
	price, err := api.RealTimePrice(context.Background(), "BOGUS123")

	// Assert: a typed exhaustion error, not a nil-nil pair.
	require.Nil(t, price)
	require.Error(t, err)
	require.True(t, marketapi.IsExhausted(err))

	var se *source.Error
	require.True(t, errors.As(err, &se))
	require.Equal(t, source.CodeExhausted, se.Code)

	// Assert: failures are never cached.
	_, ok := cm.Get("real_time", "BOGUS123", nil)
	require.False(t, ok)
}

func TestRealTimePriceServedFromCache(t *testing.T) {
	t.Parallel()

	// Arrange: pre-populate the cache; no source expectations at all.
	ctrl := gomock.NewController(t)
	nse := &namedClient{MockClient: NewMockClient(ctrl), name: "nse"}

	cm := newCache(t)
	require.NoError(t, cm.Set("real_time", "INFY", map[string]any{
		"symbol": "INFY",
		"price":  1650.0,
		"source": "nse",
	}, nil))

	api := marketapi.New([]source.Client{nse}, cm, nil, nil)

	// Act
	price, err := api.RealTimePrice(context.Background(), "INFY")

	// Assert: the cached payload satisfied the request.
	require.NoError(t, err)
	require.NotNil(t, price)
	require.Equal(t, 1650.0, price.Price)
}

func TestHistoricalDataCacheTypeByInterval(t *testing.T) {
	t.Parallel()

	// Arrange
	ctrl := gomock.NewController(t)
	yahoo := &namedClient{MockClient: NewMockClient(ctrl), name: "yahoo_finance"}

	yahoo.EXPECT().
		HistoricalData(gomock.Any(), "RELIANCE", "1mo", "1d").
		Return(source.Payload{
			"symbol":   "RELIANCE",
			"period":   "1mo",
			"interval": "1d",
			"data": []any{
				map[string]any{"timestamp": "2026-08-27", "close": 2840.0},
				map[string]any{"timestamp": "2026-08-28", "close": 2850.5},
			},
			"source": "yahoo_finance",
		}, nil).
		Times(1)

	cm := newCache(t)
	api := marketapi.New([]source.Client{yahoo}, cm, nil, nil)

	// Act
	hist, err := api.HistoricalData(context.Background(), "RELIANCE", "1mo", "1d")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, hist)
	require.Equal(t, 2, hist.Count)

	// Assert: daily series land under the long-TTL category.
	params := map[string]string{"period": "1mo", "interval": "1d"}
	_, ok := cm.Get("historical_1d", "RELIANCE", params)
	require.True(t, ok)
	_, ok = cm.Get("historical_intraday", "RELIANCE", params)
	require.False(t, ok)
}

func TestTopGainersLosersSkipsIncapableSource(t *testing.T) {
	t.Parallel()

	// Arrange: the first source in priority order lacks the movers
	// capability; the orchestrator must move on to one that has it.
	ctrl := gomock.NewController(t)
	yahoo := &namedClient{MockClient: NewMockClient(ctrl), name: "yahoo_finance"}
	nse := &moversCapable{
		namedClient:      &namedClient{MockClient: NewMockClient(ctrl), name: "nse"},
		MockMoversClient: NewMockMoversClient(ctrl),
	}

	nse.MockMoversClient.EXPECT().
		TopGainersLosers(gomock.Any(), 5).
		Return(source.Payload{
			"top_gainers": []any{
				map[string]any{"symbol": "TCS", "change_percent": 3.1},
			},
			"top_losers": []any{
				map[string]any{"symbol": "ITC", "change_percent": -2.4},
			},
			"source": "nse",
		}, nil).
		Times(1)

	api := marketapi.New([]source.Client{yahoo, nse}, nil, nil, nil)

	// Act
	movers, err := api.TopGainersLosers(context.Background(), 5)

	// Assert
	require.NoError(t, err)
	require.Len(t, movers.TopGainers, 1)
	require.Equal(t, "TCS", movers.TopGainers[0].Symbol)
}

func TestSearchSymbols(t *testing.T) {
	t.Parallel()

	api := marketapi.New(nil, nil, nil, nil)

	// Assert: symbol and company-name matches, case-insensitive.
	matches := api.SearchSymbols("reliance", 10)
	require.Len(t, matches, 1)
	require.Equal(t, "RELIANCE", matches[0].Symbol)

	matches = api.SearchSymbols("BANK", 2)
	require.Len(t, matches, 2)

	require.Empty(t, api.SearchSymbols("", 10))
	require.Empty(t, api.SearchSymbols("ZZZZZZ", 10))
}

func TestMarketStatus(t *testing.T) {
	t.Parallel()

	api := marketapi.New(nil, nil, nil, nil)

	status := api.MarketStatus()
	require.NotEmpty(t, status.MarketState)
	require.NotEmpty(t, status.NextEvent)
	require.Equal(t, "9:15 AM - 3:30 PM IST", status.TradingHours)
	_, err := time.Parse(time.RFC3339, status.CurrentTime)
	require.NoError(t, err)
}

func TestCacheMaintenanceWithoutCache(t *testing.T) {
	t.Parallel()

	// Arrange: caching disabled entirely.
	api := marketapi.New(nil, nil, nil, nil)

	// Assert: maintenance operations degrade to no-ops.
	_, ok := api.CacheStats()
	require.False(t, ok)
	require.NoError(t, api.ClearCache("", ""))
	require.Zero(t, api.CleanupExpiredCache())
}
