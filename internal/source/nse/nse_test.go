package nse_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketdata/internal/httpx"
	"marketdata/internal/source"
	"marketdata/internal/source/nse"
)

// newServer builds a fake exchange serving canned JSON per path.
func newServer(t *testing.T, routes map[string]any) (*httptest.Server, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			hits.Add(1)
		}
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
	t.Cleanup(ts.Close)
	return ts, &hits
}

func newClient(ts *httptest.Server) *nse.Client {
	return nse.New(nse.Config{
		BaseURL: ts.URL + "/api",
		HomeURL: ts.URL,
	}, httpx.NewBrowser(5*time.Second), nil)
}

func TestNormalizeSymbol(t *testing.T) {
	t.Parallel()

	c := nse.New(nse.Config{}, nil, nil)
	require.Equal(t, "RELIANCE", c.NormalizeSymbol("reliance.ns"))
	require.Equal(t, "RELIANCE", c.NormalizeSymbol("RELIANCE.NSE"))
	require.Equal(t, "RELIANCE", c.NormalizeSymbol(" RELIANCE "))

	// Idempotent.
	once := c.NormalizeSymbol("TCS.NS")
	require.Equal(t, once, c.NormalizeSymbol(once))
}

func TestRealTimePriceEquityQuote(t *testing.T) {
	t.Parallel()

	// Arrange: a canned equity quote in the exchange's shape.
	ts, _ := newServer(t, map[string]any{
		"/api/quote-equity": map[string]any{
			"info": map[string]any{
				"symbol":      "RELIANCE",
				"companyName": "Reliance Industries Limited",
			},
			"priceInfo": map[string]any{
				"lastPrice":     2850.5,
				"change":        12.3,
				"pChange":       0.43,
				"open":          2840.0,
				"previousClose": 2838.2,
				"intraDayHighLow": map[string]any{
					"max": 2861.0,
					"min": 2833.1,
				},
			},
			"securityWiseDP": map[string]any{
				"quantityTraded":  4123456,
				"turnoverInLakhs": 117845.2,
			},
		},
	})
	c := newClient(ts)

	// Act
	p, err := c.RealTimePrice(context.Background(), "RELIANCE")

	// Assert
	require.NoError(t, err)
	require.Equal(t, 2850.5, p["price"])
	require.Equal(t, 0.43, p["change_percent"])
	require.Equal(t, 2861.0, p["high"])
	require.Equal(t, int64(4123456), p["volume"])
	require.Equal(t, "nse", p["source"])
	require.Equal(t, "Reliance Industries Limited", p["company_name"])
	require.NotEmpty(t, p["timestamp"])
}

func TestRealTimePriceIndexFallback(t *testing.T) {
	t.Parallel()

	// Arrange: the equity endpoint has no quote for the symbol, but the
	// index listing carries it under its exchange name.
	ts, _ := newServer(t, map[string]any{
		"/api/quote-equity": map[string]any{},
		"/api/equity-stockIndices": map[string]any{
			"data": []any{
				map[string]any{"index": "NIFTY BANK", "last": 51000.0},
				map[string]any{
					"index":         "NIFTY 50",
					"last":          24800.5,
					"variation":     120.2,
					"percentChange": 0.49,
					"open":          24700.0,
					"dayHigh":       24850.0,
					"dayLow":        24690.0,
					"previousClose": 24680.3,
				},
			},
		},
	})
	c := newClient(ts)

	// Act
	p, err := c.RealTimePrice(context.Background(), "NIFTY")

	// Assert
	require.NoError(t, err)
	require.Equal(t, 24800.5, p["price"])
	require.Equal(t, "NIFTY 50", p["index_name"])
	require.Equal(t, 0.49, p["change_percent"])
}

func TestRealTimePriceUnknownSymbol(t *testing.T) {
	t.Parallel()

	ts, _ := newServer(t, map[string]any{
		"/api/quote-equity": map[string]any{},
	})
	c := newClient(ts)

	_, err := c.RealTimePrice(context.Background(), "NOSUCHTHING")
	var se *source.Error
	require.True(t, errors.As(err, &se))
	require.Equal(t, source.CodeNotFound, se.Code)
}

func TestHistoricalDataValidatesBeforeNetwork(t *testing.T) {
	t.Parallel()

	ts, hits := newServer(t, nil)
	c := newClient(ts)

	// Act: bad period, then bad interval.
	_, err := c.HistoricalData(context.Background(), "RELIANCE", "2d", "1d")
	var se *source.Error
	require.True(t, errors.As(err, &se))
	require.Equal(t, source.CodeInvalidArgument, se.Code)

	_, err = c.HistoricalData(context.Background(), "RELIANCE", "1mo", "7m")
	require.True(t, errors.As(err, &se))
	require.Equal(t, source.CodeInvalidArgument, se.Code)

	// Assert: neither call reached the exchange.
	require.Zero(t, hits.Load())
}

func TestHistoricalDataChartParsing(t *testing.T) {
	t.Parallel()

	ts, _ := newServer(t, map[string]any{
		"/api/chart-databyindex": map[string]any{
			"grapthData": []any{
				[]any{1756356900000, 2840.0},
				[]any{1756356960000, 2841.5},
				[]any{"bad"},
			},
		},
	})
	c := newClient(ts)

	h, err := c.HistoricalData(context.Background(), "RELIANCE", "1d", "1m")
	require.NoError(t, err)
	require.Equal(t, 2, h["count"])
	points := h["data"].([]any)
	first := points[0].(map[string]any)
	require.Equal(t, 2840.0, first["close"])
	require.NotEmpty(t, first["timestamp"])
}

func TestMarketIndicesTrackedSubset(t *testing.T) {
	t.Parallel()

	ts, _ := newServer(t, map[string]any{
		"/api/allIndices": map[string]any{
			"data": []any{
				map[string]any{"index": "NIFTY 50", "last": 24800.5, "variation": 120.2, "percentChange": 0.49},
				map[string]any{"index": "NIFTY BANK", "last": 51200.0},
				map[string]any{"index": "NIFTY MIDCAP 100", "last": 57000.0},
			},
		},
	})
	c := newClient(ts)

	out, err := c.MarketIndices(context.Background())
	require.NoError(t, err)
	indices := out["indices"].(map[string]any)
	require.Contains(t, indices, "NIFTY_50")
	require.Contains(t, indices, "NIFTY_BANK")
	require.NotContains(t, indices, "NIFTY_MIDCAP_100")
}

func TestTopGainersLosersRanking(t *testing.T) {
	t.Parallel()

	ts, _ := newServer(t, map[string]any{
		"/api/equity-stockIndices": map[string]any{
			"data": []any{
				map[string]any{"symbol": "A", "lastPrice": 10.0, "pChange": 1.0},
				map[string]any{"symbol": "B", "lastPrice": 10.0, "pChange": 5.0},
				map[string]any{"symbol": "C", "lastPrice": 10.0, "pChange": -3.0},
				map[string]any{"symbol": "D", "lastPrice": 10.0, "pChange": 2.0},
			},
		},
	})
	c := newClient(ts)

	out, err := c.TopGainersLosers(context.Background(), 2)
	require.NoError(t, err)

	gainers := out["top_gainers"].([]any)
	require.Len(t, gainers, 2)
	require.Equal(t, "B", gainers[0].(map[string]any)["symbol"])
	require.Equal(t, "D", gainers[1].(map[string]any)["symbol"])

	losers := out["top_losers"].([]any)
	require.Len(t, losers, 2)
	require.Equal(t, "C", losers[0].(map[string]any)["symbol"])
}

func TestFIIDII(t *testing.T) {
	t.Parallel()

	ts, _ := newServer(t, map[string]any{
		"/api/fiidiiTradeReact": []any{
			map[string]any{
				"date":            "28-Aug-2026",
				"fii_equity_buy":  12500.5,
				"fii_equity_sell": 11800.2,
				"fii_equity_net":  700.3,
				"dii_equity_buy":  9800.0,
				"dii_equity_sell": 9100.0,
				"dii_equity_net":  700.0,
			},
		},
	})
	c := newClient(ts)

	out, err := c.FIIDII(context.Background())
	require.NoError(t, err)
	fii := out["fii"].(map[string]any)
	require.Equal(t, "28-Aug-2026", fii["date"])
	require.Equal(t, 700.3, fii["equity_net"])
	dii := out["dii"].(map[string]any)
	require.Equal(t, 700.0, dii["equity_net"])
}
