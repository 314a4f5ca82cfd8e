// Package yahoo adapts the finance-go library to the source contract.
package yahoo

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/piquette/finance-go/quote"
	"go.uber.org/zap"

	"marketdata/internal/market"
	"marketdata/internal/source"
)

const SourceName = "yahoo_finance"

// indexTickers maps common Indian index names to vendor tickers.
var indexTickers = map[string]string{
	"NIFTY":       "^NSEI",
	"NIFTY50":     "^NSEI",
	"SENSEX":      "^BSESN",
	"BANKNIFTY":   "^NSEBANK",
	"NIFTYIT":     "^CNXIT",
	"NIFTYPHARMA": "^CNXPHARMA",
	"NIFTYAUTO":   "^CNXAUTO",
	"NIFTYMETAL":  "^CNXMETAL",
	"NIFTYREALTY": "^CNXREALTY",
}

// niftyConstituents is the subset polled for gainers/losers. Kept short to
// stay under the vendor's informal rate limits.
var niftyConstituents = []string{
	"RELIANCE.NS", "TCS.NS", "HDFCBANK.NS", "ICICIBANK.NS", "HINDUNILVR.NS",
	"INFY.NS", "ITC.NS", "SBIN.NS", "BHARTIARTL.NS", "ASIANPAINT.NS",
	"MARUTI.NS", "BAJFINANCE.NS", "HCLTECH.NS", "AXISBANK.NS", "LT.NS",
	"SUNPHARMA.NS", "TITAN.NS", "WIPRO.NS", "KOTAKBANK.NS", "TATAMOTORS.NS",
}

// periodLookback maps allow-listed periods to a start offset in days.
var periodLookback = map[string]int{
	"1d": 1, "5d": 5, "1mo": 31, "3mo": 92, "6mo": 183,
	"1y": 365, "2y": 730, "5y": 1826, "10y": 3652, "max": 7305,
}

type Client struct {
	log *zap.Logger
	now func() time.Time
}

func New(log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{log: log, now: time.Now}
}

func (c *Client) Name() string { return SourceName }

// NormalizeSymbol maps index names to vendor tickers and appends the NSE
// suffix to plain equity tickers. Idempotent.
func (c *Client) NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if t, ok := indexTickers[s]; ok {
		return t
	}
	if strings.HasPrefix(s, "^") || strings.HasSuffix(s, ".NS") {
		return s
	}
	return s + ".NS"
}

func (c *Client) RealTimePrice(ctx context.Context, symbol string) (source.Payload, error) {
	sym := c.NormalizeSymbol(symbol)
	c.log.Debug("fetching real-time quote", zap.String("symbol", sym))

	q, err := equity.Get(sym)
	if err != nil {
		return nil, &source.Error{Source: SourceName, Symbol: symbol, Code: source.CodeNetwork, Reason: "quote fetch failed", Err: err}
	}
	if q == nil {
		return nil, source.Errf(SourceName, symbol, source.CodeNotFound, "no quote data")
	}

	ts := c.now()
	if q.RegularMarketTime > 0 {
		ts = time.Unix(int64(q.RegularMarketTime), 0)
	}
	p := source.Payload{
		"symbol":            symbol,
		"normalized_symbol": sym,
		"price":             q.RegularMarketPrice,
		"change":            q.RegularMarketChange,
		"change_percent":    q.RegularMarketChangePercent,
		"open":              q.RegularMarketOpen,
		"high":              q.RegularMarketDayHigh,
		"low":               q.RegularMarketDayLow,
		"volume":            q.RegularMarketVolume,
		"previous_close":    q.RegularMarketPreviousClose,
		"currency":          "INR",
		"timestamp":         ts.Format(time.RFC3339),
		"source":            SourceName,
		"market_state":      market.State(c.now()),
	}
	if q.MarketCap > 0 {
		p["market_cap"] = float64(q.MarketCap)
	}
	return p, nil
}

func (c *Client) HistoricalData(ctx context.Context, symbol, period, interval string) (source.Payload, error) {
	if !source.ValidPeriod(period) {
		return nil, source.Errf(SourceName, symbol, source.CodeInvalidArgument, "invalid period %q", period)
	}
	if !source.ValidInterval(interval) {
		return nil, source.Errf(SourceName, symbol, source.CodeInvalidArgument, "invalid interval %q", interval)
	}
	sym := c.NormalizeSymbol(symbol)
	start, end := c.window(period)

	iter := chart.Get(&chart.Params{
		Symbol:   sym,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.Interval(interval),
	})

	points := make([]any, 0, 256)
	for iter.Next() {
		bar := iter.Bar()
		points = append(points, map[string]any{
			"timestamp": time.Unix(int64(bar.Timestamp), 0).UTC().Format(time.RFC3339),
			"open":      bar.Open.InexactFloat64(),
			"high":      bar.High.InexactFloat64(),
			"low":       bar.Low.InexactFloat64(),
			"close":     bar.Close.InexactFloat64(),
			"volume":    bar.Volume,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, &source.Error{Source: SourceName, Symbol: symbol, Code: source.CodeNetwork, Reason: "chart fetch failed", Err: err}
	}
	if len(points) == 0 {
		// An empty series is an error, not an empty success.
		return nil, source.Errf(SourceName, symbol, source.CodeNotFound, "no historical data")
	}
	return source.Payload{
		"symbol":            symbol,
		"normalized_symbol": sym,
		"period":            period,
		"interval":          interval,
		"data":              points,
		"count":             len(points),
		"source":            SourceName,
	}, nil
}

func (c *Client) window(period string) (time.Time, time.Time) {
	end := c.now()
	if period == "ytd" {
		return time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, end.Location()), end
	}
	days := periodLookback[period]
	return end.AddDate(0, 0, -days), end
}

// MarketIndices polls each tracked index ticker individually; single-ticker
// failures are skipped.
func (c *Client) MarketIndices(ctx context.Context) (source.Payload, error) {
	indices := make(map[string]any)
	seen := make(map[string]struct{})
	for name, ticker := range indexTickers {
		if _, dup := seen[ticker]; dup {
			continue
		}
		seen[ticker] = struct{}{}
		q, err := quote.Get(ticker)
		if err != nil || q == nil {
			c.log.Warn("index quote failed", zap.String("index", name), zap.Error(err))
			continue
		}
		indices[name] = map[string]any{
			"symbol":         ticker,
			"price":          q.RegularMarketPrice,
			"change":         q.RegularMarketChange,
			"change_percent": q.RegularMarketChangePercent,
			"open":           q.RegularMarketOpen,
			"high":           q.RegularMarketDayHigh,
			"low":            q.RegularMarketDayLow,
			"previous_close": q.RegularMarketPreviousClose,
			"volume":         q.RegularMarketVolume,
		}
	}
	if len(indices) == 0 {
		return nil, source.Errf(SourceName, "", source.CodeNotFound, "no index data")
	}
	return source.Payload{
		"indices":      indices,
		"timestamp":    c.now().Format(time.RFC3339),
		"market_state": market.State(c.now()),
		"source":       SourceName,
	}, nil
}

// TopGainersLosers polls the constituent subset and ranks by percent change.
func (c *Client) TopGainersLosers(ctx context.Context, count int) (source.Payload, error) {
	if count <= 0 {
		count = 10
	}
	rows := make([]map[string]any, 0, len(niftyConstituents))
	for _, ticker := range niftyConstituents {
		q, err := quote.Get(ticker)
		if err != nil || q == nil {
			c.log.Warn("constituent quote failed", zap.String("symbol", ticker), zap.Error(err))
			continue
		}
		rows = append(rows, map[string]any{
			"symbol":         strings.TrimSuffix(ticker, ".NS"),
			"price":          q.RegularMarketPrice,
			"change":         q.RegularMarketChange,
			"change_percent": q.RegularMarketChangePercent,
			"volume":         q.RegularMarketVolume,
		})
	}
	if len(rows) == 0 {
		return nil, source.Errf(SourceName, "", source.CodeNotFound, "no constituent data")
	}
	sort.Slice(rows, func(i, j int) bool {
		pi, _ := rows[i]["change_percent"].(float64)
		pj, _ := rows[j]["change_percent"].(float64)
		return pi > pj
	})
	if count > len(rows) {
		count = len(rows)
	}
	gainers := make([]any, 0, count)
	for _, r := range rows[:count] {
		gainers = append(gainers, r)
	}
	losers := make([]any, 0, count)
	for i := len(rows) - 1; i >= len(rows)-count; i-- {
		losers = append(losers, rows[i])
	}
	return source.Payload{
		"top_gainers": gainers,
		"top_losers":  losers,
		"timestamp":   c.now().Format(time.RFC3339),
		"source":      SourceName,
	}, nil
}
