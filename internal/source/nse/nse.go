// Package nse scrapes the exchange's undocumented JSON REST endpoints.
package nse

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"marketdata/internal/market"
	"marketdata/internal/normalize"
	"marketdata/internal/source"
)

const SourceName = "nse"

// indexAliases maps caller spellings to the exchange's index names.
var indexAliases = map[string]string{
	"NIFTY":       "NIFTY 50",
	"NIFTY50":     "NIFTY 50",
	"BANKNIFTY":   "NIFTY BANK",
	"NIFTYIT":     "NIFTY IT",
	"NIFTYPHARMA": "NIFTY PHARMA",
	"NIFTYAUTO":   "NIFTY AUTO",
	"NIFTYMETAL":  "NIFTY METAL",
	"NIFTYREALTY": "NIFTY REALTY",
}

// knownIndices are the entries kept from the all-indices listing.
var knownIndices = map[string]struct{}{
	"NIFTY 50": {}, "NIFTY BANK": {}, "NIFTY IT": {}, "NIFTY PHARMA": {},
}

type Config struct {
	BaseURL string // API root, default https://www.nseindia.com/api
	HomeURL string // cookie-priming target, default https://www.nseindia.com
}

// Client issues browser-like requests against the exchange. A single resty
// session (with its cookie jar) is shared across calls and closed by the
// orchestrator's shutdown.
type Client struct {
	cfg  Config
	http *resty.Client
	log  *zap.Logger

	primeOnce sync.Once
	now       func() time.Time
}

func New(cfg Config, hc *resty.Client, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.nseindia.com/api"
	}
	if cfg.HomeURL == "" {
		cfg.HomeURL = "https://www.nseindia.com"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{cfg: cfg, http: hc, log: log, now: time.Now}
}

func (c *Client) Name() string { return SourceName }

// NormalizeSymbol strips exchange suffixes and upper-cases. Idempotent.
func (c *Client) NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.HasSuffix(s, ".NSE") {
		return strings.TrimSuffix(s, ".NSE")
	}
	return strings.TrimSuffix(s, ".NS")
}

// primeCookies visits the exchange home page once to acquire session
// cookies. Best-effort: failure is logged and data requests proceed anyway.
func (c *Client) primeCookies(ctx context.Context) {
	c.primeOnce.Do(func() {
		if _, err := c.http.R().SetContext(ctx).Get(c.cfg.HomeURL); err != nil {
			c.log.Warn("cookie priming failed", zap.Error(err))
		}
	})
}

func (c *Client) getJSON(ctx context.Context, url string, params map[string]string) (map[string]any, *source.Error) {
	c.primeCookies(ctx)
	resp, err := c.http.R().SetContext(ctx).SetQueryParams(params).Get(url)
	if err != nil {
		return nil, &source.Error{Source: SourceName, Code: source.CodeNetwork, Reason: "request failed", Err: err}
	}
	if resp.StatusCode() != 200 {
		return nil, source.Errf(SourceName, "", source.CodeBadResponse, "GET %s -> %d", url, resp.StatusCode())
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, &source.Error{Source: SourceName, Code: source.CodeBadResponse, Reason: "decode response", Err: err}
	}
	return body, nil
}

// RealTimePrice fetches an equity quote; when the symbol is not listed as an
// equity it is retried as an index name via the alias table.
func (c *Client) RealTimePrice(ctx context.Context, symbol string) (source.Payload, error) {
	sym := c.NormalizeSymbol(symbol)

	body, serr := c.getJSON(ctx, c.cfg.BaseURL+"/quote-equity", map[string]string{"symbol": sym})
	if serr == nil {
		if p := c.parseEquityQuote(body, symbol); p != nil {
			return p, nil
		}
	}

	if _, ok := indexAliases[sym]; ok {
		return c.indexQuote(ctx, symbol)
	}
	if serr != nil {
		serr.Symbol = symbol
		return nil, serr
	}
	return nil, source.Errf(SourceName, symbol, source.CodeNotFound, "no equity or index data")
}

func (c *Client) parseEquityQuote(body map[string]any, symbol string) source.Payload {
	priceInfo, ok := body["priceInfo"].(map[string]any)
	if !ok {
		return nil
	}
	info, _ := body["info"].(map[string]any)
	hl, _ := priceInfo["intraDayHighLow"].(map[string]any)
	dp, _ := body["securityWiseDP"].(map[string]any)

	p := source.Payload{
		"symbol":         symbol,
		"price":          normalize.Float(priceInfo["lastPrice"]),
		"change":         normalize.Float(priceInfo["change"]),
		"change_percent": normalize.Float(priceInfo["pChange"]),
		"open":           normalize.Float(priceInfo["open"]),
		"high":           normalize.Float(hl["max"]),
		"low":            normalize.Float(hl["min"]),
		"previous_close": normalize.Float(priceInfo["previousClose"]),
		"volume":         normalize.Int(dp["quantityTraded"]),
		"value":          normalize.Float(dp["turnoverInLakhs"]),
		"timestamp":      c.now().Format(time.RFC3339),
		"source":         SourceName,
		"market_state":   market.State(c.now()),
	}
	if info != nil {
		p["nse_symbol"] = normalize.Str(info["symbol"])
		p["company_name"] = normalize.Str(info["companyName"])
		if v, ok := info["marketCap"]; ok && v != nil {
			p["market_cap"] = normalize.Float(v)
		}
		if v, ok := info["pe"]; ok && v != nil {
			p["pe_ratio"] = normalize.Float(v)
		}
	}
	return p
}

func (c *Client) indexQuote(ctx context.Context, symbol string) (source.Payload, error) {
	sym := c.NormalizeSymbol(symbol)
	indexName := indexAliases[sym]

	body, serr := c.getJSON(ctx, c.cfg.BaseURL+"/equity-stockIndices", map[string]string{"index": indexName})
	if serr != nil {
		serr.Symbol = symbol
		return nil, serr
	}
	items, _ := body["data"].([]any)
	for _, it := range items {
		item, ok := it.(map[string]any)
		if !ok || normalize.Str(item["index"]) != indexName {
			continue
		}
		return source.Payload{
			"symbol":         symbol,
			"index_name":     indexName,
			"price":          normalize.Float(item["last"]),
			"change":         normalize.Float(item["variation"]),
			"change_percent": normalize.Float(item["percentChange"]),
			"open":           normalize.Float(item["open"]),
			"high":           normalize.Float(item["dayHigh"]),
			"low":            normalize.Float(item["dayLow"]),
			"previous_close": normalize.Float(item["previousClose"]),
			"timestamp":      c.now().Format(time.RFC3339),
			"source":         SourceName,
			"market_state":   market.State(c.now()),
		}, nil
	}
	return nil, source.Errf(SourceName, symbol, source.CodeNotFound, "index %q not found", indexName)
}

// HistoricalData uses the exchange chart endpoint. Coverage is limited: the
// series carries timestamp+price points only.
func (c *Client) HistoricalData(ctx context.Context, symbol, period, interval string) (source.Payload, error) {
	if !source.ValidPeriod(period) {
		return nil, source.Errf(SourceName, symbol, source.CodeInvalidArgument, "invalid period %q", period)
	}
	if !source.ValidInterval(interval) {
		return nil, source.Errf(SourceName, symbol, source.CodeInvalidArgument, "invalid interval %q", interval)
	}
	sym := c.NormalizeSymbol(symbol)

	body, serr := c.getJSON(ctx, c.cfg.BaseURL+"/chart-databyindex", map[string]string{
		"index":   sym + "EQN",
		"indices": "true",
	})
	if serr != nil {
		serr.Symbol = symbol
		return nil, serr
	}
	graph, _ := body["grapthData"].([]any)
	points := make([]any, 0, len(graph))
	for _, g := range graph {
		pair, ok := g.([]any)
		if !ok || len(pair) < 2 {
			continue
		}
		points = append(points, map[string]any{
			"timestamp": normalize.Str(pair[0]),
			"close":     normalize.Float(pair[1]),
		})
	}
	if len(points) == 0 {
		return nil, source.Errf(SourceName, symbol, source.CodeNotFound, "no chart data")
	}
	return source.Payload{
		"symbol":   symbol,
		"period":   period,
		"interval": interval,
		"data":     points,
		"count":    len(points),
		"source":   SourceName,
		"note":     "exchange chart endpoint provides limited history",
	}, nil
}

// MarketIndices returns the tracked subset of the all-indices listing.
func (c *Client) MarketIndices(ctx context.Context) (source.Payload, error) {
	body, serr := c.getJSON(ctx, c.cfg.BaseURL+"/allIndices", nil)
	if serr != nil {
		return nil, serr
	}
	items, _ := body["data"].([]any)
	indices := make(map[string]any)
	for _, it := range items {
		item, ok := it.(map[string]any)
		if !ok {
			continue
		}
		name := normalize.Str(item["index"])
		if _, tracked := knownIndices[name]; !tracked {
			continue
		}
		key := strings.ToUpper(strings.ReplaceAll(name, " ", "_"))
		indices[key] = map[string]any{
			"name":           name,
			"price":          normalize.Float(item["last"]),
			"change":         normalize.Float(item["variation"]),
			"change_percent": normalize.Float(item["percentChange"]),
			"open":           normalize.Float(item["open"]),
			"high":           normalize.Float(item["dayHigh"]),
			"low":            normalize.Float(item["dayLow"]),
			"previous_close": normalize.Float(item["previousClose"]),
		}
	}
	if len(indices) == 0 {
		return nil, source.Errf(SourceName, "", source.CodeNotFound, "no tracked indices in listing")
	}
	return source.Payload{
		"indices":      indices,
		"timestamp":    c.now().Format(time.RFC3339),
		"market_state": market.State(c.now()),
		"source":       SourceName,
	}, nil
}

// TopGainersLosers ranks the NIFTY 50 constituents by percent change.
func (c *Client) TopGainersLosers(ctx context.Context, count int) (source.Payload, error) {
	if count <= 0 || count > 10 {
		count = 10
	}
	body, serr := c.getJSON(ctx, c.cfg.BaseURL+"/equity-stockIndices", map[string]string{"index": "NIFTY 50"})
	if serr != nil {
		return nil, serr
	}
	items, _ := body["data"].([]any)
	rows := make([]map[string]any, 0, len(items))
	for _, it := range items {
		item, ok := it.(map[string]any)
		if !ok {
			continue
		}
		rows = append(rows, map[string]any{
			"symbol":         normalize.Str(item["symbol"]),
			"price":          normalize.Float(item["lastPrice"]),
			"change":         normalize.Float(item["change"]),
			"change_percent": normalize.Float(item["pChange"]),
		})
	}
	if len(rows) == 0 {
		return nil, source.Errf(SourceName, "", source.CodeNotFound, "empty index constituents")
	}
	sort.Slice(rows, func(i, j int) bool {
		return normalize.Float(rows[i]["change_percent"]) > normalize.Float(rows[j]["change_percent"])
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

// FIIDII fetches institutional flow. Exchange-only data; the response shape
// drifts, so each field is coerced defensively.
func (c *Client) FIIDII(ctx context.Context) (source.Payload, error) {
	c.primeCookies(ctx)
	resp, err := c.http.R().SetContext(ctx).Get(c.cfg.BaseURL + "/fiidiiTradeReact")
	if err != nil {
		return nil, &source.Error{Source: SourceName, Code: source.CodeNetwork, Reason: "request failed", Err: err}
	}
	if resp.StatusCode() != 200 {
		return nil, source.Errf(SourceName, "", source.CodeBadResponse, "fiidiiTradeReact -> %d", resp.StatusCode())
	}
	var rows []map[string]any
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, &source.Error{Source: SourceName, Code: source.CodeBadResponse, Reason: "decode flow response", Err: err}
	}
	if len(rows) == 0 {
		return nil, source.Errf(SourceName, "", source.CodeNotFound, "no flow rows")
	}
	latest := rows[0]
	return source.Payload{
		"fii": map[string]any{
			"date":        normalize.Str(latest["date"]),
			"equity_buy":  normalize.Float(latest["fii_equity_buy"]),
			"equity_sell": normalize.Float(latest["fii_equity_sell"]),
			"equity_net":  normalize.Float(latest["fii_equity_net"]),
			"debt_buy":    normalize.Float(latest["fii_debt_buy"]),
			"debt_sell":   normalize.Float(latest["fii_debt_sell"]),
			"debt_net":    normalize.Float(latest["fii_debt_net"]),
		},
		"dii": map[string]any{
			"date":        normalize.Str(latest["date"]),
			"equity_buy":  normalize.Float(latest["dii_equity_buy"]),
			"equity_sell": normalize.Float(latest["dii_equity_sell"]),
			"equity_net":  normalize.Float(latest["dii_equity_net"]),
		},
		"timestamp": c.now().Format(time.RFC3339),
		"source":    SourceName,
	}, nil
}

// Close releases idle connections held by the shared session.
func (c *Client) Close() error {
	c.http.GetClient().CloseIdleConnections()
	return nil
}
