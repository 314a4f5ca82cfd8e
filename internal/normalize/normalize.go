// Package normalize reconciles divergent vendor payloads into canonical
// structures, merges partial results and scores their quality.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"marketdata/internal/source"
)

// Price is the canonical real-time quote. Every required numeric field is a
// concrete number: failed parses coerce to zero, never null, so consumers
// never branch on missing-vs-present.
type Price struct {
	Symbol         string         `json:"symbol"`
	Price          float64        `json:"price"`
	Change         float64        `json:"change"`
	ChangePercent  float64        `json:"change_percent"`
	Open           float64        `json:"open"`
	High           float64        `json:"high"`
	Low            float64        `json:"low"`
	Volume         int64          `json:"volume"`
	Timestamp      string         `json:"timestamp"`
	Source         string         `json:"source"`
	MarketState    string         `json:"market_state"`
	PreviousClose  *float64       `json:"previous_close,omitempty"`
	MarketCap      *float64       `json:"market_cap,omitempty"`
	PERatio        *float64       `json:"pe_ratio,omitempty"`
	AdditionalData map[string]any `json:"additional_data,omitempty"`
}

// Point is a single OHLCV sample. Timestamp may be empty when the vendor
// omitted it; the quality scorer counts that against the series.
type Point struct {
	Timestamp string  `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

// Historical is the canonical OHLCV series.
type Historical struct {
	Symbol    string  `json:"symbol"`
	Period    string  `json:"period"`
	Interval  string  `json:"interval"`
	Data      []Point `json:"data"`
	Count     int     `json:"count"`
	Source    string  `json:"source"`
	Timestamp string  `json:"timestamp"`
}

// IndexSnapshot is one index entry inside Indices.
type IndexSnapshot struct {
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	PreviousClose float64 `json:"previous_close"`
	Volume        int64   `json:"volume"`
}

// Indices maps canonical index names to snapshots.
type Indices struct {
	Indices     map[string]IndexSnapshot `json:"indices"`
	Timestamp   string                   `json:"timestamp"`
	MarketState string                   `json:"market_state"`
	Source      string                   `json:"source"`
}

// Mover is one gainers/losers row.
type Mover struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        int64   `json:"volume"`
}

// GainersLosers holds the day's top movers.
type GainersLosers struct {
	TopGainers []Mover `json:"top_gainers"`
	TopLosers  []Mover `json:"top_losers"`
	Timestamp  string  `json:"timestamp"`
	Source     string  `json:"source"`
}

// Quality is the result of scoring a normalized record.
type Quality struct {
	Score   int      `json:"quality_score"`
	Issues  []string `json:"issues"`
	IsValid bool     `json:"is_valid"`
}

// priceFields are the keys Price recognizes; everything else a vendor sends
// is bagged into AdditionalData.
var priceFields = map[string]struct{}{
	"symbol": {}, "price": {}, "change": {}, "change_percent": {},
	"open": {}, "high": {}, "low": {}, "volume": {}, "timestamp": {},
	"market_state": {}, "previous_close": {}, "market_cap": {},
	"pe_ratio": {}, "source": {},
}

// DefaultAliases maps common index names and tickers to canonical spellings
// so the same instrument always keys to one cache entry.
func DefaultAliases() map[string]string {
	return map[string]string{
		"NIFTY":      "NIFTY",
		"NIFTY50":    "NIFTY",
		"^NSEI":      "NIFTY",
		"NIFTY 50":   "NIFTY",
		"SENSEX":     "SENSEX",
		"^BSESN":     "SENSEX",
		"BANKNIFTY":  "BANKNIFTY",
		"NIFTY BANK": "BANKNIFTY",
		"^NSEBANK":   "BANKNIFTY",
	}
}

// Normalizer converts raw vendor payloads into canonical structures. The
// alias table is fixed at construction.
type Normalizer struct {
	aliases map[string]string
	log     *zap.Logger
}

func New(aliases map[string]string, log *zap.Logger) *Normalizer {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{aliases: aliases, log: log}
}

// Symbol routes a symbol through the alias table and strips exchange
// suffixes. Idempotent.
func (n *Normalizer) Symbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return ""
	}
	if canon, ok := n.aliases[s]; ok {
		return canon
	}
	for _, suffix := range []string{".NSE", ".NS", ".BSE", ".BO"} {
		if strings.HasSuffix(s, suffix) {
			return strings.TrimSuffix(s, suffix)
		}
	}
	return s
}

// Price converts a raw payload into a canonical Price, or nil when the
// payload carries an error marker.
func (n *Normalizer) Price(raw source.Payload) *Price {
	if raw == nil {
		return nil
	}
	if hasError(raw) {
		n.log.Warn("error marker in raw price payload", zap.Any("error", raw["error"]))
		return nil
	}
	p := &Price{
		Symbol:        n.Symbol(Str(raw["symbol"])),
		Price:         Float(raw["price"]),
		Change:        Float(raw["change"]),
		ChangePercent: Float(raw["change_percent"]),
		Open:          Float(raw["open"]),
		High:          Float(raw["high"]),
		Low:           Float(raw["low"]),
		Volume:        Int(raw["volume"]),
		Timestamp:     Str(raw["timestamp"]),
		Source:        strOr(raw["source"], "unknown"),
		MarketState:   strOr(raw["market_state"], "unknown"),
		PreviousClose: OptFloat(raw["previous_close"]),
		MarketCap:     OptFloat(raw["market_cap"]),
		PERatio:       OptFloat(raw["pe_ratio"]),
	}
	if p.Timestamp == "" {
		p.Timestamp = time.Now().Format(time.RFC3339)
	}
	extras := make(map[string]any)
	for k, v := range raw {
		if _, known := priceFields[k]; !known {
			extras[k] = v
		}
	}
	if len(extras) > 0 {
		p.AdditionalData = extras
	}
	return p
}

// Historical converts a raw payload into a canonical series. Each point is
// coerced independently so one malformed point never drops the series.
func (n *Normalizer) Historical(raw source.Payload) *Historical {
	if raw == nil || hasError(raw) {
		return nil
	}
	h := &Historical{
		Symbol:    n.Symbol(Str(raw["symbol"])),
		Period:    strOr(raw["period"], "unknown"),
		Interval:  strOr(raw["interval"], "unknown"),
		Source:    strOr(raw["source"], "unknown"),
		Timestamp: Str(raw["timestamp"]),
	}
	if h.Timestamp == "" {
		h.Timestamp = time.Now().Format(time.RFC3339)
	}
	points, _ := raw["data"].([]any)
	h.Data = make([]Point, 0, len(points))
	for _, item := range points {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		h.Data = append(h.Data, Point{
			Timestamp: Str(m["timestamp"]),
			Open:      Float(m["open"]),
			High:      Float(m["high"]),
			Low:       Float(m["low"]),
			Close:     Float(m["close"]),
			Volume:    Int(m["volume"]),
		})
	}
	if c := Int(raw["count"]); c > 0 {
		h.Count = int(c)
	} else {
		h.Count = len(h.Data)
	}
	return h
}

// Indices converts a raw payload into canonical index snapshots, mapping
// each raw index name through the alias table.
func (n *Normalizer) Indices(raw source.Payload) *Indices {
	if raw == nil || hasError(raw) {
		return nil
	}
	out := &Indices{
		Indices:     make(map[string]IndexSnapshot),
		Timestamp:   Str(raw["timestamp"]),
		MarketState: strOr(raw["market_state"], "unknown"),
		Source:      strOr(raw["source"], "unknown"),
	}
	if out.Timestamp == "" {
		out.Timestamp = time.Now().Format(time.RFC3339)
	}
	rawIndices, _ := raw["indices"].(map[string]any)
	for name, v := range rawIndices {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		canon := n.Symbol(name)
		out.Indices[canon] = IndexSnapshot{
			Name:          strOr(entry["name"], canon),
			Price:         Float(entry["price"]),
			Change:        Float(entry["change"]),
			ChangePercent: Float(entry["change_percent"]),
			Open:          Float(entry["open"]),
			High:          Float(entry["high"]),
			Low:           Float(entry["low"]),
			PreviousClose: Float(entry["previous_close"]),
			Volume:        Int(entry["volume"]),
		}
	}
	return out
}

// GainersLosers converts a raw movers payload.
func (n *Normalizer) GainersLosers(raw source.Payload) *GainersLosers {
	if raw == nil || hasError(raw) {
		return nil
	}
	out := &GainersLosers{
		Timestamp: Str(raw["timestamp"]),
		Source:    strOr(raw["source"], "unknown"),
	}
	if out.Timestamp == "" {
		out.Timestamp = time.Now().Format(time.RFC3339)
	}
	out.TopGainers = n.movers(raw["top_gainers"])
	out.TopLosers = n.movers(raw["top_losers"])
	return out
}

func (n *Normalizer) movers(v any) []Mover {
	items, _ := v.([]any)
	out := make([]Mover, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Mover{
			Symbol:        n.Symbol(Str(m["symbol"])),
			Price:         Float(m["price"]),
			Change:        Float(m["change"]),
			ChangePercent: Float(m["change_percent"]),
			Volume:        Int(m["volume"]),
		})
	}
	return out
}

// Merge combines a primary and a fallback payload. If either side is absent
// or errored the other is returned verbatim. Otherwise the result starts
// from a copy of primary, and fallback values fill only keys whose primary
// value is absent, nil or exactly zero. Provenance markers are always
// stamped on a true merge.
func Merge(primary, fallback source.Payload) source.Payload {
	if primary == nil || hasError(primary) {
		return fallback
	}
	if fallback == nil || hasError(fallback) {
		return primary
	}
	merged := make(source.Payload, len(primary)+3)
	for k, v := range primary {
		merged[k] = v
	}
	for k, v := range fallback {
		if cur, ok := merged[k]; !ok || isEmpty(cur) {
			merged[k] = v
		}
	}
	merged["primary_source"] = strOr(primary["source"], "unknown")
	merged["fallback_source"] = strOr(fallback["source"], "unknown")
	merged["merged"] = true
	return merged
}

// Score applies the deterministic quality deductions to a normalized record.
func Score(v any) Quality {
	score := 100
	issues := []string{}

	switch d := v.(type) {
	case *Price:
		if d.Price <= 0 {
			score -= 30
			issues = append(issues, "Invalid price")
		}
		if d.Volume <= 0 {
			score -= 10
			issues = append(issues, "Zero volume")
		}
		if d.Timestamp == "" {
			score -= 20
			issues = append(issues, "Missing timestamp")
		}
		if d.ChangePercent > 20 || d.ChangePercent < -20 {
			score -= 5
			issues = append(issues, "High volatility")
		}
	case *Historical:
		if d.Count == 0 {
			score = 0
			issues = append(issues, "No historical data")
		} else if d.Count < 10 {
			score -= 20
			issues = append(issues, "Insufficient data points")
		}
		if d.Count > 0 {
			withTS := 0
			for _, p := range d.Data {
				if p.Timestamp != "" {
					withTS++
				}
			}
			if float64(withTS) < float64(d.Count)*0.9 {
				score -= 15
				issues = append(issues, "Missing timestamps")
			}
		}
	}
	if score < 0 {
		score = 0
	}
	return Quality{Score: score, Issues: issues, IsValid: score >= 50}
}

func hasError(p source.Payload) bool {
	_, ok := p["error"]
	return ok
}

// Float coerces any JSON-shaped value to a float64, defaulting to 0.
func Float(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(x), ",", ""), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Int coerces any JSON-shaped value to an int64, defaulting to 0.
// Fractional values truncate.
func Int(v any) int64 {
	return int64(Float(v))
}

// OptFloat preserves absence: nil stays nil, anything else coerces.
func OptFloat(v any) *float64 {
	if v == nil {
		return nil
	}
	f := Float(v)
	return &f
}

// Str coerces a value to its string form; numbers are formatted, other
// types come back empty.
func Str(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return ""
	}
}

func strOr(v any, def string) string {
	if s := Str(v); s != "" {
		return s
	}
	return def
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	switch x := v.(type) {
	case float64:
		return x == 0
	case float32:
		return x == 0
	case int:
		return x == 0
	case int64:
		return x == 0
	case json.Number:
		f, err := x.Float64()
		return err == nil && f == 0
	default:
		return false
	}
}
