package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"marketdata/internal/config"
	"marketdata/internal/httpx"
	"marketdata/internal/logging"
	"marketdata/internal/marketapi"
	"marketdata/internal/normalize"
	"marketdata/internal/source"
	"marketdata/internal/source/nse"
	"marketdata/internal/source/yahoo"
)

func main() {
	var op string
	var symbol string
	var period string
	var interval string
	var count int
	var timeout int
	var configPath string

	flag.StringVar(&op, "op", "price", "operation: price, historical, indices, movers, fii-dii, status, search")
	flag.StringVar(&symbol, "symbol", "RELIANCE", "stock symbol or search query")
	flag.StringVar(&period, "period", "1mo", "historical period (1d, 5d, 1mo, 3mo, 6mo, 1y, ...)")
	flag.StringVar(&interval, "interval", "1d", "historical interval (1m, 5m, 1h, 1d, ...)")
	flag.IntVar(&count, "count", 5, "mover count")
	flag.IntVar(&timeout, "timeout", 15, "request timeout seconds")
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err)
	}
	if timeout > 0 {
		cfg.Server.RequestTimeoutSec = timeout
	}

	log, err := logging.New("warn", "console")
	if err != nil {
		fatal(err)
	}
	defer log.Sync()

	clients := []source.Client{
		nse.New(nse.Config{BaseURL: cfg.NSE.BaseURL, HomeURL: cfg.NSE.HomeURL},
			httpx.NewBrowser(time.Duration(cfg.Server.RequestTimeoutSec)*time.Second), log),
		yahoo.New(log),
	}
	api := marketapi.New(clients, nil, normalize.New(normalize.DefaultAliases(), log), log)
	defer api.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.RequestTimeoutSec)*time.Second)
	defer cancel()

	var out any
	switch op {
	case "price":
		out, err = api.RealTimePrice(ctx, symbol)
	case "historical":
		out, err = api.HistoricalData(ctx, symbol, period, interval)
	case "indices":
		out, err = api.MarketIndices(ctx)
	case "movers":
		out, err = api.TopGainersLosers(ctx, count)
	case "fii-dii":
		out, err = api.FIIDII(ctx)
	case "status":
		out = api.MarketStatus()
	case "search":
		out = api.SearchSymbols(symbol, 10)
	default:
		fatal(fmt.Errorf("unknown op %q", op))
	}
	if err != nil {
		fatal(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
