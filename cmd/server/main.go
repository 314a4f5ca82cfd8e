package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"marketdata/internal/cache"
	"marketdata/internal/config"
	"marketdata/internal/httpx"
	"marketdata/internal/logging"
	"marketdata/internal/marketapi"
	"marketdata/internal/metrics"
	"marketdata/internal/normalize"
	"marketdata/internal/source"
	"marketdata/internal/source/nse"
	"marketdata/internal/source/ratelimit"
	"marketdata/internal/source/yahoo"
)

func main() {
	cfgPath := os.Getenv("CONFIG_FILE")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	api := buildAPI(cfg, log)
	defer api.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/api/price", func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			httpError(w, http.StatusBadRequest, "missing symbol query param")
			return
		}
		price, err := api.RealTimePrice(r.Context(), symbol)
		if err != nil {
			sourceError(w, err)
			return
		}
		writeJSON(w, price)
	})

	mux.HandleFunc("/api/historical", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		symbol := q.Get("symbol")
		if symbol == "" {
			httpError(w, http.StatusBadRequest, "missing symbol query param")
			return
		}
		period := q.Get("period")
		if period == "" {
			period = "1mo"
		}
		interval := q.Get("interval")
		if interval == "" {
			interval = "1d"
		}
		hist, err := api.HistoricalData(r.Context(), symbol, period, interval)
		if err != nil {
			sourceError(w, err)
			return
		}
		writeJSON(w, hist)
	})

	mux.HandleFunc("/api/indices", func(w http.ResponseWriter, r *http.Request) {
		idx, err := api.MarketIndices(r.Context())
		if err != nil {
			sourceError(w, err)
			return
		}
		writeJSON(w, idx)
	})

	mux.HandleFunc("/api/movers", func(w http.ResponseWriter, r *http.Request) {
		count, _ := strconv.Atoi(r.URL.Query().Get("count"))
		movers, err := api.TopGainersLosers(r.Context(), count)
		if err != nil {
			sourceError(w, err)
			return
		}
		writeJSON(w, movers)
	})

	mux.HandleFunc("/api/fii-dii", func(w http.ResponseWriter, r *http.Request) {
		flow, err := api.FIIDII(r.Context())
		if err != nil {
			sourceError(w, err)
			return
		}
		writeJSON(w, flow)
	})

	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			httpError(w, http.StatusBadRequest, "missing q query param")
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		writeJSON(w, map[string]any{"query": q, "results": api.SearchSymbols(q, limit)})
	})

	mux.HandleFunc("/api/market-status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, api.MarketStatus())
	})

	mux.HandleFunc("/api/cache/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, ok := api.CacheStats()
		if !ok {
			httpError(w, http.StatusNotFound, "caching disabled")
			return
		}
		writeJSON(w, stats)
	})

	mux.HandleFunc("/api/cache/clear", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		q := r.URL.Query()
		if err := api.ClearCache(q.Get("category"), q.Get("symbol")); err != nil {
			httpError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, map[string]any{"cleared": true})
	})

	mux.HandleFunc("/api/cache/cleanup", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, map[string]any{"removed": api.CleanupExpiredCache()})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withJSONHeaders(recoverPanic(log, mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("server stopped")
}

func buildAPI(cfg config.Config, log *zap.Logger) *marketapi.API {
	timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second

	var clients []source.Client
	if cfg.NSE.Enabled {
		nseTimeout := timeout
		if cfg.NSE.TimeoutSec > 0 {
			nseTimeout = time.Duration(cfg.NSE.TimeoutSec) * time.Second
		}
		var c source.Client = nse.New(nse.Config{
			BaseURL: cfg.NSE.BaseURL,
			HomeURL: cfg.NSE.HomeURL,
		}, httpx.NewBrowser(nseTimeout), log.Named("nse"))
		if cfg.NSE.MaxRequestsPerMinute > 0 {
			c = &ratelimit.Client{
				C:  c,
				TB: ratelimit.NewTokenBucket(float64(cfg.NSE.MaxRequestsPerMinute)/60.0, cfg.NSE.Burst),
			}
		}
		clients = append(clients, c)
	}
	if cfg.Yahoo.Enabled {
		var c source.Client = yahoo.New(log.Named("yahoo"))
		if cfg.Yahoo.MaxRequestsPerMinute > 0 {
			c = &ratelimit.Client{
				C:  c,
				TB: ratelimit.NewTokenBucket(float64(cfg.Yahoo.MaxRequestsPerMinute)/60.0, cfg.Yahoo.Burst),
			}
		}
		clients = append(clients, c)
	}

	var cm *cache.Manager
	if cfg.Cache.Enabled {
		ttl := cache.DefaultTTLs()
		for k, sec := range cfg.Cache.TTLOverridesSec {
			ttl[k] = time.Duration(sec) * time.Second
		}
		var err error
		cm, err = cache.New(cache.Config{Dir: cfg.Cache.Dir, TTL: ttl}, log.Named("cache"))
		if err != nil {
			log.Fatal("cache init", zap.Error(err))
		}
	}

	norm := normalize.New(normalize.DefaultAliases(), log.Named("normalize"))
	return marketapi.New(clients, cm, norm, log.Named("api"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// sourceError maps adapter failure codes onto HTTP statuses.
func sourceError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if se, ok := err.(*source.Error); ok {
		switch se.Code {
		case source.CodeNotFound:
			status = http.StatusNotFound
		case source.CodeInvalidArgument:
			status = http.StatusBadRequest
		case source.CodeExhausted:
			status = http.StatusBadGateway
		}
	}
	httpError(w, status, err.Error())
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverPanic protects handlers from panics.
func recoverPanic(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("handler panic", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				httpError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
