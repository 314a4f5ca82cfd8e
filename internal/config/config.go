package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type Cache struct {
	Enabled         bool           `json:"enabled"`
	Dir             string         `json:"dir"`
	TTLOverridesSec map[string]int `json:"ttl_overrides_sec"`
}

type NSE struct {
	Enabled              bool   `json:"enabled"`
	BaseURL              string `json:"base_url"`
	HomeURL              string `json:"home_url"`
	TimeoutSec           int    `json:"timeout_sec"`
	MaxRequestsPerMinute int    `json:"max_requests_per_minute"`
	Burst                int    `json:"burst"`
}

type Yahoo struct {
	Enabled              bool `json:"enabled"`
	MaxRequestsPerMinute int  `json:"max_requests_per_minute"`
	Burst                int  `json:"burst"`
}

type Log struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

type Config struct {
	Server Server `json:"server"`
	Cache  Cache  `json:"cache"`
	NSE    NSE    `json:"nse"`
	Yahoo  Yahoo  `json:"yahoo"`
	Log    Log    `json:"log"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 15},
		Cache: Cache{
			Enabled: true,
			Dir:     "data/cache/market_data",
		},
		NSE: NSE{
			Enabled:              true,
			BaseURL:              "https://www.nseindia.com/api",
			HomeURL:              "https://www.nseindia.com",
			TimeoutSec:           10,
			MaxRequestsPerMinute: 30,
			Burst:                5,
		},
		Yahoo: Yahoo{
			Enabled:              true,
			MaxRequestsPerMinute: 60,
			Burst:                10,
		},
		Log: Log{Level: "info", Format: "json"},
	}
}

// Load reads JSON config from path. If path is empty or the file does not
// exist, it returns defaults. A .env file, when present, is folded into the
// environment first; environment variables override select fields.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Server.RequestTimeoutSec = x
		}
	}
	if v := os.Getenv("CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = truthy(v)
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("NSE_ENABLED"); v != "" {
		cfg.NSE.Enabled = truthy(v)
	}
	if v := os.Getenv("NSE_BASE_URL"); v != "" {
		cfg.NSE.BaseURL = v
	}
	if v := os.Getenv("NSE_HOME_URL"); v != "" {
		cfg.NSE.HomeURL = v
	}
	if v := os.Getenv("NSE_TIMEOUT_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.NSE.TimeoutSec = x
		}
	}
	if v := os.Getenv("NSE_MAX_RPM"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.NSE.MaxRequestsPerMinute = x
		}
	}
	if v := os.Getenv("NSE_BURST"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.NSE.Burst = x
		}
	}
	if v := os.Getenv("YAHOO_ENABLED"); v != "" {
		cfg.Yahoo.Enabled = truthy(v)
	}
	if v := os.Getenv("YAHOO_MAX_RPM"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.Yahoo.MaxRequestsPerMinute = x
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
