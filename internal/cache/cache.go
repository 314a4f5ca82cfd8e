// Package cache is a two-tier (memory + disk) TTL store for raw vendor
// payloads, keyed by data category, symbol and extra parameters.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"marketdata/internal/metrics"
)

// Entry is the persisted form: one JSON document per key, filename is the
// hex digest of the cache key.
type Entry struct {
	CachedAt time.Time         `json:"cached_at"`
	Type     string            `json:"cache_type"`
	Symbol   string            `json:"symbol"`
	Params   map[string]string `json:"kwargs"`
	Data     map[string]any    `json:"data"`
}

// DefaultTTLs is the per-category TTL table.
func DefaultTTLs() map[string]time.Duration {
	return map[string]time.Duration{
		"real_time":           60 * time.Second,
		"indices":             30 * time.Second,
		"historical_1d":       time.Hour,
		"historical_intraday": 5 * time.Minute,
		"company_info":        24 * time.Hour,
		"gainers_losers":      5 * time.Minute,
		"fii_dii":             time.Hour,
	}
}

// DefaultTTL applies to categories missing from the table.
const DefaultTTL = 10 * time.Minute

// Config fixes the cache directory and TTL policy at construction.
type Config struct {
	Dir        string
	TTL        map[string]time.Duration
	DefaultTTL time.Duration
}

// Manager is the two-tier store. The memory tier is guarded by a RWMutex so
// concurrent requests can share it safely; the disk tier is one file per key.
type Manager struct {
	dir        string
	ttl        map[string]time.Duration
	defaultTTL time.Duration
	log        *zap.Logger

	mu  sync.RWMutex
	mem map[string]Entry

	now func() time.Time
}

func New(cfg Config, log *zap.Logger) (*Manager, error) {
	if cfg.Dir == "" {
		cfg.Dir = filepath.Join("data", "cache", "market_data")
	}
	if cfg.TTL == nil {
		cfg.TTL = DefaultTTLs()
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Manager{
		dir:        cfg.Dir,
		ttl:        cfg.TTL,
		defaultTTL: cfg.DefaultTTL,
		log:        log,
		mem:        make(map[string]Entry),
		now:        time.Now,
	}, nil
}

// Key derives the deterministic cache key for (category, symbol, params).
func Key(category, symbol string, params map[string]string) string {
	parts := []string{category, symbol}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func (m *Manager) file(key string) string {
	return filepath.Join(m.dir, key+".json")
}

func (m *Manager) ttlFor(category string) time.Duration {
	if d, ok := m.ttl[category]; ok {
		return d
	}
	return m.defaultTTL
}

func (m *Manager) valid(e Entry) bool {
	if e.CachedAt.IsZero() {
		return false
	}
	return m.now().Before(e.CachedAt.Add(m.ttlFor(e.Type)))
}

// Get returns the cached payload when a valid entry exists in either tier.
// Expired entries found along the way are deleted (lazy eviction) and a
// valid disk hit is promoted into the memory tier.
func (m *Manager) Get(category, symbol string, params map[string]string) (map[string]any, bool) {
	key := Key(category, symbol, params)

	m.mu.RLock()
	e, ok := m.mem[key]
	m.mu.RUnlock()
	if ok {
		if m.valid(e) {
			metrics.CacheHits.WithLabelValues("memory").Inc()
			m.log.Debug("cache hit (memory)", zap.String("type", category), zap.String("symbol", symbol))
			return e.Data, true
		}
		m.mu.Lock()
		delete(m.mem, key)
		m.mu.Unlock()
	}

	path := m.file(key)
	b, err := os.ReadFile(path)
	if err != nil {
		metrics.CacheMisses.Inc()
		return nil, false
	}
	var de Entry
	if err := json.Unmarshal(b, &de); err != nil {
		// Corrupted files are treated as expired.
		m.log.Warn("removing corrupt cache file", zap.String("path", path), zap.Error(err))
		_ = os.Remove(path)
		metrics.CacheMisses.Inc()
		return nil, false
	}
	if !m.valid(de) {
		_ = os.Remove(path)
		metrics.CacheMisses.Inc()
		return nil, false
	}

	m.mu.Lock()
	m.mem[key] = de
	m.mu.Unlock()
	metrics.CacheHits.WithLabelValues("disk").Inc()
	m.log.Debug("cache hit (disk)", zap.String("type", category), zap.String("symbol", symbol))
	return de.Data, true
}

// Set writes the payload to both tiers. A disk failure degrades to an error
// return; the memory tier is still updated so the caller's request is served.
func (m *Manager) Set(category, symbol string, data map[string]any, params map[string]string) error {
	key := Key(category, symbol, params)
	e := Entry{
		CachedAt: m.now(),
		Type:     category,
		Symbol:   symbol,
		Params:   params,
		Data:     data,
	}

	m.mu.Lock()
	m.mem[key] = e
	m.mu.Unlock()

	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := os.WriteFile(m.file(key), b, 0o644); err != nil {
		m.log.Error("cache write failed", zap.String("type", category), zap.String("symbol", symbol), zap.Error(err))
		return fmt.Errorf("write cache file: %w", err)
	}
	m.log.Debug("cached", zap.String("type", category), zap.String("symbol", symbol))
	return nil
}

// Invalidate removes entries from both tiers. With no filters everything is
// cleared; category and symbol each narrow the selection and combine as an
// intersection.
func (m *Manager) Invalidate(category, symbol string) error {
	if category == "" && symbol == "" {
		m.mu.Lock()
		m.mem = make(map[string]Entry)
		m.mu.Unlock()
		files, err := filepath.Glob(filepath.Join(m.dir, "*.json"))
		if err != nil {
			return err
		}
		for _, f := range files {
			_ = os.Remove(f)
		}
		m.log.Info("cleared all cache")
		return nil
	}

	match := func(e Entry) bool {
		return (category == "" || e.Type == category) && (symbol == "" || e.Symbol == symbol)
	}

	m.mu.Lock()
	for key, e := range m.mem {
		if match(e) {
			delete(m.mem, key)
		}
	}
	m.mu.Unlock()

	files, err := filepath.Glob(filepath.Join(m.dir, "*.json"))
	if err != nil {
		return err
	}
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal(b, &e); err != nil {
			// Unparsable, repair by deletion.
			_ = os.Remove(f)
			continue
		}
		if match(e) {
			_ = os.Remove(f)
		}
	}
	m.log.Info("invalidated cache", zap.String("type", category), zap.String("symbol", symbol))
	return nil
}

// CleanupExpired sweeps both tiers, removing everything whose validity check
// fails. Unparsable files count as expired.
func (m *Manager) CleanupExpired() int {
	cleaned := 0

	m.mu.Lock()
	for key, e := range m.mem {
		if !m.valid(e) {
			delete(m.mem, key)
			cleaned++
		}
	}
	m.mu.Unlock()

	files, _ := filepath.Glob(filepath.Join(m.dir, "*.json"))
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal(b, &e); err != nil {
			_ = os.Remove(f)
			cleaned++
			continue
		}
		if !m.valid(e) {
			_ = os.Remove(f)
			cleaned++
		}
	}
	m.log.Info("cleaned up expired cache entries", zap.Int("count", cleaned))
	return cleaned
}

// TierStats describes one tier in Stats.
type TierStats struct {
	Entries   int   `json:"entries"`
	SizeBytes int64 `json:"size_bytes"`
}

// Stats is the observability snapshot returned by the facade.
type Stats struct {
	Memory TierStats      `json:"memory_cache"`
	File   TierStats      `json:"file_cache"`
	Types  map[string]int `json:"cache_types"`
	TTLSec map[string]int `json:"ttl_settings"`
}

func (m *Manager) Stats() Stats {
	s := Stats{Types: make(map[string]int), TTLSec: make(map[string]int)}

	m.mu.RLock()
	s.Memory.Entries = len(m.mem)
	for _, e := range m.mem {
		if b, err := json.Marshal(e); err == nil {
			s.Memory.SizeBytes += int64(len(b))
		}
		s.Types[e.Type]++
	}
	m.mu.RUnlock()

	files, _ := filepath.Glob(filepath.Join(m.dir, "*.json"))
	s.File.Entries = len(files)
	for _, f := range files {
		if info, err := os.Stat(f); err == nil {
			s.File.SizeBytes += info.Size()
		}
	}

	for cat, d := range m.ttl {
		s.TTLSec[cat] = int(d / time.Second)
	}
	s.TTLSec["default"] = int(m.defaultTTL / time.Second)
	return s
}
