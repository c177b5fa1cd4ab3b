package metrics

import (
	"sync"
	"time"
)

// Metrics tracks per-run pipeline statistics. The monitoring endpoints
// read the Global instance; the pipeline mutates it.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	ItemsFetched       int64
	ItemsScraped       int64
	ItemsSummarized    int64
	ItemsTranslated    int64
	ItemsGenerated     int64
	ItemsFailed        int64
	DuplicatesFiltered int64
	CacheHits          int64
	CacheMisses        int64

	// Timings
	LastRunDuration time.Duration

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) AddFetched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsFetched += int64(n)
}

func (m *Metrics) AddScraped(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsScraped += int64(n)
}

func (m *Metrics) IncrementSummarized() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsSummarized++
}

func (m *Metrics) IncrementTranslated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsTranslated++
}

func (m *Metrics) AddGenerated(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsGenerated += int64(n)
}

func (m *Metrics) IncrementFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsFailed++
}

func (m *Metrics) AddDuplicatesFiltered(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered += int64(n)
}

func (m *Metrics) IncrementCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *Metrics) IncrementCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *Metrics) RecordRun(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunDuration = duration
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

// CacheHitRate returns the operation-cache hit rate percentage.
func (m *Metrics) CacheHitRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := m.CacheHits + m.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(m.CacheHits) / float64(total) * 100
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := m.CacheHits + m.CacheMisses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(m.CacheHits) / float64(total) * 100
	}

	return map[string]interface{}{
		"items_fetched":        m.ItemsFetched,
		"items_scraped":        m.ItemsScraped,
		"items_summarized":     m.ItemsSummarized,
		"items_translated":     m.ItemsTranslated,
		"items_generated":      m.ItemsGenerated,
		"items_failed":         m.ItemsFailed,
		"duplicates_filtered":  m.DuplicatesFiltered,
		"cache_hits":           m.CacheHits,
		"cache_misses":         m.CacheMisses,
		"cache_hit_rate":       hitRate,
		"last_run_duration_ms": m.LastRunDuration.Milliseconds(),
		"last_run_time":        m.LastRunTime.Format(time.RFC3339),
		"last_error_time":      m.LastErrorTime.Format(time.RFC3339),
		"last_error":           m.LastError,
		"is_healthy":           m.IsHealthy,
	}
}
