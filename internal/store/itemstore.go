package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"hnbabel/internal/feed"
	"hnbabel/internal/logger"
)

// TimeLayout is the canonical processed_at format: fixed-width UTC so
// that string comparison orders timestamps chronologically. Every write
// site must stamp through Timestamp to keep that invariant.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

const schemaVersion = 1

// Translation is one per-language rendering of an item.
type Translation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ProcessedItem is a feed item plus everything derived from it. Written
// once after successful processing; immutable afterwards except for the
// TTL-driven purge.
type ProcessedItem struct {
	feed.Item

	SchemaVersion int                    `json:"schema_version"`
	Summary       string                 `json:"summary"`
	Translations  map[string]Translation `json:"translations"`
	OriginalTitle string                 `json:"original_title"`
	CommentsHTML  string                 `json:"comments_html,omitempty"`
	ProcessedAt   string                 `json:"processed_at"`
}

// Timestamp renders t in the canonical sortable format.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ItemStore persists processed items keyed by GUID, with TTL-based
// eviction on load. Reads and writes never fail the pipeline: a broken
// file loads as an empty store, a failed save is logged and dropped.
type ItemStore struct {
	path     string
	keepDays int
	now      func() time.Time
	items    map[string]ProcessedItem
}

func NewItemStore(cacheDir string, keepDays int) *ItemStore {
	return &ItemStore{
		path:     filepath.Join(cacheDir, "processed_items.json"),
		keepDays: keepDays,
		now:      time.Now,
		items:    make(map[string]ProcessedItem),
	}
}

// Load reads the persisted store and drops entries older than the TTL.
// An entry survives when its processed_at compares >= the cutoff, so an
// entry exactly at the cutoff is retained.
func (s *ItemStore) Load() {
	s.items = make(map[string]ProcessedItem)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("cannot read item store, starting cold", "path", s.path, "error", err)
		}
		return
	}

	var persisted map[string]ProcessedItem
	if err := json.Unmarshal(data, &persisted); err != nil {
		logger.Warn("item store corrupted, starting cold", "path", s.path, "error", err)
		return
	}

	cutoff := Timestamp(s.now().AddDate(0, 0, -s.keepDays))
	expired := 0
	for guid, item := range persisted {
		if item.ProcessedAt >= cutoff {
			s.items[guid] = item
		} else {
			expired++
		}
	}
	if expired > 0 {
		logger.Info("removed expired item store entries", "count", expired)
	}
}

func (s *ItemStore) Get(guid string) (ProcessedItem, bool) {
	item, ok := s.items[guid]
	return item, ok
}

// Set stores the item under guid, stamping processed_at if missing.
func (s *ItemStore) Set(guid string, item ProcessedItem) {
	if item.ProcessedAt == "" {
		item.ProcessedAt = Timestamp(s.now())
	}
	item.SchemaVersion = schemaVersion
	s.items[guid] = item
}

func (s *ItemStore) Len() int {
	return len(s.items)
}

// Links returns the set of canonical URLs already present in the store.
func (s *ItemStore) Links() map[string]struct{} {
	links := make(map[string]struct{}, len(s.items))
	for _, item := range s.items {
		if item.Link != "" {
			links[item.Link] = struct{}{}
		}
	}
	return links
}

// Recent returns up to max items, most recently processed first.
func (s *ItemStore) Recent(max int) []ProcessedItem {
	items := make([]ProcessedItem, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ProcessedAt > items[j].ProcessedAt
	})
	if max > 0 && len(items) > max {
		items = items[:max]
	}
	return items
}

// Save persists the whole store in one write. The cache is an
// optimization: a failed save is logged and swallowed so the run still
// produces feeds.
func (s *ItemStore) Save() {
	for guid, item := range s.items {
		if item.ProcessedAt == "" {
			item.ProcessedAt = Timestamp(s.now())
			s.items[guid] = item
		}
	}

	data, err := json.MarshalIndent(s.items, "", "  ")
	if err != nil {
		logger.Warn("cannot marshal item store", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		logger.Warn("cannot create cache dir", "error", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		logger.Warn("cannot write item store", "path", s.path, "error", err)
		return
	}
	logger.Debug("saved item store", "entries", len(s.items))
}
