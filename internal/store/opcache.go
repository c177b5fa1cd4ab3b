package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"hnbabel/internal/logger"
)

// OpCache memoizes summarization and translation outputs by content
// fingerprint, in two independent tables. Entries are immutable and
// never expire: the same text always summarizes and translates the same
// way. Any I/O failure degrades to a cache miss or a dropped write.
type OpCache struct {
	summaryPath     string
	translationPath string
}

func NewOpCache(cacheDir string) *OpCache {
	return &OpCache{
		summaryPath:     filepath.Join(cacheDir, "summaries.json"),
		translationPath: filepath.Join(cacheDir, "translations.json"),
	}
}

// Fingerprint returns the stable content key: a SHA-256 hex digest, so
// lookup cost is independent of text length and keys are reproducible
// across runs for byte-identical text.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func translationKey(text, lang string) string {
	return lang + "_" + Fingerprint(text)
}

func (c *OpCache) GetSummary(content string) (string, bool) {
	table := c.loadTable(c.summaryPath)
	summary, ok := table[Fingerprint(content)]
	return summary, ok
}

func (c *OpCache) SetSummary(content, summary string) {
	c.setEntry(c.summaryPath, Fingerprint(content), summary)
}

func (c *OpCache) GetTranslation(text, lang string) (string, bool) {
	table := c.loadTable(c.translationPath)
	translated, ok := table[translationKey(text, lang)]
	return translated, ok
}

func (c *OpCache) SetTranslation(text, lang, translated string) {
	c.setEntry(c.translationPath, translationKey(text, lang), translated)
}

// loadTable reads a whole table; any failure yields an empty table,
// which the callers see as a miss.
func (c *OpCache) loadTable(path string) map[string]string {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("cannot read operation cache", "path", path, "error", err)
		}
		return map[string]string{}
	}

	var table map[string]string
	if err := json.Unmarshal(data, &table); err != nil {
		logger.Warn("operation cache corrupted, treating as empty", "path", path, "error", err)
		return map[string]string{}
	}
	return table
}

// setEntry does a read-modify-write of the whole table. Safe only under
// the single-writer assumption; table sizes in the tens of thousands
// keep this cheap enough.
func (c *OpCache) setEntry(path, key, value string) {
	table := c.loadTable(path)
	table[key] = value

	data, err := json.Marshal(table)
	if err != nil {
		logger.Warn("cannot marshal operation cache", "path", path, "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Warn("cannot create cache dir", "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Warn("cannot write operation cache", "path", path, "error", err)
	}
}
