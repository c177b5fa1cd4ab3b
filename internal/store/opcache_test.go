package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpCacheSummaryRoundTrip(t *testing.T) {
	c := NewOpCache(t.TempDir())

	_, ok := c.GetSummary("some article text")
	assert.False(t, ok)

	c.SetSummary("some article text", "a summary")

	got, ok := c.GetSummary("some article text")
	require.True(t, ok)
	assert.Equal(t, "a summary", got)

	// A different text misses even when it shares a prefix.
	_, ok = c.GetSummary("some article text ")
	assert.False(t, ok)
}

func TestOpCacheTranslationPerLanguage(t *testing.T) {
	c := NewOpCache(t.TempDir())

	c.SetTranslation("Hello", "es", "Hola")
	c.SetTranslation("Hello", "de", "Hallo")

	es, ok := c.GetTranslation("Hello", "es")
	require.True(t, ok)
	assert.Equal(t, "Hola", es)

	de, ok := c.GetTranslation("Hello", "de")
	require.True(t, ok)
	assert.Equal(t, "Hallo", de)

	_, ok = c.GetTranslation("Hello", "fr")
	assert.False(t, ok)
}

func TestFingerprintStable(t *testing.T) {
	assert.Equal(t, Fingerprint("text"), Fingerprint("text"))
	assert.NotEqual(t, Fingerprint("text"), Fingerprint("Text"))
	assert.Len(t, Fingerprint(""), 64)
}

func TestOpCacheCorruptTableIsMiss(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "summaries.json"), []byte("broken"), 0o644))

	c := NewOpCache(dir)
	_, ok := c.GetSummary("anything")
	assert.False(t, ok)

	// Writes recover the table.
	c.SetSummary("anything", "result")
	got, ok := c.GetSummary("anything")
	require.True(t, ok)
	assert.Equal(t, "result", got)
}

func TestOpCachePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	NewOpCache(dir).SetSummary("content", "summary")

	got, ok := NewOpCache(dir).GetSummary("content")
	require.True(t, ok)
	assert.Equal(t, "summary", got)
}
