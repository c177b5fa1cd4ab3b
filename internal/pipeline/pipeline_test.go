package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hnbabel/internal/config"
	"hnbabel/internal/feed"
	"hnbabel/internal/generate"
	"hnbabel/internal/hncomments"
	"hnbabel/internal/store"
)

type fakeFetcher struct {
	items []feed.Item
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, opts feed.Options) ([]feed.Item, error) {
	return f.items, f.err
}

type fakeScraper struct {
	content map[string]string
}

func (f *fakeScraper) BatchScrape(urls []string, workers int) map[string]string {
	return f.content
}

type fakeComments struct {
	byURL map[string][]hncomments.Comment
	urls  []string
}

func (f *fakeComments) BatchFetch(urls []string, workers int) map[string][]hncomments.Comment {
	f.urls = urls
	return f.byURL
}

type fakeSummarizer struct{ calls int }

func (f *fakeSummarizer) Summarize(text string) string {
	f.calls++
	return "summary: " + text
}

type fakeTranslator struct {
	calls int
	fail  bool
}

func (f *fakeTranslator) Translate(text, lang string) string {
	f.calls++
	if f.fail {
		return text
	}
	return "[" + lang + "] " + text
}

type fakeLimiter struct{ waits int }

func (f *fakeLimiter) Wait() { f.waits++ }

type fakeRenderer struct {
	feeds []generate.LanguageFeed
	calls int
	err   error
}

func (f *fakeRenderer) WriteAll(languageFeeds []generate.LanguageFeed) error {
	f.calls++
	f.feeds = languageFeeds
	return f.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		General: config.GeneralConfig{CacheDir: t.TempDir()},
		Filtering: config.FilteringConfig{
			MaxItems:    5,
			MaxAgeHours: 24,
		},
		Scraping: config.ScrapingConfig{Workers: 2, MaxContentLength: 5000},
		Summarize: config.SummarizeConfig{
			MaxSentences:     3,
			MinContentLength: 10,
		},
		Translation: config.TranslationConfig{
			SourceLanguage: "en",
			TargetLanguages: []config.Language{
				{Code: "en", Name: "English", FeedName: "hn-en.xml", SkipTranslation: true},
				{Code: "es", Name: "Español", FeedName: "hn-es.xml"},
			},
		},
		Output: config.OutputConfig{KeepDays: 7},
	}
}

type fixture struct {
	pipeline   *Pipeline
	fetcher    *fakeFetcher
	translator *fakeTranslator
	limiter    *fakeLimiter
	renderer   *fakeRenderer
	store      *store.ItemStore
	opCache    *store.OpCache
}

func newFixture(t *testing.T, cfg *config.Config, fetcher *fakeFetcher, scraped map[string]string) *fixture {
	t.Helper()

	f := &fixture{
		fetcher:    fetcher,
		translator: &fakeTranslator{},
		limiter:    &fakeLimiter{},
		renderer:   &fakeRenderer{},
		store:      store.NewItemStore(cfg.General.CacheDir, cfg.Output.KeepDays),
		opCache:    store.NewOpCache(cfg.General.CacheDir),
	}
	f.pipeline = New(cfg, fetcher, &fakeScraper{content: scraped}, nil,
		&fakeSummarizer{}, f.translator, f.limiter, f.renderer, f.store, f.opCache, nil)
	return f
}

func newsItem(link, title string) feed.Item {
	return feed.Item{
		Title:     title,
		Link:      link,
		GUID:      link,
		Published: time.Now().Add(-time.Hour),
	}
}

func TestRunProcessesNewItems(t *testing.T) {
	cfg := testConfig(t)
	item := newsItem("https://example.com/a", "A story about things")
	f := newFixture(t, cfg, &fakeFetcher{items: []feed.Item{item}},
		map[string]string{item.Link: "Long enough article content about things."})

	stats, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.NewItems)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 0, stats.Failed)
	assert.False(t, stats.FromCache)
	assert.Equal(t, 2, stats.Feeds)

	stored, ok := f.store.Get(item.GUID)
	require.True(t, ok)
	assert.Equal(t, "summary: Long enough article content about things.", stored.Summary)
	assert.NotEmpty(t, stored.ProcessedAt)

	// Skip-translation language gets the original text verbatim.
	en := stored.Translations["en"]
	assert.Equal(t, item.Title, en.Title)
	assert.Equal(t, stored.Summary, en.Description)

	// Translated language went through the translator and the limiter.
	es := stored.Translations["es"]
	assert.Equal(t, "[es] "+item.Title, es.Title)
	assert.Equal(t, 2, f.translator.calls, "title and summary, no calls for the skip language")
	assert.Equal(t, 2, f.limiter.waits)

	require.Equal(t, 1, f.renderer.calls)
	require.Len(t, f.renderer.feeds, 2)
	assert.Equal(t, "hn-en.xml", f.renderer.feeds[0].FileName)
	require.Len(t, f.renderer.feeds[0].Entries, 1)
}

func TestRunFetchErrorIsFatal(t *testing.T) {
	cfg := testConfig(t)
	f := newFixture(t, cfg, &fakeFetcher{err: errors.New("dns failure")}, nil)

	_, err := f.pipeline.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, f.renderer.calls)
}

func TestRunFallsBackToCachedItems(t *testing.T) {
	cfg := testConfig(t)
	cfg.Filtering.MaxItems = 2

	// Pre-populate the store with three processed items.
	seedStore := store.NewItemStore(cfg.General.CacheDir, cfg.Output.KeepDays)
	seedStore.Load()
	base := time.Now().Add(-2 * time.Hour)
	for i, link := range []string{"https://example.com/old1", "https://example.com/old2", "https://example.com/old3"} {
		seedStore.Set(link, store.ProcessedItem{
			Item:        feed.Item{Title: "Old", Link: link, GUID: link},
			Summary:     "old summary",
			ProcessedAt: store.Timestamp(base.Add(time.Duration(i) * time.Minute)),
		})
	}
	seedStore.Save()

	// The fetch returns only items the store already knows.
	f := newFixture(t, cfg, &fakeFetcher{items: []feed.Item{
		newsItem("https://example.com/old1", "Old"),
		newsItem("https://example.com/old2", "Old"),
	}}, nil)

	stats, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.NewItems)
	assert.Equal(t, 2, stats.Duplicates)
	assert.True(t, stats.FromCache)
	assert.Equal(t, 2, stats.Feeds)

	// The two most recently processed items, newest first.
	require.Equal(t, 1, f.renderer.calls)
	entries := f.renderer.feeds[0].Entries
	require.Len(t, entries, 2)
	assert.Equal(t, "https://example.com/old3", entries[0].Link)
	assert.Equal(t, "https://example.com/old2", entries[1].Link)
}

func TestRunNothingToPublish(t *testing.T) {
	cfg := testConfig(t)
	f := newFixture(t, cfg, &fakeFetcher{}, nil)

	stats, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Feeds)
	assert.Equal(t, 0, f.renderer.calls, "no feeds may be written for an empty run")
}

func TestRunFallsBackWhenAllNewItemsFail(t *testing.T) {
	cfg := testConfig(t)

	seedStore := store.NewItemStore(cfg.General.CacheDir, cfg.Output.KeepDays)
	seedStore.Load()
	seedStore.Set("https://example.com/cached", store.ProcessedItem{
		Item:    feed.Item{Title: "Cached", Link: "https://example.com/cached", GUID: "https://example.com/cached"},
		Summary: "cached summary",
	})
	seedStore.Save()

	// The only new item has no scrapable content, no description and
	// no title, so processing it fails.
	broken := feed.Item{Link: "https://example.com/broken", GUID: "https://example.com/broken", Published: time.Now()}
	f := newFixture(t, cfg, &fakeFetcher{items: []feed.Item{broken}}, nil)

	stats, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Failed)
	assert.True(t, stats.FromCache)
	require.Equal(t, 1, f.renderer.calls)
	require.Len(t, f.renderer.feeds[0].Entries, 1)
	assert.Equal(t, "https://example.com/cached", f.renderer.feeds[0].Entries[0].Link)
}

func TestRunSkipsItemWithoutContent(t *testing.T) {
	cfg := testConfig(t)
	empty := feed.Item{Link: "https://example.com/empty", GUID: "https://example.com/empty", Published: time.Now()}
	good := newsItem("https://example.com/good", "A usable story title")

	f := newFixture(t, cfg, &fakeFetcher{items: []feed.Item{empty, good}},
		map[string]string{good.Link: "Substantial content for the good story."})

	stats, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Processed)
	_, ok := f.store.Get(empty.GUID)
	assert.False(t, ok)
}

func TestRunAttachesComments(t *testing.T) {
	cfg := testConfig(t)
	cfg.Comments = config.CommentsConfig{Enabled: true, MaxPerItem: 2, Workers: 2}

	item := newsItem("https://example.com/a", "Discussed story")
	item.Comments = "https://news.ycombinator.com/item?id=42"

	comments := &fakeComments{byURL: map[string][]hncomments.Comment{
		item.Comments: {{Author: "alice", Text: "Insightful observation."}},
	}}

	itemStore := store.NewItemStore(cfg.General.CacheDir, cfg.Output.KeepDays)
	opCache := store.NewOpCache(cfg.General.CacheDir)
	renderer := &fakeRenderer{}
	p := New(cfg,
		&fakeFetcher{items: []feed.Item{item}},
		&fakeScraper{content: map[string]string{item.Link: "Plenty of content about the story."}},
		comments, &fakeSummarizer{}, &fakeTranslator{}, &fakeLimiter{},
		renderer, itemStore, opCache, nil)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{item.Comments}, comments.urls)

	stored, ok := itemStore.Get(item.GUID)
	require.True(t, ok)
	assert.Contains(t, stored.CommentsHTML, "alice")
	assert.Contains(t, stored.CommentsHTML, "Insightful observation.")

	require.Equal(t, 1, renderer.calls)
	entry := renderer.feeds[0].Entries[0]
	assert.Contains(t, entry.CommentsHTML, "alice")
	assert.Equal(t, item.Comments, entry.Comments)
}

func TestTranslationCaching(t *testing.T) {
	cfg := testConfig(t)
	item := newsItem("https://example.com/a", "Cache me")
	content := map[string]string{item.Link: "Article content worth summarizing here."}

	f := newFixture(t, cfg, &fakeFetcher{items: []feed.Item{item}}, content)
	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	firstCalls := f.translator.calls
	assert.Equal(t, 2, firstCalls)

	// A second run over the same item resolves from the operation
	// cache without touching the translator.
	f2 := newFixture(t, cfg, &fakeFetcher{items: []feed.Item{
		{Title: item.Title, Link: "https://example.com/b", GUID: "https://example.com/b", Published: time.Now()},
	}}, map[string]string{"https://example.com/b": "Article content worth summarizing here."})

	_, err = f2.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, f2.translator.calls, "identical text must hit the cache")
	assert.Equal(t, 0, f2.limiter.waits)
}

func TestUnchangedTranslationIsNotCached(t *testing.T) {
	cfg := testConfig(t)
	item := newsItem("https://example.com/a", "Untranslatable")

	f := newFixture(t, cfg, &fakeFetcher{items: []feed.Item{item}},
		map[string]string{item.Link: "Some article content that is long enough."})
	f.translator.fail = true

	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Positive(t, f.translator.calls)

	// The failed-over result must not be memoized, so the next run
	// retries the translation.
	_, ok := f.opCache.GetTranslation(item.Title, "es")
	assert.False(t, ok)
}

func TestRunSurvivesCorruptStore(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.General.CacheDir, "processed_items.json"), []byte("{broken"), 0o644))

	item := newsItem("https://example.com/a", "A story")
	f := newFixture(t, cfg, &fakeFetcher{items: []feed.Item{item}},
		map[string]string{item.Link: "Enough content to process normally."})

	stats, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
}
