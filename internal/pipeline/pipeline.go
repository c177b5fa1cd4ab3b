// Package pipeline orchestrates one end-to-end run: fetch, dedupe,
// process, render, persist.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hnbabel/internal/config"
	"hnbabel/internal/dedup"
	"hnbabel/internal/feed"
	"hnbabel/internal/generate"
	"hnbabel/internal/hncomments"
	"hnbabel/internal/logger"
	"hnbabel/internal/metrics"
	"hnbabel/internal/notify"
	"hnbabel/internal/scraper"
	"hnbabel/internal/store"
)

// Fetcher downloads and filters the source feed.
type Fetcher interface {
	Fetch(ctx context.Context, opts feed.Options) ([]feed.Item, error)
}

// Scraper resolves article URLs to readable text.
type Scraper interface {
	BatchScrape(urls []string, workers int) map[string]string
}

// CommentsFetcher resolves discussion URLs to top comments.
type CommentsFetcher interface {
	BatchFetch(urls []string, workers int) map[string][]hncomments.Comment
}

// Summarizer condenses article text. It never fails: implementations
// fall back internally and in the worst case return the input.
type Summarizer interface {
	Summarize(text string) string
}

// Translator renders text in a target language, returning the input
// unchanged on failure.
type Translator interface {
	Translate(text, lang string) string
}

// Renderer writes the output feeds and site files.
type Renderer interface {
	WriteAll(languageFeeds []generate.LanguageFeed) error
}

// RateLimiter paces translation calls.
type RateLimiter interface {
	Wait()
}

// Stats summarizes one finished run.
type Stats struct {
	Fetched    int
	Duplicates int
	NewItems   int
	Processed  int
	Failed     int
	FromCache  bool
	Feeds      int
	Duration   time.Duration
}

// Pipeline wires the stages together. All collaborators except the
// comments fetcher and notifier are required.
type Pipeline struct {
	cfg        *config.Config
	fetcher    Fetcher
	scraper    Scraper
	comments   CommentsFetcher
	summarizer Summarizer
	translator Translator
	limiter    RateLimiter
	renderer   Renderer
	store      *store.ItemStore
	opCache    *store.OpCache
	notifier   *notify.Telegram
}

func New(
	cfg *config.Config,
	fetcher Fetcher,
	scr Scraper,
	comments CommentsFetcher,
	summarizer Summarizer,
	translator Translator,
	limiter RateLimiter,
	renderer Renderer,
	itemStore *store.ItemStore,
	opCache *store.OpCache,
	notifier *notify.Telegram,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		fetcher:    fetcher,
		scraper:    scr,
		comments:   comments,
		summarizer: summarizer,
		translator: translator,
		limiter:    limiter,
		renderer:   renderer,
		store:      itemStore,
		opCache:    opCache,
		notifier:   notifier,
	}
}

// Run executes one pipeline pass. Only a feed fetch failure is fatal;
// everything downstream degrades per item or per stage.
func (p *Pipeline) Run(ctx context.Context) (*Stats, error) {
	runID := uuid.NewString()[:8]
	start := time.Now()
	stats := &Stats{}

	logger.Info("pipeline run starting", "run_id", runID)

	p.store.Load()
	logger.Info("item store loaded", "entries", p.store.Len())

	items, err := p.fetcher.Fetch(ctx, feed.Options{
		MaxAgeHours: p.cfg.Filtering.MaxAgeHours,
		MaxItems:    p.cfg.Filtering.MaxItems,
		SkipJobs:    p.cfg.Filtering.SkipJobs,
	})
	if err != nil {
		metrics.Global.SetError(err.Error())
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	stats.Fetched = len(items)
	metrics.Global.AddFetched(len(items))

	fresh := dedup.Filter(items, p.store.Links())
	stats.NewItems = len(fresh)
	stats.Duplicates = stats.Fetched - stats.NewItems
	metrics.Global.AddDuplicatesFiltered(stats.Duplicates)

	var processed []store.ProcessedItem
	if len(fresh) > 0 {
		processed = p.processItems(ctx, fresh, stats)
	}
	if len(processed) == 0 {
		// Nothing new survived this run. Rebuild the feeds from the
		// store so consumers still get a fresh document.
		logger.Info("no new items, rebuilding feeds from cached items")
		processed = p.store.Recent(p.cfg.Filtering.MaxItems)
		stats.FromCache = true
	}

	if len(processed) == 0 {
		logger.Warn("nothing to publish, skipping feed generation", "run_id", runID)
		p.store.Save()
		stats.Duration = time.Since(start)
		metrics.Global.RecordRun(stats.Duration)
		return stats, nil
	}

	languageFeeds := p.buildLanguageFeeds(processed)
	if err := p.renderer.WriteAll(languageFeeds); err != nil {
		metrics.Global.SetError(err.Error())
		return nil, fmt.Errorf("writing feeds: %w", err)
	}
	stats.Feeds = len(languageFeeds)
	metrics.Global.AddGenerated(len(languageFeeds))

	p.store.Save()

	stats.Duration = time.Since(start)
	metrics.Global.RecordRun(stats.Duration)
	logger.Info("pipeline run finished",
		"run_id", runID,
		"fetched", stats.Fetched,
		"new", stats.NewItems,
		"duplicates", stats.Duplicates,
		"processed", stats.Processed,
		"failed", stats.Failed,
		"feeds", stats.Feeds,
		"from_cache", stats.FromCache,
		"duration", stats.Duration.Round(time.Millisecond),
	)

	p.notifier.SendRunSummary(ctx, stats.Fetched, stats.NewItems, stats.Failed, stats.Feeds, stats.Duration)
	return stats, nil
}

// processItems runs the per-item stages over the fresh batch. A failing
// item is logged and skipped; it never aborts the batch.
func (p *Pipeline) processItems(ctx context.Context, fresh []feed.Item, stats *Stats) []store.ProcessedItem {
	urls := make([]string, 0, len(fresh))
	for _, item := range fresh {
		urls = append(urls, item.Link)
	}
	contents := p.scraper.BatchScrape(urls, p.cfg.Scraping.Workers)
	metrics.Global.AddScraped(len(contents))

	commentsByURL := p.fetchComments(fresh)

	var processed []store.ProcessedItem
	for _, item := range fresh {
		select {
		case <-ctx.Done():
			logger.Warn("run cancelled, keeping items processed so far", "done", len(processed))
			return processed
		default:
		}

		result, ok := p.processItem(item, contents[item.Link], commentsByURL[item.Comments])
		if !ok {
			stats.Failed++
			metrics.Global.IncrementFailed()
			continue
		}
		p.store.Set(result.GUID, result)
		processed = append(processed, result)
		stats.Processed++
	}
	return processed
}

func (p *Pipeline) fetchComments(fresh []feed.Item) map[string][]hncomments.Comment {
	if p.comments == nil || !p.cfg.Comments.Enabled {
		return nil
	}
	var urls []string
	for _, item := range fresh {
		if item.Comments != "" {
			urls = append(urls, item.Comments)
		}
	}
	return p.comments.BatchFetch(urls, p.cfg.Comments.Workers)
}

// processItem summarizes and translates one item. Returns false when
// there is no usable content at all.
func (p *Pipeline) processItem(item feed.Item, content string, comments []hncomments.Comment) (store.ProcessedItem, bool) {
	if content == "" {
		// Scrape failed or page was empty; the feed description is a
		// weaker but acceptable source.
		content = scraper.CleanText(item.Description, p.cfg.Scraping.MaxContentLength)
	}
	if len(content) < p.cfg.Summarize.MinContentLength {
		// Too thin to summarize, but the title alone still makes a
		// useful feed entry.
		content = item.Title
	}
	if content == "" {
		logger.Warn("item has no content, skipping", "link", item.Link)
		return store.ProcessedItem{}, false
	}

	summary := p.summarizeWithCache(content)
	if summary == "" {
		summary = item.Title
	}

	translations := make(map[string]store.Translation, len(p.cfg.Translation.TargetLanguages))
	for _, lang := range p.cfg.Translation.TargetLanguages {
		if lang.SkipTranslation {
			translations[lang.Code] = store.Translation{
				Title:       item.Title,
				Description: summary,
			}
			continue
		}
		translations[lang.Code] = store.Translation{
			Title:       p.translateWithCache(item.Title, lang.Code),
			Description: p.translateWithCache(summary, lang.Code),
		}
	}

	return store.ProcessedItem{
		Item:          item,
		Summary:       summary,
		Translations:  translations,
		OriginalTitle: item.Title,
		CommentsHTML:  hncomments.FormatHTML(comments),
	}, true
}

func (p *Pipeline) summarizeWithCache(content string) string {
	if cached, ok := p.opCache.GetSummary(content); ok {
		metrics.Global.IncrementCacheHits()
		return cached
	}
	metrics.Global.IncrementCacheMisses()

	summary := p.summarizer.Summarize(content)
	if summary != "" {
		p.opCache.SetSummary(content, summary)
	}
	metrics.Global.IncrementSummarized()
	return summary
}

// translateWithCache memoizes per-language translations. A result equal
// to the input means the translator failed over to the original text;
// caching that would pin the failure, so it stays uncached.
func (p *Pipeline) translateWithCache(text, lang string) string {
	if text == "" {
		return ""
	}
	if cached, ok := p.opCache.GetTranslation(text, lang); ok {
		metrics.Global.IncrementCacheHits()
		return cached
	}
	metrics.Global.IncrementCacheMisses()

	p.limiter.Wait()
	translated := p.translator.Translate(text, lang)
	if translated != text {
		p.opCache.SetTranslation(text, lang, translated)
	}
	metrics.Global.IncrementTranslated()
	return translated
}

// buildLanguageFeeds projects processed items into one entry list per
// configured language. Items missing a language fall back to the
// original title and summary.
func (p *Pipeline) buildLanguageFeeds(items []store.ProcessedItem) []generate.LanguageFeed {
	languageFeeds := make([]generate.LanguageFeed, 0, len(p.cfg.Translation.TargetLanguages))
	for _, lang := range p.cfg.Translation.TargetLanguages {
		lf := generate.LanguageFeed{
			Code:     lang.Code,
			Name:     lang.Name,
			FileName: lang.FeedName,
		}
		for _, item := range items {
			title := item.OriginalTitle
			if title == "" {
				title = item.Title
			}
			description := item.Summary
			if tr, ok := item.Translations[lang.Code]; ok {
				if tr.Title != "" {
					title = tr.Title
				}
				if tr.Description != "" {
					description = tr.Description
				}
			}
			lf.Entries = append(lf.Entries, generate.Entry{
				Title:         title,
				Summary:       description,
				OriginalTitle: item.OriginalTitle,
				Link:          item.Link,
				GUID:          item.GUID,
				Comments:      item.Comments,
				CommentsHTML:  item.CommentsHTML,
				Author:        item.Author,
				Score:         item.Score,
				Published:     item.Published,
			})
		}
		languageFeeds = append(languageFeeds, lf)
	}
	return languageFeeds
}
