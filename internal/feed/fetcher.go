package feed

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/rss"

	"hnbabel/internal/logger"
)

// The official feed writes "Points: 123", hnrss-style feeds "123 points".
var (
	scoreLabelRe  = regexp.MustCompile(`(?i)points?:\s*(\d+)`)
	scoreSuffixRe = regexp.MustCompile(`(\d+)\s+points?`)
)

// Options control which feed entries survive filtering.
type Options struct {
	MaxAgeHours int
	MaxItems    int
	SkipJobs    bool
}

// Fetcher downloads and filters the source RSS feed.
type Fetcher struct {
	feedURL string
	parser  *gofeed.Parser
}

func NewFetcher(feedURL string) *Fetcher {
	return &Fetcher{
		feedURL: feedURL,
		parser:  NewParser(),
	}
}

// NewParser returns a parser whose RSS translator carries the
// <comments> element through. The default translator parses it into the
// RSS-specific item but never copies it to the universal one.
func NewParser() *gofeed.Parser {
	p := gofeed.NewParser()
	p.RSSTranslator = &commentsTranslator{defaultRSS: &gofeed.DefaultRSSTranslator{}}
	return p
}

type commentsTranslator struct {
	defaultRSS *gofeed.DefaultRSSTranslator
}

func (t *commentsTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	rssFeed, ok := feed.(*rss.Feed)
	if !ok {
		return nil, fmt.Errorf("feed is not an RSS feed")
	}

	translated, err := t.defaultRSS.Translate(rssFeed)
	if err != nil {
		return nil, err
	}

	// The default translator emits one universal item per RSS item, in
	// order.
	for i, entry := range rssFeed.Items {
		if entry.Comments == "" || i >= len(translated.Items) {
			continue
		}
		item := translated.Items[i]
		if item.Custom == nil {
			item.Custom = map[string]string{}
		}
		item.Custom["comments"] = entry.Comments
	}
	return translated, nil
}

// Fetch downloads the feed and returns the filtered items, preserving
// feed order. A transport or parse failure is returned as an error;
// the caller decides whether that is fatal.
func (f *Fetcher) Fetch(ctx context.Context, opts Options) ([]Item, error) {
	logger.Info("fetching RSS feed", "url", f.feedURL)

	parsed, err := f.parser.ParseURLWithContext(f.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", f.feedURL, err)
	}

	items := Filter(parsed, opts)
	logger.Info("fetched items from feed", "count", len(items))
	return items, nil
}

// Filter converts a parsed feed into Items, applying the max-age cutoff,
// the job-posting filter and the item cap. Entries without a parsable
// publish time are discarded.
func Filter(parsed *gofeed.Feed, opts Options) []Item {
	cutoff := time.Now().Add(-time.Duration(opts.MaxAgeHours) * time.Hour)

	var items []Item
	for _, entry := range parsed.Items {
		published := publishedTime(entry)
		if published == nil {
			logger.Warn("skipping entry without publish date", "title", entry.Title)
			continue
		}
		if published.Before(cutoff) {
			continue
		}
		if opts.SkipJobs && isJobPosting(entry.Title) {
			logger.Debug("skipping job posting", "title", entry.Title)
			continue
		}

		items = append(items, convert(entry, *published))

		if opts.MaxItems > 0 && len(items) >= opts.MaxItems {
			break
		}
	}
	return items
}

func publishedTime(entry *gofeed.Item) *time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed
	}
	return nil
}

// isJobPosting flags Ask HN / Show HN posts that look like hiring threads.
func isJobPosting(title string) bool {
	lower := strings.ToLower(title)
	if !strings.Contains(lower, "ask hn:") && !strings.Contains(lower, "show hn:") {
		return false
	}
	for _, indicator := range []string{"hiring", "seeking", "looking for", "job", "career"} {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

func convert(entry *gofeed.Item, published time.Time) Item {
	guid := entry.GUID
	if guid == "" {
		guid = entry.Link
	}

	item := Item{
		Title:       entry.Title,
		Link:        entry.Link,
		Description: entry.Description,
		Published:   published,
		GUID:        guid,
		Author:      authorName(entry),
		Score:       extractScore(entry.Description),
		Tags:        entry.Categories,
	}

	// HN puts the discussion link in the <comments> element, which
	// gofeed exposes through the custom fields.
	if c, ok := entry.Custom["comments"]; ok {
		item.Comments = c
	}
	return item
}

func authorName(entry *gofeed.Item) string {
	if entry.Author != nil {
		return entry.Author.Name
	}
	return ""
}

// extractScore pulls the score marker out of the description, as the HN
// feed embeds it there. Returns 0 when absent.
func extractScore(description string) int {
	m := scoreLabelRe.FindStringSubmatch(description)
	if m == nil {
		m = scoreSuffixRe.FindStringSubmatch(description)
	}
	if m == nil {
		return 0
	}
	score, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return score
}
