// Package hncomments fetches top comments for Hacker News stories via
// the Firebase API.
package hncomments

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"hnbabel/internal/logger"
	"hnbabel/internal/textutil"
)

const apiBase = "https://hacker-news.firebaseio.com/v0"

var itemIDPattern = regexp.MustCompile(`id=(\d+)`)

// Comment is a single Hacker News comment.
type Comment struct {
	ID     int64  `json:"id"`
	Author string `json:"by"`
	Text   string `json:"text"`
	Time   int64  `json:"time"`
}

type apiItem struct {
	ID      int64   `json:"id"`
	By      string  `json:"by"`
	Text    string  `json:"text"`
	Time    int64   `json:"time"`
	Kids    []int64 `json:"kids"`
	Deleted bool    `json:"deleted"`
	Dead    bool    `json:"dead"`
}

// Fetcher retrieves top-level comments for stories.
type Fetcher struct {
	client     *http.Client
	maxPerItem int
}

func NewFetcher(maxPerItem int) *Fetcher {
	if maxPerItem <= 0 {
		maxPerItem = 3
	}
	r := retryablehttp.NewClient()
	r.RetryMax = 2
	r.Logger = nil
	r.HTTPClient.Timeout = 10 * time.Second
	return &Fetcher{
		client:     r.StandardClient(),
		maxPerItem: maxPerItem,
	}
}

// ItemID extracts the story id from a Hacker News discussion URL like
// https://news.ycombinator.com/item?id=12345. Returns 0 when the URL
// does not carry one.
func ItemID(commentsURL string) int64 {
	m := itemIDPattern.FindStringSubmatch(commentsURL)
	if m == nil {
		return 0
	}
	var id int64
	fmt.Sscanf(m[1], "%d", &id)
	return id
}

// TopComments returns up to maxPerItem top-level comments for the story
// behind commentsURL, newest first. Failures yield an empty slice.
func (f *Fetcher) TopComments(commentsURL string) []Comment {
	storyID := ItemID(commentsURL)
	if storyID == 0 {
		return nil
	}

	story, err := f.fetchItem(storyID)
	if err != nil {
		logger.Warn("cannot fetch story", "id", storyID, "error", err)
		return nil
	}
	if len(story.Kids) == 0 {
		return nil
	}

	kids := story.Kids
	// The API orders kids by rank; fetch a few extra to survive
	// deleted and dead entries.
	limit := f.maxPerItem * 2
	if limit > len(kids) {
		limit = len(kids)
	}

	var comments []Comment
	for _, kid := range kids[:limit] {
		if len(comments) >= f.maxPerItem {
			break
		}
		item, err := f.fetchItem(kid)
		if err != nil {
			logger.Debug("cannot fetch comment", "id", kid, "error", err)
			continue
		}
		if item.Deleted || item.Dead || item.Text == "" {
			continue
		}
		comments = append(comments, Comment{
			ID:     item.ID,
			Author: item.By,
			Text:   item.Text,
			Time:   item.Time,
		})
	}

	sort.Slice(comments, func(i, j int) bool { return comments[i].Time > comments[j].Time })
	return comments
}

func (f *Fetcher) fetchItem(id int64) (*apiItem, error) {
	resp, err := f.client.Get(fmt.Sprintf("%s/item/%d.json", apiBase, id))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("item %d: status %d", id, resp.StatusCode)
	}

	var item apiItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("item %d: %w", id, err)
	}
	return &item, nil
}

// BatchFetch resolves comments for several discussion URLs with a
// bounded worker pool. URLs without comments are absent from the result.
func (f *Fetcher) BatchFetch(urls []string, workers int) map[string][]Comment {
	if workers <= 0 {
		workers = 3
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string][]Comment, len(urls))
		sem     = make(chan struct{}, workers)
	)

	for _, u := range urls {
		wg.Add(1)
		sem <- struct{}{}
		go func(u string) {
			defer wg.Done()
			defer func() { <-sem }()

			comments := f.TopComments(u)
			if len(comments) == 0 {
				return
			}
			mu.Lock()
			results[u] = comments
			mu.Unlock()
		}(u)
	}
	wg.Wait()

	logger.Info("fetched comments", "stories", len(urls), "with_comments", len(results))
	return results
}

// FormatHTML renders comments as a compact HTML block for feed item
// descriptions.
func FormatHTML(comments []Comment) string {
	if len(comments) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("<b>Top comments:</b><ul>")
	for _, c := range comments {
		author := c.Author
		if author == "" {
			author = "anonymous"
		}
		b.WriteString("<li><i>")
		b.WriteString(author)
		b.WriteString(":</i> ")
		b.WriteString(truncate(stripTags(c.Text), 300))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

func stripTags(html string) string {
	text := tagPattern.ReplaceAllString(html, " ")
	text = strings.ReplaceAll(text, "&#x27;", "'")
	text = strings.ReplaceAll(text, "&quot;", `"`)
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&amp;", "&")
	return strings.Join(strings.Fields(text), " ")
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return strings.TrimSpace(textutil.TruncateBytes(text, max)) + "..."
}
