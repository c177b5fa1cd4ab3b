// Package scraper extracts readable article text from web pages.
package scraper

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/hashicorp/go-retryablehttp"

	"hnbabel/internal/logger"
	"hnbabel/internal/textutil"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; hnbabel/1.0; +https://github.com/hnbabel/hnbabel)"
	minContentChars  = 200
	maxBodyBytes     = 2 << 20
)

// Config holds scraper settings.
type Config struct {
	Timeout          time.Duration
	MaxContentLength int
	UserAgent        string
}

// Scraper fetches pages and extracts their main content. Extraction is
// best effort: a failed page yields an absent result, never an error the
// pipeline has to handle.
type Scraper struct {
	client           *http.Client
	userAgent        string
	maxContentLength int
}

func New(cfg Config) *Scraper {
	r := retryablehttp.NewClient()
	r.RetryMax = 2
	r.Logger = nil
	r.HTTPClient.Timeout = cfg.Timeout

	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	maxLen := cfg.MaxContentLength
	if maxLen <= 0 {
		maxLen = 5000
	}

	return &Scraper{
		client:           r.StandardClient(),
		userAgent:        ua,
		maxContentLength: maxLen,
	}
}

// Extract fetches pageURL and returns its main text content. The second
// return value is false when nothing useful could be extracted.
func (s *Scraper) Extract(pageURL string) (string, bool) {
	req, err := http.NewRequest(http.MethodGet, pageURL, nil)
	if err != nil {
		logger.Warn("bad scrape URL", "url", pageURL, "error", err)
		return "", false
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		logger.Warn("scrape request failed", "url", pageURL, "error", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("scrape got non-200", "url", pageURL, "status", resp.StatusCode)
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		logger.Warn("scrape read failed", "url", pageURL, "error", err)
		return "", false
	}

	content := s.extractFromHTML(body, pageURL)
	if content == "" {
		logger.Warn("no content extracted", "url", pageURL)
		return "", false
	}
	return content, true
}

// extractFromHTML runs the extraction strategies in order: readability
// first, then goquery selector heuristics, then site-specific rules,
// then the whole-page fallback.
func (s *Scraper) extractFromHTML(body []byte, pageURL string) string {
	parsedURL, _ := url.Parse(pageURL)

	if article, err := readability.FromReader(bytes.NewReader(body), parsedURL); err == nil {
		content := CleanText(article.TextContent, s.maxContentLength)
		if len(content) > minContentChars {
			return content
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return s.extractFromDocument(doc, parsedURL)
}

func (s *Scraper) extractFromDocument(doc *goquery.Document, pageURL *url.URL) string {
	doc.Find("script, style, nav, header, footer, aside").Remove()

	// Strategy 1: article / main containers.
	for _, sel := range []string{"article", "main"} {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			content := CleanText(node.Text(), s.maxContentLength)
			if len(content) > minContentChars {
				return content
			}
		}
	}

	// Strategy 2: common content containers.
	selectors := []string{
		"div[class*='content']",
		"div[class*='article']",
		"div[class*='post']",
		"div[class*='entry']",
		"div[class*='text']",
		"div[role='main']",
		"section[class*='content']",
	}
	for _, sel := range selectors {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			content := CleanText(node.Text(), s.maxContentLength)
			if len(content) > minContentChars {
				return content
			}
		}
	}

	// Strategy 3: join substantial paragraphs.
	var blocks []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if len(text) > 50 {
			blocks = append(blocks, text)
		}
	})
	if len(blocks) >= 3 {
		content := CleanText(strings.Join(blocks, " "), s.maxContentLength)
		if len(content) > minContentChars {
			return content
		}
	}

	// Strategy 4: site-specific extraction.
	if pageURL != nil {
		if content := s.extractSiteSpecific(doc, pageURL.Host); content != "" {
			return content
		}
	}

	// Fallback: whole-page text.
	content := CleanText(doc.Text(), s.maxContentLength)
	if len(content) > minContentChars {
		return content
	}
	return ""
}

func (s *Scraper) extractSiteSpecific(doc *goquery.Document, host string) string {
	var node *goquery.Selection
	switch {
	case strings.Contains(host, "github.com"):
		node = doc.Find("article[class*='markdown-body']").First()
		if node.Length() == 0 {
			node = doc.Find("div[class*='blob-wrapper']").First()
		}
	case strings.Contains(host, "medium.com"), strings.Contains(host, "towardsdatascience.com"):
		node = doc.Find("article section").First()
	case strings.Contains(host, "arxiv.org"):
		node = doc.Find("blockquote[class*='abstract']").First()
	}
	if node == nil || node.Length() == 0 {
		return ""
	}
	return CleanText(node.Text(), s.maxContentLength)
}

// CleanText collapses whitespace, strips common artifacts and truncates
// to maxLength, preferring a sentence boundary when one falls late
// enough in the text.
func CleanText(text string, maxLength int) string {
	if text == "" {
		return ""
	}

	text = strings.ReplaceAll(text, " ", " ")
	text = strings.ReplaceAll(text, "​", "")
	text = strings.Join(strings.Fields(text), " ")

	if maxLength > 0 && len(text) > maxLength {
		text = textutil.TruncateBytes(text, maxLength)
		if last := strings.LastIndex(text, "."); last > maxLength*8/10 {
			text = text[:last+1]
		}
	}
	return strings.TrimSpace(text)
}

// BatchScrape fetches a batch of URLs with a bounded worker pool and
// returns extracted content per URL. A failed URL is simply absent from
// the result; one failure never aborts the batch.
func (s *Scraper) BatchScrape(urls []string, workers int) map[string]string {
	if workers <= 0 {
		workers = 5
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(urls))
		sem     = make(chan struct{}, workers)
	)

	for _, pageURL := range urls {
		wg.Add(1)
		sem <- struct{}{}
		go func(pageURL string) {
			defer wg.Done()
			defer func() { <-sem }()

			content, ok := s.Extract(pageURL)
			if !ok {
				return
			}
			mu.Lock()
			results[pageURL] = content
			mu.Unlock()
			logger.Debug("scraped page", "url", pageURL, "chars", len(content))
		}(pageURL)
	}
	wg.Wait()

	logger.Info("batch scrape finished", "requested", len(urls), "scraped", len(results))
	return results
}
