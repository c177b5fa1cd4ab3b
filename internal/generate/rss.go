// Package generate renders per-language RSS feeds and the static site
// files around them.
package generate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"hnbabel/internal/logger"
)

// Entry is a single story ready for rendering: title and summary are
// already in the target language.
type Entry struct {
	Title         string
	Summary       string
	OriginalTitle string
	Link          string
	GUID          string
	Comments      string
	CommentsHTML  string
	Author        string
	Score         int
	Published     time.Time
}

// LanguageFeed groups the entries destined for one output feed.
type LanguageFeed struct {
	Code     string
	Name     string
	FileName string
	Entries  []Entry
}

// Renderer turns language feeds into RSS documents and writes the
// output directory.
type Renderer struct {
	baseURL       string
	outDir        string
	generateIndex bool
	now           func() time.Time
}

func NewRenderer(baseURL, outDir string, generateIndex bool) *Renderer {
	return &Renderer{
		baseURL:       strings.TrimRight(baseURL, "/"),
		outDir:        outDir,
		generateIndex: generateIndex,
		now:           time.Now,
	}
}

// Render produces the RSS 2.0 document for one language feed.
func (r *Renderer) Render(lf LanguageFeed) (string, error) {
	feed := &feeds.Feed{
		Title:       fmt.Sprintf("Hacker News (%s)", lf.Name),
		Link:        &feeds.Link{Href: r.baseURL + "/" + lf.FileName},
		Description: fmt.Sprintf("Hacker News stories summarized and translated to %s", lf.Name),
		Created:     r.now().UTC(),
	}

	for _, e := range lf.Entries {
		item := &feeds.Item{
			Title:       e.Title,
			Link:        &feeds.Link{Href: e.Link},
			Description: formatDescription(e),
			Id:          e.GUID,
			Created:     e.Published,
		}
		if e.Author != "" {
			item.Author = &feeds.Author{Name: e.Author}
		}
		feed.Items = append(feed.Items, item)
	}

	rss, err := feed.ToRss()
	if err != nil {
		return "", fmt.Errorf("rendering %s feed: %w", lf.Code, err)
	}
	return rss, nil
}

// formatDescription assembles the item body. The RSS item element has
// no slot for a separate discussion link, so it goes into the
// description alongside the summary.
func formatDescription(e Entry) string {
	var b strings.Builder

	if e.Summary != "" {
		b.WriteString("📝 ")
		b.WriteString(e.Summary)
	}
	if e.OriginalTitle != "" && e.OriginalTitle != e.Title {
		b.WriteString("<br/><br/>🔤 ")
		b.WriteString(e.OriginalTitle)
	}
	if e.Score > 0 {
		b.WriteString(fmt.Sprintf("<br/><br/>📊 %d points", e.Score))
	}
	b.WriteString("<br/>🔗 <a href=\"")
	b.WriteString(e.Link)
	b.WriteString("\">")
	b.WriteString(e.Link)
	b.WriteString("</a>")
	if e.Comments != "" {
		b.WriteString("<br/>💬 <a href=\"")
		b.WriteString(e.Comments)
		b.WriteString("\">Discussion</a>")
	}
	if e.CommentsHTML != "" {
		b.WriteString("<br/><br/>")
		b.WriteString(e.CommentsHTML)
	}
	return b.String()
}

// WriteAll renders every language feed into the output directory, plus
// the index page, sitemap and robots.txt when index generation is on.
func (r *Renderer) WriteAll(languageFeeds []LanguageFeed) error {
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	written := 0
	for _, lf := range languageFeeds {
		rss, err := r.Render(lf)
		if err != nil {
			return err
		}
		path := filepath.Join(r.outDir, lf.FileName)
		if err := os.WriteFile(path, []byte(rss), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		written++
		logger.Info("wrote feed", "language", lf.Code, "file", lf.FileName, "items", len(lf.Entries))
	}

	if r.generateIndex {
		if err := r.writeIndex(languageFeeds); err != nil {
			return err
		}
		if err := r.writeSitemap(languageFeeds); err != nil {
			return err
		}
		if err := r.writeRobots(); err != nil {
			return err
		}
	}

	logger.Info("generation finished", "feeds", written)
	return nil
}

func (r *Renderer) writeIndex(languageFeeds []LanguageFeed) error {
	sorted := make([]LanguageFeed, len(languageFeeds))
	copy(sorted, languageFeeds)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	b.WriteString("<title>Hacker News, translated</title>\n")
	b.WriteString("</head>\n<body>\n")
	b.WriteString("<h1>Hacker News, translated</h1>\n")
	b.WriteString("<p>Summarized Hacker News stories as RSS feeds, one per language.</p>\n<ul>\n")
	for _, lf := range sorted {
		fmt.Fprintf(&b, "<li><a href=\"%s/%s\">%s</a> (%d items)</li>\n",
			r.baseURL, lf.FileName, lf.Name, len(lf.Entries))
	}
	b.WriteString("</ul>\n")
	fmt.Fprintf(&b, "<p><small>Updated %s</small></p>\n", r.now().UTC().Format("2006-01-02 15:04 UTC"))
	b.WriteString("</body>\n</html>\n")

	path := filepath.Join(r.outDir, "index.html")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

func (r *Renderer) writeSitemap(languageFeeds []LanguageFeed) error {
	stamp := r.now().UTC().Format("2006-01-02")

	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<urlset xmlns=\"http://www.sitemaps.org/schemas/sitemap/0.9\">\n")
	fmt.Fprintf(&b, "<url><loc>%s/</loc><lastmod>%s</lastmod></url>\n", r.baseURL, stamp)
	for _, lf := range languageFeeds {
		fmt.Fprintf(&b, "<url><loc>%s/%s</loc><lastmod>%s</lastmod></url>\n", r.baseURL, lf.FileName, stamp)
	}
	b.WriteString("</urlset>\n")

	path := filepath.Join(r.outDir, "sitemap.xml")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing sitemap: %w", err)
	}
	return nil
}

func (r *Renderer) writeRobots() error {
	content := fmt.Sprintf("User-agent: *\nAllow: /\n\nSitemap: %s/sitemap.xml\n", r.baseURL)
	path := filepath.Join(r.outDir, "robots.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing robots.txt: %w", err)
	}
	return nil
}
