package scraper

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScraper() *Scraper {
	return New(Config{Timeout: 5 * time.Second, MaxContentLength: 5000})
}

func longParagraph(topic string) string {
	return fmt.Sprintf("This paragraph talks about %s in enough detail to look like real article prose, "+
		"with several clauses and a reasonable amount of words so extraction treats it as substantial content "+
		"rather than navigation boilerplate or a cookie banner.", topic)
}

func TestExtractFromArticleTag(t *testing.T) {
	html := fmt.Sprintf(`<html><head><script>tracking()</script></head><body>
<nav>Home | About | Contact</nav>
<article><p>%s</p><p>%s</p></article>
<footer>Copyright 2026</footer>
</body></html>`, longParagraph("databases"), longParagraph("indexes"))

	content := testScraper().extractFromHTML([]byte(html), "https://example.com/post")

	assert.Contains(t, content, "databases")
	assert.Contains(t, content, "indexes")
	assert.NotContains(t, content, "tracking()")
	assert.NotContains(t, content, "Copyright 2026")
}

func TestExtractFromContentDiv(t *testing.T) {
	html := fmt.Sprintf(`<html><body>
<div class="sidebar">links links links</div>
<div class="post-content"><p>%s</p><p>%s</p></div>
</body></html>`, longParagraph("compilers"), longParagraph("linkers"))

	content := testScraper().extractFromHTML([]byte(html), "https://example.com/post")
	assert.Contains(t, content, "compilers")
}

func TestExtractFromParagraphs(t *testing.T) {
	html := fmt.Sprintf(`<html><body>
<span>short</span>
<p>%s</p><p>%s</p><p>%s</p>
</body></html>`, longParagraph("networking"), longParagraph("routing"), longParagraph("switching"))

	content := testScraper().extractFromHTML([]byte(html), "https://example.com/post")
	assert.Contains(t, content, "networking")
	assert.Contains(t, content, "switching")
}

func TestExtractNothingUseful(t *testing.T) {
	content := testScraper().extractFromHTML([]byte("<html><body><p>hi</p></body></html>"), "https://example.com/empty")
	assert.Empty(t, content)
}

func TestExtractRespectsMaxContentLength(t *testing.T) {
	s := New(Config{Timeout: time.Second, MaxContentLength: 300})

	var paragraphs strings.Builder
	for i := 0; i < 10; i++ {
		paragraphs.WriteString("<p>" + longParagraph("storage") + "</p>")
	}
	html := "<html><body><article>" + paragraphs.String() + "</article></body></html>"

	content := s.extractFromHTML([]byte(html), "https://example.com/long")
	assert.NotEmpty(t, content)
	assert.LessOrEqual(t, len(content), 300)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "", CleanText("", 100))
	assert.Equal(t, "a b c", CleanText("  a\n\n b\t c  ", 100))
	assert.Equal(t, "no artifacts", CleanText("no artifacts​", 100))
}

func TestCleanTextTruncatesOnRuneBoundary(t *testing.T) {
	text := strings.Repeat("é", 60) // 120 bytes

	got := CleanText(text, 99)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 99)
}

func TestCleanTextTruncatesAtSentence(t *testing.T) {
	text := strings.Repeat("x", 90) + ". tail that should be dropped entirely"

	got := CleanText(text, 100)
	assert.True(t, strings.HasSuffix(got, "."), "got %q", got)
	assert.LessOrEqual(t, len(got), 100)
}

func TestExtractHTTPFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, ok := testScraper().Extract(srv.URL)
	assert.False(t, ok)
}

func TestBatchScrape(t *testing.T) {
	page := fmt.Sprintf("<html><body><article><p>%s</p><p>%s</p></article></body></html>",
		longParagraph("caching"), longParagraph("eviction"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/bad") {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	urls := []string{srv.URL + "/a", srv.URL + "/b", srv.URL + "/bad"}
	results := testScraper().BatchScrape(urls, 2)

	require.Len(t, results, 2)
	assert.Contains(t, results[srv.URL+"/a"], "caching")
	assert.NotContains(t, results, srv.URL+"/bad")
}
