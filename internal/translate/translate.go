// Package translate converts English text to target languages using the
// public Google Translate endpoint.
package translate

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"hnbabel/internal/logger"
	"hnbabel/internal/textutil"
)

const (
	endpoint     = "https://translate.googleapis.com/translate_a/single"
	maxChunkSize = 5000
)

// Codes the endpoint expects in a different casing than the config uses.
var languageAliases = map[string]string{
	"zh-cn": "zh-CN",
	"zh-tw": "zh-TW",
	"pt-br": "pt",
	"jp":    "ja",
	"kr":    "ko",
}

// GoogleTranslator calls the free web translation endpoint. No API key
// is required, which also means no SLA: every failure mode returns the
// input text unchanged so the pipeline can degrade to English output.
type GoogleTranslator struct {
	client     *http.Client
	sourceLang string
}

func NewGoogle(sourceLang string) *GoogleTranslator {
	if sourceLang == "" {
		sourceLang = "en"
	}
	r := retryablehttp.NewClient()
	r.RetryMax = 2
	r.Logger = nil
	r.HTTPClient.Timeout = 15 * time.Second
	return &GoogleTranslator{
		client:     r.StandardClient(),
		sourceLang: sourceLang,
	}
}

// Translate returns text rendered in targetLang, or the input unchanged
// when translation fails or the target equals the source.
func (t *GoogleTranslator) Translate(text, targetLang string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}

	targetLang = normalizeLang(targetLang)
	if targetLang == "" || targetLang == t.sourceLang {
		return text
	}

	text = textutil.TruncateBytes(text, maxChunkSize)

	translated, err := t.request(text, targetLang)
	if err != nil {
		logger.Warn("translation failed, keeping original", "lang", targetLang, "error", err)
		return text
	}
	if translated == "" {
		return text
	}
	return translated
}

func (t *GoogleTranslator) request(text, targetLang string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", t.sourceLang)
	params.Set("tl", targetLang)
	params.Set("dt", "t")
	params.Set("q", text)

	resp, err := t.client.Get(endpoint + "?" + params.Encode())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	return ParseResponse(body)
}

// ParseResponse decodes the endpoint's nested-array payload:
// [[["translated","original",...],...],...]. The translated segments
// live at [0][i][0].
func ParseResponse(body []byte) (string, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty response")
	}

	var segments [][]json.RawMessage
	if err := json.Unmarshal(payload[0], &segments); err != nil {
		return "", fmt.Errorf("decoding segments: %w", err)
	}

	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(seg[0], &part); err != nil {
			continue
		}
		b.WriteString(part)
	}
	return strings.TrimSpace(b.String()), nil
}

func normalizeLang(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if alias, ok := languageAliases[strings.ToLower(code)]; ok {
		return alias
	}
	return strings.ToLower(code)
}
