package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"hnbabel/internal/logger"
)

const summaryPrompt = `Summarize the following article in 2-3 clear sentences.
Focus on what happened and why it matters. Do not add opinions or
introductions like "This article discusses". Respond with the summary only.

Article:
%s`

// Gemini summarizes via the Gemini API and falls back to the extractive
// summarizer when the API is unavailable or errors out.
type Gemini struct {
	client           *genai.Client
	model            string
	minContentLength int
	fallback         *Lightweight
}

// NewGemini returns a Gemini summarizer, or nil if no API key is set.
func NewGemini(ctx context.Context, apiKey, model string, minContentLength, maxSentences int) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("no API key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	if minContentLength <= 0 {
		minContentLength = 50
	}
	return &Gemini{
		client:           client,
		model:            model,
		minContentLength: minContentLength,
		fallback:         NewLightweight(maxSentences),
	}, nil
}

// Summarize returns a short summary of text. Text too short to
// summarize passes through unchanged. API failures fall back to the
// extractive summarizer, never to an error.
func (g *Gemini) Summarize(text string) string {
	text = strings.TrimSpace(text)
	if len(text) < g.minContentLength {
		return text
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.3)

	resp, err := model.GenerateContent(ctx, genai.Text(fmt.Sprintf(summaryPrompt, text)))
	if err != nil {
		logger.Warn("gemini summarization failed, using fallback", "error", err)
		return g.fallback.Summarize(text)
	}

	summary := extractText(resp)
	if summary == "" {
		logger.Warn("gemini returned empty summary, using fallback")
		return g.fallback.Summarize(text)
	}
	return summary
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}
