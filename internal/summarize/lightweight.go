// Package summarize condenses article text into a few sentences.
package summarize

import (
	"regexp"
	"sort"
	"strings"
)

var sentenceSplit = regexp.MustCompile(`[.!?]+\s+`)

// Lightweight is an extractive summarizer with no external calls. It
// scores sentences by word frequency and keeps the highest scoring ones
// in original order.
type Lightweight struct {
	maxSentences int
}

func NewLightweight(maxSentences int) *Lightweight {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	return &Lightweight{maxSentences: maxSentences}
}

func (l *Lightweight) Summarize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	sentences := splitSentences(text)
	if len(sentences) <= l.maxSentences {
		return text
	}

	freq := wordFrequencies(text)

	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, 0, len(sentences))
	for i, sentence := range sentences {
		var score float64
		words := strings.Fields(strings.ToLower(sentence))
		for _, w := range words {
			score += freq[strings.Trim(w, ".,!?;:\"'()")]
		}
		if len(words) > 0 {
			score /= float64(len(words))
		}
		ranked = append(ranked, scored{index: i, score: score})
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	top := ranked[:l.maxSentences]
	sort.Slice(top, func(i, j int) bool { return top[i].index < top[j].index })

	parts := make([]string, 0, len(top))
	for _, s := range top {
		parts = append(parts, sentences[s.index])
	}
	summary := strings.Join(parts, " ")
	if !strings.HasSuffix(summary, ".") && !strings.HasSuffix(summary, "!") && !strings.HasSuffix(summary, "?") {
		summary += "."
	}
	return summary
}

func splitSentences(text string) []string {
	raw := sentenceSplit.Split(text, -1)
	var sentences []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if len(s) > 20 {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func wordFrequencies(text string) map[string]float64 {
	freq := make(map[string]float64)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if len(w) > 3 {
			freq[w]++
		}
	}
	return freq
}
