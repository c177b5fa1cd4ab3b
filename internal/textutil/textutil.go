// Package textutil holds small text helpers shared by the scraping,
// translation and comment layers.
package textutil

import "unicode/utf8"

// TruncateBytes cuts s to at most max bytes without splitting a
// multi-byte rune, so the result is valid UTF-8 whenever s is.
func TruncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max < 0 {
		max = 0
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
