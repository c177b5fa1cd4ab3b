package feed

import "time"

// Item is one syndicated article as fetched from the source feed.
// Link doubles as the deduplication key; GUID falls back to Link when
// the feed does not provide its own id.
type Item struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	Published   time.Time `json:"published"`
	GUID        string    `json:"guid"`
	Comments    string    `json:"comments,omitempty"`
	Author      string    `json:"author,omitempty"`
	Score       int       `json:"score,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}
