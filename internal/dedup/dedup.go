// Package dedup removes already-processed items from a fetched batch.
package dedup

import (
	"hnbabel/internal/feed"
	"hnbabel/internal/logger"
)

// Filter returns the fetched items whose canonical link has not been
// seen before, preserving input order. An item is dropped when its link
// appears in seen (the item store's links) or earlier in the same batch,
// even if its GUID differs, since feeds sometimes reissue the same
// article under a new id. Items without a link are dropped.
func Filter(items []feed.Item, seen map[string]struct{}) []feed.Item {
	known := make(map[string]struct{}, len(seen)+len(items))
	for link := range seen {
		known[link] = struct{}{}
	}

	var unique []feed.Item
	for _, item := range items {
		if item.Link == "" {
			continue
		}
		if _, dup := known[item.Link]; dup {
			continue
		}
		known[item.Link] = struct{}{}
		unique = append(unique, item)
	}

	logger.Debug("deduplicated batch", "in", len(items), "out", len(unique))
	return unique
}
