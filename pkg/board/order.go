package board

import (
	"cmp"
	"slices"
	"strconv"
	"time"
)

// createdAtLayouts are tried in order when reading a card's creation time.
var createdAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// createdAtMillis returns the card's creation time in unix milliseconds. Numbers are taken as
// milliseconds already; strings without a zone are read as UTC. Missing or unparseable values
// count as the epoch so that they sort first.
func createdAtMillis(c Card) int64 {
	text := string(c.CreatedAt)
	if text == "" {
		return 0
	}

	if ms, err := strconv.ParseInt(text, 10, 64); err == nil {
		return ms
	}

	if ms, err := strconv.ParseFloat(text, 64); err == nil {
		return int64(ms)
	}

	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UnixMilli()
		}
	}

	return 0
}

// Compare orders two cards of the same list by position, then by creation time.
func Compare(a, b Card) int {
	if c := cmp.Compare(a.Position, b.Position); c != 0 {
		return c
	}

	return cmp.Compare(createdAtMillis(a), createdAtMillis(b))
}

// SortCards sorts cards in place for display within a single list.
func SortCards(cards []Card) {
	slices.SortStableFunc(cards, Compare)
}
