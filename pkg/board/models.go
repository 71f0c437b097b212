package board

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ID is an opaque identifier for cards and lists. Backends may send ids as JSON strings or
// numbers; both decode to the same textual form.
type ID string

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		*id = ""

		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("error decoding id %s: %w", data, err)
		}

		*id = ID(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("error decoding id %s: %w", data, err)
	}

	*id = ID(n.String())

	return nil
}

// Timestamp is a creation time as sent by the backend: a date string or a number of unix
// milliseconds. Values of any other JSON type decode to "" and sort as the epoch.
type Timestamp string

// UnmarshalJSON accepts a string or a number and never fails on other types.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*ts = Timestamp(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*ts = Timestamp(n.String())

		return nil
	}

	*ts = ""

	return nil
}

// Card is a single task placed in exactly one list.
type Card struct {
	ID     ID     `json:"id"`
	ListID ID     `json:"list_id"`
	// Position is the zero-based rank of the card within its list. It is renumbered on every
	// reorder that touches the list.
	Position int `json:"position"`
	// CreatedAt is kept as received; it only breaks ties between equal positions.
	CreatedAt Timestamp  `json:"created_at,omitempty"`
	Text      string     `json:"text"`
	Done      bool       `json:"done"`
	DueAt     *time.Time `json:"due_at,omitempty"`
}

// List is a named column of cards. Lists are ordered by the backend and never reordered here.
type List struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
}

// Snapshot is the authoritative state of a board as returned by the backend.
type Snapshot struct {
	Lists []List `json:"lists"`
	Cards []Card `json:"tasks"`
}

// CardsIn returns the cards belonging to the given list, sorted for display.
func (s *Snapshot) CardsIn(listID ID) []Card {
	cards := []Card{}

	for _, card := range s.Cards {
		if card.ListID == listID {
			cards = append(cards, card)
		}
	}

	SortCards(cards)

	return cards
}

// FindList returns the list with the given id, or nil.
func (s *Snapshot) FindList(id ID) *List {
	for i := range s.Lists {
		if s.Lists[i].ID == id {
			return &s.Lists[i]
		}
	}

	return nil
}
