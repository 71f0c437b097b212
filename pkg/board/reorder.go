package board

import "slices"

// Result is the outcome of a reorder: the full card collection after the move and the lists
// whose membership or ordering changed, source first.
type Result struct {
	Cards   []Card
	Changed []ID
}

// CardsIn returns the result's cards that belong to the given list, in their new order.
func (r *Result) CardsIn(listID ID) []Card {
	cards := []Card{}

	for _, card := range r.Cards {
		if card.ListID == listID {
			cards = append(cards, card)
		}
	}

	return cards
}

// Reorder moves the card with the given id to destIndex within the destination list and
// renumbers every list so that positions run 0..n-1 in display order.
//
// destIndex is an index among the destination list's cards as currently displayed, i.e. with
// the dragged card still in place. Reorder returns nil when there is nothing to apply: the card
// or the destination list is unknown, or the card would land where it already is.
//
// The inputs are never modified.
func Reorder(cards []Card, lists []List, cardID, destListID ID, destIndex int) *Result {
	known := make(map[ID]bool, len(lists))
	for _, list := range lists {
		known[list.ID] = true
	}

	if !known[destListID] {
		return nil
	}

	buckets := make(map[ID][]Card, len(lists))
	orphans := []Card{}

	var dragged *Card

	for i := range cards {
		card := cards[i]

		if card.ID == cardID {
			dragged = &card
		}

		if !known[card.ListID] {
			orphans = append(orphans, card)

			continue
		}

		buckets[card.ListID] = append(buckets[card.ListID], card)
	}

	if dragged == nil || !known[dragged.ListID] {
		return nil
	}

	for _, bucket := range buckets {
		SortCards(bucket)
	}

	sourceID := dragged.ListID
	source := buckets[sourceID]
	origIndex := slices.IndexFunc(source, func(c Card) bool { return c.ID == cardID })

	if sourceID == destListID {
		target := destIndex
		if target > origIndex {
			// removing the card shifts every later slot left by one
			target--
		}

		target = clamp(target, len(source)-1)
		if target == origIndex {
			return nil
		}

		moved := source[origIndex]
		source = slices.Delete(slices.Clone(source), origIndex, origIndex+1)
		buckets[sourceID] = slices.Insert(source, target, moved)
	} else {
		moved := source[origIndex]
		moved.ListID = destListID

		buckets[sourceID] = slices.Delete(slices.Clone(source), origIndex, origIndex+1)

		dest := buckets[destListID]
		target := clamp(destIndex, len(dest))
		buckets[destListID] = slices.Insert(slices.Clone(dest), target, moved)
	}

	out := make([]Card, 0, len(cards))

	for _, list := range lists {
		bucket, ok := buckets[list.ID]
		if !ok {
			continue
		}

		// a list id repeated in lists must not emit its cards twice
		delete(buckets, list.ID)

		for i, card := range bucket {
			card.Position = i
			card.ListID = list.ID
			out = append(out, card)
		}
	}

	out = append(out, orphans...)

	changed := []ID{sourceID}
	if destListID != sourceID {
		changed = append(changed, destListID)
	}

	return &Result{Cards: out, Changed: changed}
}

// clamp limits i to [0, upper].
func clamp(i, upper int) int {
	return max(0, min(i, upper))
}
