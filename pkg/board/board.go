package board

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	// ErrPersist is returned when a reordered card could not be saved. The board has already been
	// reloaded from the backend when a caller sees it.
	ErrPersist = errors.New("failed to save order")
	// ErrSuperseded is returned when a queued reorder was dropped because the board was reloaded
	// before its turn to be saved came up.
	ErrSuperseded = errors.New("reorder superseded by reload")
)

// Backend is the source of truth for a board.
type Backend interface {
	// Snapshot returns the full, authoritative board.
	Snapshot(ctx context.Context) (*Snapshot, error)
	// MoveCard stores a card's list and position.
	MoveCard(ctx context.Context, cardID, listID ID, position int) error
}

// Option configures a Board.
type Option func(*Board)

// WithNotifier sets the function that shows errors to the user.
func WithNotifier(notify func(error)) Option {
	return func(b *Board) {
		b.notify = notify
	}
}

// WithOnChange sets a function called whenever the local lists or cards are replaced.
func WithOnChange(onChange func()) Option {
	return func(b *Board) {
		b.onChange = onChange
	}
}

// Board owns the local copy of a board: its lists, its cards, and the drag session in progress.
// Reorders are applied locally first and then saved to the backend one card at a time.
//
// Save sequences run strictly one after another in the order their reorders were applied. Any
// failure reloads the whole board, and sequences still waiting behind the failed one are dropped
// since the state they were computed from no longer exists.
type Board struct {
	backend  Backend
	notify   func(error)
	onChange func()

	mu    sync.Mutex
	turn  *sync.Cond
	lists []List
	cards []Card
	drag  DragSession

	// generation counts replacements of local state by a backend snapshot.
	generation uint64
	// loads counts started fetches; only the latest may replace local state.
	loads uint64
	// applied counts local reorders; a snapshot fetched across one is out of date.
	applied uint64
	// resync asks for a reload once the save queue drains.
	resync     bool
	nextTicket uint64
	serving    uint64
}

// New creates an empty Board backed by the given Backend. Call Load to fetch the board.
func New(backend Backend, opts ...Option) *Board {
	b := &Board{
		backend:  backend,
		notify:   func(error) {},
		onChange: func() {},
		lists:    []List{},
		cards:    []Card{},
	}

	b.turn = sync.NewCond(&b.mu)

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Load discards local state and replaces it with the backend's snapshot.
//
// A snapshot fetched while a reorder was applied locally predates that reorder and is not used.
// If no saves are pending the fetch is repeated, otherwise the board reloads once the save queue
// drains. A snapshot from a fetch that a later Load overtook is dropped as well.
func (b *Board) Load(ctx context.Context) error {
	for {
		b.mu.Lock()
		b.loads++
		load, applied := b.loads, b.applied
		b.mu.Unlock()

		snap, err := b.backend.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("error loading board: %w", err)
		}

		b.mu.Lock()

		if b.loads != load {
			b.mu.Unlock()
			log.Debug().Uint64("load", load).Msg("dropping snapshot overtaken by a later load")

			return nil
		}

		if b.applied != applied {
			idle := b.serving == b.nextTicket
			if !idle {
				b.resync = true
			}
			b.mu.Unlock()

			log.Debug().Bool("retry", idle).Msg("dropping snapshot fetched across a local reorder")

			if idle {
				continue
			}

			return nil
		}

		b.lists = slices.Clone(snap.Lists)
		b.cards = slices.Clone(snap.Cards)
		b.generation++
		b.resync = false
		b.mu.Unlock()

		log.Debug().Int("lists", len(snap.Lists)).Int("cards", len(snap.Cards)).Msg("board loaded")

		b.onChange()

		return nil
	}
}

// Snapshot returns a copy of the local state.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Snapshot{Lists: slices.Clone(b.lists), Cards: slices.Clone(b.cards)}
}

// Lists returns the board's lists in display order.
func (b *Board) Lists() []List {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.lists)
}

// CardsIn returns the cards of a list in display order.
func (b *Board) CardsIn(listID ID) []Card {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := Snapshot{Cards: b.cards}

	return snap.CardsIn(listID)
}

// Move moves a card to index within a list, applies the result locally and saves it. It reports
// false without contacting the backend when the move changes nothing.
func (b *Board) Move(ctx context.Context, cardID, listID ID, index int) (bool, error) {
	b.mu.Lock()

	result := Reorder(b.cards, b.lists, cardID, listID, index)
	if result == nil {
		b.mu.Unlock()

		log.Debug().Str("card", string(cardID)).Str("list", string(listID)).Int("index", index).
			Msg("ignoring move with no effect")

		return false, nil
	}

	b.cards = result.Cards
	b.applied++
	generation := b.generation
	ticket := b.nextTicket
	b.nextTicket++
	b.mu.Unlock()

	b.onChange()

	return true, b.persist(ctx, result, generation, ticket)
}

// persist waits for the ticket's turn and saves every card of the changed lists.
func (b *Board) persist(ctx context.Context, result *Result, generation, ticket uint64) error {
	b.mu.Lock()
	for b.serving != ticket {
		b.turn.Wait()
	}

	stale := b.generation != generation
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.serving++
		b.turn.Broadcast()

		resync := b.resync && b.serving == b.nextTicket
		if resync {
			b.resync = false
		}
		b.mu.Unlock()

		if resync {
			if err := b.Load(context.WithoutCancel(ctx)); err != nil {
				log.Error().Err(err).Msg("error reloading board after saves drained")
			}
		}
	}()

	if stale {
		log.Debug().Uint64("ticket", ticket).Msg("dropping reorder computed before a reload")

		return ErrSuperseded
	}

	for _, listID := range result.Changed {
		for _, card := range result.CardsIn(listID) {
			log.Debug().
				Str("card", string(card.ID)).
				Str("list", string(listID)).
				Int("position", card.Position).
				Msg("saving card position")

			if err := b.backend.MoveCard(ctx, card.ID, listID, card.Position); err != nil {
				return b.fail(ctx, card, err)
			}
		}
	}

	return nil
}

// fail reports a save failure once and reloads the board from the backend.
func (b *Board) fail(ctx context.Context, card Card, err error) error {
	log.Warn().Err(err).Str("card", string(card.ID)).Msg("error saving card order; reloading board")

	b.notify(fmt.Errorf("%w: %v", ErrPersist, err))

	// the reload must happen even when ctx is what made the save fail
	if reloadErr := b.Load(context.WithoutCancel(ctx)); reloadErr != nil {
		log.Error().Err(reloadErr).Msg("error reloading board after failed save")
	}

	return fmt.Errorf("%w: card %s: %w", ErrPersist, card.ID, err)
}

// Drag returns a copy of the current drag session.
func (b *Board) Drag() DragSession {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.drag
}

// StartDrag picks up a card. It reports false if the card is not on the board.
func (b *Board) StartDrag(cardID ID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := slices.IndexFunc(b.cards, func(c Card) bool { return c.ID == cardID })
	if idx < 0 {
		return false
	}

	listID := b.cards[idx].ListID
	snap := Snapshot{Cards: b.cards}
	index := slices.IndexFunc(snap.CardsIn(listID), func(c Card) bool { return c.ID == cardID })

	b.drag.Start(cardID, listID, index)

	log.Debug().Str("card", string(cardID)).Str("list", string(listID)).Int("index", index).Msg("drag started")

	return true
}

// HoverDrag highlights a drop slot. It reports whether the highlighted slot changed.
func (b *Board) HoverDrag(listID ID, index int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.drag.Hover(listID, index)
}

// CancelDrag abandons the current gesture.
func (b *Board) CancelDrag() {
	b.mu.Lock()
	b.drag.Cancel()
	b.mu.Unlock()

	log.Debug().Msg("drag cancelled")
}

// EndDrag ends the current gesture and returns where the card was released. The session is Idle
// afterwards whether or not there was a target. Saving the drop is left to Move, so a caller can
// end the gesture on its own goroutine and save off it.
func (b *Board) EndDrag() (Drop, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	drop, ok := b.drag.Drop()
	if !ok {
		log.Debug().Msg("drag ended without a target")

		return drop, false
	}

	log.Debug().
		Str("card", string(drop.CardID)).
		Str("list", string(drop.To.ListID)).
		Int("index", drop.To.Index).
		Msg("drag dropped")

	return drop, true
}
