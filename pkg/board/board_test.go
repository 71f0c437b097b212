package board_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/matt-steen/todo-board/pkg/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type move struct {
	CardID   board.ID
	ListID   board.ID
	Position int
}

// fakeBackend stores a snapshot in memory and records every MoveCard call.
type fakeBackend struct {
	mu        sync.Mutex
	snap      board.Snapshot
	moves     []move
	snapshots int
	// failAt makes the n-th MoveCard call (1-based) fail.
	failAt int
	// gate, when set, holds the first MoveCard call until it is closed.
	gate chan struct{}
	// snapGate, when set, holds the next Snapshot response until it is closed. snapFetched is
	// closed once that response has been built.
	snapGate    chan struct{}
	snapFetched chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		snap: board.Snapshot{
			Lists: lists("l1", "l2"),
			Cards: []board.Card{
				card("a", "l1", 0, ""),
				card("b", "l1", 1, ""),
				card("c", "l1", 2, ""),
				card("d", "l2", 0, ""),
			},
		},
	}
}

func (f *fakeBackend) Snapshot(_ context.Context) (*board.Snapshot, error) {
	f.mu.Lock()
	f.snapshots++
	snap := &board.Snapshot{Lists: slices.Clone(f.snap.Lists), Cards: slices.Clone(f.snap.Cards)}
	gate, fetched := f.snapGate, f.snapFetched
	f.snapGate = nil
	f.mu.Unlock()

	// the response is already built, as if it were still on the wire
	if gate != nil {
		close(fetched)
		<-gate
	}

	return snap, nil
}

func (f *fakeBackend) MoveCard(_ context.Context, cardID, listID board.ID, position int) error {
	f.mu.Lock()
	f.moves = append(f.moves, move{cardID, listID, position})
	n := len(f.moves)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil && n == 1 {
		<-gate
	}

	if n == f.failAt {
		return errors.New("boom")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.snap.Cards {
		if f.snap.Cards[i].ID == cardID {
			f.snap.Cards[i].ListID = listID
			f.snap.Cards[i].Position = position
		}
	}

	return nil
}

func (f *fakeBackend) recorded() ([]move, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.moves), f.snapshots
}

func ids(cards []board.Card) []board.ID {
	out := []board.ID{}
	for _, c := range cards {
		out = append(out, c.ID)
	}

	return out
}

func loadedBoard(t *testing.T, backend *fakeBackend, opts ...board.Option) *board.Board {
	t.Helper()

	b := board.New(backend, opts...)
	require.Nil(t, b.Load(context.Background()))

	return b
}

func TestBoardMovePersistsSequentially(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	backend := newFakeBackend()
	b := loadedBoard(t, backend)

	changed, err := b.Move(context.Background(), "a", "l2", 1)
	assert.True(changed)
	assert.Nil(err)

	assert.Equal([]board.ID{"b", "c"}, ids(b.CardsIn("l1")))
	assert.Equal([]board.ID{"d", "a"}, ids(b.CardsIn("l2")))

	moves, snapshots := backend.recorded()
	assert.Equal([]move{
		{"b", "l1", 0},
		{"c", "l1", 1},
		{"d", "l2", 0},
		{"a", "l2", 1},
	}, moves)
	assert.Equal(1, snapshots)
}

func TestBoardNoopMoveSkipsBackend(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	backend := newFakeBackend()
	b := loadedBoard(t, backend)

	changed, err := b.Move(context.Background(), "b", "l1", 1)
	assert.False(changed)
	assert.Nil(err)

	changed, err = b.Move(context.Background(), "missing", "l1", 0)
	assert.False(changed)
	assert.Nil(err)

	moves, _ := backend.recorded()
	assert.Empty(moves)
}

func TestBoardFailureReloadsOnce(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	backend := newFakeBackend()
	backend.failAt = 1

	var notified []error

	changes := 0
	b := loadedBoard(t, backend,
		board.WithNotifier(func(err error) { notified = append(notified, err) }),
		board.WithOnChange(func() { changes++ }),
	)

	// count only what the failed move causes
	changes = 0

	changed, err := b.Move(context.Background(), "a", "l1", 3)
	assert.True(changed)
	assert.ErrorIs(err, board.ErrPersist)

	moves, snapshots := backend.recorded()
	assert.Len(moves, 1)
	assert.Equal(2, snapshots)
	assert.Len(notified, 1)
	assert.ErrorIs(notified[0], board.ErrPersist)
	// optimistic apply, then reload
	assert.Equal(2, changes)

	// local state is the backend's again
	assert.Equal([]board.ID{"a", "b", "c"}, ids(b.CardsIn("l1")))
}

func TestBoardQueuedMoveDroppedAfterReload(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	backend := newFakeBackend()
	backend.failAt = 1
	backend.gate = make(chan struct{})

	b := loadedBoard(t, backend)

	var wg sync.WaitGroup

	var firstErr, secondErr error

	wg.Add(1)

	go func() {
		defer wg.Done()

		_, firstErr = b.Move(context.Background(), "a", "l2", 0)
	}()

	assert.Eventually(func() bool {
		return slices.Equal([]board.ID{"a", "d"}, ids(b.CardsIn("l2")))
	}, time.Second, time.Millisecond)

	wg.Add(1)

	go func() {
		defer wg.Done()

		_, secondErr = b.Move(context.Background(), "b", "l2", 0)
	}()

	assert.Eventually(func() bool {
		return slices.Equal([]board.ID{"b", "a", "d"}, ids(b.CardsIn("l2")))
	}, time.Second, time.Millisecond)

	close(backend.gate)
	wg.Wait()

	assert.ErrorIs(firstErr, board.ErrPersist)
	assert.ErrorIs(secondErr, board.ErrSuperseded)

	moves, snapshots := backend.recorded()
	assert.Len(moves, 1)
	assert.Equal(2, snapshots)
	assert.Equal([]board.ID{"d"}, ids(b.CardsIn("l2")))
}

func TestBoardDragDrop(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	backend := newFakeBackend()
	b := loadedBoard(t, backend)

	assert.False(b.StartDrag("missing"))
	assert.True(b.StartDrag("c"))

	origin, ok := b.Drag().Origin()
	assert.True(ok)
	assert.Equal(board.Slot{ListID: "l1", Index: 2}, origin)

	assert.True(b.HoverDrag("l1", 0))
	assert.False(b.HoverDrag("l1", 0))

	drop, ok := b.EndDrag()
	assert.True(ok)
	assert.Equal(board.Idle, b.Drag().State())

	changed, err := b.Move(context.Background(), drop.CardID, drop.To.ListID, drop.To.Index)
	assert.True(changed)
	assert.Nil(err)
	assert.Equal([]board.ID{"c", "a", "b"}, ids(b.CardsIn("l1")))
}

func TestBoardDropWithoutHoverResets(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	backend := newFakeBackend()
	b := loadedBoard(t, backend)

	assert.True(b.StartDrag("a"))

	_, ok := b.EndDrag()
	assert.False(ok)
	assert.Equal(board.Idle, b.Drag().State())

	assert.True(b.StartDrag("a"))
	b.HoverDrag("l2", 0)
	b.CancelDrag()
	assert.Equal(board.Idle, b.Drag().State())

	moves, _ := backend.recorded()
	assert.Empty(moves)
}

func TestBoardEndDragLeavesMoveToCaller(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	backend := newFakeBackend()
	b := loadedBoard(t, backend)

	assert.True(b.StartDrag("a"))
	assert.True(b.HoverDrag("l2", 1))

	drop, ok := b.EndDrag()
	assert.True(ok)
	assert.Equal(board.Drop{
		CardID: "a",
		From:   board.Slot{ListID: "l1", Index: 0},
		To:     board.Slot{ListID: "l2", Index: 1},
	}, drop)
	assert.Equal(board.Idle, b.Drag().State())

	// a new gesture may start before the previous drop is saved
	assert.True(b.StartDrag("b"))

	changed, err := b.Move(context.Background(), drop.CardID, drop.To.ListID, drop.To.Index)
	assert.True(changed)
	assert.NoError(err)
	assert.Equal([]board.ID{"d", "a"}, ids(b.CardsIn("l2")))
	assert.Equal(board.ID("b"), b.Drag().CardID())
}

func TestBoardLoadDropsSnapshotOlderThanLocalMove(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	backend := newFakeBackend()
	b := loadedBoard(t, backend)

	backend.mu.Lock()
	backend.snapGate = make(chan struct{})
	backend.snapFetched = make(chan struct{})
	gate, fetched := backend.snapGate, backend.snapFetched
	backend.mu.Unlock()

	loaded := make(chan error, 1)

	go func() {
		loaded <- b.Load(context.Background())
	}()

	<-fetched

	changed, err := b.Move(context.Background(), "a", "l2", 1)
	assert.True(changed)
	assert.NoError(err)

	close(gate)
	assert.NoError(<-loaded)

	// the in-flight snapshot was taken before the move; the board refetched instead of reverting
	assert.Equal([]board.ID{"b", "c"}, ids(b.CardsIn("l1")))
	assert.Equal([]board.ID{"d", "a"}, ids(b.CardsIn("l2")))

	_, snapshots := backend.recorded()
	assert.Equal(3, snapshots)
}

func TestBoardResyncsAfterSavesDrain(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	backend := newFakeBackend()
	backend.gate = make(chan struct{})
	b := loadedBoard(t, backend)

	moved := make(chan error, 1)

	go func() {
		_, err := b.Move(context.Background(), "a", "l2", 1)
		moved <- err
	}()

	// the move is applied locally and its first save is held
	assert.Eventually(func() bool {
		moves, _ := backend.recorded()

		return len(moves) == 1
	}, time.Second, time.Millisecond)

	backend.mu.Lock()
	backend.snapGate = make(chan struct{})
	backend.snapFetched = make(chan struct{})
	gate, fetched := backend.snapGate, backend.snapFetched
	backend.mu.Unlock()

	loaded := make(chan error, 1)

	go func() {
		loaded <- b.Load(context.Background())
	}()

	<-fetched

	// a second move lands while the snapshot is in flight
	go func() {
		_, err := b.Move(context.Background(), "b", "l2", 0)
		moved <- err
	}()

	assert.Eventually(func() bool {
		return slices.Equal([]board.ID{"b", "d", "a"}, ids(b.CardsIn("l2")))
	}, time.Second, time.Millisecond)

	close(gate)
	assert.NoError(<-loaded)
	assert.Equal([]board.ID{"b", "d", "a"}, ids(b.CardsIn("l2")), "stale snapshot must not be installed")

	close(backend.gate)
	assert.NoError(<-moved)
	assert.NoError(<-moved)

	// once both saves are done the board reloads and matches the backend
	assert.Eventually(func() bool {
		_, snapshots := backend.recorded()

		return snapshots == 3
	}, time.Second, time.Millisecond)
	assert.Equal([]board.ID{"c"}, ids(b.CardsIn("l1")))
	assert.Equal([]board.ID{"b", "d", "a"}, ids(b.CardsIn("l2")))
}
