package controller

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matt-steen/todo-board/pkg/api"
	"github.com/matt-steen/todo-board/pkg/board"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const (
	headerHeight = 5
	// notificationTTL is how long an error stays in the status line.
	notificationTTL = 5 * time.Second
)

type mode int

const (
	modeBoard mode = iota
	modeDrag
)

// Backend is everything the UI needs from the board REST API; *api.Client implements it.
type Backend interface {
	board.Backend
	CreateList(ctx context.Context, title string) (*board.List, error)
	RenameList(ctx context.Context, listID board.ID, title string) error
	DeleteList(ctx context.Context, listID board.ID) error
	CreateCard(ctx context.Context, card api.NewCard) (*board.Card, error)
	UpdateCard(ctx context.Context, cardID board.ID, update api.CardUpdate) error
	DeleteCard(ctx context.Context, cardID board.ID) error
}

// column is one list as drawn: its descriptor and its cards in display order.
type column struct {
	list  board.List
	cards []board.Card
}

// Controller mediates between the board and the view.
type Controller struct {
	ctx     context.Context
	backend Backend
	board   *board.Board
	app     *tview.Application
	pages   *tview.Pages
	running atomic.Bool

	header     *tview.Table
	columnFlex *tview.Flex
	tables     []*tview.Table
	statusLine *tview.TextView

	// the fields below are only touched on the UI goroutine
	columns      []column
	cursor       cursor
	mode         mode
	selectedCard board.ID

	events     map[tcell.Key]KeyEvent
	dragEvents map[tcell.Key]KeyEvent
	formEvents map[tcell.Key]KeyEvent

	form       *tview.Form
	formHeader *tview.Table

	notifyMu    sync.Mutex
	notifyTimer *time.Timer
}

// KeyEvent defines an event associated with a keypress.
type KeyEvent struct {
	Description string
	Action      func(*tcell.EventKey) *tcell.EventKey
}

// NewController creates a new Controller to run the app.
func NewController(ctx context.Context, backend Backend) (*Controller, error) {
	c := &Controller{
		ctx:     ctx,
		backend: backend,
		app:     tview.NewApplication(),
	}

	c.board = board.New(backend,
		board.WithNotifier(c.notify),
		board.WithOnChange(c.boardChanged),
	)

	c.initEvents()

	return c, nil
}

// Go loads the board and runs the app until the user quits.
func (c *Controller) Go() error {
	if err := c.board.Load(c.ctx); err != nil {
		return err
	}

	c.layout()
	c.running.Store(true)

	log.Info().Msg("starting board ui")

	defer c.running.Store(false)

	if err := c.app.SetRoot(c.pages, true).Run(); err != nil {
		return fmt.Errorf("error running ui: %w", err)
	}

	return nil
}

// layout builds the pages and draws the loaded board.
func (c *Controller) layout() {
	c.header = c.getHeader(c.events)
	c.columnFlex = tview.NewFlex().SetDirection(tview.FlexColumn)
	c.statusLine = tview.NewTextView().SetDynamicColors(true)

	grid := tview.NewGrid().SetRows(headerHeight, 0, 1).SetBorders(false)
	grid.AddItem(c.header, 0, 0, 1, 1, 0, 0, false)
	grid.AddItem(c.columnFlex, 1, 0, 1, 1, 0, 0, true)
	grid.AddItem(c.statusLine, 2, 0, 1, 1, 0, 0, false)

	c.pages = tview.NewPages()
	c.pages.AddPage(pageBoard, grid, true, true)
	c.pages.AddPage(pageForm, c.getFormGrid(), true, false)

	c.refresh()
	c.app.SetInputCapture(c.handleKeys)
}

// boardChanged is called by the board, possibly off the UI goroutine.
func (c *Controller) boardChanged() {
	if !c.running.Load() {
		return
	}

	c.app.QueueUpdateDraw(c.refresh)
}

// notify shows an error in the status line for a few seconds.
func (c *Controller) notify(err error) {
	log.Warn().Err(err).Msg("notifying user")

	if !c.running.Load() {
		return
	}

	msg := fmt.Sprintf("[red]%s", tview.Escape(err.Error()))

	c.app.QueueUpdateDraw(func() {
		c.statusLine.SetText(msg)
	})

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	if c.notifyTimer != nil {
		c.notifyTimer.Stop()
	}

	c.notifyTimer = time.AfterFunc(notificationTTL, func() {
		c.app.QueueUpdateDraw(func() {
			c.statusLine.SetText("")
		})
	})
}

// refresh rebuilds the columns from the board and redraws them. It runs on the UI goroutine.
func (c *Controller) refresh() {
	c.columns = c.columns[:0]

	for _, list := range c.board.Lists() {
		c.columns = append(c.columns, column{list: list, cards: c.board.CardsIn(list.ID)})
	}

	if c.mode == modeBoard {
		c.followSelectedCard()
	}

	c.cursor = c.cursor.clamp(c.sizes(), c.mode == modeDrag)
	c.rememberSelectedCard()

	c.drawColumns()
}

// followSelectedCard moves the cursor to wherever the selected card is now.
func (c *Controller) followSelectedCard() {
	if c.selectedCard == "" {
		return
	}

	for col, column := range c.columns {
		row := slices.IndexFunc(column.cards, func(card board.Card) bool { return card.ID == c.selectedCard })
		if row >= 0 {
			c.cursor = cursor{col: col, row: row}

			return
		}
	}
}

func (c *Controller) rememberSelectedCard() {
	if c.mode != modeBoard {
		return
	}

	if card := c.currentCard(); card != nil {
		c.selectedCard = card.ID
	} else {
		c.selectedCard = ""
	}
}

func (c *Controller) sizes() []int {
	sizes := make([]int, len(c.columns))
	for i, column := range c.columns {
		sizes[i] = len(column.cards)
	}

	return sizes
}

func (c *Controller) drawColumns() {
	for len(c.tables) < len(c.columns) {
		table := tview.NewTable().SetBorders(false).SetSelectable(false, false)
		table.SetContent(&ListContent{c: c, col: len(c.tables)})
		table.SetBorder(true)
		c.tables = append(c.tables, table)
	}

	c.columnFlex.Clear()

	for i, column := range c.columns {
		table := c.tables[i]
		table.SetTitle(fmt.Sprintf(" %s (%d) ", tview.Escape(column.list.Title), len(column.cards)))

		color := tcell.ColorWhite
		if i == c.cursor.col {
			color = tcell.ColorYellow
		}

		table.SetBorderColor(color)
		c.columnFlex.AddItem(table, 0, 1, i == c.cursor.col)
	}
}

func (c *Controller) currentColumn() *column {
	if c.cursor.col >= len(c.columns) {
		return nil
	}

	return &c.columns[c.cursor.col]
}

func (c *Controller) currentCard() *board.Card {
	col := c.currentColumn()
	if col == nil || c.cursor.row >= len(col.cards) {
		return nil
	}

	return &col.cards[c.cursor.row]
}

func (c *Controller) handleKeys(evt *tcell.EventKey) *tcell.EventKey {
	events := c.events
	if c.mode == modeDrag {
		events = c.dragEvents
	}

	if k, ok := events[AsKey(evt)]; ok {
		return k.Action(evt)
	}

	return evt
}

// run performs a backend call off the UI goroutine and reloads the board afterwards.
func (c *Controller) run(what string, action func(ctx context.Context) error) {
	go func() {
		if err := action(c.ctx); err != nil {
			log.Error().Err(err).Msgf("error trying to %s", what)
			c.notify(fmt.Errorf("failed to %s: %w", what, err))
		}

		if err := c.board.Load(c.ctx); err != nil {
			log.Error().Err(err).Msg("error reloading board")
			c.notify(err)
		}
	}()
}
