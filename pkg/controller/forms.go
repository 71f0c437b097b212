package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matt-steen/todo-board/pkg/api"
	"github.com/matt-steen/todo-board/pkg/board"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const (
	textMax  = 200
	titleMax = 50
)

func (c *Controller) initFormEvents(events map[tcell.Key]KeyEvent) {
	events[tcell.KeyEscape] = KeyEvent{
		Description: "Back to board",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.switchToBoard()

			return nil
		},
	}
}

func (c *Controller) getFormGrid() *tview.Grid {
	grid := tview.NewGrid().SetRows(3, 0).SetBorders(true)

	c.initFormHeader()
	c.form = tview.NewForm()

	grid.AddItem(c.formHeader, 0, 0, 1, 1, 0, 0, false)
	grid.AddItem(c.form, 1, 0, 1, 1, 0, 0, true)

	return grid
}

func (c *Controller) initFormHeader() {
	c.formHeader = tview.NewTable().SetBorders(false).SetSelectable(false, false)
	row := 1

	for key, event := range c.formEvents {
		text := fmt.Sprintf("[orange]<%s>[white] %s", keyName(key), event.Description)
		c.formHeader.SetCell(row, 0, tview.NewTableCell(text))
		row++
	}
}

func (c *Controller) setFormTitle(title string) {
	c.formHeader.SetCell(0, 0, tview.NewTableCell(fmt.Sprintf("[yellow]%s", title)))
}

func (c *Controller) showForm(title string) {
	c.setFormTitle(title)
	c.form.SetFocus(0)
	c.pages.SwitchToPage(pageForm)
	c.app.SetInputCapture(c.handleFormKeys)
}

func (c *Controller) switchToBoard() {
	c.form.Clear(true)
	c.pages.SwitchToPage(pageBoard)
	c.app.SetInputCapture(c.handleKeys)
	c.refresh()
}

func (c *Controller) handleFormKeys(evt *tcell.EventKey) *tcell.EventKey {
	if k, ok := c.formEvents[AsKey(evt)]; ok {
		return k.Action(evt)
	}

	return evt
}

// switchToCardForm opens the card form. A nil card creates a new card in the selected list.
func (c *Controller) switchToCardForm(card *board.Card) {
	col := c.currentColumn()
	if card == nil && col == nil {
		return
	}

	var title, text, due string

	if card != nil {
		title = "Edit Card"
		text = card.Text

		if card.DueAt != nil {
			due = card.DueAt.Format(dueFormat)
		}
	} else {
		title = fmt.Sprintf("New Card in %s", tview.Escape(col.list.Title))
	}

	c.form.Clear(true)
	c.form.
		AddInputField("Text", text, textMax, nil, nil).
		AddInputField("Due (YYYY-MM-DD)", due, len(dueFormat), nil, nil)

	textField, _ := c.form.GetFormItemByLabel("Text").(*tview.InputField)
	dueField, _ := c.form.GetFormItemByLabel("Due (YYYY-MM-DD)").(*tview.InputField)

	// copy what the save button needs; the column slice is rebuilt on every refresh
	var cardID, listID board.ID
	if card != nil {
		cardID = card.ID
	} else {
		listID = col.list.ID
	}

	c.form.AddButton("Save", func() {
		text := strings.TrimSpace(textField.GetText())
		if text == "" {
			c.notify(errors.New("card text must not be empty"))

			return
		}

		dueAt, err := parseDue(dueField.GetText())
		if err != nil {
			c.notify(err)

			return
		}

		log.Debug().Str("card", string(cardID)).Str("list", string(listID)).Msgf("saving card '%s'", text)

		if cardID == "" {
			c.run("create card", func(ctx context.Context) error {
				_, err := c.backend.CreateCard(ctx, api.NewCard{ListID: listID, Text: text, DueAt: dueAt})

				return err
			})
		} else {
			c.run("update card", func(ctx context.Context) error {
				return c.backend.UpdateCard(ctx, cardID, api.CardUpdate{Text: &text, DueAt: dueAt})
			})
		}

		c.switchToBoard()
	})

	c.showForm(title)
}

// switchToListForm opens the list form. A nil list creates a new list.
func (c *Controller) switchToListForm(list *board.List) {
	title := "New List"
	current := ""

	var listID board.ID

	if list != nil {
		title = "Rename List"
		current = list.Title
		listID = list.ID
	}

	c.form.Clear(true)
	c.form.AddInputField("Title", current, titleMax, nil, nil)

	titleField, _ := c.form.GetFormItemByLabel("Title").(*tview.InputField)

	c.form.AddButton("Save", func() {
		name := strings.TrimSpace(titleField.GetText())
		if name == "" {
			c.notify(errors.New("list title must not be empty"))

			return
		}

		if listID == "" {
			c.run("create list", func(ctx context.Context) error {
				_, err := c.backend.CreateList(ctx, name)

				return err
			})
		} else {
			c.run("rename list", func(ctx context.Context) error {
				return c.backend.RenameList(ctx, listID, name)
			})
		}

		c.switchToBoard()
	})

	c.showForm(title)
}

// parseDue reads an optional due date in the form's date format.
func parseDue(text string) (*time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	due, err := time.ParseInLocation(dueFormat, text, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q, expected YYYY-MM-DD", text)
	}

	return &due, nil
}
