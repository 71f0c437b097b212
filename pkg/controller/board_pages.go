package controller

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const (
	pageBoard   = "board"
	pageForm    = "form"
	pageConfirm = "confirm"
)

// getHeader returns the table of keyboard shortcuts shown above the board.
// The first column contains cursor and drag shortcuts, the second edit shortcuts and the third
// everything else. All three columns are sorted alphabetically.
func (c *Controller) getHeader(events map[tcell.Key]KeyEvent) *tview.Table {
	table := tview.NewTable().SetBorders(false).SetSelectable(false, false)

	shortcuts := map[int][]string{
		0: {},
		1: {},
		2: {},
	}

	for key, event := range events {
		text := fmt.Sprintf("[orange]<%s>[white] %s", keyName(key), event.Description)

		switch {
		case strings.HasPrefix(event.Description, "Select"), strings.HasPrefix(event.Description, "Pick"):
			shortcuts[0] = append(shortcuts[0], text)
		case strings.HasPrefix(event.Description, "New"),
			strings.HasPrefix(event.Description, "Edit"),
			strings.HasPrefix(event.Description, "Rename"),
			strings.HasPrefix(event.Description, "Delete"),
			strings.HasPrefix(event.Description, "Toggle"):
			shortcuts[1] = append(shortcuts[1], text)
		default:
			shortcuts[2] = append(shortcuts[2], text)
		}
	}

	for col := 0; col < 3; col++ {
		sort.Strings(shortcuts[col])

		for row, text := range shortcuts[col] {
			table.SetCell(row, col, tview.NewTableCell(text).SetExpansion(1))
		}
	}

	return table
}

// confirm asks a yes/no question in a modal and calls onYes if the answer is yes.
func (c *Controller) confirm(question string, onYes func()) {
	modal := tview.NewModal().
		SetText(question).
		AddButtons([]string{"Yes", "No"}).
		SetDoneFunc(func(_ int, label string) {
			c.pages.RemovePage(pageConfirm)
			c.app.SetInputCapture(c.handleKeys)

			if label == "Yes" {
				onYes()
			}
		})

	// the modal handles its own keys
	c.app.SetInputCapture(nil)
	c.pages.AddPage(pageConfirm, modal, false, true)
}
