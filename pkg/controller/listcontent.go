package controller

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matt-steen/todo-board/pkg/board"
	"github.com/rivo/tview"
)

const dueFormat = "2006-01-02"

// ListContent implements tview.TableContent, which tview.Table uses to draw one list's cards.
type ListContent struct {
	tview.TableContentReadOnly
	c   *Controller
	col int
}

func (l *ListContent) cards() []board.Card {
	if l.col >= len(l.c.columns) {
		return nil
	}

	return l.c.columns[l.col].cards
}

// markerRow returns the row of the drop marker in this list, or -1.
func (l *ListContent) markerRow() int {
	if l.c.mode != modeDrag || l.c.cursor.col != l.col {
		return -1
	}

	return l.c.cursor.row
}

// GetCell returns the cell at the given position or nil if no cell.
func (l *ListContent) GetCell(row, col int) *tview.TableCell {
	if col != 0 {
		return nil
	}

	cards := l.cards()
	marker := l.markerRow()

	if row == marker {
		return tview.NewTableCell("▶ drop here").SetTextColor(tcell.ColorGreen).SetExpansion(1)
	}

	idx := row
	if marker >= 0 && row > marker {
		idx--
	}

	if idx < 0 || idx >= len(cards) {
		return nil
	}

	card := cards[idx]

	check := "☐"
	if card.Done {
		check = "☑"
	}

	text := fmt.Sprintf("%s %s", check, tview.Escape(card.Text))
	if card.DueAt != nil {
		text += fmt.Sprintf(" [gray](due %s)", card.DueAt.Format(dueFormat))
	}

	cell := tview.NewTableCell(text).SetExpansion(1).SetReference(card.ID)

	switch {
	case l.c.mode == modeDrag && card.ID == l.c.board.Drag().CardID():
		cell.SetTextColor(tcell.ColorYellow)
	case l.c.mode == modeBoard && l.c.cursor.col == l.col && l.c.cursor.row == idx:
		cell.SetBackgroundColor(tcell.ColorDarkBlue)
	case card.Done:
		cell.SetTextColor(tcell.ColorGray)
	}

	return cell
}

// GetRowCount returns the number of rows in the table.
func (l *ListContent) GetRowCount() int {
	rows := len(l.cards())
	if l.markerRow() >= 0 {
		rows++
	}

	return rows
}

// GetColumnCount returns the number of columns in the table.
func (l *ListContent) GetColumnCount() int {
	return 1
}
