package controller

import (
	"context"
	"errors"

	"github.com/gdamore/tcell/v2"
	"github.com/matt-steen/todo-board/pkg/api"
	"github.com/matt-steen/todo-board/pkg/board"
	"github.com/rs/zerolog/log"
)

func (c *Controller) initEvents() {
	c.events = map[tcell.Key]KeyEvent{}
	c.dragEvents = map[tcell.Key]KeyEvent{}
	c.formEvents = map[tcell.Key]KeyEvent{}

	c.initCursorEvents(c.events)
	c.initEditEvents(c.events)
	c.initDragEvents(c.events, c.dragEvents)
	c.initFormEvents(c.formEvents)

	c.initExitEvent(c.events)
	c.initExitEvent(c.dragEvents)
}

func (c *Controller) getExitAction() func(key *tcell.EventKey) *tcell.EventKey {
	return func(key *tcell.EventKey) *tcell.EventKey {
		log.Info().Msg("terminating application")

		c.app.Stop()

		return nil
	}
}

func (c *Controller) initExitEvent(events map[tcell.Key]KeyEvent) {
	events[KeyQ] = KeyEvent{
		Description: "Quit",
		Action:      c.getExitAction(),
	}
}

// getCursorAction moves the cursor; during a drag it also moves the hovered drop slot.
func (c *Controller) getCursorAction(dCol, dRow int) func(key *tcell.EventKey) *tcell.EventKey {
	return func(key *tcell.EventKey) *tcell.EventKey {
		dragging := c.mode == modeDrag
		c.cursor = c.cursor.move(c.sizes(), dCol, dRow, dragging)

		if dragging {
			if col := c.currentColumn(); col != nil {
				c.board.HoverDrag(col.list.ID, c.cursor.row)
			}
		} else {
			c.rememberSelectedCard()
		}

		c.drawColumns()

		return nil
	}
}

func (c *Controller) initCursorEvents(events map[tcell.Key]KeyEvent) {
	events[tcell.KeyUp] = KeyEvent{Description: "Select up", Action: c.getCursorAction(0, -1)}
	events[tcell.KeyDown] = KeyEvent{Description: "Select down", Action: c.getCursorAction(0, 1)}
	events[tcell.KeyLeft] = KeyEvent{Description: "Select left", Action: c.getCursorAction(-1, 0)}
	events[tcell.KeyRight] = KeyEvent{Description: "Select right", Action: c.getCursorAction(1, 0)}
}

func (c *Controller) getPickUpAction() func(key *tcell.EventKey) *tcell.EventKey {
	return func(key *tcell.EventKey) *tcell.EventKey {
		card := c.currentCard()
		if card == nil || !c.board.StartDrag(card.ID) {
			return nil
		}

		c.mode = modeDrag
		c.selectedCard = card.ID

		// start with the slot the card occupies, so dropping straight away changes nothing
		c.board.HoverDrag(card.ListID, c.cursor.row)
		c.drawColumns()

		return nil
	}
}

func (c *Controller) getDropAction() func(key *tcell.EventKey) *tcell.EventKey {
	return func(key *tcell.EventKey) *tcell.EventKey {
		drop, ok := c.board.EndDrag()

		c.mode = modeBoard
		c.refresh()

		if !ok {
			return nil
		}

		go func() {
			_, err := c.board.Move(c.ctx, drop.CardID, drop.To.ListID, drop.To.Index)
			if err != nil && !errors.Is(err, board.ErrPersist) && !errors.Is(err, board.ErrSuperseded) {
				log.Error().Err(err).Msg("error dropping card")
			}
		}()

		return nil
	}
}

func (c *Controller) getCancelAction() func(key *tcell.EventKey) *tcell.EventKey {
	return func(key *tcell.EventKey) *tcell.EventKey {
		c.board.CancelDrag()
		c.mode = modeBoard
		c.refresh()

		return nil
	}
}

func (c *Controller) initDragEvents(events, dragEvents map[tcell.Key]KeyEvent) {
	events[KeySpace] = KeyEvent{
		Description: "Pick up card",
		Action:      c.getPickUpAction(),
	}

	c.initCursorEvents(dragEvents)

	for key, event := range dragEvents {
		event.Description = "Move drop target"
		dragEvents[key] = event
	}

	dragEvents[tcell.KeyEnter] = KeyEvent{
		Description: "Drop card",
		Action:      c.getDropAction(),
	}

	dragEvents[tcell.KeyEscape] = KeyEvent{
		Description: "Cancel drag",
		Action:      c.getCancelAction(),
	}
}

func (c *Controller) getToggleDoneAction() func(key *tcell.EventKey) *tcell.EventKey {
	return func(key *tcell.EventKey) *tcell.EventKey {
		card := c.currentCard()
		if card == nil {
			return nil
		}

		id := card.ID
		done := !card.Done

		c.run("update card", func(ctx context.Context) error {
			return c.backend.UpdateCard(ctx, id, api.CardUpdate{Done: &done})
		})

		return nil
	}
}

func (c *Controller) getDeleteCardAction() func(key *tcell.EventKey) *tcell.EventKey {
	return func(key *tcell.EventKey) *tcell.EventKey {
		card := c.currentCard()
		if card == nil {
			return nil
		}

		id := card.ID

		c.confirm("Delete card \""+card.Text+"\"?", func() {
			c.run("delete card", func(ctx context.Context) error {
				return c.backend.DeleteCard(ctx, id)
			})
		})

		return nil
	}
}

func (c *Controller) getDeleteListAction() func(key *tcell.EventKey) *tcell.EventKey {
	return func(key *tcell.EventKey) *tcell.EventKey {
		col := c.currentColumn()
		if col == nil {
			return nil
		}

		id := col.list.ID

		c.confirm("Delete list \""+col.list.Title+"\" and its cards?", func() {
			c.run("delete list", func(ctx context.Context) error {
				return c.backend.DeleteList(ctx, id)
			})
		})

		return nil
	}
}

func (c *Controller) getReloadAction() func(key *tcell.EventKey) *tcell.EventKey {
	return func(key *tcell.EventKey) *tcell.EventKey {
		c.run("reload", func(context.Context) error { return nil })

		return nil
	}
}

func (c *Controller) initEditEvents(events map[tcell.Key]KeyEvent) {
	events[KeyN] = KeyEvent{
		Description: "New card",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.switchToCardForm(nil)

			return nil
		},
	}

	events[KeyE] = KeyEvent{
		Description: "Edit card",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			if card := c.currentCard(); card != nil {
				c.switchToCardForm(card)
			}

			return nil
		},
	}

	events[KeyShiftN] = KeyEvent{
		Description: "New list",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			c.switchToListForm(nil)

			return nil
		},
	}

	events[KeyR] = KeyEvent{
		Description: "Rename list",
		Action: func(key *tcell.EventKey) *tcell.EventKey {
			if col := c.currentColumn(); col != nil {
				c.switchToListForm(&col.list)
			}

			return nil
		},
	}

	events[KeyX] = KeyEvent{Description: "Toggle done", Action: c.getToggleDoneAction()}
	events[KeyD] = KeyEvent{Description: "Delete card", Action: c.getDeleteCardAction()}
	events[KeyShiftD] = KeyEvent{Description: "Delete list", Action: c.getDeleteListAction()}
	events[KeyG] = KeyEvent{Description: "Reload", Action: c.getReloadAction()}
}
