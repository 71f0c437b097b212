package cli

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/matt-steen/todo-board/pkg/board"
	"github.com/spf13/cobra"
)

func newMoveCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "move <card-id> <list-id> <index>",
		Short: "Move a card to a slot of a list",
		Long: `Move a card to index within a list and save the new order.

The index counts slots before the card is taken out: moving a card to
the slot right after itself changes nothing. Indexes past the end of
the list are clamped.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[2], err)
			}

			b := board.New(e.client())
			if err := b.Load(cmd.Context()); err != nil {
				return err
			}

			cardID, listID := board.ID(args[0]), board.ID(args[1])

			snap := b.Snapshot()

			if snap.FindList(listID) == nil {
				return fmt.Errorf("list %s not found", listID)
			}

			if !slices.ContainsFunc(snap.Cards, func(c board.Card) bool { return c.ID == cardID }) {
				return fmt.Errorf("card %s not found", cardID)
			}

			moved, err := b.Move(cmd.Context(), cardID, listID, index)
			if err != nil {
				return err
			}

			if !moved {
				fmt.Fprintln(cmd.OutOrStdout(), "no change")

				return nil
			}

			return printBoard(cmd, b)
		},
	}
}
