package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/matt-steen/todo-board/pkg/board"
	"github.com/spf13/cobra"
)

func newShowCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the board",
		Long:  "Print every list and its cards in display order.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b := board.New(e.client())
			if err := b.Load(cmd.Context()); err != nil {
				return err
			}

			return printBoard(cmd, b)
		},
	}
}

func printBoard(cmd *cobra.Command, b *board.Board) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

	for i, list := range b.Lists() {
		if i > 0 {
			fmt.Fprintln(w)
		}

		cards := b.CardsIn(list.ID)

		fmt.Fprintf(w, "%s\t(%s)\t%d cards\n", list.Title, list.ID, len(cards))

		for _, card := range cards {
			check := "[ ]"
			if card.Done {
				check = "[x]"
			}

			due := ""
			if card.DueAt != nil {
				due = "due " + card.DueAt.Format("2006-01-02")
			}

			fmt.Fprintf(w, "  %d\t%s %s\t%s\t%s\n", card.Position, check, card.Text, card.ID, due)
		}
	}

	return w.Flush()
}
