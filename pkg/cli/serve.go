package cli

import (
	"fmt"
	"net/url"
	"os/signal"
	"syscall"

	"github.com/matt-steen/todo-board/pkg/db"
	"github.com/matt-steen/todo-board/pkg/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCommand(e *env) *cobra.Command {
	var listen, database string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local board backend",
		Long: `Serve the board REST API from a SQLite file.

Routes are mounted under the path of the configured base URL, so the
client finds them without extra settings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen == "" {
				listen = e.cfg.Listen
			}

			if database == "" {
				database = e.cfg.Database
			}

			base, err := url.Parse(e.cfg.BaseURL)
			if err != nil {
				return fmt.Errorf("invalid base url %q: %w", e.cfg.BaseURL, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := db.NewDatabase(ctx, database)
			if err != nil {
				return err
			}

			defer store.Close()

			log.Info().Str("listen", listen).Str("database", database).Str("prefix", base.Path).Msg("serving board")
			fmt.Fprintf(cmd.OutOrStdout(), "serving %s on %s\n", base.Path, listen)

			return server.New(store, base.Path).ListenAndServe(ctx, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default from config)")
	cmd.Flags().StringVar(&database, "database", "", "SQLite file (default from config)")

	return cmd
}
