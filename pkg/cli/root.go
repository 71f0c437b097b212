// Package cli provides the todo-board command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/matt-steen/todo-board/pkg/api"
	"github.com/matt-steen/todo-board/pkg/config"
	"github.com/matt-steen/todo-board/pkg/controller"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	logFilePerms = 0o666
	// logToStderr as the log file sends logs to stderr instead of a file.
	logToStderr = "-"
)

// launchTUIFunc is replaced in tests so the root command does not take over the terminal.
var launchTUIFunc = launchTUI

// env is what every command gets after the persistent flags have been applied.
type env struct {
	configPath string
	url        string
	logFile    string
	debug      bool

	cfg     *config.Config
	closers []io.Closer
}

// NewRootCommand creates the todo-board root command. Without a subcommand it runs the board UI.
func NewRootCommand(version string) *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "todo-board",
		Short: "Kanban board in the terminal",
		Long: `todo-board shows a Kanban board from a REST backend and lets you
reorder cards by picking them up and dropping them in another slot.

Run "todo-board serve" for a local SQLite backend to try it against.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.load(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return e.close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return launchTUIFunc(cmd.Context(), e.client())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&e.configPath, "config", "", "config file (TOML, or YAML by extension)")
	flags.StringVar(&e.url, "url", "", "base URL of the board API")
	flags.StringVar(&e.logFile, "log-file", "", "log file, or - for stderr")
	flags.BoolVar(&e.debug, "debug", false, "log at debug level")

	root.AddCommand(
		newShowCommand(e),
		newMoveCommand(e),
		newServeCommand(e),
	)

	return root
}

// load reads the config, applies flag overrides and sets up logging.
func (e *env) load(cmd *cobra.Command) error {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return err
	}

	if e.url != "" {
		cfg.BaseURL = e.url
	}

	if e.logFile != "" {
		cfg.LogFile = e.logFile
	}

	if e.debug {
		cfg.LogLevel = zerolog.DebugLevel.String()
	}

	e.cfg = cfg

	return e.setupLogging(cmd.ErrOrStderr())
}

func (e *env) setupLogging(stderr io.Writer) error {
	out := stderr

	if e.cfg.LogFile != logToStderr {
		logFile, err := os.OpenFile(e.cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, fs.FileMode(logFilePerms))
		if err != nil {
			return fmt.Errorf("error opening log file: %w", err)
		}

		e.closers = append(e.closers, logFile)
		out = logFile
	}

	log.Logger = log.With().Caller().Logger().Output(zerolog.ConsoleWriter{
		Out: out, TimeFormat: "2006-01-02_15:04:05",
	})
	zerolog.SetGlobalLevel(e.cfg.Level())

	return nil
}

func (e *env) close() error {
	var errs []error

	for _, c := range e.closers {
		errs = append(errs, c.Close())
	}

	e.closers = nil

	return errors.Join(errs...)
}

func (e *env) client() *api.Client {
	return api.New(e.cfg.BaseURL,
		api.WithToken(e.cfg.Token),
		api.WithTimeout(time.Duration(e.cfg.Timeout)),
	)
}

func launchTUI(ctx context.Context, client *api.Client) error {
	log.Info().Msg("starting application...")

	c, err := controller.NewController(ctx, client)
	if err != nil {
		return err
	}

	return c.Go()
}
