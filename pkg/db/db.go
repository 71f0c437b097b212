package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/matt-steen/todo-board/pkg/board"
	// use the sqlite db driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

//go:embed base.sql
var baseSQL string

// ErrNotFound is returned when a list or task id does not exist.
var ErrNotFound = errors.New("not found")

// DefaultLists are created when the database has no lists yet.
func DefaultLists() []string {
	return []string{"To Do", "Doing", "Done"}
}

const timeFormat = time.RFC3339Nano

// Database stores a single board in sqlite.
type Database struct {
	conn *sql.DB
	now  func() time.Time
}

// TaskPatch holds the task fields to change; nil fields are left as they are.
type TaskPatch struct {
	ListID   *board.ID  `json:"listId,omitempty"`
	Position *int       `json:"position,omitempty"`
	Text     *string    `json:"text,omitempty"`
	Done     *bool      `json:"done,omitempty"`
	DueAt    *time.Time `json:"dueAt,omitempty"`
}

// NewDatabase connects to the sqlite database at the given filename, initializes the structure
// if not present, and seeds the default lists into an empty board.
func NewDatabase(ctx context.Context, filename string) (*Database, error) {
	conn, err := sql.Open("sqlite3", filename+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("error connecting to sqlite db at %s: %w", filename, err)
	}

	// sqlite allows a single writer; one connection keeps writes from failing with SQLITE_BUSY
	conn.SetMaxOpenConns(1)

	database := Database{
		conn: conn,
		now:  time.Now,
	}

	err = database.initialize(ctx)
	if err != nil {
		conn.Close()

		return nil, err
	}

	return &database, nil
}

func (d *Database) initialize(ctx context.Context) error {
	// run idempotent setup sql to create empty tables if they don't exist
	if _, err := d.conn.ExecContext(ctx, baseSQL); err != nil {
		return fmt.Errorf("error running base sql: %w", err)
	}

	var count int

	if err := d.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM list`).Scan(&count); err != nil {
		return fmt.Errorf("error counting lists: %w", err)
	}

	if count > 0 {
		return nil
	}

	for _, title := range DefaultLists() {
		if _, err := d.NewList(ctx, title); err != nil {
			return err
		}
	}

	log.Info().Int("lists", len(DefaultLists())).Msg("seeded empty board")

	return nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.conn.Close()
}

// Snapshot returns every list in rank order and every task in position order.
func (d *Database) Snapshot(ctx context.Context) (*board.Snapshot, error) {
	snap := &board.Snapshot{
		Lists: []board.List{},
		Cards: []board.Card{},
	}

	rows, err := d.conn.QueryContext(ctx, `SELECT id, title FROM list ORDER BY rank`)
	if err != nil {
		return nil, fmt.Errorf("error loading lists: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var list board.List

		if err := rows.Scan(&list.ID, &list.Title); err != nil {
			return nil, fmt.Errorf("error scanning list: %w", err)
		}

		snap.Lists = append(snap.Lists, list)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error scanning lists: %w", err)
	}

	taskSQL := `SELECT id, list_id, text, done, due_datetime, position, created_datetime
				FROM task
				ORDER BY list_id, position, created_datetime`

	taskRows, err := d.conn.QueryContext(ctx, taskSQL)
	if err != nil {
		return nil, fmt.Errorf("error loading tasks: %w", err)
	}
	defer taskRows.Close()

	for taskRows.Next() {
		var card board.Card

		var due sql.NullString

		err := taskRows.Scan(&card.ID, &card.ListID, &card.Text, &card.Done, &due, &card.Position, &card.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning task: %w", err)
		}

		if due.Valid {
			t, err := time.Parse(timeFormat, due.String)
			if err != nil {
				log.Warn().Err(err).Str("task", string(card.ID)).Msg("ignoring malformed due date")
			} else {
				card.DueAt = &t
			}
		}

		snap.Cards = append(snap.Cards, card)
	}

	if err = taskRows.Err(); err != nil {
		return nil, fmt.Errorf("error scanning tasks: %w", err)
	}

	return snap, nil
}

// NewList creates a list after the existing ones.
func (d *Database) NewList(ctx context.Context, title string) (*board.List, error) {
	list := &board.List{ID: board.ID(uuid.NewString()), Title: title}

	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO list (id, title, rank, created_datetime)
		     VALUES ($1, $2, (SELECT COALESCE(MAX(rank) + 1, 0) FROM list), $3)`,
		list.ID, list.Title, d.now().UTC().Format(timeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("error adding list %s: %w", title, err)
	}

	return list, nil
}

// RenameList changes a list's title.
func (d *Database) RenameList(ctx context.Context, id board.ID, title string) error {
	result, err := d.conn.ExecContext(ctx, `UPDATE list SET title = $1 WHERE id = $2`, title, id)
	if err != nil {
		return fmt.Errorf("error renaming list %s: %w", id, err)
	}

	return expectOne(result, "list", id)
}

// DeleteList removes a list along with its tasks.
func (d *Database) DeleteList(ctx context.Context, id board.ID) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM task WHERE list_id = $1`, id); err != nil {
			return fmt.Errorf("error deleting tasks of list %s: %w", id, err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM list WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("error deleting list %s: %w", id, err)
		}

		return expectOne(result, "list", id)
	})
}

// NewTask creates a task at the end of the given list.
func (d *Database) NewTask(ctx context.Context, listID board.ID, text string, dueAt *time.Time) (*board.Card, error) {
	now := d.now().UTC().Format(timeFormat)
	card := &board.Card{
		ID:        board.ID(uuid.NewString()),
		ListID:    listID,
		Text:      text,
		DueAt:     dueAt,
		CreatedAt: board.Timestamp(now),
	}

	err := d.inTx(ctx, func(tx *sql.Tx) error {
		if err := listExists(ctx, tx, listID); err != nil {
			return err
		}

		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM task WHERE list_id = $1`, listID).Scan(&card.Position)
		if err != nil {
			return fmt.Errorf("error counting tasks of list %s: %w", listID, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO task (id, list_id, text, done, due_datetime, position, created_datetime, updated_datetime)
			     VALUES ($1, $2, $3, 0, $4, $5, $6, $6)`,
			card.ID, card.ListID, card.Text, formatDue(dueAt), card.Position, now,
		)
		if err != nil {
			return fmt.Errorf("error adding task: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return card, nil
}

// UpdateTask applies a patch to a task.
func (d *Database) UpdateTask(ctx context.Context, id board.ID, patch TaskPatch) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		var exists int

		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM task WHERE id = $1`, id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("error looking up task %s: %w", id, err)
		}

		if exists == 0 {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}

		if patch.ListID != nil {
			if err := listExists(ctx, tx, *patch.ListID); err != nil {
				return err
			}
		}

		sets := []struct {
			column string
			value  any
			apply  bool
		}{
			{"list_id", patch.ListID, patch.ListID != nil},
			{"position", patch.Position, patch.Position != nil},
			{"text", patch.Text, patch.Text != nil},
			{"done", patch.Done, patch.Done != nil},
			{"due_datetime", formatDue(patch.DueAt), patch.DueAt != nil},
		}

		for _, set := range sets {
			if !set.apply {
				continue
			}

			// column names come from the fixed table above, never from input
			query := fmt.Sprintf(`UPDATE task SET %s = $1, updated_datetime = $2 WHERE id = $3`, set.column)

			if _, err := tx.ExecContext(ctx, query, set.value, d.now().UTC().Format(timeFormat), id); err != nil {
				return fmt.Errorf("error updating %s of task %s: %w", set.column, id, err)
			}
		}

		return nil
	})
}

// DeleteTask removes a task.
func (d *Database) DeleteTask(ctx context.Context, id board.ID) error {
	result, err := d.conn.ExecContext(ctx, `DELETE FROM task WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting task %s: %w", id, err)
	}

	return expectOne(result, "task", id)
}

func (d *Database) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("error rolling back transaction")
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

func listExists(ctx context.Context, tx *sql.Tx, id board.ID) error {
	var count int

	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM list WHERE id = $1`, id).Scan(&count); err != nil {
		return fmt.Errorf("error looking up list %s: %w", id, err)
	}

	if count == 0 {
		return fmt.Errorf("list %s: %w", id, ErrNotFound)
	}

	return nil
}

func expectOne(result sql.Result, kind string, id board.ID) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking %s %s: %w", kind, id, err)
	}

	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}

	return nil
}

func formatDue(t *time.Time) any {
	if t == nil {
		return nil
	}

	return t.UTC().Format(timeFormat)
}
