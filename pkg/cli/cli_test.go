package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/matt-steen/todo-board/pkg/api"
	"github.com/matt-steen/todo-board/pkg/board"
	"github.com/matt-steen/todo-board/pkg/db"
	"github.com/matt-steen/todo-board/pkg/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests replace the global logger through the root command, so they do not run in parallel.

type testBackend struct {
	url      string
	database *db.Database
	todo     board.ID
	done     board.ID
}

func setupBackend(t *testing.T) *testBackend {
	t.Helper()

	ctx := context.Background()

	database, err := db.NewDatabase(ctx, filepath.Join(t.TempDir(), "cli.sqlite"))
	require.NoError(t, err)

	ts := httptest.NewServer(server.New(database, "/api/kanban"))

	t.Cleanup(func() {
		ts.Close()
		database.Close()
	})

	snap, err := database.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Lists, 3)

	return &testBackend{
		url:      ts.URL + "/api/kanban",
		database: database,
		todo:     snap.Lists[0].ID,
		done:     snap.Lists[2].ID,
	}
}

func (b *testBackend) addCards(t *testing.T, texts ...string) []board.ID {
	t.Helper()

	ids := []board.ID{}

	for _, text := range texts {
		card, err := b.database.NewTask(context.Background(), b.todo, text, nil)
		require.NoError(t, err)

		ids = append(ids, card.ID)
	}

	return ids
}

func (b *testBackend) texts(t *testing.T, listID board.ID) []string {
	t.Helper()

	snap, err := b.database.Snapshot(context.Background())
	require.NoError(t, err)

	texts := []string{}
	for _, card := range snap.CardsIn(listID) {
		texts = append(texts, card.Text)
	}

	return texts
}

func execute(t *testing.T, b *testBackend, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := NewRootCommand("test")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{
		"--url", b.url,
		"--log-file", filepath.Join(t.TempDir(), "cli.log"),
		"--debug",
	}, args...))

	err := root.Execute()

	return out.String(), err
}

func TestShow(t *testing.T) {
	assert := assert.New(t)

	b := setupBackend(t)
	b.addCards(t, "write tests", "ship it")

	out, err := execute(t, b, "show")
	require.NoError(t, err)

	assert.Contains(out, "To Do")
	assert.Contains(out, "Doing")
	assert.Contains(out, "Done")
	assert.Contains(out, "[ ] write tests")
	assert.Less(bytes.Index([]byte(out), []byte("write tests")), bytes.Index([]byte(out), []byte("ship it")))
}

func TestMoveWithinList(t *testing.T) {
	assert := assert.New(t)

	b := setupBackend(t)
	ids := b.addCards(t, "a", "b", "c")

	out, err := execute(t, b, "move", string(ids[0]), string(b.todo), "3")
	require.NoError(t, err)

	assert.Contains(out, "To Do")
	assert.Equal([]string{"b", "c", "a"}, b.texts(t, b.todo))
}

func TestMoveAcrossLists(t *testing.T) {
	assert := assert.New(t)

	b := setupBackend(t)
	ids := b.addCards(t, "a", "b")

	_, err := execute(t, b, "move", string(ids[1]), string(b.done), "99")
	require.NoError(t, err)

	assert.Equal([]string{"a"}, b.texts(t, b.todo))
	assert.Equal([]string{"b"}, b.texts(t, b.done))
}

func TestMoveNoChange(t *testing.T) {
	assert := assert.New(t)

	b := setupBackend(t)
	ids := b.addCards(t, "a", "b")

	out, err := execute(t, b, "move", string(ids[0]), string(b.todo), "1")
	require.NoError(t, err)

	assert.Equal("no change\n", out)
	assert.Equal([]string{"a", "b"}, b.texts(t, b.todo))
}

func TestMoveRejectsBadArguments(t *testing.T) {
	assert := assert.New(t)

	b := setupBackend(t)
	ids := b.addCards(t, "a")

	_, err := execute(t, b, "move", string(ids[0]), string(b.todo), "first")
	assert.ErrorContains(err, "invalid index")

	_, err = execute(t, b, "move", string(ids[0]), "nope", "0")
	assert.ErrorContains(err, "list nope not found")

	_, err = execute(t, b, "move", "nope", string(b.todo), "0")
	assert.ErrorContains(err, "card nope not found")

	_, err = execute(t, b, "move", string(ids[0]))
	assert.Error(err)
}

func TestRootLaunchesTUI(t *testing.T) {
	assert := assert.New(t)

	b := setupBackend(t)

	var launched *api.Client

	launchTUIFunc = func(_ context.Context, client *api.Client) error {
		launched = client

		return nil
	}

	t.Cleanup(func() { launchTUIFunc = launchTUI })

	_, err := execute(t, b)
	require.NoError(t, err)
	assert.NotNil(launched)
}

func TestShowFailsWithoutBackend(t *testing.T) {
	b := setupBackend(t)
	b.url = "http://127.0.0.1:1/api/kanban"

	_, err := execute(t, b, "show")
	assert.ErrorContains(t, err, "error loading board")
}
