package controller

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
)

func TestCursorMoveStaysOnCards(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	sizes := []int{3, 0, 1}

	c := cursor{}.move(sizes, 0, 5, false)
	assert.Equal(cursor{col: 0, row: 2}, c)

	c = c.move(sizes, 0, -10, false)
	assert.Equal(cursor{col: 0, row: 0}, c)

	c = c.move(sizes, 1, 0, false)
	assert.Equal(cursor{col: 1, row: 0}, c, "an empty column still takes the cursor")

	c = c.move(sizes, 5, 0, false)
	assert.Equal(cursor{col: 2, row: 0}, c)

	c = c.move(sizes, -5, 0, false)
	assert.Equal(cursor{col: 0, row: 0}, c)
}

func TestCursorMoveReachesEndSlot(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	sizes := []int{3, 0}

	c := cursor{col: 0, row: 2}.move(sizes, 0, 1, true)
	assert.Equal(cursor{col: 0, row: 3}, c)

	c = c.move(sizes, 0, 1, true)
	assert.Equal(cursor{col: 0, row: 3}, c)

	c = c.move(sizes, 1, 0, true)
	assert.Equal(cursor{col: 1, row: 0}, c)
}

func TestCursorClampOnShrinkingBoard(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	assert.Equal(cursor{}, cursor{col: 3, row: 4}.clamp(nil, false))
	assert.Equal(cursor{col: 1, row: 1}, cursor{col: 3, row: 4}.clamp([]int{5, 2}, false))
	assert.Equal(cursor{col: 1, row: 2}, cursor{col: 3, row: 4}.clamp([]int{5, 2}, true))
}

func TestKeyNames(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	assert.Equal("Space", keyName(KeySpace))
	assert.Equal("D", keyName(KeyShiftD))
	assert.Equal("x", keyName(KeyX))
	assert.Equal("Enter", keyName(tcell.KeyEnter))
}

func TestParseDue(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	due, err := parseDue("  ")
	assert.NoError(err)
	assert.Nil(due)

	due, err = parseDue("2024-03-01")
	if assert.NoError(err) && assert.NotNil(due) {
		assert.Equal("2024-03-01", due.Format(dueFormat))
	}

	_, err = parseDue("next tuesday")
	assert.Error(err)
}
