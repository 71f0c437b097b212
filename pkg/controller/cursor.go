package controller

// cursor is a position on the board: a column and a row within it. Outside a drag the row is a
// card index; during a drag it is a slot index, which may equal the column's card count.
type cursor struct {
	col int
	row int
}

// move shifts the cursor and keeps it inside the board described by sizes (cards per column).
func (c cursor) move(sizes []int, dCol, dRow int, slots bool) cursor {
	return cursor{col: c.col + dCol, row: c.row + dRow}.clamp(sizes, slots)
}

func (c cursor) clamp(sizes []int, slots bool) cursor {
	if len(sizes) == 0 {
		return cursor{}
	}

	c.col = max(0, min(c.col, len(sizes)-1))

	last := sizes[c.col] - 1
	if slots {
		last = sizes[c.col]
	}

	c.row = max(0, min(c.row, last))

	return c
}
