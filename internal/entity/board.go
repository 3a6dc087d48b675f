package entity

const (
	GridRows = 6
	GridCols = 7
)

const (
	Empty  = "."
	PieceA = "X"
	PieceB = "O"
)

// runLength is how many aligned pieces win the game.
const runLength = 4

// Board is the 6x7 connect-four grid. It carries no lock of its own: a board
// is owned by exactly one session and mutated only under that session's lock.
type Board struct {
	cells [GridRows][GridCols]string
}

func NewBoard() *Board {
	board := &Board{}
	board.Reset()

	return board
}

// Reset - sets every cell back to Empty.
func (that *Board) Reset() {
	for r := 0; r < GridRows; r++ {
		for c := 0; c < GridCols; c++ {
			that.cells[r][c] = Empty
		}
	}
}

// Drop - places a piece in the lowest empty cell of the column and returns the
// row it landed in. Returns -1 when the column is out of range or full; the
// distinction does not matter to any caller.
func (that *Board) Drop(column int, piece string) int {
	if column < 0 || column >= GridCols {
		return -1
	}

	for r := GridRows - 1; r >= 0; r-- {
		if that.cells[r][column] == Empty {
			that.cells[r][column] = piece
			return r
		}
	}

	return -1
}

// HasRun - reports whether the piece has four in a row anywhere on the grid.
// Each origin is scanned one-sided in four directions; every run is found from
// its leftmost/topmost cell, so scanning the opposite directions is redundant.
func (that *Board) HasRun(piece string) bool {
	directions := [4][2]int{
		{0, 1},  // east
		{1, 0},  // south
		{1, 1},  // south-east
		{1, -1}, // south-west
	}

	for r := 0; r < GridRows; r++ {
		for c := 0; c < GridCols; c++ {
			for _, d := range directions {
				if that.runFrom(r, c, d[0], d[1], piece) >= runLength {
					return true
				}
			}
		}
	}

	return false
}

// runFrom - counts consecutive cells holding piece starting at (row, column)
// and stepping by (dr, dc), stopping at the first mismatch or the grid edge.
func (that *Board) runFrom(row, column, dr, dc int, piece string) int {
	count := 0
	for i := 0; i < runLength; i++ {
		r := row + i*dr
		c := column + i*dc

		if r < 0 || r >= GridRows || c < 0 || c >= GridCols {
			break
		}

		if that.cells[r][c] != piece {
			break
		}

		count++
	}

	return count
}

// IsFull - true when the top row has no empty cell. With gravity fill that is
// equivalent to every column being full.
func (that *Board) IsFull() bool {
	for c := 0; c < GridCols; c++ {
		if that.cells[0][c] == Empty {
			return false
		}
	}

	return true
}

// Cells - returns a copy of the grid for rendering and snapshots.
func (that *Board) Cells() [GridRows][GridCols]string {
	return that.cells
}
