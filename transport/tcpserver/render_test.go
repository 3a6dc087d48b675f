package tcpserver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pressplayinc/connectfour-backend/internal/entity"
)

func TestSplitCommand(t *testing.T) {
	t.Run("Command word is lower-cased, argument kept verbatim", func(t *testing.T) {
		command, arg := splitCommand("ACCEPT Alice")

		assert.Equal(t, "accept", command)
		assert.Equal(t, "Alice", arg)
	})

	t.Run("Bare command has an empty argument", func(t *testing.T) {
		command, arg := splitCommand("grid")

		assert.Equal(t, "grid", command)
		assert.Empty(t, arg)
	})
}

func TestRenderGrid(t *testing.T) {
	// Given: a board with one piece dropped in the first column
	board := entity.NewBoard()
	board.Drop(0, entity.PieceA)

	// When: rendering
	out := renderGrid(board.Cells())

	// Then: the piece sits on the lowest printed row
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Contains(t, lines[0], "1 2 3 4 5 6 7")

	bottom := lines[len(lines)-2]
	assert.Contains(t, bottom, entity.PieceA)

	top := lines[2]
	assert.NotContains(t, top, entity.PieceA)
}

func TestDescribeState(t *testing.T) {
	assert.Equal(t, "Waiting for players", describeState(entity.StatusWaiting))
	assert.Equal(t, "In progress", describeState(entity.StatusInProgress))
	assert.Equal(t, "Finished", describeState(entity.StatusFinished))
}
