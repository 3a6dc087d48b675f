package tcpserver

import (
	"fmt"
	"strings"

	"github.com/pressplayinc/connectfour-backend/internal/entity"
)

// renderGrid draws the board top row first, so pieces pile up from the bottom,
// with a 1-based column ruler matching the wire protocol.
func renderGrid(cells [entity.GridRows][entity.GridCols]string) string {
	var builder strings.Builder

	builder.WriteString("\n  ")
	for c := 1; c <= entity.GridCols; c++ {
		builder.WriteString(fmt.Sprintf(" %d", c))
	}
	builder.WriteString("\n  +")
	builder.WriteString(strings.Repeat("--", entity.GridCols))
	builder.WriteString("+\n")

	for r := 0; r < entity.GridRows; r++ {
		builder.WriteString("  |")
		for c := 0; c < entity.GridCols; c++ {
			builder.WriteString(fmt.Sprintf(" %s", cells[r][c]))
		}
		builder.WriteString("|\n")
	}

	builder.WriteString("  +")
	builder.WriteString(strings.Repeat("--", entity.GridCols))
	builder.WriteString("+\n\n")

	return builder.String()
}

func describeState(state string) string {
	switch state {
	case entity.StatusWaiting:
		return "Waiting for players"
	case entity.StatusInProgress:
		return "In progress"
	case entity.StatusFinished:
		return "Finished"
	default:
		return state
	}
}
