package tui_test

import (
	"strings"
	"testing"

	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/canvas"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellConversion(t *testing.T) {
	p := tui.CellToPoint(40, 2)
	assert.Equal(t, domain.Position{X: 405, Y: 62.5}, p)

	col, row := tui.PointToCell(domain.Position{X: 400, Y: 50})
	assert.Equal(t, 40, col)
	assert.Equal(t, 2, row)

	col, row = tui.PointToCell(domain.Position{X: -5, Y: -1})
	assert.Equal(t, -1, col)
	assert.Equal(t, -1, row)
}

func TestDrawCanvas(t *testing.T) {
	tree := domain.NewTree()
	tree.Add(domain.Node{ID: "r", Question: "root", Answer: "a", Seq: 1})
	tree.Add(domain.Node{ID: "c", ParentID: "r", Question: "child", Seq: 2})
	idx := domain.NewIndex(tree)
	s := canvas.Reduce(canvas.NewState(), canvas.TreeReplaced{Index: idx, Positions: layout.Compute(idx, nil)})

	out := tui.DrawCanvas(idx, s, 80, 14, tui.DefaultStyles())
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 14)

	// Root box occupies rows 2-4 from column 40, the child rows 8-10.
	assert.Equal(t, "╭", string([]rune(lines[2])[40]))
	assert.Contains(t, lines[3], "│ root")
	assert.Contains(t, lines[9], "│ child")
	// Connector runs down column 50 between the boxes.
	for _, row := range []int{5, 6, 7} {
		assert.Equal(t, "│", string([]rune(lines[row])[50]), "row %d", row)
	}
}

func TestDrawCanvas_PanAndClipping(t *testing.T) {
	tree := domain.NewTree()
	tree.Add(domain.Node{ID: "r", Question: "root", Seq: 1})
	idx := domain.NewIndex(tree)
	s := canvas.Reduce(canvas.NewState(), canvas.TreeReplaced{Index: idx, Positions: layout.Compute(idx, nil)})
	s = canvas.Reduce(s, canvas.PannedBy{Delta: domain.Position{X: -390, Y: -50}})

	out := tui.DrawCanvas(idx, s, 30, 4, tui.DefaultStyles())
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "╭", string([]rune(lines[0])[1]))

	// Nothing on screen at all.
	s = canvas.Reduce(s, canvas.PannedBy{Delta: domain.Position{X: -5000}})
	out = tui.DrawCanvas(idx, s, 30, 4, tui.DefaultStyles())
	assert.Empty(t, strings.TrimSpace(out))
}

func TestDrawCanvas_FarConnectorsAreClipped(t *testing.T) {
	tree := domain.NewTree()
	tree.Add(domain.Node{ID: "r", Question: "root", Seq: 1})
	tree.Add(domain.Node{ID: "down", ParentID: "r", Question: "far below", Seq: 2})
	tree.Add(domain.Node{ID: "left", ParentID: "r", Question: "far left", Seq: 3})
	idx := domain.NewIndex(tree)
	s := canvas.Reduce(canvas.NewState(), canvas.TreeReplaced{Index: idx, Positions: map[domain.NodeID]domain.Position{
		"r":    {X: 400, Y: 50},
		"down": {X: 400, Y: 1e15},
		"left": {X: -1e15, Y: 200},
	}})

	out := tui.DrawCanvas(idx, s, 80, 14, tui.DefaultStyles())
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 14)

	// The downward connector runs off the bottom edge.
	for row := 8; row < 14; row++ {
		assert.Equal(t, "│", string([]rune(lines[row])[50]), "row %d", row)
	}
	// The leftward one turns at row 6 and runs off the left edge.
	assert.Equal(t, "─", string([]rune(lines[6])[0]))
	assert.Equal(t, "─", string([]rune(lines[6])[49]))
	assert.NotContains(t, out, "far")
}
