package canvas

import "github.com/aretw0/arbor/pkg/domain"

// Node box size in canvas units. Positions are the top-left corner of the box.
const (
	NodeWidth  = 200.0
	NodeHeight = 70.0
)

// Line is a connection from a parent's bottom-center anchor to a child's
// top-center anchor, in screen space.
type Line struct {
	From, To domain.NodeID
	X1, Y1   float64
	X2, Y2   float64
}

// TopAnchor returns the top-center point of a box at p.
func TopAnchor(p domain.Position) domain.Position {
	return domain.Position{X: p.X + NodeWidth/2, Y: p.Y}
}

// BottomAnchor returns the bottom-center point of a box at p.
func BottomAnchor(p domain.Position) domain.Position {
	return domain.Position{X: p.X + NodeWidth/2, Y: p.Y + NodeHeight}
}

// Connections derives the lines to draw for the current state.
// Nodes without a resolvable parent position are skipped.
func Connections(idx *domain.Index, s State) []Line {
	var lines []Line
	for _, n := range idx.Nodes() {
		parent, ok := idx.Parent(n.ID)
		if !ok {
			continue
		}
		pp, ok := s.Position(parent)
		if !ok {
			continue
		}
		cp, ok := s.Position(n.ID)
		if !ok {
			continue
		}
		from, to := BottomAnchor(pp), TopAnchor(cp)
		lines = append(lines, Line{
			From: parent, To: n.ID,
			X1: from.X, Y1: from.Y,
			X2: to.X, Y2: to.Y,
		})
	}
	return lines
}

// HitTest returns the top-most node whose box contains the screen point.
// Nodes later in enumeration order are drawn on top.
func HitTest(idx *domain.Index, s State, screen domain.Position) (domain.NodeID, bool) {
	nodes := idx.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		p, ok := s.Position(nodes[i].ID)
		if !ok {
			continue
		}
		if screen.X >= p.X && screen.X <= p.X+NodeWidth &&
			screen.Y >= p.Y && screen.Y <= p.Y+NodeHeight {
			return nodes[i].ID, true
		}
	}
	return "", false
}

// Drawable returns reachable nodes that have a position, in draw order.
func Drawable(idx *domain.Index, s State) []*domain.Node {
	var out []*domain.Node
	for _, n := range idx.Nodes() {
		if _, ok := s.Positions[n.ID]; ok && idx.Reachable(n.ID) {
			out = append(out, n)
		}
	}
	return out
}
