// Package layout converts a parent-pointer conversation tree into canvas
// coordinates.
//
// Each root gets a horizontal band as wide as its subtree; children are
// spread left to right below their parent, one row per depth. Nodes that
// already have a position (typically because the user dragged them) keep it,
// and their descendants are laid out relative to where they actually are.
package layout

import "github.com/aretw0/arbor/pkg/domain"

// Spacing constants, in canvas units.
const (
	// UnitX is the horizontal band reserved per leaf slot of a root.
	UnitX = 400.0
	// UnitXChild is the horizontal spacing per leaf slot inside a subtree.
	UnitXChild = 350.0
	// UnitY is the vertical distance between a parent and its children.
	UnitY = 150.0
	// OriginX and OriginY are where the first root is placed.
	OriginX = 400.0
	OriginY = 50.0
)

// Layout computes positions for every reachable node of tree.
// Positions found in prev are reused verbatim. It never returns nil.
func Layout(tree *domain.Tree, prev domain.Positions) domain.Positions {
	return Compute(domain.NewIndex(tree), prev)
}

// Compute is Layout over a prebuilt index.
func Compute(idx *domain.Index, prev domain.Positions) domain.Positions {
	p := &pass{
		idx:     idx,
		prev:    prev,
		out:     make(domain.Positions, idx.Len()),
		widths:  make(map[domain.NodeID]int, idx.Len()),
		visited: make(map[domain.NodeID]bool, idx.Len()),
	}

	cursor := OriginX
	for _, root := range idx.Roots() {
		p.place(root, domain.Position{X: cursor, Y: OriginY})
		cursor += float64(p.width(root)) * UnitX
	}
	return p.out
}

// Width returns the subtree width of id: 1 for a leaf, otherwise the sum of
// its children's widths.
func Width(idx *domain.Index, id domain.NodeID) int {
	p := &pass{idx: idx, widths: make(map[domain.NodeID]int)}
	return p.width(id)
}

type pass struct {
	idx     *domain.Index
	prev    domain.Positions
	out     domain.Positions
	widths  map[domain.NodeID]int
	visited map[domain.NodeID]bool
}

func (p *pass) width(id domain.NodeID) int {
	if w, ok := p.widths[id]; ok {
		return w
	}
	children := p.idx.Children(id)
	w := 0
	if len(children) == 0 {
		w = 1
	}
	// Seed before recursing so a malformed index cannot recurse forever.
	p.widths[id] = 1
	for _, c := range children {
		w += p.width(c)
	}
	p.widths[id] = w
	return w
}

func (p *pass) place(id domain.NodeID, at domain.Position) {
	if p.visited[id] {
		return
	}
	p.visited[id] = true

	if kept, ok := p.prev[id]; ok {
		at = kept
	}
	p.out[id] = at

	children := p.idx.Children(id)
	if len(children) == 0 {
		return
	}

	span := float64(len(children)) * UnitXChild
	used := 0.0
	for _, c := range children {
		w := float64(p.width(c)) * UnitXChild
		center := used + w/2
		p.place(c, domain.Position{X: at.X - span/2 + center, Y: at.Y + UnitY})
		used += w
	}
}
