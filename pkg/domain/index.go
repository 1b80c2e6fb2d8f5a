package domain

// Index is a parent -> children lookup over a Tree snapshot.
// Build it once per Tree replacement; it does not observe later mutations.
type Index struct {
	tree      *Tree
	order     []*Node
	roots     []NodeID
	children  map[NodeID][]NodeID
	reachable map[NodeID]bool
	orphans   []NodeID
}

// NewIndex builds the structural index of t. A nil tree yields an empty index.
func NewIndex(t *Tree) *Index {
	if t == nil {
		t = NewTree()
	}
	idx := &Index{
		tree:      t,
		order:     t.Ordered(),
		children:  make(map[NodeID][]NodeID),
		reachable: make(map[NodeID]bool, t.Len()),
	}

	for _, n := range idx.order {
		switch {
		case n.ParentID.IsRoot():
			idx.roots = append(idx.roots, n.ID)
		case t.Has(n.ParentID):
			idx.children[n.ParentID] = append(idx.children[n.ParentID], n.ID)
		default:
			idx.orphans = append(idx.orphans, n.ID)
		}
	}

	// Anything not reachable from a root is either below an orphan or part of a cycle.
	stack := append([]NodeID(nil), idx.roots...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if idx.reachable[id] {
			continue
		}
		idx.reachable[id] = true
		stack = append(stack, idx.children[id]...)
	}
	return idx
}

// Tree returns the indexed snapshot.
func (idx *Index) Tree() *Tree { return idx.tree }

// Nodes returns every node in enumeration order, reachable or not.
func (idx *Index) Nodes() []*Node { return idx.order }

// Roots returns the root ids in enumeration order.
func (idx *Index) Roots() []NodeID { return idx.roots }

// Children returns the direct children of id in enumeration order.
func (idx *Index) Children(id NodeID) []NodeID { return idx.children[id] }

// Parent returns the parent id of id and whether that parent exists.
func (idx *Index) Parent(id NodeID) (NodeID, bool) {
	n, ok := idx.tree.Get(id)
	if !ok || n.ParentID.IsRoot() || !idx.tree.Has(n.ParentID) {
		return NoParent, false
	}
	return n.ParentID, true
}

// Orphans returns nodes whose parent id is missing from the snapshot.
func (idx *Index) Orphans() []NodeID { return idx.orphans }

// Reachable reports whether id can be reached by walking down from a root.
func (idx *Index) Reachable(id NodeID) bool { return idx.reachable[id] }

// Len returns the number of reachable nodes.
func (idx *Index) Len() int { return len(idx.reachable) }

// Ancestry returns the chain from the root down to id, inclusive.
// It returns nil if id is not reachable.
func (idx *Index) Ancestry(id NodeID) []*Node {
	if !idx.Reachable(id) {
		return nil
	}
	var chain []*Node
	for cur := id; !cur.IsRoot(); {
		n, ok := idx.tree.Get(cur)
		if !ok {
			break
		}
		chain = append(chain, n)
		cur = n.ParentID
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
