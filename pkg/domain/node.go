package domain

import (
	"encoding/json"
	"sort"
	"strings"
)

// NodeID identifies a node. The empty NodeID is the root sentinel.
type NodeID string

// NoParent marks a node as a root.
const NoParent NodeID = ""

// IsRoot reports whether id is the root sentinel.
func (id NodeID) IsRoot() bool { return id == NoParent }

// Node represents one question/answer exchange in the conversation.
type Node struct {
	ID       NodeID `json:"id" yaml:"id"`
	ParentID NodeID `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Question string `json:"question" yaml:"question"`

	// Answer is empty while the collaborator has not produced one yet.
	Answer string `json:"answer,omitempty" yaml:"answer,omitempty"`

	// Seq is the creation sequence assigned by the collaborator.
	// It defines the enumeration order of siblings and roots.
	Seq int64 `json:"seq,omitempty" yaml:"seq,omitempty"`
}

// Tree is a full conversation snapshot keyed by node id.
type Tree struct {
	Nodes map[NodeID]*Node `json:"nodes" yaml:"nodes"`
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{Nodes: make(map[NodeID]*Node)}
}

// UnmarshalJSON decodes a snapshot. Map keys are authoritative for node ids.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var raw struct {
		Nodes map[NodeID]*Node `json:"nodes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Nodes = make(map[NodeID]*Node, len(raw.Nodes))
	for id, n := range raw.Nodes {
		if n == nil {
			continue
		}
		n.ID = id
		t.Nodes[id] = n
	}
	return nil
}

// Len returns the number of nodes, including orphans.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Nodes)
}

// IsEmpty reports whether the tree holds no nodes.
func (t *Tree) IsEmpty() bool { return t.Len() == 0 }

// Get returns the node with the given id.
func (t *Tree) Get(id NodeID) (*Node, bool) {
	if t == nil || t.Nodes == nil {
		return nil, false
	}
	n, ok := t.Nodes[id]
	return n, ok
}

// Has reports whether id is present in the tree.
func (t *Tree) Has(id NodeID) bool {
	_, ok := t.Get(id)
	return ok
}

// Ordered returns all nodes in enumeration order: ascending Seq, then ID.
func (t *Tree) Ordered() []*Node {
	if t == nil {
		return nil
	}
	nodes := make([]*Node, 0, len(t.Nodes))
	for _, n := range t.Nodes {
		if n == nil {
			continue
		}
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Seq != nodes[j].Seq {
			return nodes[i].Seq < nodes[j].Seq
		}
		return nodes[i].ID < nodes[j].ID
	})
	return nodes
}

// NextSeq returns a sequence number greater than any in the tree.
func (t *Tree) NextSeq() int64 {
	var max int64
	if t != nil {
		for _, n := range t.Nodes {
			if n != nil && n.Seq > max {
				max = n.Seq
			}
		}
	}
	return max + 1
}

// Add inserts a node, replacing any node with the same id.
func (t *Tree) Add(n Node) {
	if t.Nodes == nil {
		t.Nodes = make(map[NodeID]*Node)
	}
	node := n
	t.Nodes[n.ID] = &node
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	out := NewTree()
	if t == nil {
		return out
	}
	for id, n := range t.Nodes {
		if n == nil {
			continue
		}
		cp := *n
		out.Nodes[id] = &cp
	}
	return out
}

// Label returns a single-line, length-limited rendition of the question.
func (n *Node) Label(max int) string { return Truncate(n.Question, max) }

// Truncate collapses whitespace in s and cuts it to at most max runes,
// ending with an ellipsis when shortened. A max of zero disables the limit.
func Truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if max > 0 && len(r) > max {
		if max <= 1 {
			return string(r[:max])
		}
		return string(r[:max-1]) + "…"
	}
	return s
}
