package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Store implements ports.TreeStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Tree
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Tree),
	}
}

// Seed stores a conversation built from nodes, replacing any existing one.
// Nodes without a Seq are numbered in argument order. Handy for fixtures.
func (s *Store) Seed(conversationID string, nodes ...domain.Node) error {
	tree := domain.NewTree()
	for i, n := range nodes {
		if n.ID == "" {
			return fmt.Errorf("node %d missing ID", i)
		}
		if tree.Has(n.ID) {
			return fmt.Errorf("duplicate node ID %q", n.ID)
		}
		if n.Seq == 0 {
			n.Seq = tree.NextSeq()
		}
		tree.Add(n)
	}
	return s.Save(context.Background(), conversationID, tree)
}

// Save persists a deep copy of the tree.
func (s *Store) Save(ctx context.Context, conversationID string, tree *domain.Tree) error {
	copied := tree.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[conversationID] = copied
	return nil
}

// Load returns a copy so callers can't mutate store state through the pointer.
func (s *Store) Load(ctx context.Context, conversationID string) (*domain.Tree, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tree, ok := s.data[conversationID]
	if !ok {
		return nil, domain.ErrTreeNotFound
	}
	return tree.Clone(), nil
}

// Delete removes the conversation.
func (s *Store) Delete(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, conversationID)
	return nil
}

// List returns stored conversation ids in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
