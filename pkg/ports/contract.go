package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTreeStoreContract runs a suite of tests to verify that a TreeStore
// implementation adheres to the interface contract.
func RunTreeStoreContract(t *testing.T, store TreeStore) {
	ctx := context.Background()
	convID := "contract-" + time.Now().Format("20060102150405.000000000")

	sample := func() *domain.Tree {
		tree := domain.NewTree()
		tree.Add(domain.Node{ID: "1", Question: "what is a trie?", Answer: "a prefix tree", Seq: 1})
		tree.Add(domain.Node{ID: "2", ParentID: "1", Question: "complexity?", Answer: "O(k)", Seq: 2})
		return tree
	}

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, convID, sample()))

		loaded, err := store.Load(ctx, convID)
		require.NoError(t, err)
		require.Equal(t, 2, loaded.Len())

		child, ok := loaded.Get("2")
		require.True(t, ok)
		assert.Equal(t, domain.NodeID("1"), child.ParentID)
		assert.Equal(t, "O(k)", child.Answer)
		assert.Equal(t, int64(2), child.Seq)
	})

	t.Run("Load is isolated from later mutation", func(t *testing.T) {
		tree := sample()
		require.NoError(t, store.Save(ctx, convID, tree))
		tree.Nodes["1"].Question = "mutated"

		loaded, err := store.Load(ctx, convID)
		require.NoError(t, err)
		root, _ := loaded.Get("1")
		assert.Equal(t, "what is a trie?", root.Question)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-"+convID)
		assert.ErrorIs(t, err, domain.ErrTreeNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, convID, sample()))
		require.NoError(t, store.Delete(ctx, convID))

		_, err := store.Load(ctx, convID)
		assert.ErrorIs(t, err, domain.ErrTreeNotFound)

		assert.NoError(t, store.Delete(ctx, convID), "deleting twice is fine")
	})

	t.Run("List", func(t *testing.T) {
		id1, id2 := convID+"-1", convID+"-2"
		require.NoError(t, store.Save(ctx, id1, sample()))
		require.NoError(t, store.Save(ctx, id2, domain.NewTree()))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
