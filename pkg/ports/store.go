package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// TreeStore persists conversation trees keyed by conversation id.
type TreeStore interface {
	// Save persists the full tree for a conversation.
	Save(ctx context.Context, conversationID string, tree *domain.Tree) error

	// Load retrieves the tree for a conversation.
	// Returns domain.ErrTreeNotFound if the conversation does not exist.
	Load(ctx context.Context, conversationID string) (*domain.Tree, error)

	// Delete removes a conversation. Deleting a missing conversation is not an error.
	Delete(ctx context.Context, conversationID string) error

	// List returns the ids of stored conversations.
	List(ctx context.Context) ([]string, error)
}
