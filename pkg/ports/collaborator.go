package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// AskRequest is a question submitted to the collaborator.
type AskRequest struct {
	Question string        `json:"question" validate:"required,max=16384"`
	ParentID domain.NodeID `json:"parent_id,omitempty"`
}

// AskResult is the collaborator's reply: the full updated tree and the id of
// the node it created.
type AskResult struct {
	NodeID domain.NodeID `json:"node_id"`
	Answer string        `json:"answer"`
	Tree   *domain.Tree  `json:"tree"`
}

// Collaborator answers questions and owns the authoritative tree.
type Collaborator interface {
	// Ask submits a question. The returned tree must contain the new node,
	// linked under ParentID or as a new root.
	Ask(ctx context.Context, req AskRequest) (AskResult, error)

	// Clear discards the whole conversation.
	Clear(ctx context.Context) error
}

// TreeSource is implemented by collaborators that can return the current
// snapshot without changing it.
type TreeSource interface {
	Tree(ctx context.Context) (*domain.Tree, error)
}
