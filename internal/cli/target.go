package cli

import (
	"context"
	"fmt"
	"strings"

	arborhttp "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/backend"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Target is one conversation as seen by a client: it can ask, clear and
// return the current snapshot.
type Target interface {
	ports.Collaborator
	ports.TreeSource
}

// Watcher is implemented by targets that can stream snapshots.
type Watcher interface {
	Watch(ctx context.Context) (<-chan *domain.Tree, error)
}

// TargetOptions selects where a command sends its requests.
type TargetOptions struct {
	// Local drives the in-process backend instead of a server.
	Local        bool
	BaseURL      string
	Conversation string
}

// Target returns the conversation named in opts, either through the
// runtime's backend or through the server at opts.BaseURL.
func (rt *Runtime) Target(opts TargetOptions) (Target, error) {
	conv := strings.TrimSpace(opts.Conversation)
	if conv == "" {
		conv = backend.DefaultConversation
	}
	if opts.Local {
		return rt.Engine.Service().Conversation(conv), nil
	}
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("no server url configured; pass --url or --local")
	}
	client, err := arborhttp.NewClient(opts.BaseURL, arborhttp.WithConversation(conv))
	if err != nil {
		return nil, err
	}
	return client, nil
}
