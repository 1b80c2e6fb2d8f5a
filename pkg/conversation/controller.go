// Package conversation orchestrates asking questions against a collaborator
// and keeps the local tree, layout and interaction state consistent with the
// snapshots it returns.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/canvas"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/layout"
	"github.com/aretw0/arbor/pkg/ports"
	"golang.org/x/sync/semaphore"
)

// Controller owns the local view of one conversation.
// It is safe for concurrent use; at most one Ask is in flight at a time.
type Controller struct {
	collab ports.Collaborator
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	now    func() time.Time

	inflight *semaphore.Weighted
	pending  atomic.Bool

	mu         sync.RWMutex
	tree       *domain.Tree
	index      *domain.Index
	state      canvas.State
	input      string
	generation uint64
	lastErr    error
}

// Option configures the Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithClock overrides the time source used for event timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New creates a Controller with an empty tree.
func New(collab ports.Collaborator, opts ...Option) *Controller {
	tree := domain.NewTree()
	c := &Controller{
		collab:   collab,
		logger:   logging.NewNop(),
		now:      time.Now,
		inflight: semaphore.NewWeighted(1),
		tree:     tree,
		index:    domain.NewIndex(tree),
		state:    canvas.NewState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// View is a consistent snapshot of everything a renderer needs.
type View struct {
	Tree  *domain.Tree
	Index *domain.Index
	State canvas.State
	Input string
	Busy  bool
	// Err is the last recoverable failure, cleared by the next success.
	Err error
}

// Selected returns the selected node, if any.
func (v View) Selected() (*domain.Node, bool) {
	id, ok := v.State.Selected()
	if !ok {
		return nil, false
	}
	return v.Tree.Get(id)
}

// Snapshot returns the current view. Callers must treat it as read-only.
func (c *Controller) Snapshot() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return View{
		Tree:  c.tree,
		Index: c.index,
		State: c.state,
		Input: c.input,
		Busy:  c.pending.Load(),
		Err:   c.lastErr,
	}
}

// Dispatch feeds an interaction event through the canvas reducer.
func (c *Controller) Dispatch(ev canvas.Event) canvas.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = canvas.Reduce(c.state, ev)
	return c.state
}

// SetInput replaces the question draft.
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
}

// Input returns the question draft.
func (c *Controller) Input() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.input
}

// Busy reports whether an ask is in flight.
func (c *Controller) Busy() bool { return c.pending.Load() }

// CanSubmit reports whether the submit affordance should be enabled.
func (c *Controller) CanSubmit() bool {
	return !c.Busy() && strings.TrimSpace(c.Input()) != ""
}

// AskDraft submits the current draft.
func (c *Controller) AskDraft(ctx context.Context, parentID domain.NodeID) (domain.NodeID, error) {
	return c.Ask(ctx, parentID, c.Input())
}

// Ask submits question under parentID (NoParent for a new root).
// On success the tree is replaced by the collaborator's snapshot, positions
// are recomputed, the new node is selected and the draft is cleared unless it
// was edited while the ask was pending.
// On failure nothing but the recorded error changes.
func (c *Controller) Ask(ctx context.Context, parentID domain.NodeID, question string) (domain.NodeID, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", domain.ErrEmptyQuestion
	}
	if !c.inflight.TryAcquire(1) {
		c.logger.Debug("Ask rejected: already in flight", "parent_id", parentID)
		return "", domain.ErrAskInFlight
	}
	c.pending.Store(true)
	defer func() {
		c.pending.Store(false)
		c.inflight.Release(1)
	}()

	c.mu.RLock()
	gen := c.generation
	c.mu.RUnlock()

	start := c.now()
	c.emitAskStart(ctx, parentID, start)

	res, err := c.collab.Ask(ctx, ports.AskRequest{Question: question, ParentID: parentID})
	if err == nil && res.Tree == nil {
		err = errors.New("collaborator returned no tree")
	}
	if errors.Is(err, domain.ErrAskSuperseded) {
		c.logger.Info("Ask superseded by clear", "parent_id", parentID)
		c.emitAskFinish(ctx, parentID, "", start, err)
		return "", domain.ErrAskSuperseded
	}
	if err != nil {
		err = fmt.Errorf("ask failed: %w", err)
		c.fail(err)
		c.emitAskFinish(ctx, parentID, "", start, err)
		c.logger.Warn("Ask failed", "parent_id", parentID, "err", err)
		return "", err
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		c.logger.Info("Ask response dropped after clear", "node_id", res.NodeID)
		c.emitAskFinish(ctx, parentID, res.NodeID, start, domain.ErrAskSuperseded)
		return "", domain.ErrAskSuperseded
	}
	c.replaceLocked(ctx, res.Tree)
	c.state = canvas.Reduce(c.state, canvas.NodeClicked{ID: res.NodeID})
	if strings.TrimSpace(c.input) == question {
		c.input = ""
	}
	c.lastErr = nil
	c.mu.Unlock()

	c.emitAskFinish(ctx, parentID, res.NodeID, start, nil)
	c.logger.Info("Ask applied", "node_id", res.NodeID, "parent_id", parentID, "nodes", res.Tree.Len())
	return res.NodeID, nil
}

// Clear asks the collaborator to discard the conversation, then resets the
// tree, positions and interaction state. Any ask still in flight will have
// its response dropped.
func (c *Controller) Clear(ctx context.Context) error {
	err := c.collab.Clear(ctx)
	if err != nil {
		err = fmt.Errorf("clear failed: %w", err)
		c.fail(err)
	} else {
		c.mu.Lock()
		c.generation++
		c.tree = domain.NewTree()
		c.index = domain.NewIndex(c.tree)
		c.state = canvas.Reduce(c.state, canvas.Reset{})
		c.lastErr = nil
		c.mu.Unlock()
		c.logger.Info("Conversation cleared")
	}

	if c.hooks.OnClear != nil {
		c.hooks.OnClear(ctx, &domain.ClearEvent{
			EventBase: domain.EventBase{Timestamp: c.now(), Type: domain.EventClear},
			Err:       err,
		})
	}
	return err
}

// Refresh pulls the current snapshot from the collaborator, if it can
// provide one, and applies it without touching the selection.
func (c *Controller) Refresh(ctx context.Context) error {
	src, ok := c.collab.(ports.TreeSource)
	if !ok {
		return fmt.Errorf("collaborator does not support fetching the tree")
	}

	c.mu.RLock()
	gen := c.generation
	c.mu.RUnlock()

	tree, err := src.Tree(ctx)
	if err != nil {
		err = fmt.Errorf("refresh failed: %w", err)
		c.fail(err)
		return err
	}
	return c.apply(ctx, gen, tree)
}

// Apply installs a snapshot pushed by the collaborator (for example over a
// server-sent event stream). It behaves like a successful Refresh.
func (c *Controller) Apply(ctx context.Context, tree *domain.Tree) {
	c.mu.RLock()
	gen := c.generation
	c.mu.RUnlock()
	_ = c.apply(ctx, gen, tree)
}

func (c *Controller) apply(ctx context.Context, gen uint64, tree *domain.Tree) error {
	if tree == nil {
		tree = domain.NewTree()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return domain.ErrAskSuperseded
	}
	c.replaceLocked(ctx, tree)
	c.lastErr = nil
	return nil
}

// replaceLocked swaps in a new snapshot and re-lays it out, keeping every
// position already on the canvas. c.mu must be held.
func (c *Controller) replaceLocked(ctx context.Context, tree *domain.Tree) {
	start := c.now()
	c.tree = tree
	c.index = domain.NewIndex(tree)
	positions := layout.Compute(c.index, c.state.Positions)
	c.state = canvas.Reduce(c.state, canvas.TreeReplaced{Index: c.index, Positions: positions})

	if c.hooks.OnLayout != nil {
		c.hooks.OnLayout(ctx, &domain.LayoutEvent{
			EventBase: domain.EventBase{Timestamp: start, Type: domain.EventLayout},
			Nodes:     len(positions),
			Duration:  c.now().Sub(start),
		})
	}
}

func (c *Controller) fail(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

func (c *Controller) emitAskStart(ctx context.Context, parentID domain.NodeID, at time.Time) {
	if c.hooks.OnAskStart == nil {
		return
	}
	c.hooks.OnAskStart(ctx, &domain.AskEvent{
		EventBase: domain.EventBase{Timestamp: at, Type: domain.EventAskStart},
		ParentID:  parentID,
	})
}

func (c *Controller) emitAskFinish(ctx context.Context, parentID, nodeID domain.NodeID, start time.Time, err error) {
	if c.hooks.OnAskFinish == nil {
		return
	}
	end := c.now()
	c.hooks.OnAskFinish(ctx, &domain.AskEvent{
		EventBase: domain.EventBase{Timestamp: end, Type: domain.EventAskFinish},
		ParentID:  parentID,
		NodeID:    nodeID,
		Duration:  end.Sub(start),
		Err:       err,
	})
}
