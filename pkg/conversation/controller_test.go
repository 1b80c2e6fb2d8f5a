package conversation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/arbor/pkg/canvas"
	"github.com/aretw0/arbor/pkg/conversation"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCollaborator grows its own tree the way a backend would.
type fakeCollaborator struct {
	mu       sync.Mutex
	tree     *domain.Tree
	calls    int
	clears   int
	askErr   error
	clearErr error
	gate     chan struct{}
	entered  chan struct{}
}

func newFake() *fakeCollaborator {
	return &fakeCollaborator{tree: domain.NewTree()}
}

func (f *fakeCollaborator) Ask(ctx context.Context, req ports.AskRequest) (ports.AskResult, error) {
	f.mu.Lock()
	f.calls++
	gate, entered, askErr := f.gate, f.entered, f.askErr
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if askErr != nil {
		return ports.AskResult{}, askErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	seq := f.tree.NextSeq()
	id := domain.NodeID(fmt.Sprintf("n%d", seq))
	f.tree.Add(domain.Node{ID: id, ParentID: req.ParentID, Question: req.Question, Answer: "ok", Seq: seq})
	return ports.AskResult{NodeID: id, Answer: "ok", Tree: f.tree.Clone()}, nil
}

func (f *fakeCollaborator) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	if f.clearErr != nil {
		return f.clearErr
	}
	f.tree = domain.NewTree()
	return nil
}

func (f *fakeCollaborator) Tree(ctx context.Context) (*domain.Tree, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tree.Clone(), nil
}

func TestAsk_FirstRootPlacedAtOrigin(t *testing.T) {
	c := conversation.New(newFake())
	c.SetInput("What is X?")

	id, err := c.AskDraft(context.Background(), domain.NoParent)
	require.NoError(t, err)

	v := c.Snapshot()
	assert.Equal(t, 1, v.Tree.Len())
	assert.Equal(t, domain.Position{X: 400, Y: 50}, v.State.Positions[id])
	assert.Equal(t, id, v.State.SelectedID)
	assert.Empty(t, v.Input)
	assert.False(t, v.Busy)
	assert.NoError(t, v.Err)
}

func TestAsk_FollowUpPlacedBelowParent(t *testing.T) {
	c := conversation.New(newFake())
	ctx := context.Background()

	root, err := c.Ask(ctx, domain.NoParent, "root")
	require.NoError(t, err)
	child, err := c.Ask(ctx, root, "follow up")
	require.NoError(t, err)

	v := c.Snapshot()
	r := v.State.Positions[root]
	assert.Equal(t, domain.Position{X: r.X, Y: r.Y + 150}, v.State.Positions[child])
	assert.Equal(t, child, v.State.SelectedID)

	n, ok := v.Selected()
	require.True(t, ok)
	assert.Equal(t, "follow up", n.Question)
}

func TestAsk_PlacedNodesStayPut(t *testing.T) {
	c := conversation.New(newFake())
	ctx := context.Background()

	root, _ := c.Ask(ctx, domain.NoParent, "root")
	c1, _ := c.Ask(ctx, root, "one")
	first := c.Snapshot().State.Positions[c1]
	c2, _ := c.Ask(ctx, root, "two")

	// c1 was laid out as an only child; a new sibling does not move it.
	v := c.Snapshot()
	assert.Equal(t, domain.Position{X: 400, Y: 200}, first)
	assert.Equal(t, first, v.State.Positions[c1])
	assert.Equal(t, domain.Position{X: 575, Y: 200}, v.State.Positions[c2])
	assert.Equal(t, c2, v.State.SelectedID)
}

func TestAsk_EmptyQuestionIsNoop(t *testing.T) {
	fake := newFake()
	c := conversation.New(fake)

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := c.Ask(context.Background(), domain.NoParent, q)
		assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
	}
	assert.Zero(t, fake.calls)
	assert.True(t, c.Snapshot().Tree.IsEmpty())
	assert.False(t, c.CanSubmit())
}

func TestAsk_QuestionIsTrimmed(t *testing.T) {
	c := conversation.New(newFake())
	id, err := c.Ask(context.Background(), domain.NoParent, "  hello  ")
	require.NoError(t, err)

	n, ok := c.Snapshot().Tree.Get(id)
	require.True(t, ok)
	assert.Equal(t, "hello", n.Question)
}

func TestAsk_SingleFlight(t *testing.T) {
	fake := newFake()
	fake.gate = make(chan struct{})
	fake.entered = make(chan struct{}, 1)
	c := conversation.New(fake)
	c.SetInput("draft")

	done := make(chan error, 1)
	go func() {
		_, err := c.Ask(context.Background(), domain.NoParent, "first")
		done <- err
	}()
	<-fake.entered

	assert.True(t, c.Busy())
	assert.False(t, c.CanSubmit())
	_, err := c.Ask(context.Background(), domain.NoParent, "second")
	assert.ErrorIs(t, err, domain.ErrAskInFlight)

	close(fake.gate)
	require.NoError(t, <-done)
	assert.False(t, c.Busy())
	assert.True(t, c.CanSubmit())
	assert.Equal(t, 1, fake.calls)
}

func TestAsk_FailureLeavesTreeUnchanged(t *testing.T) {
	fake := newFake()
	c := conversation.New(fake)
	ctx := context.Background()

	root, err := c.Ask(ctx, domain.NoParent, "root")
	require.NoError(t, err)
	before := c.Snapshot()

	boom := errors.New("boom")
	fake.askErr = boom
	c.SetInput("keep me")
	_, err = c.AskDraft(ctx, root)
	require.ErrorIs(t, err, boom)

	after := c.Snapshot()
	assert.Same(t, before.Tree, after.Tree)
	assert.Equal(t, before.State.Positions, after.State.Positions)
	assert.Equal(t, root, after.State.SelectedID)
	assert.Equal(t, "keep me", after.Input)
	assert.False(t, after.Busy)
	assert.ErrorIs(t, after.Err, boom)

	// Retry succeeds and clears the recorded failure.
	fake.askErr = nil
	_, err = c.AskDraft(ctx, root)
	require.NoError(t, err)
	assert.NoError(t, c.Snapshot().Err)
}

func TestClear_ResetsEverything(t *testing.T) {
	fake := newFake()
	c := conversation.New(fake)
	ctx := context.Background()

	root, _ := c.Ask(ctx, domain.NoParent, "root")
	_, _ = c.Ask(ctx, root, "child")
	c.Dispatch(canvas.PannedBy{Delta: domain.Position{X: 10, Y: 10}})

	require.NoError(t, c.Clear(ctx))

	v := c.Snapshot()
	assert.True(t, v.Tree.IsEmpty())
	assert.Empty(t, v.State.Positions)
	assert.Empty(t, v.State.SelectedID)
	assert.Equal(t, domain.Position{}, v.State.Pan)
	assert.Equal(t, canvas.Idle, v.State.Gesture())
	assert.Equal(t, 1, fake.clears)
}

func TestClear_DropsInFlightAsk(t *testing.T) {
	fake := newFake()
	fake.gate = make(chan struct{})
	fake.entered = make(chan struct{}, 1)
	c := conversation.New(fake)

	done := make(chan error, 1)
	go func() {
		_, err := c.Ask(context.Background(), domain.NoParent, "late")
		done <- err
	}()
	<-fake.entered

	require.NoError(t, c.Clear(context.Background()))
	close(fake.gate)

	assert.ErrorIs(t, <-done, domain.ErrAskSuperseded)
	assert.True(t, c.Snapshot().Tree.IsEmpty())
	assert.False(t, c.Busy())
}

func TestClear_FailureKeepsState(t *testing.T) {
	fake := newFake()
	c := conversation.New(fake)
	ctx := context.Background()

	root, err := c.Ask(ctx, domain.NoParent, "root")
	require.NoError(t, err)
	child, err := c.Ask(ctx, root, "child")
	require.NoError(t, err)
	c.Dispatch(canvas.NodeClicked{ID: root})
	before := c.Snapshot()

	// An ask already in flight when the clear fails must still land.
	fake.gate = make(chan struct{})
	fake.entered = make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		_, err := c.Ask(ctx, child, "pending")
		done <- err
	}()
	<-fake.entered

	down := errors.New("store down")
	fake.mu.Lock()
	fake.clearErr = down
	fake.mu.Unlock()
	err = c.Clear(ctx)
	require.ErrorIs(t, err, down)

	after := c.Snapshot()
	assert.Same(t, before.Tree, after.Tree)
	assert.Equal(t, 2, after.Tree.Len())
	assert.Equal(t, before.State.Positions, after.State.Positions)
	assert.Equal(t, root, after.State.SelectedID)
	assert.ErrorIs(t, after.Err, down)

	close(fake.gate)
	require.NoError(t, <-done)
	v := c.Snapshot()
	assert.Equal(t, 3, v.Tree.Len())
	assert.NoError(t, v.Err)

	fake.mu.Lock()
	fake.gate, fake.entered = nil, nil
	fake.mu.Unlock()
	_, err = c.Ask(ctx, root, "later")
	require.NoError(t, err)
	assert.Equal(t, 4, c.Snapshot().Tree.Len())
	assert.Equal(t, 1, fake.clears)
}

func TestAsk_KeepsDraftEditedWhilePending(t *testing.T) {
	fake := newFake()
	fake.gate = make(chan struct{})
	fake.entered = make(chan struct{}, 1)
	c := conversation.New(fake)
	c.SetInput("first")

	done := make(chan error, 1)
	go func() {
		_, err := c.AskDraft(context.Background(), domain.NoParent)
		done <- err
	}()
	<-fake.entered

	c.SetInput("typed while waiting")
	close(fake.gate)
	require.NoError(t, <-done)
	assert.Equal(t, "typed while waiting", c.Input())

	fake.mu.Lock()
	fake.gate, fake.entered = nil, nil
	fake.mu.Unlock()
	c.SetInput("  unchanged ")
	_, err := c.AskDraft(context.Background(), domain.NoParent)
	require.NoError(t, err)
	assert.Empty(t, c.Input())
}

func TestDragSurvivesNextAsk(t *testing.T) {
	c := conversation.New(newFake())
	ctx := context.Background()

	root, _ := c.Ask(ctx, domain.NoParent, "root")
	c.Dispatch(canvas.NodePressed{ID: root, Pointer: domain.Position{X: 410, Y: 60}})
	c.Dispatch(canvas.PointerMoved{Pointer: domain.Position{X: 710, Y: 260}})
	c.Dispatch(canvas.PointerLeft{})

	child, err := c.Ask(ctx, root, "child")
	require.NoError(t, err)

	v := c.Snapshot()
	assert.Equal(t, domain.Position{X: 700, Y: 250}, v.State.Positions[root])
	assert.Equal(t, domain.Position{X: 700, Y: 400}, v.State.Positions[child])
}

func TestRefresh_PullsSnapshot(t *testing.T) {
	fake := newFake()
	other := conversation.New(fake)
	_, err := other.Ask(context.Background(), domain.NoParent, "from elsewhere")
	require.NoError(t, err)

	c := conversation.New(fake)
	require.NoError(t, c.Refresh(context.Background()))

	v := c.Snapshot()
	assert.Equal(t, 1, v.Tree.Len())
	assert.Len(t, v.State.Positions, 1)
	assert.Empty(t, v.State.SelectedID)
}

func TestApply_KeepsSelectionAndDrags(t *testing.T) {
	c := conversation.New(newFake())
	root, err := c.Ask(context.Background(), domain.NoParent, "root")
	require.NoError(t, err)
	c.Dispatch(canvas.NodePressed{ID: root, Pointer: domain.Position{X: 400, Y: 50}})
	c.Dispatch(canvas.PointerMoved{Pointer: domain.Position{X: 100, Y: 60}})
	c.Dispatch(canvas.PointerReleased{})

	pushed := c.Snapshot().Tree.Clone()
	pushed.Add(domain.Node{ID: "remote", ParentID: root, Question: "from elsewhere", Seq: pushed.NextSeq()})
	c.Apply(context.Background(), pushed)

	v := c.Snapshot()
	assert.Equal(t, 2, v.Tree.Len())
	assert.Equal(t, root, v.State.SelectedID)
	assert.Equal(t, domain.Position{X: 100, Y: 60}, v.State.Positions[root])
	assert.Equal(t, domain.Position{X: 100, Y: 210}, v.State.Positions["remote"])
}

type askOnly struct{ ports.Collaborator }

func TestRefresh_Unsupported(t *testing.T) {
	c := conversation.New(askOnly{newFake()})
	assert.Error(t, c.Refresh(context.Background()))
}

func TestHooks(t *testing.T) {
	var started, finished, layouts, clears int
	hooks := domain.LifecycleHooks{
		OnAskStart:  func(context.Context, *domain.AskEvent) { started++ },
		OnAskFinish: func(_ context.Context, e *domain.AskEvent) { finished++; assert.NotEmpty(t, e.NodeID) },
		OnLayout:    func(_ context.Context, e *domain.LayoutEvent) { layouts++; assert.Equal(t, 1, e.Nodes) },
		OnClear:     func(context.Context, *domain.ClearEvent) { clears++ },
	}
	c := conversation.New(newFake(), conversation.WithLifecycleHooks(hooks))

	_, err := c.Ask(context.Background(), domain.NoParent, "q")
	require.NoError(t, err)
	require.NoError(t, c.Clear(context.Background()))

	assert.Equal(t, 1, started)
	assert.Equal(t, 1, finished)
	assert.Equal(t, 1, layouts)
	assert.Equal(t, 1, clears)
}
