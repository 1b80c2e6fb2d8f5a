package canvas_test

import (
	"testing"

	"github.com/aretw0/arbor/pkg/canvas"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() (*domain.Index, canvas.State) {
	tr := domain.NewTree()
	tr.Add(domain.Node{ID: "r", Seq: 1})
	tr.Add(domain.Node{ID: "c", ParentID: "r", Seq: 2})
	tr.Add(domain.Node{ID: "o", ParentID: "missing", Seq: 3})
	idx := domain.NewIndex(tr)

	s := canvas.NewState()
	s = canvas.Reduce(s, canvas.TreeReplaced{Index: idx, Positions: layout.Compute(idx, nil)})
	return idx, s
}

func TestConnections_Anchors(t *testing.T) {
	idx, s := fixture()

	lines := canvas.Connections(idx, s)
	require.Len(t, lines, 1)
	l := lines[0]
	assert.Equal(t, domain.NodeID("r"), l.From)
	assert.Equal(t, domain.NodeID("c"), l.To)
	assert.Equal(t, 400+canvas.NodeWidth/2, l.X1)
	assert.Equal(t, 50+canvas.NodeHeight, l.Y1)
	assert.Equal(t, 400+canvas.NodeWidth/2, l.X2)
	assert.Equal(t, 200.0, l.Y2)
}

func TestConnections_FollowPan(t *testing.T) {
	idx, s := fixture()
	s = canvas.Reduce(s, canvas.PannedBy{Delta: pt(10, -5)})

	l := canvas.Connections(idx, s)[0]
	assert.Equal(t, 400+canvas.NodeWidth/2+10, l.X1)
	assert.Equal(t, 195.0, l.Y2)
}

func TestHitTest(t *testing.T) {
	idx, s := fixture()

	id, ok := canvas.HitTest(idx, s, pt(450, 60))
	require.True(t, ok)
	assert.Equal(t, domain.NodeID("r"), id)

	_, ok = canvas.HitTest(idx, s, pt(0, 0))
	assert.False(t, ok)

	s = canvas.Reduce(s, canvas.PannedBy{Delta: pt(1000, 0)})
	_, ok = canvas.HitTest(idx, s, pt(450, 60))
	assert.False(t, ok)
	id, ok = canvas.HitTest(idx, s, pt(1450, 60))
	require.True(t, ok)
	assert.Equal(t, domain.NodeID("r"), id)
}

func TestHitTest_TopMostWins(t *testing.T) {
	idx, s := fixture()
	s = canvas.Apply(s,
		canvas.NodePressed{ID: "c", Pointer: pt(400, 200)},
		canvas.PointerMoved{Pointer: pt(400, 50)},
		canvas.PointerReleased{},
	)
	id, ok := canvas.HitTest(idx, s, pt(410, 60))
	require.True(t, ok)
	assert.Equal(t, domain.NodeID("c"), id)
}

func TestDrawable_SkipsOrphans(t *testing.T) {
	idx, s := fixture()
	var ids []domain.NodeID
	for _, n := range canvas.Drawable(idx, s) {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []domain.NodeID{"r", "c"}, ids)
}
