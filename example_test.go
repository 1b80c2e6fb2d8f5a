package arbor_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/canvas"
	"github.com/aretw0/arbor/pkg/domain"
)

// ExampleNew asks a question and a follow-up against the in-process backend
// and prints where each node lands on the canvas.
func ExampleNew() {
	eng := arbor.New()
	ctrl := eng.Controller("example")
	ctx := context.Background()

	root, err := ctrl.Ask(ctx, domain.NoParent, "Why is the sky blue?")
	if err != nil {
		log.Fatal(err)
	}
	if _, err := ctrl.Ask(ctx, root, "And sunsets?"); err != nil {
		log.Fatal(err)
	}

	v := ctrl.Snapshot()
	for _, n := range v.Index.Nodes() {
		p := v.State.Positions[n.ID]
		fmt.Printf("(%.0f, %.0f) %s\n", p.X, p.Y, n.Question)
	}
	// Output:
	// (400, 50) Why is the sky blue?
	// (400, 200) And sunsets?
}

// ExampleEngine_Controller shows that a dragged node keeps its place and
// that follow-ups asked under it appear beneath the new position.
func ExampleEngine_Controller() {
	ctrl := arbor.New().Controller("drag")
	ctx := context.Background()

	root, _ := ctrl.Ask(ctx, domain.NoParent, "root")

	ctrl.Dispatch(canvas.NodePressed{ID: root, Pointer: domain.Position{X: 410, Y: 60}})
	ctrl.Dispatch(canvas.PointerMoved{Pointer: domain.Position{X: 110, Y: 160}})
	ctrl.Dispatch(canvas.PointerReleased{})

	child, _ := ctrl.Ask(ctx, root, "follow-up")

	v := ctrl.Snapshot()
	fmt.Println(v.State.Positions[root])
	fmt.Println(v.State.Positions[child])
	// Output:
	// {100 150}
	// {100 300}
}
