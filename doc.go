/*
Package arbor is a branching question/answer workspace: every answer can be the parent of any number of follow-up questions, and the resulting tree is laid out on a 2D canvas the user can drag and pan.

# Concept

A conversation is a Tree of Nodes linked by parent ids. A collaborator (the backend) owns the authoritative tree: it assigns ids, asks an Answerer for the answer using the chain of ancestor exchanges as context, and returns the whole snapshot. Clients never patch the tree; they replace it.

On the client side three pieces cooperate:

  - layout converts the tree into non-overlapping positions. Positions that already exist (for example a node the user dragged) are kept and their descendants are placed relative to them.
  - canvas is a pure reducer over pointer events. It owns drag, pan and selection and guarantees that only one gesture is active at a time.
  - conversation is the controller tying both to a collaborator with a single in-flight ask.

# Usage

The Engine wires an in-process backend with sensible defaults (memory store, echo answerer):

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/arbor"
		"github.com/aretw0/arbor/pkg/domain"
	)

	func main() {
		eng := arbor.New()
		ctrl := eng.Controller("demo")

		ctx := context.Background()
		root, err := ctrl.Ask(ctx, domain.NoParent, "Why is the sky blue?")
		if err != nil {
			log.Fatal(err)
		}
		if _, err := ctrl.Ask(ctx, root, "And why are sunsets red?"); err != nil {
			log.Fatal(err)
		}

		v := ctrl.Snapshot()
		for _, n := range v.Index.Nodes() {
			p := v.State.Positions[n.ID]
			fmt.Printf("%6.0f %6.0f  %s\n", p.X, p.Y, n.Question)
		}
	}

Persistent stores (file, Redis), external answerers and the HTTP, MCP and terminal surfaces live under pkg/adapters and are assembled by the arbor command.
*/
package arbor
