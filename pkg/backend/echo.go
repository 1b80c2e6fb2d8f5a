package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/ports"
)

// Echo is an Answerer that needs no model: it restates the question and
// reports how deep in the conversation it was asked.
type Echo struct{}

var _ ports.Answerer = Echo{}

// Answer implements ports.Answerer.
func (Echo) Answer(ctx context.Context, question string, history []ports.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You asked: %s", question)
	if depth := len(history) / 2; depth > 0 {
		fmt.Fprintf(&b, "\n\n(follow-up at depth %d, after %q)", depth, history[len(history)-2].Content)
	}
	return b.String(), nil
}
