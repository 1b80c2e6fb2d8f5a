package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/layout"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"
)

// Graph export formats.
const (
	FormatMermaid = "mermaid"
	FormatSVG     = "svg"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Ask submits one question and prints the answer followed by the new id.
// Answers are rendered as markdown when w is a terminal.
func Ask(ctx context.Context, t Target, parent domain.NodeID, question string, w io.Writer) (domain.NodeID, error) {
	res, err := t.Ask(ctx, ports.AskRequest{Question: question, ParentID: parent})
	if err != nil {
		return "", err
	}

	answer := res.Answer
	if IsTerminal(w) {
		width := 80
		if f, ok := w.(*os.File); ok {
			if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
				width = cols
			}
		}
		if out, err := tui.NewRenderer(width)(answer); err == nil {
			answer = out
		}
	}
	fmt.Fprintln(w, answer)
	fmt.Fprintf(w, "\nnode: %s\n", res.NodeID)
	return res.NodeID, nil
}

// PrintTree prints every laid-out node with its position, in enumeration
// order. Unreachable nodes are listed last without a position.
func PrintTree(ctx context.Context, t Target, w io.Writer) error {
	tree, err := t.Tree(ctx)
	if err != nil {
		return err
	}
	if tree.IsEmpty() {
		fmt.Fprintln(w, "(empty conversation)")
		return nil
	}

	idx := domain.NewIndex(tree)
	positions := layout.Compute(idx, nil)

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "PARENT", "X", "Y", "QUESTION")
	var orphans [][]string
	for _, n := range idx.Nodes() {
		p, ok := positions[n.ID]
		if !ok {
			orphans = append(orphans, []string{string(n.ID), string(n.ParentID), "-", "-", n.Label(48)})
			continue
		}
		tbl.Row(string(n.ID), string(n.ParentID), coord(p.X), coord(p.Y), n.Label(48))
	}
	tbl.Rows(orphans...)

	fmt.Fprintln(w, tbl.String())
	return nil
}

func coord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ExportGraph writes the laid-out tree as Mermaid or SVG. If selected names
// a node, it and its ancestry are highlighted.
func ExportGraph(ctx context.Context, t Target, format string, selected domain.NodeID, w io.Writer) error {
	tree, err := t.Tree(ctx)
	if err != nil {
		return err
	}
	overlay := graph.SelectionOverlay(tree, selected)

	switch format {
	case FormatMermaid, "":
		_, err = io.WriteString(w, graph.GenerateMermaid(tree, overlay))
	case FormatSVG:
		_, err = io.WriteString(w, graph.GenerateSVG(tree, nil, overlay))
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", format, FormatMermaid, FormatSVG)
	}
	return err
}

// Clear discards the conversation.
func Clear(ctx context.Context, t Target, w io.Writer) error {
	if err := t.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "conversation cleared")
	return nil
}
