package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// LabelWidth is the number of runes of a question shown in a node label.
const LabelWidth = 40

// Overlay contains interaction state to highlight on the graph.
type Overlay struct {
	// Path is the ancestry of the focused node, root first.
	Path     []domain.NodeID
	Selected domain.NodeID
}

// GenerateMermaid produces a Mermaid flowchart of the reachable part of tree.
// Roots are drawn as stadiums, answered nodes as rectangles and nodes still
// waiting for an answer as parallelograms.
func GenerateMermaid(tree *domain.Tree, overlay *Overlay) string {
	idx := domain.NewIndex(tree)
	ids := mermaidIDs(idx)

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range idx.Nodes() {
		if !idx.Reachable(node.ID) {
			continue
		}
		safeID := ids[node.ID]

		opener, closer := "[", "]"
		switch {
		case node.ParentID.IsRoot():
			opener, closer = "([", "])"
		case node.Answer == "":
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(node.Label(LabelWidth)), closer)

		for _, child := range idx.Children(node.ID) {
			fmt.Fprintf(&sb, "    %s --> %s\n", safeID, ids[child])
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef path fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef selected fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[domain.NodeID]bool)
		for _, id := range overlay.Path {
			if !idx.Reachable(id) || id == overlay.Selected || seen[id] {
				continue
			}
			seen[id] = true
			fmt.Fprintf(&sb, "    class %s path;\n", ids[id])
		}
		if overlay.Selected != "" && idx.Reachable(overlay.Selected) {
			fmt.Fprintf(&sb, "    class %s selected;\n", ids[overlay.Selected])
		}
	}

	return sb.String()
}

// SelectionOverlay highlights id and its ancestry. It returns nil when id is
// empty or not part of the tree.
func SelectionOverlay(tree *domain.Tree, id domain.NodeID) *Overlay {
	if id == "" {
		return nil
	}
	chain := domain.NewIndex(tree).Ancestry(id)
	if chain == nil {
		return nil
	}
	ov := &Overlay{Selected: id}
	for _, n := range chain {
		ov.Path = append(ov.Path, n.ID)
	}
	return ov
}

// mermaidIDs assigns every node a positional alias. Node ids may contain
// characters Mermaid rejects, and any character folding could merge two ids.
func mermaidIDs(idx *domain.Index) map[domain.NodeID]string {
	ids := make(map[domain.NodeID]string)
	for i, n := range idx.Nodes() {
		ids[n.ID] = "n" + strconv.Itoa(i)
	}
	return ids
}

func escapeLabel(s string) string {
	return strings.NewReplacer("\"", "#quot;", "<", "#lt;", ">", "#gt;").Replace(s)
}
