package graph

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/arbor/pkg/canvas"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/layout"
)

// svgPadding is the margin around the drawn boxes.
const svgPadding = 20.0

// GenerateSVG renders the tree as a standalone SVG document using the same
// box geometry and connection anchors as the interactive canvas.
// A nil positions map means a fresh layout.
func GenerateSVG(tree *domain.Tree, positions domain.Positions, overlay *Overlay) string {
	idx := domain.NewIndex(tree)
	if positions == nil {
		positions = layout.Compute(idx, nil)
	}
	state := canvas.State{Positions: positions}
	nodes := canvas.Drawable(idx, state)

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range nodes {
		p := positions[n.ID]
		minX, minY = math.Min(minX, p.X), math.Min(minY, p.Y)
		maxX, maxY = math.Max(maxX, p.X+canvas.NodeWidth), math.Max(maxY, p.Y+canvas.NodeHeight)
	}
	if len(nodes) == 0 {
		minX, minY, maxX, maxY = 0, 0, 0, 0
	}
	minX -= svgPadding
	minY -= svgPadding
	w := maxX - minX + svgPadding
	h := maxY - minY + svgPadding

	onPath := make(map[domain.NodeID]bool)
	var selected domain.NodeID
	if overlay != nil {
		for _, id := range overlay.Path {
			onPath[id] = true
		}
		selected = overlay.Selected
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%s %s %s %s" width="%s" height="%s">`+"\n",
		num(minX), num(minY), num(w), num(h), num(w), num(h))
	sb.WriteString(`  <g stroke="#94a3b8" stroke-width="2" fill="none">` + "\n")
	for _, l := range canvas.Connections(idx, state) {
		fmt.Fprintf(&sb, `    <line x1="%s" y1="%s" x2="%s" y2="%s"/>`+"\n", num(l.X1), num(l.Y1), num(l.X2), num(l.Y2))
	}
	sb.WriteString("  </g>\n")

	for _, n := range nodes {
		p := positions[n.ID]
		fill, stroke := "#ffffff", "#cbd5e1"
		switch {
		case n.ID == selected:
			fill, stroke = "#fef08a", "#ca8a04"
		case onPath[n.ID]:
			fill, stroke = "#e0f2fe", "#0369a1"
		}
		fmt.Fprintf(&sb, `  <g id="%s">`+"\n", html.EscapeString(string(n.ID)))
		fmt.Fprintf(&sb, `    <rect x="%s" y="%s" width="%s" height="%s" rx="8" fill="%s" stroke="%s"/>`+"\n",
			num(p.X), num(p.Y), num(canvas.NodeWidth), num(canvas.NodeHeight), fill, stroke)
		fmt.Fprintf(&sb, `    <text x="%s" y="%s" font-family="sans-serif" font-size="13" font-weight="bold">%s</text>`+"\n",
			num(p.X+10), num(p.Y+24), html.EscapeString(n.Label(28)))
		if n.Answer != "" {
			fmt.Fprintf(&sb, `    <text x="%s" y="%s" font-family="sans-serif" font-size="11" fill="#475569">%s</text>`+"\n",
				num(p.X+10), num(p.Y+48), html.EscapeString(domain.Truncate(n.Answer, 32)))
		}
		sb.WriteString("  </g>\n")
	}
	sb.WriteString("</svg>\n")
	return sb.String()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
