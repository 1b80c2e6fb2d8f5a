package tui

import (
	"math"
	"strings"

	"github.com/aretw0/arbor/pkg/canvas"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/charmbracelet/lipgloss"
)

// Terminal cell size in canvas units.
const (
	CellWidth  = 10.0
	CellHeight = 25.0
)

var (
	boxCols = int(math.Ceil(canvas.NodeWidth / CellWidth))
	boxRows = int(math.Ceil(canvas.NodeHeight / CellHeight))
)

// CellToPoint returns the canvas point at the center of the cell (col,row)
// of the canvas area.
func CellToPoint(col, row int) domain.Position {
	return domain.Position{
		X: float64(col)*CellWidth + CellWidth/2,
		Y: float64(row)*CellHeight + CellHeight/2,
	}
}

// PointToCell returns the cell containing a canvas point.
func PointToCell(p domain.Position) (col, row int) {
	return int(math.Floor(p.X / CellWidth)), int(math.Floor(p.Y / CellHeight))
}

type cellKind uint8

const (
	kindBlank cellKind = iota
	kindLine
	kindBox
	kindPending
	kindPath
	kindSelected
)

type raster struct {
	w, h  int
	cells [][]rune
	kinds [][]cellKind
}

func newRaster(w, h int) *raster {
	r := &raster{w: max(w, 0), h: max(h, 0)}
	r.cells = make([][]rune, r.h)
	r.kinds = make([][]cellKind, r.h)
	for y := range r.cells {
		r.cells[y] = []rune(strings.Repeat(" ", r.w))
		r.kinds[y] = make([]cellKind, r.w)
	}
	return r
}

func (r *raster) set(col, row int, ch rune, k cellKind) {
	if col < 0 || row < 0 || col >= r.w || row >= r.h {
		return
	}
	r.cells[row][col] = ch
	r.kinds[row][col] = k
}

// connect draws an elbow connector between two cells: down, across, down.
// Only the part inside the raster is walked, so far off-screen endpoints
// cost nothing.
func (r *raster) connect(c1, r1, c2, r2 int) {
	mid := (r1 + r2) / 2
	for y := max(r1, 0); y < min(mid, r.h); y++ {
		r.set(c1, y, '│', kindLine)
	}
	for y := max(mid+1, 0); y <= min(r2, r.h-1); y++ {
		r.set(c2, y, '│', kindLine)
	}
	if mid < 0 || mid >= r.h {
		return
	}
	switch {
	case c1 == c2:
		r.set(c1, mid, '│', kindLine)
	case c1 < c2:
		r.set(c1, mid, '└', kindLine)
		for x := max(c1+1, 0); x < min(c2, r.w); x++ {
			r.set(x, mid, '─', kindLine)
		}
		r.set(c2, mid, '┐', kindLine)
	default:
		r.set(c1, mid, '┘', kindLine)
		for x := max(c2+1, 0); x < min(c1, r.w); x++ {
			r.set(x, mid, '─', kindLine)
		}
		r.set(c2, mid, '┌', kindLine)
	}
}

// box draws a node box with its top-left corner at (col,row).
func (r *raster) box(col, row int, label string, k cellKind) {
	inner := boxCols - 2
	for x := 0; x < boxCols; x++ {
		top, bottom := '─', '─'
		switch x {
		case 0:
			top, bottom = '╭', '╰'
		case boxCols - 1:
			top, bottom = '╮', '╯'
		}
		r.set(col+x, row, top, k)
		r.set(col+x, row+boxRows-1, bottom, k)
	}
	text := []rune(domain.Truncate(label, inner-2))
	for y := 1; y < boxRows-1; y++ {
		r.set(col, row+y, '│', k)
		r.set(col+boxCols-1, row+y, '│', k)
		for x := 0; x < inner; x++ {
			ch := ' '
			if y == 1 && x >= 1 && x-1 < len(text) {
				ch = text[x-1]
			}
			r.set(col+1+x, row+y, ch, k)
		}
	}
}

func (r *raster) render(styles Styles) string {
	lines := make([]string, r.h)
	for y := 0; y < r.h; y++ {
		var sb strings.Builder
		start := 0
		for x := 1; x <= r.w; x++ {
			if x < r.w && r.kinds[y][x] == r.kinds[y][start] {
				continue
			}
			sb.WriteString(styles.cell(r.kinds[y][start]).Render(string(r.cells[y][start:x])))
			start = x
		}
		lines[y] = sb.String()
	}
	return strings.Join(lines, "\n")
}

// DrawCanvas rasterises the drawable nodes of s into a w×h block of cells.
// Connectors are drawn first so boxes cover their ends.
func DrawCanvas(idx *domain.Index, s canvas.State, w, h int, styles Styles) string {
	r := newRaster(w, h)

	for _, l := range canvas.Connections(idx, s) {
		c1, r1 := PointToCell(domain.Position{X: l.X1, Y: l.Y1})
		c2, r2 := PointToCell(domain.Position{X: l.X2, Y: l.Y2})
		r.connect(c1, r1, c2, r2)
	}

	onPath := make(map[domain.NodeID]bool)
	if id, ok := s.Selected(); ok {
		for _, n := range idx.Ancestry(id) {
			onPath[n.ID] = true
		}
	}

	for _, n := range canvas.Drawable(idx, s) {
		p, _ := s.Position(n.ID)
		col, row := PointToCell(p)
		k := kindBox
		switch {
		case n.ID == s.SelectedID:
			k = kindSelected
		case onPath[n.ID]:
			k = kindPath
		case n.Answer == "":
			k = kindPending
		}
		r.box(col, row, n.Question, k)
	}
	return r.render(styles)
}

// Styles holds the lipgloss styles of the canvas and side panel.
type Styles struct {
	Line     lipgloss.Style
	Box      lipgloss.Style
	Pending  lipgloss.Style
	Path     lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style
	Panel    lipgloss.Style
	Title    lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
}

// DefaultStyles returns the built-in palette.
func DefaultStyles() Styles {
	return Styles{
		Line:     lipgloss.NewStyle().Foreground(lipgloss.Color("#64748b")),
		Box:      lipgloss.NewStyle().Foreground(lipgloss.Color("#e2e8f0")),
		Pending:  lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8")).Faint(true),
		Path:     lipgloss.NewStyle().Foreground(lipgloss.Color("#38bdf8")),
		Selected: lipgloss.NewStyle().Foreground(lipgloss.Color("#facc15")).Bold(true),
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#a78bfa")),
		Panel:    lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderLeft(true).PaddingLeft(1),
		Title:    lipgloss.NewStyle().Bold(true),
		Muted:    lipgloss.NewStyle().Faint(true),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171")),
	}
}

func (s Styles) cell(k cellKind) lipgloss.Style {
	switch k {
	case kindLine:
		return s.Line
	case kindBox:
		return s.Box
	case kindPending:
		return s.Pending
	case kindPath:
		return s.Path
	case kindSelected:
		return s.Selected
	default:
		return lipgloss.NewStyle()
	}
}
