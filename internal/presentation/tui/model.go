package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/canvas"
	"github.com/aretw0/arbor/pkg/conversation"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Rows reserved above and below the canvas.
const (
	headerRows = 1
	footerRows = 1
)

type (
	askDoneMsg struct {
		id  domain.NodeID
		err error
	}
	clearDoneMsg   struct{ err error }
	refreshDoneMsg struct{ err error }
	treePushedMsg  struct{ tree *domain.Tree }
	updatesEndMsg  struct{}
)

// Model is the bubbletea model of the interactive canvas. All conversation
// and gesture state lives in the controller; the model only translates
// terminal input into controller calls and draws snapshots.
type Model struct {
	ctx     context.Context
	ctrl    *conversation.Controller
	input   textinput.Model
	styles  Styles
	title   string
	updates <-chan *domain.Tree

	newRenderer func(width int) func(string) (string, error)
	render      func(string) (string, error)
	answers     map[string]string

	width, height int
	status        string
}

// Option configures a Model.
type Option func(*Model)

// WithTitle sets the header text.
func WithTitle(title string) Option {
	return func(m *Model) { m.title = title }
}

// WithUpdates makes the model install every snapshot received on ch.
func WithUpdates(ch <-chan *domain.Tree) Option {
	return func(m *Model) { m.updates = ch }
}

// WithRendererFactory replaces the glamour answer renderer. The factory is
// called again whenever the side panel changes width.
func WithRendererFactory(f func(width int) func(string) (string, error)) Option {
	return func(m *Model) { m.newRenderer = f }
}

// WithStyles replaces the default palette.
func WithStyles(s Styles) Option {
	return func(m *Model) { m.styles = s }
}

// NewModel creates a canvas model driving ctrl. ctx bounds every
// collaborator call the model issues.
func NewModel(ctx context.Context, ctrl *conversation.Controller, opts ...Option) Model {
	in := textinput.New()
	in.Placeholder = "Ask a question"
	in.Prompt = "› "
	in.CharLimit = 4096
	in.SetValue(ctrl.Input())
	in.Focus()

	m := Model{
		ctx:         ctx,
		ctrl:        ctrl,
		input:       in,
		styles:      DefaultStyles(),
		title:       "arbor",
		newRenderer: NewRenderer,
		answers:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.render = PlainRenderer
	return m
}

// Init loads the current snapshot and starts listening for pushed updates.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.refresh(), m.waitForUpdate())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		pw := m.panelWidth()
		m.input.Width = max(pw-4, 10)
		m.render = m.newRenderer(max(pw-2, 10))
		m.answers = make(map[string]string)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil

	case askDoneMsg:
		switch {
		case msg.err == nil:
			if m.ctrl.Input() == "" {
				m.input.Reset()
			}
			m.status = ""
		case errors.Is(msg.err, domain.ErrAskSuperseded):
			m.status = "answer discarded: the conversation was cleared"
		case errors.Is(msg.err, domain.ErrAskInFlight):
			m.status = "still waiting for the previous answer"
		case errors.Is(msg.err, domain.ErrEmptyQuestion):
			m.status = "type a question first"
		default:
			m.status = ""
		}
		return m, nil

	case clearDoneMsg:
		if msg.err == nil {
			m.status = "conversation cleared"
		}
		return m, nil

	case refreshDoneMsg:
		return m, nil

	case treePushedMsg:
		m.ctrl.Apply(m.ctx, msg.tree)
		return m, m.waitForUpdate()

	case updatesEndMsg:
		m.updates = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "enter":
		if m.ctrl.Busy() {
			m.status = "still waiting for the previous answer"
			return m, nil
		}
		if !m.ctrl.CanSubmit() {
			return m, nil
		}
		parent, _ := m.ctrl.Snapshot().State.Selected()
		m.status = "thinking…"
		return m, m.ask(parent)

	case "esc":
		m.ctrl.Dispatch(canvas.Deselected{})
		return m, nil

	case "tab":
		m.cycleSelection(1)
		return m, nil

	case "shift+tab":
		m.cycleSelection(-1)
		return m, nil

	case "ctrl+l":
		m.status = "clearing…"
		return m, m.clear()

	case "ctrl+r":
		return m, m.refresh()

	case "shift+left":
		m.ctrl.Dispatch(canvas.PannedBy{Delta: domain.Position{X: -4 * CellWidth}})
		return m, nil
	case "shift+right":
		m.ctrl.Dispatch(canvas.PannedBy{Delta: domain.Position{X: 4 * CellWidth}})
		return m, nil
	case "shift+up":
		m.ctrl.Dispatch(canvas.PannedBy{Delta: domain.Position{Y: -CellHeight}})
		return m, nil
	case "shift+down":
		m.ctrl.Dispatch(canvas.PannedBy{Delta: domain.Position{Y: CellHeight}})
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.ctrl.SetInput(m.input.Value())
	return m, cmd
}

// handleMouse maps terminal mouse reports onto canvas events. Motion
// outside the canvas area ends any gesture, as a pointer leaving the
// surface would.
func (m Model) handleMouse(msg tea.MouseMsg) {
	col, row, inside := m.canvasCell(msg.X, msg.Y)
	if !inside {
		if msg.Action == tea.MouseActionRelease {
			m.ctrl.Dispatch(canvas.PointerReleased{})
		} else if m.ctrl.Snapshot().State.Gesture() != canvas.Idle {
			m.ctrl.Dispatch(canvas.PointerLeft{})
		}
		return
	}
	p := CellToPoint(col, row)

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.ctrl.Dispatch(canvas.PannedBy{Delta: domain.Position{Y: CellHeight}})
		return
	case tea.MouseButtonWheelDown:
		m.ctrl.Dispatch(canvas.PannedBy{Delta: domain.Position{Y: -CellHeight}})
		return
	case tea.MouseButtonWheelLeft:
		m.ctrl.Dispatch(canvas.PannedBy{Delta: domain.Position{X: 4 * CellWidth}})
		return
	case tea.MouseButtonWheelRight:
		m.ctrl.Dispatch(canvas.PannedBy{Delta: domain.Position{X: -4 * CellWidth}})
		return
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		v := m.ctrl.Snapshot()
		if id, ok := canvas.HitTest(v.Index, v.State, p); ok {
			m.ctrl.Dispatch(canvas.NodeClicked{ID: id})
			m.ctrl.Dispatch(canvas.NodePressed{ID: id, Pointer: p})
			return
		}
		m.ctrl.Dispatch(canvas.CanvasPressed{Pointer: p})
	case tea.MouseActionMotion:
		m.ctrl.Dispatch(canvas.PointerMoved{Pointer: p})
	case tea.MouseActionRelease:
		m.ctrl.Dispatch(canvas.PointerReleased{})
	}
}

func (m Model) cycleSelection(step int) {
	v := m.ctrl.Snapshot()
	nodes := canvas.Drawable(v.Index, v.State)
	if len(nodes) == 0 {
		return
	}
	next := 0
	if step < 0 {
		next = len(nodes) - 1
	}
	if cur, ok := v.State.Selected(); ok {
		for i, n := range nodes {
			if n.ID == cur {
				next = (i + step + len(nodes)) % len(nodes)
				break
			}
		}
	}
	m.ctrl.Dispatch(canvas.NodeClicked{ID: nodes[next].ID})
}

func (m Model) ask(parent domain.NodeID) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		id, err := ctrl.AskDraft(ctx, parent)
		return askDoneMsg{id: id, err: err}
	}
}

func (m Model) clear() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return clearDoneMsg{err: ctrl.Clear(ctx)}
	}
}

func (m Model) refresh() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return refreshDoneMsg{err: ctrl.Refresh(ctx)}
	}
}

func (m Model) waitForUpdate() tea.Cmd {
	ch := m.updates
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		tree, ok := <-ch
		if !ok {
			return updatesEndMsg{}
		}
		return treePushedMsg{tree: tree}
	}
}

func (m Model) panelWidth() int {
	return min(max(m.width/3, 30), 56)
}

func (m Model) canvasSize() (w, h int) {
	return max(m.width-m.panelWidth()-1, 0), max(m.height-headerRows-footerRows, 0)
}

// canvasCell converts a terminal cell to a cell of the canvas area.
func (m Model) canvasCell(x, y int) (col, row int, inside bool) {
	w, h := m.canvasSize()
	col, row = x, y-headerRows
	return col, row, col >= 0 && col < w && row >= 0 && row < h
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	v := m.ctrl.Snapshot()
	w, h := m.canvasSize()

	header := m.styles.Header.Render(m.title) +
		m.styles.Muted.Render(fmt.Sprintf("  %d nodes", v.Index.Len()))
	if v.Busy {
		header += m.styles.Muted.Render("  · waiting for answer")
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(w).Height(h).Render(DrawCanvas(v.Index, v.State, w, h, m.styles)),
		m.styles.Panel.Width(m.panelWidth()).Height(h).Render(m.panel(v)),
	)

	footer := m.styles.Muted.Render("enter ask · esc new root · tab select · drag move · shift+arrows pan · ctrl+l clear · ctrl+c quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) panel(v conversation.View) string {
	var sb strings.Builder
	if n, ok := v.Selected(); ok {
		sb.WriteString(m.styles.Title.Render(n.Question))
		sb.WriteString("\n\n")
		if n.Answer == "" {
			sb.WriteString(m.styles.Muted.Render("No answer yet."))
		} else {
			sb.WriteString(m.renderAnswer(n.Answer))
		}
		sb.WriteString("\n\n")
		sb.WriteString(m.styles.Muted.Render("Follow-up to: " + n.Label(LabelWidth)))
	} else {
		sb.WriteString(m.styles.Muted.Render("No node selected. Your question starts a new root."))
	}
	sb.WriteString("\n")
	sb.WriteString(m.input.View())

	switch {
	case v.Err != nil:
		sb.WriteString("\n" + m.styles.Error.Render(v.Err.Error()))
	case m.status != "":
		sb.WriteString("\n" + m.styles.Muted.Render(m.status))
	}
	return sb.String()
}

// LabelWidth is the number of runes of a question shown in side panel hints.
const LabelWidth = 32

func (m Model) renderAnswer(answer string) string {
	if out, ok := m.answers[answer]; ok {
		return out
	}
	out, err := m.render(answer)
	if err != nil {
		out = answer
	}
	m.answers[answer] = out
	return out
}
