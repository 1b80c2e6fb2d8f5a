package canvas

import "github.com/aretw0/arbor/pkg/domain"

// Gesture is the active pointer gesture.
type Gesture int

const (
	Idle Gesture = iota
	Dragging
	Panning
)

func (g Gesture) String() string {
	switch g {
	case Dragging:
		return "dragging"
	case Panning:
		return "panning"
	default:
		return "idle"
	}
}

// State is the transient interaction state of one canvas. It is never persisted.
type State struct {
	// Positions holds canvas-local coordinates. Drags write here; layouts replace it.
	Positions domain.Positions

	// DraggingID is the node being moved, or empty.
	DraggingID domain.NodeID
	// GrabOffset is pointer minus node origin captured at drag start.
	GrabOffset domain.Position

	// Pan is the translation applied to the whole canvas when rendering.
	Pan domain.Position
	// Panning is set while the background is being dragged.
	Panning bool
	// PanOrigin is pointer minus Pan captured at pan start.
	PanOrigin domain.Position

	// SelectedID is the selected node, or empty.
	SelectedID domain.NodeID
}

// NewState returns the initial Idle state with no positions.
func NewState() State {
	return State{Positions: domain.Positions{}}
}

// Gesture reports which gesture is active.
func (s State) Gesture() Gesture {
	switch {
	case s.DraggingID != "":
		return Dragging
	case s.Panning:
		return Panning
	default:
		return Idle
	}
}

// Selected returns the selected node id and whether one is selected.
func (s State) Selected() (domain.NodeID, bool) {
	return s.SelectedID, s.SelectedID != ""
}

// Position returns where id is drawn on screen, pan included.
func (s State) Position(id domain.NodeID) (domain.Position, bool) {
	p, ok := s.Positions[id]
	if !ok {
		return domain.Position{}, false
	}
	return p.Add(s.Pan), true
}
