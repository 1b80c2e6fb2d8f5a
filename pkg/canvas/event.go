package canvas

import "github.com/aretw0/arbor/pkg/domain"

// Event is an input to Reduce. Pointer coordinates are in screen space.
type Event interface {
	isEvent()
}

// NodePressed is a primary-button press on a node.
type NodePressed struct {
	ID      domain.NodeID
	Pointer domain.Position
}

// CanvasPressed is a primary-button press on the empty background.
type CanvasPressed struct {
	Pointer domain.Position
}

// PointerMoved is any pointer motion over the canvas.
type PointerMoved struct {
	Pointer domain.Position
}

// PointerReleased ends the active gesture.
type PointerReleased struct{}

// PointerLeft means the pointer exited the canvas; it ends the active gesture.
type PointerLeft struct{}

// NodeClicked selects a node.
type NodeClicked struct {
	ID domain.NodeID
}

// Deselected clears the selection.
type Deselected struct{}

// PannedBy nudges the pan offset without a gesture.
type PannedBy struct {
	Delta domain.Position
}

// TreeReplaced installs positions computed for a new tree snapshot.
type TreeReplaced struct {
	Index     *domain.Index
	Positions domain.Positions
}

// Reset returns to the initial state.
type Reset struct{}

func (NodePressed) isEvent()     {}
func (CanvasPressed) isEvent()   {}
func (PointerMoved) isEvent()    {}
func (PointerReleased) isEvent() {}
func (PointerLeft) isEvent()     {}
func (NodeClicked) isEvent()     {}
func (Deselected) isEvent()      {}
func (PannedBy) isEvent()        {}
func (TreeReplaced) isEvent()    {}
func (Reset) isEvent()           {}
