package canvas

import "github.com/aretw0/arbor/pkg/domain"

// Reduce applies ev to s and returns the next state. s is not modified.
func Reduce(s State, ev Event) State {
	switch ev := ev.(type) {
	case NodePressed:
		pos, ok := s.Positions[ev.ID]
		if !ok {
			// Not drawable yet, so there is nothing to grab.
			return s
		}
		s.Panning = false
		s.DraggingID = ev.ID
		s.GrabOffset = ev.Pointer.Sub(pos)
		return s

	case CanvasPressed:
		s.DraggingID = ""
		s.Panning = true
		s.PanOrigin = ev.Pointer.Sub(s.Pan)
		return s

	case PointerMoved:
		switch s.Gesture() {
		case Dragging:
			s.Positions = s.Positions.Clone()
			s.Positions[s.DraggingID] = ev.Pointer.Sub(s.GrabOffset)
		case Panning:
			s.Pan = ev.Pointer.Sub(s.PanOrigin)
		}
		return s

	case PointerReleased, PointerLeft:
		return endGesture(s)

	case NodeClicked:
		if _, ok := s.Positions[ev.ID]; !ok {
			return s
		}
		s.SelectedID = ev.ID
		return s

	case Deselected:
		s.SelectedID = ""
		return s

	case PannedBy:
		if s.Gesture() != Idle {
			return s
		}
		s.Pan = s.Pan.Add(ev.Delta)
		return s

	case TreeReplaced:
		return replaceTree(s, ev)

	case Reset:
		return NewState()
	}
	return s
}

// Apply folds events over s in order.
func Apply(s State, events ...Event) State {
	for _, ev := range events {
		s = Reduce(s, ev)
	}
	return s
}

func endGesture(s State) State {
	s.DraggingID = ""
	s.GrabOffset = domain.Position{}
	s.Panning = false
	s.PanOrigin = domain.Position{}
	return s
}

func replaceTree(s State, ev TreeReplaced) State {
	s.Positions = ev.Positions.Clone()
	if ev.Index == nil {
		s.SelectedID = ""
		return endGesture(s)
	}
	if s.SelectedID != "" && !ev.Index.Reachable(s.SelectedID) {
		s.SelectedID = ""
	}
	if s.DraggingID != "" && !ev.Index.Reachable(s.DraggingID) {
		s.DraggingID = ""
		s.GrabOffset = domain.Position{}
	}
	return s
}
