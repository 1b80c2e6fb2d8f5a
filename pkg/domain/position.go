package domain

// Position is a point in canvas space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by d.
func (p Position) Add(d Position) Position { return Position{X: p.X + d.X, Y: p.Y + d.Y} }

// Sub returns p - d.
func (p Position) Sub(d Position) Position { return Position{X: p.X - d.X, Y: p.Y - d.Y} }

// Positions maps node ids to canvas coordinates.
type Positions map[NodeID]Position

// Clone returns a shallow copy of p. A nil map clones to an empty one.
func (p Positions) Clone() Positions {
	out := make(Positions, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
