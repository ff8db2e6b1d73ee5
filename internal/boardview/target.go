package boardview

import "github.com/park285/cheese-board/internal/position"

// TargetKind is what a pointer event landed on.
type TargetKind int8

const (
	TargetOutside TargetKind = iota
	TargetCell
	TargetMarker
)

// Target is the element under the pointer. Handlers registered on a cell
// carry the cell's square; handlers registered on a marker carry its ID.
type Target struct {
	Kind     TargetKind
	Square   position.Square
	MarkerID string
}

func CellTarget(sq position.Square) Target { return Target{Kind: TargetCell, Square: sq} }
func MarkerTarget(id string) Target        { return Target{Kind: TargetMarker, MarkerID: id} }
func Outside() Target                      { return Target{Kind: TargetOutside} }

// SquareOf resolves a target through its owning cell. A marker resolves to
// the cell it is attached to, never to itself.
func (v *View) SquareOf(t Target) (position.Square, bool) {
	switch t.Kind {
	case TargetCell:
		if !t.Square.Valid() || !v.Built() {
			return position.NoSquare, false
		}
		return t.Square, true
	case TargetMarker:
		v.mu.RLock()
		defer v.mu.RUnlock()
		c, ok := v.markers[t.MarkerID]
		if !ok {
			return position.NoSquare, false
		}
		return c.Square, true
	default:
		return position.NoSquare, false
	}
}
