package boardview

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/park285/cheese-board/internal/position"
	"go.uber.org/zap"
)

var (
	ErrAlreadyBuilt = errors.New("board view already built")
	ErrNotBuilt     = errors.New("board view not built")
)

// Shade is the light/dark classification of a cell.
type Shade int8

const (
	Dark Shade = iota
	Light
)

func (s Shade) String() string {
	if s == Light {
		return "light"
	}
	return "dark"
}

// Marker is the visual occupant attached to a cell. Every marker gets a fresh
// ID when it is created, so a captured marker can be told apart from the one
// that replaced it.
type Marker struct {
	ID    string
	Piece position.Piece
}

// Cell is one of the 64 square elements.
type Cell struct {
	Square position.Square
	Shade  Shade
	marker *Marker
}

// ChangeKind tells subscribers what happened to the view.
type ChangeKind int8

const (
	ChangePopulated ChangeKind = iota
	ChangeRelocated
)

type Change struct {
	Kind     ChangeKind
	Move     position.Move
	Captured *Marker
}

// View owns the cells and their occupant markers. Only the interaction
// controller mutates it; readers may call Lookup/Snapshot from any goroutine.
type View struct {
	mu      sync.RWMutex
	built   bool
	cells   [position.NumSquares]*Cell
	markers map[string]*Cell

	subM sync.RWMutex
	subs []func(Change)

	logger *zap.Logger
}

func New(logger *zap.Logger) *View {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &View{markers: make(map[string]*Cell), logger: logger}
}

// Build creates the 64 cells. The square of each cell is fixed here and
// never recomputed. A second call returns ErrAlreadyBuilt.
func (v *View) Build() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.built {
		return ErrAlreadyBuilt
	}
	for i := range v.cells {
		sq := position.Square(i)
		shade := Dark
		if sq.Light() {
			shade = Light
		}
		v.cells[i] = &Cell{Square: sq, Shade: shade}
	}
	v.built = true
	return nil
}

func (v *View) Built() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.built
}

// Populate replaces every marker with the occupants of grid. Cells without an
// occupant end up empty.
func (v *View) Populate(grid position.Grid) error {
	v.mu.Lock()
	if !v.built {
		v.mu.Unlock()
		return ErrNotBuilt
	}
	for _, c := range v.cells {
		c.marker = nil
	}
	v.markers = make(map[string]*Cell)
	for _, pl := range grid.Placements() {
		c := v.cells[pl.Square]
		c.marker = &Marker{ID: uuid.NewString(), Piece: pl.Piece}
		v.markers[c.marker.ID] = c
	}
	n := len(v.markers)
	v.mu.Unlock()

	v.logger.Debug("board_populated", zap.Int("occupants", n))
	v.notify(Change{Kind: ChangePopulated})
	return nil
}

// Relocate moves the marker on from to to, removing whatever marker was on
// to. It returns false and leaves the view untouched when from is empty.
func (v *View) Relocate(from, to position.Square) bool {
	if !from.Valid() || !to.Valid() || from == to {
		return false
	}
	v.mu.Lock()
	if !v.built {
		v.mu.Unlock()
		return false
	}
	src, dst := v.cells[from], v.cells[to]
	if src.marker == nil {
		v.mu.Unlock()
		return false
	}
	captured := dst.marker
	if captured != nil {
		delete(v.markers, captured.ID)
	}
	dst.marker = src.marker
	src.marker = nil
	v.markers[dst.marker.ID] = dst
	v.mu.Unlock()

	ch := Change{Kind: ChangeRelocated, Move: position.Move{From: from, To: to}}
	if captured != nil {
		c := *captured
		ch.Captured = &c
	}
	v.notify(ch)
	return true
}

// Lookup returns the occupant displayed on sq.
func (v *View) Lookup(sq position.Square) (position.Piece, bool) {
	if !sq.Valid() {
		return position.NoPiece, false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.built || v.cells[sq].marker == nil {
		return position.NoPiece, false
	}
	return v.cells[sq].marker.Piece, true
}

// MarkerAt returns a copy of the marker on sq.
func (v *View) MarkerAt(sq position.Square) (Marker, bool) {
	if !sq.Valid() {
		return Marker{}, false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.built || v.cells[sq].marker == nil {
		return Marker{}, false
	}
	return *v.cells[sq].marker, true
}

// HasMarker reports whether a marker with id is still attached anywhere.
func (v *View) HasMarker(id string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.markers[id]
	return ok
}

// ShadeOf returns the light/dark classification of a square.
func (v *View) ShadeOf(sq position.Square) Shade {
	if sq.Valid() && sq.Light() {
		return Light
	}
	return Dark
}

// Snapshot returns the displayed occupants as a grid.
func (v *View) Snapshot() position.Grid {
	var g position.Grid
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.built {
		return g
	}
	for i, c := range v.cells {
		if c.marker != nil {
			g[i] = c.marker.Piece
		}
	}
	return g
}

// Subscribe registers fn for every change. The callback runs after the view
// lock is released.
func (v *View) Subscribe(fn func(Change)) {
	if fn == nil {
		return
	}
	v.subM.Lock()
	v.subs = append(v.subs, fn)
	v.subM.Unlock()
}

func (v *View) notify(ch Change) {
	v.subM.RLock()
	subs := make([]func(Change), len(v.subs))
	copy(subs, v.subs)
	v.subM.RUnlock()
	for _, fn := range subs {
		fn(ch)
	}
}
