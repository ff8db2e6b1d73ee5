package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/park285/cheese-board/internal/boardview"
	"github.com/park285/cheese-board/internal/interaction"
	"github.com/park285/cheese-board/internal/position"
	"github.com/park285/cheese-board/pkg/boarddto"
)

const start = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"

type staticAuthority struct{ encoding string }

func (a staticAuthority) Position(context.Context) (string, error) { return a.encoding, nil }
func (a staticAuthority) ValidateAndApply(context.Context, position.Square, position.Square) (bool, error) {
	return false, nil
}

func mustSquare(t *testing.T, s string) position.Square {
	t.Helper()
	sq, err := position.ParseSquare(s)
	if err != nil {
		t.Fatalf("ParseSquare(%q): %v", s, err)
	}
	return sq
}

func TestCellSquareMapping(t *testing.T) {
	cases := []struct {
		row, col int
		flip     bool
		want     string
	}{
		{0, 1, false, "a8"},
		{7, 1, false, "a1"},
		{7, 8, false, "h1"},
		{0, 8, false, "h8"},
		{0, 1, true, "h1"},
		{7, 8, true, "a8"},
	}
	for _, tc := range cases {
		got := cellToSquare(tc.row, tc.col, tc.flip)
		if got.String() != tc.want {
			t.Fatalf("cellToSquare(%d,%d,%v) = %s want %s", tc.row, tc.col, tc.flip, got, tc.want)
		}
		row, col := squareToCell(got, tc.flip)
		if row != tc.row || col != tc.col {
			t.Fatalf("squareToCell(%s,%v) = %d,%d want %d,%d", got, tc.flip, row, col, tc.row, tc.col)
		}
	}
	if cellToSquare(labelRow, 3, false) != position.NoSquare || cellToSquare(2, labelCol, false) != position.NoSquare {
		t.Fatalf("label cells must not map to squares")
	}
}

func TestLabels(t *testing.T) {
	if rankLabel(0, false) != "8" || rankLabel(0, true) != "1" {
		t.Fatalf("rank labels: %s %s", rankLabel(0, false), rankLabel(0, true))
	}
	if fileLabel(1, false) != "a" || fileLabel(1, true) != "h" {
		t.Fatalf("file labels: %s %s", fileLabel(1, false), fileLabel(1, true))
	}
}

func loadedShell(t *testing.T) *Shell {
	t.Helper()
	s := New(staticAuthority{encoding: start}, Options{GameID: "g1"})
	if err := s.Controller().Refresh(start); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	s.render()
	return s
}

func TestRenderedCellsCarryTargets(t *testing.T) {
	s := loadedShell(t)

	row, col := squareToCell(mustSquare(t, "e2"), false)
	target := s.targetAt(row, col)
	if target.Kind != boardview.TargetMarker {
		t.Fatalf("occupied cell should carry a marker target, got %+v", target)
	}
	if sq, ok := s.view.SquareOf(target); !ok || sq.String() != "e2" {
		t.Fatalf("marker target resolved to %s/%v", sq, ok)
	}

	row, col = squareToCell(mustSquare(t, "e4"), false)
	target = s.targetAt(row, col)
	if target.Kind != boardview.TargetCell || target.Square.String() != "e4" {
		t.Fatalf("empty cell should carry its square, got %+v", target)
	}
	if got := s.targetAt(labelRow, 2); got.Kind != boardview.TargetOutside {
		t.Fatalf("label cell should be outside, got %+v", got)
	}
}

func TestSelectPicksPiece(t *testing.T) {
	s := loadedShell(t)

	row, col := squareToCell(mustSquare(t, "e4"), false)
	s.handleSelect(row, col)
	if st, _ := s.Controller().State(); st != interaction.Idle {
		t.Fatalf("selecting an empty cell should stay idle, got %s", st)
	}

	row, col = squareToCell(mustSquare(t, "g1"), false)
	s.handleSelect(row, col)
	st, pending := s.Controller().State()
	if st != interaction.Dragging || pending.From.String() != "g1" {
		t.Fatalf("expected dragging from g1, got %s %s", st, pending.From)
	}
	if got := s.table.GetCell(row, col).BackgroundColor; got != pickedColor {
		t.Fatalf("picked cell should be highlighted")
	}
}

func TestSelectAfterFlip(t *testing.T) {
	s := New(staticAuthority{encoding: start}, Options{Flip: true})
	if err := s.Controller().Refresh(start); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	s.render()
	row, col := squareToCell(mustSquare(t, "d8"), true)
	if row != 7 || col != 5 {
		t.Fatalf("d8 flipped should sit at 7,5 got %d,%d", row, col)
	}
	s.handleSelect(row, col)
	if _, pending := s.Controller().State(); pending.From.String() != "d8" {
		t.Fatalf("expected d8 picked, got %s", pending.From)
	}
}

func TestMoveFromUCI(t *testing.T) {
	mv, ok := moveFromUCI("e7e8q")
	if !ok || mv.String() != "e7e8" {
		t.Fatalf("got %s/%v", mv, ok)
	}
	if _, ok := moveFromUCI(""); ok {
		t.Fatalf("empty uci should not parse")
	}
}

// scriptedAuthority serves a settable encoding and holds each validation
// until gate is closed.
type scriptedAuthority struct {
	mu       sync.Mutex
	encoding string
	accept   bool
	gate     chan struct{}
	entered  chan struct{}
}

func (a *scriptedAuthority) Position(context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.encoding, nil
}

func (a *scriptedAuthority) ValidateAndApply(ctx context.Context, _, _ position.Square) (bool, error) {
	if a.entered != nil {
		close(a.entered)
	}
	if a.gate != nil {
		select {
		case <-a.gate:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return a.accept, nil
}

func (a *scriptedAuthority) set(encoding string) {
	a.mu.Lock()
	a.encoding = encoding
	a.mu.Unlock()
}

func waitForView(t *testing.T, s *Shell, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if position.Encode(s.view.Snapshot()) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("view never reached %q, last %q", want, position.Encode(s.view.Snapshot()))
}

func TestFeedEventRepopulates(t *testing.T) {
	s := loadedShell(t)
	const next = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR"

	s.handleFeedEvent(boarddto.FeedEvent{Type: boarddto.FeedMoveApplied, UCI: "e2e4", Placement: next})
	if got := position.Encode(s.view.Snapshot()); got != next {
		t.Fatalf("view %q want %q", got, next)
	}

	s.handleFeedEvent(boarddto.FeedEvent{Type: boarddto.FeedMoveApplied, Placement: "bogus"})
	if got := position.Encode(s.view.Snapshot()); got != next {
		t.Fatalf("malformed feed placement changed the view to %q", got)
	}
}

func TestStaleResolutionResyncs(t *testing.T) {
	auth := &scriptedAuthority{encoding: start}
	s := New(auth, Options{})
	if err := s.Controller().Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	const moved = "rnbqkbnr/pppp1ppp/8/4p3/8/8/PPPPPPPP/RNBQKBNR"
	auth.set(moved)

	s.onResolve(interaction.Resolution{Outcome: interaction.OutcomeFailed, Stale: true})
	waitForView(t, s, moved)
	if s.Controller().Stale() {
		t.Fatalf("resync should clear the stale flag")
	}
}

func TestFeedDuringResolutionTriggersResync(t *testing.T) {
	auth := &scriptedAuthority{
		encoding: start,
		gate:     make(chan struct{}),
		entered:  make(chan struct{}),
	}
	s := New(auth, Options{})
	if err := s.Controller().Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	s.render()

	row, col := squareToCell(mustSquare(t, "g1"), false)
	s.handleSelect(row, col)
	row, col = squareToCell(mustSquare(t, "f3"), false)
	s.handleSelect(row, col)
	<-auth.entered

	const pushed = "rnbqkbnr/pppp1ppp/8/4p3/8/8/PPPPPPPP/RNBQKBNR"
	auth.set(pushed)
	s.handleFeedEvent(boarddto.FeedEvent{Type: boarddto.FeedMoveApplied, UCI: "e7e5", Placement: pushed})
	if got := position.Encode(s.view.Snapshot()); got != start {
		t.Fatalf("feed must not repopulate while resolving, view %q", got)
	}
	if !s.Controller().Stale() {
		t.Fatalf("refused feed refresh should mark the view stale")
	}

	close(auth.gate)
	waitForView(t, s, pushed)
}

func TestFlipKeepsCursorSquare(t *testing.T) {
	s := loadedShell(t)
	s.table.Select(squareToCell(mustSquare(t, "b3"), false))

	s.handleKey(tcell.NewEventKey(tcell.KeyRune, 'f', tcell.ModNone))
	if !s.flip {
		t.Fatalf("f should flip the board")
	}
	row, col := s.table.GetSelection()
	if got := cellToSquare(row, col, true); got.String() != "b3" {
		t.Fatalf("cursor moved to %s", got)
	}
}
