package referee

import (
	"context"
	"testing"

	"github.com/park285/cheese-board/internal/boardview"
	"github.com/park285/cheese-board/internal/interaction"
	"github.com/park285/cheese-board/internal/position"
)

func TestSeatDrivesController(t *testing.T) {
	m := newTestManager(t)
	g, err := m.Create(context.Background(), "4k3/8/8/8/8/8/8/R3K3")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	view := boardview.New(nil)
	ctl := interaction.New(view, m.Seat(g.ID))
	if err := ctl.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	rook, _ := view.MarkerAt(sq(t, "a1"))
	if err := ctl.PointerDown(boardview.MarkerTarget(rook.ID)); err != nil {
		t.Fatalf("PointerDown: %v", err)
	}
	res := ctl.Drop(context.Background(), boardview.CellTarget(sq(t, "b2")))
	if res.Outcome != interaction.OutcomeRejected {
		t.Fatalf("diagonal rook move: got %s want rejected", res.Outcome)
	}
	if got, _ := view.Lookup(sq(t, "a1")); got != 'R' {
		t.Fatalf("rook should remain on a1")
	}

	_ = ctl.PointerDown(boardview.MarkerTarget(rook.ID))
	res = ctl.Drop(context.Background(), boardview.CellTarget(sq(t, "a2")))
	if res.Outcome != interaction.OutcomeAccepted {
		t.Fatalf("a1a2: got %s want accepted", res.Outcome)
	}
	if got, _ := view.Lookup(sq(t, "a2")); got != 'R' {
		t.Fatalf("rook should be on a2")
	}
	enc, _ := m.Position(context.Background(), g.ID)
	if enc != "4k3/8/8/8/8/8/R7/4K3" {
		t.Fatalf("authority placement %q", enc)
	}
}

func TestSeatMovesTouchingExtraSquares(t *testing.T) {
	cases := []struct {
		name     string
		start    string
		from, to string
		want     string
	}{
		{"promotion", "4k3/P7/8/8/8/8/8/4K3", "a7", "a8", "Q3k3/8/8/8/8/8/8/4K3"},
		{"castling", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1", "g1", "r3k2r/8/8/8/8/8/8/R4RK1"},
		{"en passant", "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1", "e5", "d6", "4k3/8/3P4/8/8/8/8/4K3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestManager(t)
			g, err := m.Create(context.Background(), tc.start)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			view := boardview.New(nil)
			ctl := interaction.New(view, m.Seat(g.ID))
			if err := ctl.Load(context.Background()); err != nil {
				t.Fatalf("Load: %v", err)
			}

			piece, _ := view.MarkerAt(sq(t, tc.from))
			if err := ctl.PointerDown(boardview.MarkerTarget(piece.ID)); err != nil {
				t.Fatalf("PointerDown: %v", err)
			}
			res := ctl.Drop(context.Background(), boardview.CellTarget(sq(t, tc.to)))
			if res.Outcome != interaction.OutcomeAccepted || res.Stale {
				t.Fatalf("got %+v want accepted and fresh", res)
			}

			authority, err := m.Position(context.Background(), g.ID)
			if err != nil {
				t.Fatalf("Position: %v", err)
			}
			if authority != tc.want {
				t.Fatalf("authority placement %q want %q", authority, tc.want)
			}
			if got := position.Encode(view.Snapshot()); got != authority {
				t.Fatalf("view %q differs from authority %q", got, authority)
			}
		})
	}
}
