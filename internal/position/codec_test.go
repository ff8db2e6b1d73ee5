package position

import (
	"errors"
	"testing"
)

const startPlacement = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"

func mustSquare(t *testing.T, s string) Square {
	t.Helper()
	sq, err := ParseSquare(s)
	if err != nil {
		t.Fatalf("ParseSquare(%q): %v", s, err)
	}
	return sq
}

func TestDecodeSingleRook(t *testing.T) {
	grid, err := Decode("8/8/8/8/8/8/8/R7")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	a1 := mustSquare(t, "a1")
	for sq := Square(0); sq < NumSquares; sq++ {
		want := NoPiece
		if sq == a1 {
			want = 'R'
		}
		if got := grid.At(sq); got != want {
			t.Fatalf("square %s: got %q want %q", sq, got, want)
		}
	}
	if n := len(grid.Placements()); n != 1 {
		t.Fatalf("expected 1 placement, got %d", n)
	}
}

func TestDecodeStartPosition(t *testing.T) {
	grid, err := Decode(startPlacement)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	cases := map[string]Piece{
		"a8": 'r', "e8": 'k', "d1": 'Q', "e1": 'K', "h2": 'P', "c7": 'p', "e4": NoPiece,
	}
	for s, want := range cases {
		if got := grid.At(mustSquare(t, s)); got != want {
			t.Fatalf("%s: got %q want %q", s, got, want)
		}
	}
	if n := len(grid.Placements()); n != 32 {
		t.Fatalf("expected 32 occupants, got %d", n)
	}
}

func TestDecodeFullFENUsesPlacementOnly(t *testing.T) {
	a, err := Decode(startPlacement + " w KQkq - 0 1")
	if err != nil {
		t.Fatalf("Decode full FEN: %v", err)
	}
	b, err := Decode(startPlacement)
	if err != nil {
		t.Fatalf("Decode placement: %v", err)
	}
	if a != b {
		t.Fatalf("full FEN and placement decoded differently")
	}
}

func TestDecodeIdempotent(t *testing.T) {
	in := "r3k2r/pp1n1ppp/2p1pn2/q7/1bPP4/2N1PN2/PP3PPP/R2QKB1R"
	first, err := Decode(in)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	second, err := Decode(in)
	if err != nil {
		t.Fatalf("Decode again: %v", err)
	}
	if first != second {
		t.Fatalf("decoding the same input twice produced different grids")
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"seven rows", "8/8/8/8/8/8/8"},
		{"nine rows", "8/8/8/8/8/8/8/8/8"},
		{"short row", "8/8/8/8/8/8/8/R6"},
		{"long row", "8/8/8/8/8/8/8/R8"},
		{"run overflow", "8/8/8/8/8/8/8/9"},
		{"occupant past h", "8/8/8/8/8/8/8/8R"},
		{"zero run", "8/8/8/8/8/8/8/0R7"},
		{"bad symbol", "8/8/8/8/8/8/8/R6*"},
		{"trailing slash", "8/8/8/8/8/8/8/8/"},
		{"huge runs", "8/8/8/8/8/8/8/P9223372036854775807Q9223372036854775807R7"},
		{"run past int", "8/8/8/8/8/8/8/99999999999999999999"},
		{"non-ascii letter", "8/8/8/8/8/8/8/Ж7"},
		{"non-ascii digit", "8/8/8/8/8/8/8/R٧"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.in)
			if err == nil {
				t.Fatalf("expected error for %q", tc.in)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %T", err)
			}
		})
	}
}

func TestDecodeMultiDigitRun(t *testing.T) {
	// "08" is one run of eight.
	if _, err := Decode("08/8/8/8/8/8/8/8"); err != nil {
		t.Fatalf("Decode multi-digit run: %v", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	inputs := []string{
		startPlacement,
		"8/8/8/8/8/8/8/R7",
		"8/8/8/8/8/8/8/8",
		"r3k2r/pp1n1ppp/2p1pn2/q7/1bPP4/2N1PN2/PP3PPP/R2QKB1R",
		"7k/8/8/8/8/8/8/K7",
	}
	for _, in := range inputs {
		grid, err := Decode(in)
		if err != nil {
			t.Fatalf("Decode(%q): %v", in, err)
		}
		if out := Encode(grid); out != in {
			t.Fatalf("Encode(Decode(%q)) = %q", in, out)
		}
	}
}

func TestSquareMapping(t *testing.T) {
	if sq := NewSquare(FileA, Rank1); sq != 0 || sq.String() != "a1" {
		t.Fatalf("a1 = %d %s", sq, sq)
	}
	if sq := NewSquare(FileH, Rank8); sq != 63 || sq.String() != "h8" {
		t.Fatalf("h8 = %d %s", sq, sq)
	}
	if NewSquare(FileA, Rank1).Light() {
		t.Fatalf("a1 must be dark")
	}
	if !NewSquare(FileH, Rank1).Light() {
		t.Fatalf("h1 must be light")
	}
	for _, bad := range []string{"", "i1", "a9", "a0", "e", "e44"} {
		if _, err := ParseSquare(bad); err == nil {
			t.Fatalf("ParseSquare(%q) should fail", bad)
		}
	}
	if NewSquare(File(8), Rank1) != NoSquare {
		t.Fatalf("out of range file must map to NoSquare")
	}
	seen := map[Square]bool{}
	for _, sq := range AllSquares() {
		if seen[sq] {
			t.Fatalf("duplicate square %s", sq)
		}
		seen[sq] = true
		back, err := ParseSquare(sq.String())
		if err != nil || back != sq {
			t.Fatalf("round trip %s failed: %v %v", sq, back, err)
		}
	}
	if len(seen) != NumSquares {
		t.Fatalf("expected %d squares, got %d", NumSquares, len(seen))
	}
}

func TestPieceColor(t *testing.T) {
	if Piece('K').Color() != White || Piece('k').Color() != Black || NoPiece.Color() != NoColor {
		t.Fatalf("unexpected piece colors")
	}
}
