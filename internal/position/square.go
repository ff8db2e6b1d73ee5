package position

import (
	"fmt"
	"strings"
)

const (
	NumFiles   = 8
	NumRanks   = 8
	NumSquares = NumFiles * NumRanks
)

// File is a board column, FileA (0) through FileH (7).
type File int8

// Rank is a board row, Rank1 (0) through Rank8 (7).
type Rank int8

const (
	FileA File = iota
	FileB
	FileC
	FileD
	FileE
	FileF
	FileG
	FileH
)

const (
	Rank1 Rank = iota
	Rank2
	Rank3
	Rank4
	Rank5
	Rank6
	Rank7
	Rank8
)

func (f File) Valid() bool { return f >= FileA && f <= FileH }
func (r Rank) Valid() bool { return r >= Rank1 && r <= Rank8 }

func (f File) String() string {
	if !f.Valid() {
		return "?"
	}
	return string(rune('a' + f))
}

func (r Rank) String() string {
	if !r.Valid() {
		return "?"
	}
	return string(rune('1' + r))
}

// Square identifies one of the 64 board squares. The value is rank*8+file,
// so A1 is 0 and H8 is 63; the same layout corentings/chess uses.
type Square uint8

// NoSquare is returned by lookups that do not land on the board.
const NoSquare Square = 0xff

func NewSquare(f File, r Rank) Square {
	if !f.Valid() || !r.Valid() {
		return NoSquare
	}
	return Square(int(r)*NumFiles + int(f))
}

func (sq Square) Valid() bool { return sq < NumSquares }
func (sq Square) File() File  { return File(int(sq) % NumFiles) }
func (sq Square) Rank() Rank  { return Rank(int(sq) / NumFiles) }

// Light reports whether the square is a light square. a1 is dark.
func (sq Square) Light() bool {
	return (int(sq.File())+int(sq.Rank()))%2 == 1
}

func (sq Square) String() string {
	if !sq.Valid() {
		return "-"
	}
	return sq.File().String() + sq.Rank().String()
}

// ParseSquare converts algebraic notation ("e4") into a Square.
func ParseSquare(s string) (Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("invalid square %q", s)
	}
	f := File(s[0] - 'a')
	r := Rank(s[1] - '1')
	if s[0] < 'a' || s[1] < '1' || !f.Valid() || !r.Valid() {
		return NoSquare, fmt.Errorf("invalid square %q", s)
	}
	return NewSquare(f, r), nil
}

// AllSquares lists the board in display order: rank 8 down to rank 1, files a to h.
func AllSquares() []Square {
	out := make([]Square, 0, NumSquares)
	for r := Rank8; r >= Rank1; r-- {
		for f := FileA; f <= FileH; f++ {
			out = append(out, NewSquare(f, r))
		}
	}
	return out
}

// Move is a candidate (from, to) pair.
type Move struct {
	From Square
	To   Square
}

func (m Move) String() string { return m.From.String() + m.To.String() }
