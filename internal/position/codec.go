package position

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Piece is an occupant symbol taken from the encoding alphabet. Upper case
// letters are white, lower case letters are black. NoPiece marks an empty square.
type Piece rune

const NoPiece Piece = 0

// Color of an occupant.
type Color int8

const (
	NoColor Color = iota
	White
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return "none"
	}
}

func (p Piece) Color() Color {
	switch {
	case p == NoPiece:
		return NoColor
	case unicode.IsUpper(rune(p)):
		return White
	default:
		return Black
	}
}

func (p Piece) String() string {
	if p == NoPiece {
		return ""
	}
	return string(rune(p))
}

// Placement pairs a square with its occupant.
type Placement struct {
	Square Square
	Piece  Piece
}

// Grid holds the occupant of every square, indexed by Square.
type Grid [NumSquares]Piece

func (g *Grid) At(sq Square) Piece {
	if !sq.Valid() {
		return NoPiece
	}
	return g[sq]
}

// Placements returns the occupied squares in encoding order (a8..h8, ..., a1..h1).
func (g *Grid) Placements() []Placement {
	var out []Placement
	for _, sq := range AllSquares() {
		if p := g[sq]; p != NoPiece {
			out = append(out, Placement{Square: sq, Piece: p})
		}
	}
	return out
}

// DecodeError reports a malformed position encoding. Row is 0 for the first
// (rank 8) row; Column is the file cursor when the error was found.
type DecodeError struct {
	Input  string
	Row    int
	Column int
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("decode position %q: %s", e.Input, e.Reason)
	}
	return fmt.Sprintf("decode position %q: row %d (rank %d) col %d: %s", e.Input, e.Row+1, NumRanks-e.Row, e.Column, e.Reason)
}

// Decode parses the rank-separated, run-length compressed placement format.
// A full FEN is accepted; only the text before the first space is read.
func Decode(encoding string) (Grid, error) {
	var grid Grid

	placement := strings.TrimSpace(encoding)
	if i := strings.IndexByte(placement, ' '); i >= 0 {
		placement = placement[:i]
	}
	rows := strings.Split(placement, "/")
	if len(rows) != NumRanks {
		return Grid{}, &DecodeError{Input: encoding, Row: -1, Reason: fmt.Sprintf("expected %d rows, got %d", NumRanks, len(rows))}
	}

	for row, text := range rows {
		rank := Rank(NumRanks - 1 - row)
		file := 0
		runes := []rune(text)
		for i := 0; i < len(runes); {
			ch := runes[i]
			if isDigit(ch) {
				j := i
				for j < len(runes) && isDigit(runes[j]) {
					j++
				}
				n, err := strconv.Atoi(string(runes[i:j]))
				if err != nil || n <= 0 {
					return Grid{}, &DecodeError{Input: encoding, Row: row, Column: file, Reason: fmt.Sprintf("bad run length %q", string(runes[i:j]))}
				}
				if n > NumFiles-file {
					return Grid{}, &DecodeError{Input: encoding, Row: row, Column: file, Reason: "run overflows file h"}
				}
				file += n
				i = j
				continue
			}
			if !isLetter(ch) {
				return Grid{}, &DecodeError{Input: encoding, Row: row, Column: file, Reason: fmt.Sprintf("unexpected symbol %q", ch)}
			}
			if file >= NumFiles {
				return Grid{}, &DecodeError{Input: encoding, Row: row, Column: file, Reason: "occupant past file h"}
			}
			grid[NewSquare(File(file), rank)] = Piece(ch)
			file++
			i++
		}
		if file != NumFiles {
			return Grid{}, &DecodeError{Input: encoding, Row: row, Column: file, Reason: fmt.Sprintf("row covers %d files, want %d", file, NumFiles)}
		}
	}
	return grid, nil
}

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }

// isLetter accepts ASCII letters only; they are the occupant alphabet.
func isLetter(ch rune) bool { return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') }

// Encode writes the grid back in placement format, rank 8 first.
func Encode(grid Grid) string {
	var b strings.Builder
	for r := Rank8; r >= Rank1; r-- {
		if r != Rank8 {
			b.WriteByte('/')
		}
		empty := 0
		for f := FileA; f <= FileH; f++ {
			p := grid[NewSquare(f, r)]
			if p == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				b.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			b.WriteRune(rune(p))
		}
		if empty > 0 {
			b.WriteString(strconv.Itoa(empty))
		}
	}
	return b.String()
}

// Draw renders the grid as text, one rank per line, '.' for empty squares.
func Draw(grid Grid) string {
	var b strings.Builder
	for r := Rank8; r >= Rank1; r-- {
		b.WriteString(r.String())
		b.WriteByte(' ')
		for f := FileA; f <= FileH; f++ {
			p := grid[NewSquare(f, r)]
			if p == NoPiece {
				b.WriteByte('.')
			} else {
				b.WriteRune(rune(p))
			}
			if f != FileH {
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}
	b.WriteString("  a b c d e f g h\n")
	return b.String()
}
