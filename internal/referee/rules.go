package referee

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-board/internal/position"
)

// normalizeStart turns a bare placement into a full FEN with white to move.
func normalizeStart(start string) string {
	if start == "" {
		return ""
	}
	if len(strings.Fields(start)) == 1 {
		return start + " w - - 0 1"
	}
	return start
}

func newChessGame(start string) (*nchess.Game, error) {
	start = normalizeStart(start)
	if start == "" {
		return nchess.NewGame(), nil
	}
	if _, err := position.Decode(start); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStart, err)
	}
	opt, err := nchess.FEN(start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStart, err)
	}
	return nchess.NewGame(opt), nil
}

// reconstruct replays the stored UCI moves from the start position. The
// stored FEN is kept for presentation only.
func reconstruct(g *Game) (*nchess.Game, error) {
	game, err := newChessGame(g.StartFEN)
	if err != nil {
		return nil, err
	}
	for _, mv := range g.MovesUCI {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("replay %s: %w", mv, err)
		}
	}
	return game, nil
}

// applyMove plays from->to on game. A pawn reaching the last rank is
// promoted to a queen.
func applyMove(game *nchess.Game, from, to position.Square) (uci, san string, err error) {
	pos := game.Position()
	uci = from.String() + to.String()
	if err = game.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
		if to.Rank() != position.Rank1 && to.Rank() != position.Rank8 {
			return "", "", err
		}
		uci += "q"
		if err = game.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
			return "", "", err
		}
	}
	last := lastMove(game)
	if last == nil {
		return "", "", fmt.Errorf("move %s not recorded", uci)
	}
	return uci, nchess.AlgebraicNotation{}.Encode(pos, last), nil
}

func lastMove(game *nchess.Game) *nchess.Move {
	moves := game.Moves()
	if len(moves) == 0 {
		return nil
	}
	return moves[len(moves)-1]
}

func turnName(c nchess.Color) string {
	if c == nchess.White {
		return "white"
	}
	return "black"
}
