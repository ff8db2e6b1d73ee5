package referee

import (
	"strings"
	"time"

	"github.com/park285/cheese-board/pkg/boarddto"
)

// Status is the lifecycle state of a refereed game.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
	StatusDraw     Status = "DRAW"
)

// Game is the persisted state of a refereed game.
type Game struct {
	ID        string    `json:"id"`
	StartFEN  string    `json:"start_fen,omitempty"`
	FEN       string    `json:"fen"`
	MovesUCI  []string  `json:"moves_uci"`
	MovesSAN  []string  `json:"moves_san"`
	Turn      string    `json:"turn"`
	Status    Status    `json:"status"`
	Outcome   string    `json:"outcome,omitempty"`
	Method    string    `json:"method,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Placement is the piece-placement field of the game's FEN.
func (g *Game) Placement() string {
	if g == nil {
		return ""
	}
	placement, _, _ := strings.Cut(strings.TrimSpace(g.FEN), " ")
	return placement
}

// Version counts applied moves; it changes on every accepted move.
func (g *Game) Version() int {
	if g == nil {
		return 0
	}
	return len(g.MovesUCI)
}

func (g *Game) Active() bool { return g != nil && g.Status == StatusActive }

func (g *Game) State() *boarddto.GameState {
	if g == nil {
		return nil
	}
	return &boarddto.GameState{
		GameID:    g.ID,
		Placement: g.Placement(),
		FEN:       g.FEN,
		Turn:      g.Turn,
		MovesUCI:  append([]string(nil), g.MovesUCI...),
		MovesSAN:  append([]string(nil), g.MovesSAN...),
		Outcome:   g.Outcome,
		Method:    g.Method,
		UpdatedAt: g.UpdatedAt,
	}
}

func (g *Game) PositionResponse() *boarddto.PositionResponse {
	return &boarddto.PositionResponse{
		GameID:    g.ID,
		Placement: g.Placement(),
		Turn:      g.Turn,
		Version:   g.Version(),
	}
}

// Verdict is the referee's answer to one proposed move.
type Verdict struct {
	Accepted bool
	Reason   string
	UCI      string
	SAN      string
	Game     *Game
}

func (v *Verdict) Response() *boarddto.MoveResponse {
	out := &boarddto.MoveResponse{
		Accepted: v.Accepted,
		Reason:   v.Reason,
		UCI:      v.UCI,
		SAN:      v.SAN,
	}
	if v.Game != nil {
		out.Placement = v.Game.Placement()
		out.Version = v.Game.Version()
		out.Outcome = v.Game.Outcome
	}
	return out
}
