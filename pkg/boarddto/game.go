package boarddto

import "time"

type CreateGameRequest struct {
	// Start is an optional starting placement; empty means the standard start.
	Start string `json:"start,omitempty"`
}

type GameState struct {
	GameID    string    `json:"gameId"`
	Placement string    `json:"placement"`
	FEN       string    `json:"fen"`
	Turn      string    `json:"turn"`
	MovesUCI  []string  `json:"movesUci"`
	MovesSAN  []string  `json:"movesSan"`
	Outcome   string    `json:"outcome,omitempty"`
	Method    string    `json:"method,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type PositionResponse struct {
	GameID    string `json:"gameId"`
	Placement string `json:"placement"`
	Turn      string `json:"turn"`
	Version   int    `json:"version"`
}

// ArchivedGame is a finished game as stored by the archive.
type ArchivedGame struct {
	GameID     string    `json:"gameId"`
	PGN        string    `json:"pgn"`
	Outcome    string    `json:"outcome"`
	Method     string    `json:"method"`
	MoveCount  int       `json:"moveCount"`
	FinishedAt time.Time `json:"finishedAt"`
}
