package boarddto

// MoveRequest carries a proposed move as two square names, e.g. "e2" and "e4".
// Version, when set, makes the move conditional on the game still being at
// that version.
type MoveRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Version *int   `json:"version,omitempty"`
}

// MoveResponse answers a move request. A rejected move is a normal response
// with Accepted=false and a Reason, never an error status.
type MoveResponse struct {
	Accepted  bool   `json:"accepted"`
	Reason    string `json:"reason,omitempty"`
	UCI       string `json:"uci,omitempty"`
	SAN       string `json:"san,omitempty"`
	Placement string `json:"placement"`
	Version   int    `json:"version"`
	Outcome   string `json:"outcome,omitempty"`
}

// Rejection reasons.
const (
	ReasonIllegal  = "illegal"
	ReasonConflict = "conflict"
	ReasonGameOver = "game_over"
)
