package boarddto

import "time"

const (
	// FeedSnapshot is the first event on a new feed connection.
	FeedSnapshot    = "snapshot"
	FeedMoveApplied = "move_applied"
	FeedGameOver    = "game_over"
)

// FeedEvent is pushed to every feed subscriber of a game.
type FeedEvent struct {
	Type      string    `json:"type"`
	GameID    string    `json:"gameId"`
	UCI       string    `json:"uci,omitempty"`
	SAN       string    `json:"san,omitempty"`
	Placement string    `json:"placement"`
	Version   int       `json:"version"`
	Outcome   string    `json:"outcome,omitempty"`
	At        time.Time `json:"at"`
}
