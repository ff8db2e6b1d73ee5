package referee

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/cheese-board/internal/position"
)

// Seat exposes one game as a move validator for an in-process board.
type Seat struct {
	m      *Manager
	gameID string
}

func (m *Manager) Seat(gameID string) *Seat { return &Seat{m: m, gameID: gameID} }

func (s *Seat) GameID() string { return s.gameID }

func (s *Seat) Position(ctx context.Context) (string, error) {
	return s.m.Position(ctx, s.gameID)
}

// ValidateAndApply reports a rules rejection as (false, nil) and a storage
// failure as an error.
func (s *Seat) ValidateAndApply(ctx context.Context, from, to position.Square) (bool, error) {
	v, err := s.m.Play(ctx, s.gameID, from, to)
	if err != nil {
		if errors.Is(err, ErrGameNotFound) {
			return false, err
		}
		return false, fmt.Errorf("referee play: %w", err)
	}
	return v.Accepted, nil
}
