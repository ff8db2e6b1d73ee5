package referee

import (
	"context"
	"sync"

	"github.com/park285/cheese-board/pkg/boarddto"
)

// Archive stores finished games.
type Archive interface {
	SaveResult(ctx context.Context, g *Game) error
	Load(ctx context.Context, id string) (*boarddto.ArchivedGame, error)
}

func archivedFrom(g *Game) *boarddto.ArchivedGame {
	return &boarddto.ArchivedGame{
		GameID:     g.ID,
		PGN:        buildPGN(g),
		Outcome:    g.Outcome,
		Method:     g.Method,
		MoveCount:  len(g.MovesUCI),
		FinishedAt: g.UpdatedAt,
	}
}

// memArchive is used when no database is configured.
type memArchive struct {
	mu    sync.RWMutex
	games map[string]*boarddto.ArchivedGame
}

func NewMemoryArchive() Archive {
	return &memArchive{games: make(map[string]*boarddto.ArchivedGame)}
}

func (a *memArchive) SaveResult(ctx context.Context, g *Game) error {
	if g == nil {
		return nil
	}
	rec := archivedFrom(g)
	a.mu.Lock()
	a.games[g.ID] = rec
	a.mu.Unlock()
	return nil
}

func (a *memArchive) Load(ctx context.Context, id string) (*boarddto.ArchivedGame, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	rec, ok := a.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	out := *rec
	return &out, nil
}
