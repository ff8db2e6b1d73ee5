package referee

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/cheese-board/pkg/boarddto"
)

// PGArchive stores finished games in the board_games table.
type PGArchive struct {
	db *sql.DB
}

func NewPGArchive(databaseURL string) (*PGArchive, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PGArchive{db: db}, nil
}

func (a *PGArchive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *PGArchive) SaveResult(ctx context.Context, g *Game) error {
	if a == nil || a.db == nil || g == nil {
		return nil
	}
	movesUCI, err := json.Marshal(g.MovesUCI)
	if err != nil {
		return fmt.Errorf("marshal moves_uci: %w", err)
	}
	movesSAN, err := json.Marshal(g.MovesSAN)
	if err != nil {
		return fmt.Errorf("marshal moves_san: %w", err)
	}
	duration := g.UpdatedAt.Sub(g.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	const q = `INSERT INTO board_games (
        game_id, start_fen, final_fen, result, result_method,
        moves_uci, moves_san, pgn, started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6::jsonb,$7::jsonb,$8,$9,$10,$11
      ) ON CONFLICT (game_id) DO UPDATE SET
        final_fen=EXCLUDED.final_fen,
        result=EXCLUDED.result,
        result_method=EXCLUDED.result_method,
        moves_uci=EXCLUDED.moves_uci,
        moves_san=EXCLUDED.moves_san,
        pgn=EXCLUDED.pgn,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err = a.db.ExecContext(ctx, q,
		g.ID, g.StartFEN, g.FEN,
		g.Outcome, g.Method,
		string(movesUCI), string(movesSAN), buildPGN(g),
		g.CreatedAt, g.UpdatedAt, duration,
	)
	return err
}

func (a *PGArchive) Load(ctx context.Context, id string) (*boarddto.ArchivedGame, error) {
	const q = `SELECT game_id, pgn, result, result_method, jsonb_array_length(moves_uci), ended_at
        FROM board_games WHERE game_id = $1`
	var rec boarddto.ArchivedGame
	err := a.db.QueryRowContext(ctx, q, id).Scan(
		&rec.GameID, &rec.PGN, &rec.Outcome, &rec.Method, &rec.MoveCount, &rec.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
