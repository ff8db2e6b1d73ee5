package referee

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/google/uuid"
	"github.com/park285/cheese-board/internal/obslog"
	"github.com/park285/cheese-board/internal/position"
	"github.com/park285/cheese-board/pkg/boarddto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrInvalidStart = errors.New("invalid start position")
)

// AnyVersion disables the version precondition of PlayAt.
const AnyVersion = -1

const defaultGameTTL = 24 * time.Hour

type Option func(*Manager)

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithArchive stores every finished game in a.
func WithArchive(a Archive) Option {
	return func(m *Manager) { m.archive = a }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// Manager is the reference authority: it stores games in Redis, validates
// proposed moves with the chess rules engine and publishes one feed event per
// accepted move.
type Manager struct {
	rdb     *redis.Client
	ttl     time.Duration
	archive Archive
	logger  *zap.Logger
}

func NewManager(redisURL string, opts ...Option) (*Manager, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for referee")
	}
	ropts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(ropts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	m := &Manager{rdb: rdb, ttl: defaultGameTTL, logger: obslog.L()}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	return m.rdb.Close()
}

// Create starts a new game. start may be empty (standard position), a full
// FEN, or a bare placement field, in which case white moves first.
func (m *Manager) Create(ctx context.Context, start string) (*Game, error) {
	start = strings.TrimSpace(start)
	game, err := newChessGame(start)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	g := &Game{
		ID:        uuid.NewString(),
		StartFEN:  normalizeStart(start),
		FEN:       game.FEN(),
		MovesUCI:  []string{},
		MovesSAN:  []string{},
		Turn:      turnName(game.Position().Turn()),
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.save(ctx, g); err != nil {
		return nil, err
	}
	m.logger.Info("referee_game_create",
		zap.String("game_id", g.ID),
		zap.String("placement", g.Placement()),
	)
	return g, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*Game, error) {
	raw, err := m.rdb.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	var g Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", id, err)
	}
	return &g, nil
}

// Position returns the placement encoding of the game.
func (m *Manager) Position(ctx context.Context, id string) (string, error) {
	g, err := m.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return g.Placement(), nil
}

func (m *Manager) Play(ctx context.Context, id string, from, to position.Square) (*Verdict, error) {
	return m.PlayAt(ctx, id, from, to, AnyVersion)
}

// PlayAt validates from->to against the game and applies it if legal. A
// rejection is a Verdict, not an error. When version is not AnyVersion the
// move is only applied if the game is still at that version. Concurrent
// writers are detected with WATCH and rejected with ReasonConflict.
func (m *Manager) PlayAt(ctx context.Context, id string, from, to position.Square, version int) (*Verdict, error) {
	if !from.Valid() || !to.Valid() || from == to {
		return &Verdict{Reason: boarddto.ReasonIllegal}, nil
	}
	gameK := gameKey(id)
	var verdict *Verdict

	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, gameK).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrGameNotFound
		}
		if err != nil {
			return err
		}
		var cur Game
		if err := json.Unmarshal(raw, &cur); err != nil {
			return fmt.Errorf("decode game %s: %w", id, err)
		}
		if !cur.Active() {
			verdict = &Verdict{Reason: boarddto.ReasonGameOver, Game: &cur}
			return nil
		}
		if version != AnyVersion && cur.Version() != version {
			return redis.TxFailedErr
		}

		game, err := reconstruct(&cur)
		if err != nil {
			return err
		}
		uci, san, err := applyMove(game, from, to)
		if err != nil {
			verdict = &Verdict{Reason: boarddto.ReasonIllegal, Game: &cur}
			return nil
		}

		cur.MovesUCI = append(cur.MovesUCI, uci)
		cur.MovesSAN = append(cur.MovesSAN, san)
		cur.FEN = game.FEN()
		cur.Turn = turnName(game.Position().Turn())
		cur.UpdatedAt = time.Now()
		switch game.Outcome() {
		case nchess.WhiteWon:
			cur.Status = StatusFinished
			cur.Outcome = "white"
		case nchess.BlackWon:
			cur.Status = StatusFinished
			cur.Outcome = "black"
		case nchess.Draw:
			cur.Status = StatusDraw
			cur.Outcome = "draw"
		}
		if !cur.Active() {
			cur.Method = strings.ToLower(game.Method().String())
		}

		newRaw, err := json.Marshal(&cur)
		if err != nil {
			return err
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, gameK, newRaw, m.ttl)
			return nil
		}); err != nil {
			return err
		}
		verdict = &Verdict{Accepted: true, UCI: uci, SAN: san, Game: &cur}
		return nil
	}, gameK)

	if errors.Is(err, redis.TxFailedErr) {
		g, _ := m.Get(ctx, id)
		m.logger.Info("referee_move_conflict", zap.String("game_id", id), zap.String("from", from.String()), zap.String("to", to.String()))
		return &Verdict{Reason: boarddto.ReasonConflict, Game: g}, nil
	}
	if err != nil {
		return nil, err
	}

	m.logger.Info("referee_move",
		zap.String("game_id", id),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Bool("accepted", verdict.Accepted),
		zap.String("reason", verdict.Reason),
	)
	if verdict.Accepted {
		m.publish(ctx, verdict)
		m.persistIfFinal(ctx, verdict.Game)
	}
	return verdict, nil
}

// Archived returns a finished game from the archive.
func (m *Manager) Archived(ctx context.Context, id string) (*boarddto.ArchivedGame, error) {
	if m.archive == nil {
		return nil, ErrGameNotFound
	}
	return m.archive.Load(ctx, id)
}

// Subscribe streams feed events for one game until ctx is done or the
// returned close function is called.
func (m *Manager) Subscribe(ctx context.Context, id string) (<-chan boarddto.FeedEvent, func() error, error) {
	ps := m.rdb.Subscribe(ctx, feedChannel(id))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe feed %s: %w", id, err)
	}
	out := make(chan boarddto.FeedEvent, 16)
	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev boarddto.FeedEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					m.logger.Warn("referee_feed_decode_error", zap.String("game_id", id), zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, ps.Close, nil
}

func (m *Manager) publish(ctx context.Context, v *Verdict) {
	g := v.Game
	ev := boarddto.FeedEvent{
		Type:      boarddto.FeedMoveApplied,
		GameID:    g.ID,
		UCI:       v.UCI,
		SAN:       v.SAN,
		Placement: g.Placement(),
		Version:   g.Version(),
		Outcome:   g.Outcome,
		At:        g.UpdatedAt,
	}
	if !g.Active() {
		ev.Type = boarddto.FeedGameOver
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := m.rdb.Publish(ctx, feedChannel(g.ID), raw).Err(); err != nil {
		m.logger.Warn("referee_feed_publish_error", zap.String("game_id", g.ID), zap.Error(err))
	}
}

func (m *Manager) persistIfFinal(ctx context.Context, g *Game) {
	if m.archive == nil || g == nil || g.Active() {
		return
	}
	if err := m.archive.SaveResult(ctx, g); err != nil {
		m.logger.Error("referee_result_persist_error", zap.String("game_id", g.ID), zap.String("outcome", g.Outcome), zap.Error(err))
		return
	}
	m.logger.Info("referee_result_persist", zap.String("game_id", g.ID), zap.String("outcome", g.Outcome), zap.String("method", g.Method))
}

func (m *Manager) save(ctx context.Context, g *Game) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, gameKey(g.ID), raw, m.ttl).Err()
}

func gameKey(id string) string     { return "board:game:" + strings.TrimSpace(id) }
func feedChannel(id string) string { return "board:feed:" + strings.TrimSpace(id) }
