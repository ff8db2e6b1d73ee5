package refereehttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/park285/cheese-board/internal/boardview"
	"github.com/park285/cheese-board/internal/position"
	"github.com/park285/cheese-board/internal/referee"
	"github.com/park285/cheese-board/pkg/boarddto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const maxBodyBytes = 1 << 16

// Server is the HTTP and WebSocket surface of the referee.
type Server struct {
	m        *referee.Manager
	renderer *boardview.Renderer
	logger   *zap.Logger

	writeTimeout time.Duration
}

// New builds the handler set. assets may be nil, in which case board images
// use letter glyphs.
func New(m *referee.Manager, assets fs.FS, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		m:            m,
		renderer:     boardview.NewRenderer(assets),
		logger:       logger,
		writeTimeout: 5 * time.Second,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /games", s.handleCreate)
	mux.HandleFunc("GET /games/{id}", s.handleState)
	mux.HandleFunc("GET /games/{id}/position", s.handlePosition)
	mux.HandleFunc("POST /games/{id}/moves", s.handleMove)
	mux.HandleFunc("GET /games/{id}/board.png", s.handleBoard)
	mux.HandleFunc("GET /games/{id}/pgn", s.handlePGN)
	mux.HandleFunc("GET /games/{id}/feed", s.handleFeed)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req boarddto.CreateGameRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, boarddto.CodeBadRequest, "bad json")
		return
	}
	g, err := s.m.Create(r.Context(), req.Start)
	if errors.Is(err, referee.ErrInvalidStart) {
		writeError(w, http.StatusBadRequest, boarddto.CodeBadRequest, err.Error())
		return
	}
	if err != nil {
		s.internalError(w, "create_game", err)
		return
	}
	writeJSON(w, http.StatusCreated, g.State())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	g, ok := s.loadGame(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, g.State())
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	g, ok := s.loadGame(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, g.PositionResponse())
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req boarddto.MoveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, boarddto.CodeBadRequest, "bad json")
		return
	}
	from, err := position.ParseSquare(strings.ToLower(strings.TrimSpace(req.From)))
	if err != nil {
		writeError(w, http.StatusBadRequest, boarddto.CodeBadRequest, err.Error())
		return
	}
	to, err := position.ParseSquare(strings.ToLower(strings.TrimSpace(req.To)))
	if err != nil {
		writeError(w, http.StatusBadRequest, boarddto.CodeBadRequest, err.Error())
		return
	}
	version := referee.AnyVersion
	if req.Version != nil {
		version = *req.Version
	}

	v, err := s.m.PlayAt(r.Context(), id, from, to, version)
	if errors.Is(err, referee.ErrGameNotFound) {
		writeError(w, http.StatusNotFound, boarddto.CodeNotFound, "game not found")
		return
	}
	if err != nil {
		s.internalError(w, "play_move", err)
		return
	}
	writeJSON(w, http.StatusOK, v.Response())
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	g, ok := s.loadGame(w, r)
	if !ok {
		return
	}
	grid, err := position.Decode(g.Placement())
	if err != nil {
		s.internalError(w, "decode_board", err)
		return
	}
	opts := boardview.RenderOptions{Flip: r.URL.Query().Get("flip") == "1"}
	if n := len(g.MovesUCI); n > 0 {
		if h, ok := highlightFor(g.MovesUCI[n-1]); ok {
			opts.Highlight = &h
		}
	}
	png, err := s.renderer.RenderPNG(r.Context(), grid, opts)
	if err != nil {
		s.internalError(w, "render_board", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) handlePGN(w http.ResponseWriter, r *http.Request) {
	rec, err := s.m.Archived(r.Context(), r.PathValue("id"))
	if errors.Is(err, referee.ErrGameNotFound) {
		writeError(w, http.StatusNotFound, boarddto.CodeNotFound, "game not archived")
		return
	}
	if err != nil {
		s.internalError(w, "load_archive", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleFeed streams FeedEvents for one game. The first event is a snapshot
// of the current position.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	g, ok := s.loadGame(w, r)
	if !ok {
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.logger.Warn("feed_accept_error", zap.String("game_id", g.ID), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "feed closed")

	// Reads are not expected; CloseRead handles control frames and cancels
	// ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	events, closeFeed, err := s.m.Subscribe(ctx, g.ID)
	if err != nil {
		s.logger.Error("feed_subscribe_error", zap.String("game_id", g.ID), zap.Error(err))
		conn.Close(websocket.StatusTryAgainLater, "subscribe failed")
		return
	}
	defer closeFeed()

	// Re-read after subscribing so a move between load and subscribe is not lost.
	if cur, err := s.m.Get(ctx, g.ID); err == nil {
		g = cur
	}
	snapshot := boarddto.FeedEvent{
		Type:      boarddto.FeedSnapshot,
		GameID:    g.ID,
		Placement: g.Placement(),
		Version:   g.Version(),
		Outcome:   g.Outcome,
		At:        time.Now(),
	}
	if err := s.write(ctx, conn, snapshot); err != nil {
		return
	}
	s.logger.Info("feed_open", zap.String("game_id", g.ID))

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "feed ended")
				return
			}
			if err := s.write(ctx, conn, ev); err != nil {
				s.logger.Debug("feed_write_error", zap.String("game_id", g.ID), zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, ev boarddto.FeedEvent) error {
	wctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, ev)
}

func (s *Server) loadGame(w http.ResponseWriter, r *http.Request) (*referee.Game, bool) {
	g, err := s.m.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, referee.ErrGameNotFound) {
		writeError(w, http.StatusNotFound, boarddto.CodeNotFound, "game not found")
		return nil, false
	}
	if err != nil {
		s.internalError(w, "load_game", err)
		return nil, false
	}
	return g, true
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("referee_http_error", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, boarddto.CodeInternal, "internal error")
}

func highlightFor(uci string) (boardview.MoveHighlight, bool) {
	if len(uci) < 4 {
		return boardview.MoveHighlight{}, false
	}
	from, err := position.ParseSquare(uci[0:2])
	if err != nil {
		return boardview.MoveHighlight{}, false
	}
	to, err := position.ParseSquare(uci[2:4])
	if err != nil {
		return boardview.MoveHighlight{}, false
	}
	return boardview.MoveHighlight{From: from, To: to}, true
}

func decodeBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	return json.Unmarshal(body, dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, boarddto.ErrorResponse{Error: boarddto.DomainError{
		Code:      code,
		Message:   msg,
		Retryable: status >= http.StatusInternalServerError,
	}})
}
