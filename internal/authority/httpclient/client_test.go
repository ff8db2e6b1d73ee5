package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/cheese-board/internal/boardview"
	"github.com/park285/cheese-board/internal/interaction"
	"github.com/park285/cheese-board/internal/position"
	"github.com/park285/cheese-board/internal/referee"
	"github.com/park285/cheese-board/internal/refereehttp"
	"github.com/park285/cheese-board/pkg/boarddto"
)

func newReferee(t *testing.T) *httptest.Server {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	m, err := referee.NewManager(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("referee.NewManager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	srv := httptest.NewServer(refereehttp.New(m, nil, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func sq(t *testing.T, s string) position.Square {
	t.Helper()
	out, err := position.ParseSquare(s)
	if err != nil {
		t.Fatalf("ParseSquare(%q): %v", s, err)
	}
	return out
}

func TestSeatAgainstReferee(t *testing.T) {
	srv := newReferee(t)
	c := NewClient(srv.URL)
	ctx := context.Background()

	st, err := c.CreateGame(ctx, "4k3/8/8/8/8/8/8/R3K3")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	seat := c.Seat(st.GameID)
	enc, err := seat.Position(ctx)
	if err != nil || enc != "4k3/8/8/8/8/8/8/R3K3" {
		t.Fatalf("Position: %q %v", enc, err)
	}

	ok, err := seat.ValidateAndApply(ctx, sq(t, "a1"), sq(t, "b2"))
	if err != nil || ok {
		t.Fatalf("illegal move: ok=%v err=%v", ok, err)
	}
	ok, err = seat.ValidateAndApply(ctx, sq(t, "a1"), sq(t, "a2"))
	if err != nil || !ok {
		t.Fatalf("legal move: ok=%v err=%v", ok, err)
	}

	png, err := c.BoardPNG(ctx, st.GameID, false)
	if err != nil || len(png) == 0 {
		t.Fatalf("BoardPNG: %d bytes, %v", len(png), err)
	}
}

func TestControllerOverHTTP(t *testing.T) {
	srv := newReferee(t)
	c := NewClient(srv.URL)
	st, err := c.CreateGame(context.Background(), "4k3/8/8/8/8/8/8/R3K3")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	view := boardview.New(nil)
	ctl := interaction.New(view, c.Seat(st.GameID))
	if err := ctl.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := ctl.PointerDown(boardview.CellTarget(sq(t, "a1"))); err != nil {
		t.Fatalf("PointerDown: %v", err)
	}
	res := ctl.Drop(context.Background(), boardview.CellTarget(sq(t, "a8")))
	if res.Outcome != interaction.OutcomeAccepted {
		t.Fatalf("a1a8: %s %v", res.Outcome, res.Err)
	}
	if got, _ := view.Lookup(sq(t, "a8")); got != 'R' {
		t.Fatalf("a8: %q", got)
	}
}

func TestNotFoundIsStatusError(t *testing.T) {
	srv := newReferee(t)
	_, err := NewClient(srv.URL).Position(context.Background(), "missing")
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if se.Domain == nil || se.Domain.Code != boarddto.CodeNotFound {
		t.Fatalf("expected domain error body, got %+v", se)
	}
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound should be true")
	}
}

func TestRetryOnlyIdempotent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, WithRetry(3))

	if _, err := c.Position(context.Background(), "g"); err == nil {
		t.Fatalf("expected error")
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("GET attempts: got %d want 3", got)
	}

	hits.Store(0)
	if _, err := c.Move(context.Background(), "g", sq(t, "e2"), sq(t, "e4")); err == nil {
		t.Fatalf("expected error")
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("POST attempts: got %d want 1", got)
	}
}

func TestCancelAbandonsRequest(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, err := NewClient(srv.URL).Move(ctx, "g", sq(t, "e2"), sq(t, "e4"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("cancel did not return promptly")
	}
}
