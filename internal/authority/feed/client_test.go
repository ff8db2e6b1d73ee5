package feed

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/cheese-board/internal/position"
	"github.com/park285/cheese-board/internal/referee"
	"github.com/park285/cheese-board/internal/refereehttp"
	"github.com/park285/cheese-board/pkg/boarddto"
)

func TestURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8087":      "ws://localhost:8087/games/g1/feed",
		"https://board.example/api/": "wss://board.example/api/games/g1/feed",
	}
	for base, want := range cases {
		got, err := URL(base, "g1")
		if err != nil || got != want {
			t.Fatalf("URL(%q): got %q, %v want %q", base, got, err, want)
		}
	}
}

func TestFeedDeliversSnapshotAndMoves(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	m, err := referee.NewManager(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("referee.NewManager: %v", err)
	}
	defer m.Close()
	srv := httptest.NewServer(refereehttp.New(m, nil, nil).Handler())
	defer srv.Close()

	g, err := m.Create(context.Background(), "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	wsURL, _ := URL(srv.URL, g.ID)

	events := make(chan boarddto.FeedEvent, 8)
	c := NewClient(wsURL, WithReconnect(0))
	c.OnEvent(func(ev boarddto.FeedEvent) { events <- ev })
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = c.Close(ctx)
	}()
	if c.State() != StateConnected {
		t.Fatalf("state: %s", c.State())
	}

	next := func() boarddto.FeedEvent {
		t.Helper()
		select {
		case ev := <-events:
			return ev
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for feed event")
			return boarddto.FeedEvent{}
		}
	}

	if ev := next(); ev.Type != boarddto.FeedSnapshot {
		t.Fatalf("first event: %+v", ev)
	}

	from, _ := position.ParseSquare("e2")
	to, _ := position.ParseSquare("e4")
	if _, err := m.Play(context.Background(), g.ID, from, to); err != nil {
		t.Fatalf("Play: %v", err)
	}
	ev := next()
	if ev.Type != boarddto.FeedMoveApplied || ev.UCI != "e2e4" || ev.Version != 1 {
		t.Fatalf("move event: %+v", ev)
	}
}
