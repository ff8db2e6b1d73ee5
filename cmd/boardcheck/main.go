package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/park285/cheese-board/internal/authority/feed"
	"github.com/park285/cheese-board/internal/authority/httpclient"
	"github.com/park285/cheese-board/internal/position"
	"github.com/park285/cheese-board/pkg/boarddto"
)

func main() {
	baseURL := flag.String("authority", os.Getenv("BOARD_AUTHORITY_URL"), "referee base URL")
	gameID := flag.String("game", os.Getenv("BOARD_GAME_ID"), "game ID; empty creates a new game")
	pngOut := flag.String("png", "", "write the server-rendered board to this file")
	watch := flag.Duration("watch", 0, "observe the live feed for this long")
	flag.Parse()

	if *baseURL == "" {
		log.Fatal("BOARD_AUTHORITY_URL is required")
	}

	client := httpclient.NewClient(*baseURL, httpclient.WithTimeout(8*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id := *gameID
	if id == "" {
		game, err := client.CreateGame(ctx, "")
		if err != nil {
			log.Fatalf("create game error: %v", err)
		}
		id = game.GameID
		log.Printf("created game %s", id)
	}

	pos, err := client.Position(ctx, id)
	if err != nil {
		log.Fatalf("position error: %v", err)
	}
	grid, err := position.Decode(pos.Placement)
	if err != nil {
		log.Fatalf("decode error: %v", err)
	}
	fmt.Printf("game=%s turn=%s version=%d\n%s", id, pos.Turn, pos.Version, position.Draw(grid))

	if *pngOut != "" {
		img, err := client.BoardPNG(ctx, id, false)
		if err != nil {
			log.Fatalf("board png error: %v", err)
		}
		if err := os.WriteFile(*pngOut, img, 0o644); err != nil {
			log.Fatalf("write png: %v", err)
		}
		log.Printf("wrote %s (%d bytes)", *pngOut, len(img))
	}

	if *watch <= 0 {
		return
	}
	wsURL, err := feed.URL(*baseURL, id)
	if err != nil {
		log.Fatalf("feed url error: %v", err)
	}
	fc := feed.NewClient(wsURL, feed.WithReconnect(0))
	fc.OnStateChange(func(st feed.State) { log.Printf("feed state: %s", st) })
	fc.OnEvent(func(ev boarddto.FeedEvent) {
		fmt.Printf("feed %s version=%d uci=%s placement=%s\n", ev.Type, ev.Version, ev.UCI, ev.Placement)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := fc.Connect(cctx); err != nil {
		log.Printf("feed connect error: %v", err)
		return
	}

	t := time.NewTimer(*watch)
	<-t.C
	_ = fc.Close(context.Background())
}
