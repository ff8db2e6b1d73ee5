package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcfg "github.com/park285/cheese-board/internal/config"
	"github.com/park285/cheese-board/internal/authority/feed"
	"github.com/park285/cheese-board/internal/authority/httpclient"
	"github.com/park285/cheese-board/internal/msgcat"
	"github.com/park285/cheese-board/internal/obslog"
	"github.com/park285/cheese-board/internal/tui"
	"go.uber.org/zap"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := cfg.RequireClient(); err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.Init(obslog.TerminalDefaults); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("messages error: %v", err)
	}

	client := httpclient.NewClient(cfg.AuthorityURL, httpclient.WithTimeout(8*time.Second))

	gameID := cfg.GameID
	if gameID == "" {
		cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		game, err := client.CreateGame(cctx, "")
		cancel()
		if err != nil {
			log.Fatalf("create game error: %v", err)
		}
		gameID = game.GameID
		logger.Info("game_created", zap.String("game_id", gameID))
	}

	shell := tui.New(client.Seat(gameID), tui.Options{
		GameID:          gameID,
		Flip:            cfg.Flip,
		ValidateTimeout: cfg.ValidateTimeout(),
		Catalog:         cat,
		Logger:          logger,
	})

	feedURL := cfg.FeedURL
	if feedURL == "" {
		feedURL, err = feed.URL(cfg.AuthorityURL, gameID)
		if err != nil {
			log.Fatalf("feed url error: %v", err)
		}
	}
	fc := feed.NewClient(feedURL, feed.WithLogger(logger.Named("feed")))
	shell.AttachFeed(fc)
	go func() {
		cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := fc.Connect(cctx); err != nil {
			logger.Warn("feed_connect_error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runErr := shell.Run(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = fc.Close(closeCtx)
	if runErr != nil {
		log.Fatalf("terminal error: %v", runErr)
	}
}
