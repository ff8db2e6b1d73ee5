package refereebuilder

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/park285/cheese-board/internal/config"
	"github.com/park285/cheese-board/internal/referee"
	"github.com/park285/cheese-board/internal/refereehttp"
	"go.uber.org/zap"
)

// Deps is the wired referee server.
type Deps struct {
	Manager *referee.Manager
	Archive referee.Archive
	Server  *refereehttp.Server

	closers []io.Closer
}

func (d *Deps) Close() error {
	var first error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// New wires the referee from cfg. A DATABASE_URL selects the PostgreSQL
// archive; without it finished games are kept in memory.
func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.RequireServer(); err != nil {
		return nil, err
	}

	d := &Deps{}
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		pg, err := referee.NewPGArchive(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init archive: %w", err)
		}
		d.Archive = pg
		d.closers = append(d.closers, pg)
	} else {
		logger.Warn("archive_in_memory", zap.String("reason", "DATABASE_URL not set"))
		d.Archive = referee.NewMemoryArchive()
	}

	m, err := referee.NewManager(cfg.RedisURL,
		referee.WithTTL(cfg.GameTTL()),
		referee.WithArchive(d.Archive),
		referee.WithLogger(logger.Named("referee")),
	)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("init referee: %w", err)
	}
	d.Manager = m
	d.closers = append(d.closers, m)

	d.Server = refereehttp.New(m, assetFS(cfg.AssetDir), logger.Named("http"))
	return d, nil
}

// assetFS returns the piece asset directory, or nil for glyph rendering.
func assetFS(dir string) fs.FS {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return nil
	}
	return os.DirFS(dir)
}
