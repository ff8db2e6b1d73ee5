package obslog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger = zap.NewNop()

// L returns the process logger. It is a no-op logger until Init runs.
func L() *zap.Logger { return globalLogger }

// Defaults are the per-binary values used when the LOG_* variables are unset.
type Defaults struct {
	Console bool
	File    bool
	Path    string
}

var (
	// ServerDefaults logs to stdout and to logs/board.log.
	ServerDefaults = Defaults{Console: true, File: true, Path: filepath.Join("logs", "board.log")}
	// TerminalDefaults keeps stdout clean for a full-screen client.
	TerminalDefaults = Defaults{Console: false, File: true, Path: filepath.Join("logs", "board-client.log")}
)

// Options is the resolved logger setup. An empty File disables the file sink.
type Options struct {
	Level   zapcore.Level
	Console bool
	File    string
	Caller  bool
	Format  string
}

// OptionsFromEnv reads LOG_LEVEL, LOG_TO_CONSOLE, LOG_TO_FILE, LOG_FILE,
// LOG_CALLER and LOG_FORMAT on top of d.
func OptionsFromEnv(d Defaults) Options {
	o := Options{
		Level:   parseLevel(os.Getenv("LOG_LEVEL")),
		Console: envBool("LOG_TO_CONSOLE", d.Console),
		Caller:  envBool("LOG_CALLER", false),
		Format:  "legacy",
	}
	switch f := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))); f {
	case "json", "console":
		o.Format = f
	}
	if envBool("LOG_TO_FILE", d.File) {
		o.File = d.Path
		if o.File == "" {
			o.File = ServerDefaults.Path
		}
		if v := strings.TrimSpace(os.Getenv("LOG_FILE")); v != "" {
			o.File = v
		}
	}
	return o
}

// Build creates a logger from o. With no sinks it returns a no-op logger.
func Build(o Options) (*zap.Logger, error) {
	enc := newEncoder(o.Format)
	var cores []zapcore.Core
	if o.Console {
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stdout), o.Level))
	}
	if o.File != "" {
		if dir := filepath.Dir(o.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create log dir: %w", err)
			}
		}
		f, err := os.OpenFile(o.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(enc.Clone(), zapcore.AddSync(f), o.Level))
	}
	if len(cores) == 0 {
		return zap.NewNop(), nil
	}

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	// the legacy line format always carries the call site
	if o.Caller || o.Format == "legacy" {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

// InitFromEnv initialises the global logger with ServerDefaults.
func InitFromEnv() error { return Init(ServerDefaults) }

// Init replaces the global logger using the environment on top of d.
func Init(d Defaults) error {
	l, err := Build(OptionsFromEnv(d))
	if err != nil {
		return err
	}
	globalLogger = l
	return nil
}

// Sync flushes the global logger.
func Sync() { _ = globalLogger.Sync() }

func newEncoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	switch format {
	case "json":
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	case "console":
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	default:
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.ConsoleSeparator = " | "
		return zapcore.NewConsoleEncoder(cfg)
	}
}

func parseLevel(s string) zapcore.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
