package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	AuthorityURL string `yaml:"authority_url"`
	FeedURL      string `yaml:"feed_url"`
	GameID       string `yaml:"game_id"`

	ListenAddr  string `yaml:"listen_addr"`
	AssetDir    string `yaml:"asset_dir"`
	MessagesDir string `yaml:"messages_dir"`

	ValidateTimeoutMS int  `yaml:"validate_timeout_ms"`
	Flip              bool `yaml:"flip"`

	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`
	GameTTLSec  int    `yaml:"game_ttl_sec"`
}

func (c *AppConfig) ValidateTimeout() time.Duration {
	if c.ValidateTimeoutMS <= 0 {
		return 0
	}
	return time.Duration(c.ValidateTimeoutMS) * time.Millisecond
}

func (c *AppConfig) GameTTL() time.Duration {
	return time.Duration(c.GameTTLSec) * time.Second
}

// Load reads BOARD_CONFIG_FILE (if set) and then environment variables,
// which take precedence.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr: ":8087",
		GameTTLSec: 86400,
	}

	if path := strings.TrimSpace(os.Getenv("BOARD_CONFIG_FILE")); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	setString(&cfg.AuthorityURL, "BOARD_AUTHORITY_URL")
	setString(&cfg.FeedURL, "BOARD_FEED_URL")
	setString(&cfg.GameID, "BOARD_GAME_ID")
	setString(&cfg.ListenAddr, "BOARD_LISTEN_ADDR")
	setString(&cfg.AssetDir, "BOARD_ASSET_DIR")
	setString(&cfg.MessagesDir, "BOARD_MESSAGES_DIR")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.DatabaseURL, "DATABASE_URL")

	if v := strings.TrimSpace(os.Getenv("BOARD_VALIDATE_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ValidateTimeoutMS = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("BOARD_GAME_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.GameTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("BOARD_FLIP")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Flip = b
		}
	}

	cfg.AuthorityURL = strings.TrimRight(cfg.AuthorityURL, "/")
	if cfg.GameTTLSec <= 0 {
		cfg.GameTTLSec = 86400
	}
	if cfg.ValidateTimeoutMS < 0 {
		cfg.ValidateTimeoutMS = 0
	}
	return cfg, nil
}

// RequireClient checks the keys the terminal client needs.
func (c *AppConfig) RequireClient() error {
	if c.AuthorityURL == "" {
		return errors.New("BOARD_AUTHORITY_URL is required")
	}
	return nil
}

// RequireServer checks the keys the referee server needs.
func (c *AppConfig) RequireServer() error {
	if c.RedisURL == "" {
		return errors.New("REDIS_URL is required")
	}
	if c.ListenAddr == "" {
		return errors.New("BOARD_LISTEN_ADDR is required")
	}
	return nil
}

func applyFile(cfg *AppConfig, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
