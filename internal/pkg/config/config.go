package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Matching MatchingConfig `yaml:"matching"`
	Elo      EloConfig      `yaml:"elo"`
	Notify   NotifyConfig   `yaml:"notify"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type ScraperConfig struct {
	CheckpointDir  string        `yaml:"checkpoint_dir"`
	TimeoutMinutes int           `yaml:"timeout_minutes"`
	BatchSize      int           `yaml:"batch_size"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// RecencyWindowDays bounds the DB-derived active-event working set.
	RecencyWindowDays int `yaml:"recency_window_days"`
}

type MatchingConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	AmbiguityGap        float64 `yaml:"ambiguity_gap"`
	AggressiveThreshold float64 `yaml:"aggressive_threshold"`
	AggressiveTopN      int     `yaml:"aggressive_top_n"`
}

type EloConfig struct {
	KFactor        float64 `yaml:"k_factor"`
	StartingRating float64 `yaml:"starting_rating"`
}

type NotifyConfig struct {
	TelegramBotToken string `yaml:"telegram_bot_token"`
	TelegramChatID   int64  `yaml:"telegram_chat_id"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads the YAML config file, fills defaults and applies env overrides.
// Path may be empty, in which case only defaults and env apply.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required (set DATABASE_URL or postgres.dsn)")
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Scraper.CheckpointDir == "" {
		c.Scraper.CheckpointDir = "checkpoints"
	}
	if c.Scraper.TimeoutMinutes == 0 {
		c.Scraper.TimeoutMinutes = 50
	}
	if c.Scraper.BatchSize == 0 {
		c.Scraper.BatchSize = 100
	}
	if c.Scraper.RequestTimeout == 0 {
		c.Scraper.RequestTimeout = 30 * time.Second
	}
	if c.Scraper.RecencyWindowDays == 0 {
		c.Scraper.RecencyWindowDays = 21
	}
	if c.Matching.SimilarityThreshold == 0 {
		c.Matching.SimilarityThreshold = 0.70
	}
	if c.Matching.AmbiguityGap == 0 {
		c.Matching.AmbiguityGap = 0.05
	}
	if c.Matching.AggressiveThreshold == 0 {
		c.Matching.AggressiveThreshold = 0.50
	}
	if c.Matching.AggressiveTopN == 0 {
		c.Matching.AggressiveTopN = 200
	}
	if c.Elo.KFactor == 0 {
		c.Elo.KFactor = 32
	}
	if c.Elo.StartingRating == 0 {
		c.Elo.StartingRating = 1500
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("TIMEOUT_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Scraper.TimeoutMinutes = n
		}
	}
	if v := os.Getenv("CHECKPOINT_DIR"); v != "" {
		c.Scraper.CheckpointDir = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Notify.TelegramBotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Notify.TelegramChatID = n
		}
	}
}
