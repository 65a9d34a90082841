package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultDatabaseURL  = "remindcal.db"
	DefaultTriggerStore = "remindcal-triggers.db"
	DefaultDriver       = "sqlite3"
)

// Config keeps runtime settings for the planner.
type Config struct {
	DatabaseURL      string        `toml:"database_url"`
	SQLiteDriver     string        `toml:"sqlite_driver"`
	TriggerStorePath string        `toml:"trigger_store_path"`
	TelegramToken    string        `toml:"telegram_token"`
	TelegramChatID   int64         `toml:"telegram_chat_id"`
	SweepCron        string        `toml:"sweep_cron"`
	LogLevel         string        `toml:"log_level"`
	LogEncoding      string        `toml:"log_encoding"`
	ShutdownTimeout  time.Duration `toml:"-"`
}

// Load reads .env (if present), an optional TOML file named by
// REMINDCAL_CONFIG, then environment variables, and fills defaults.
// Environment values win over the file.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{}
	if path := strings.TrimSpace(os.Getenv("REMINDCAL_CONFIG")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.DatabaseURL = getString("DATABASE_URL", cfg.DatabaseURL)
	cfg.SQLiteDriver = getString("SQLITE_DRIVER", cfg.SQLiteDriver)
	cfg.TriggerStorePath = getString("TRIGGER_STORE_PATH", cfg.TriggerStorePath)
	cfg.TelegramToken = getString("TELEGRAM_TOKEN", cfg.TelegramToken)
	cfg.SweepCron = getString("SWEEP_CRON", cfg.SweepCron)
	cfg.LogLevel = getString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogEncoding = getString("LOG_ENCODING", cfg.LogEncoding)
	cfg.ShutdownTimeout = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)

	if raw := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("TELEGRAM_CHAT_ID must be numeric: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = DefaultDatabaseURL
	}
	if cfg.SQLiteDriver == "" {
		cfg.SQLiteDriver = DefaultDriver
	}
	if cfg.TriggerStorePath == "" {
		cfg.TriggerStorePath = DefaultTriggerStore
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogEncoding == "" {
		cfg.LogEncoding = "console"
	}

	switch cfg.SQLiteDriver {
	case "sqlite3", "sqlite":
	default:
		return cfg, fmt.Errorf("SQLITE_DRIVER must be sqlite3 or sqlite, got %q", cfg.SQLiteDriver)
	}

	if cfg.TelegramToken != "" && cfg.TelegramChatID == 0 {
		return cfg, errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}

	return cfg, nil
}

// TelegramEnabled reports whether the bot and Telegram delivery should start.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	return nil
}

func getString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil && parsed > 0 {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
