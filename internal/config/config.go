package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LotteryConfig holds all configuration for the lottery service
type LotteryConfig struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	WebSocket    WebSocketConfig
	Round        RoundConfig
	Payout       PayoutConfig
	Ledger       LedgerConfig
	Admin        AdminConfig
	RateLimit    RateLimitConfig
	HistoryStore string // memory, db, redis
	StateStore   string // memory, redis
}

// LoadLotteryConfig loads .env (if present) and then the environment
func LoadLotteryConfig() (*LotteryConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg := &LotteryConfig{
		Server: ServerConfig{
			NodeID:   getEnvInt64("NODE_ID", 1),
			HTTPPort: getEnv("HTTP_PORT", "3001"),
			Name:     "nikepig-lottery",
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "lottery_user"),
			Password: getEnv("DB_PASSWORD", "lottery_pass"),
			Name:     getEnv("DB_NAME", "lottery_db"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "nikepig"),
		},
		WebSocket:    LoadWebSocketConfig(),
		Round:        loadRoundConfig(),
		Payout:       loadPayoutConfig(),
		Ledger:       loadLedgerConfig(),
		Admin:        AdminConfig{Key: getEnv("ADMIN_KEY", "")},
		RateLimit:    loadRateLimitConfig(),
		HistoryStore: strings.ToLower(getEnv("HISTORY_STORE", "memory")),
		StateStore:   strings.ToLower(getEnv("STATE_STORE", "memory")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with
func (c *LotteryConfig) Validate() error {
	if err := c.Round.Validate(); err != nil {
		return err
	}
	if err := c.Payout.Validate(); err != nil {
		return err
	}
	if err := c.Ledger.Validate(); err != nil {
		return err
	}
	switch c.HistoryStore {
	case "memory", "db", "redis":
	default:
		return errors.New("HISTORY_STORE must be memory, db or redis")
	}
	switch c.StateStore {
	case "memory", "redis":
	default:
		return errors.New("STATE_STORE must be memory or redis")
	}
	return nil
}

// NeedsRedis reports whether any store is backed by Redis
func (c *LotteryConfig) NeedsRedis() bool {
	return c.HistoryStore == "redis" || c.StateStore == "redis"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("45s") or plain seconds ("45")
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

// getEnvBpsList parses "5000,3000,2000"
func getEnvBpsList(key string, fallback []int64) []int64 {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		i, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return fallback
		}
		out = append(out, i)
	}
	return out
}
