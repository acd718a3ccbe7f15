package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLotteryConfig_Defaults(t *testing.T) {
	cfg, err := LoadLotteryConfig()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Minute, cfg.Round.Duration)
	assert.Equal(t, 4, cfg.Round.MinimumParticipants)
	assert.Equal(t, int64(5_000_000), cfg.Round.TicketPriceLovelace)
	assert.Equal(t, 45*time.Second, cfg.Round.SettleDelay)
	assert.Equal(t, 60*time.Second, cfg.Round.StaleAfter)
	assert.Equal(t, int64(500), cfg.Payout.CommissionBps)
	assert.Equal(t, []int64{5000, 3000, 2000}, cfg.Payout.PrizeSplitBps)
	assert.Equal(t, defaultTeamWallet, cfg.Payout.TeamWallet)
	assert.Equal(t, "mock", cfg.Ledger.Mode)
	assert.Equal(t, "memory", cfg.StateStore)
	assert.False(t, cfg.NeedsRedis())
}

func TestLoadLotteryConfig_Env(t *testing.T) {
	t.Setenv("ROUND_SETTLE_DELAY", "30")
	t.Setenv("ROUND_STALE_AFTER", "90s")
	t.Setenv("PRIZE_SPLIT_BPS", "6000, 4000")
	t.Setenv("STATE_STORE", "Redis")
	t.Setenv("LEDGER_MOCK_BALANCE_ADA", "1.5")

	cfg, err := LoadLotteryConfig()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Round.SettleDelay)
	assert.Equal(t, 90*time.Second, cfg.Round.StaleAfter)
	assert.Equal(t, []int64{6000, 4000}, cfg.Payout.PrizeSplitBps)
	assert.Equal(t, "redis", cfg.StateStore)
	assert.True(t, cfg.NeedsRedis())
	assert.Equal(t, int64(1_500_000), cfg.Ledger.MockBalanceLovelace())
}

func TestLoadLotteryConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"split does not sum", "PRIZE_SPLIT_BPS", "5000,3000"},
		{"commission too high", "COMMISSION_BPS", "10000"},
		{"stale before settle", "ROUND_STALE_AFTER", "10s"},
		{"unknown ledger", "LEDGER_MODE", "chain"},
		{"unknown history store", "HISTORY_STORE", "file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadLotteryConfig()
			assert.Error(t, err)
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("X_DURATION", "bogus")
	assert.Equal(t, time.Second, getEnvDuration("X_DURATION", time.Second))

	t.Setenv("X_BPS", "1,a")
	assert.Equal(t, []int64{1}, getEnvBpsList("X_BPS", []int64{1}))

	t.Setenv("X_INT64", "42")
	assert.Equal(t, int64(42), getEnvInt64("X_INT64", 0))
}

func TestDSNAndAddr(t *testing.T) {
	db := DatabaseConfig{Host: "h", Port: "5432", User: "u", Password: "p", Name: "n"}
	assert.Contains(t, db.DSN(), "host=h user=u password=p dbname=n port=5432")
	assert.Equal(t, "r:6379", RedisConfig{Host: "r", Port: "6379"}.Addr())
}
