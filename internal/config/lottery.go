package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	lovelacePerADA = 1_000_000

	defaultTeamWallet = "addr_test1qr2htllkhpk5nr6wd5zap283u6r2mna5ckvhd63v40chdenmdv65ksa3sqdkq3xrkax99tzkthycgat3faxm32234pxscgct5q"
	defaultBurnWallet = "addr_test1qpydw0f2p66mzgc48mdkq4g7p88shc3ev9zrgp39jcjlyve3cxvkh3wy8wp8xfs6gjayl3p83kqc2dajrx5t5fadqyuq7k09tc"
)

// RoundConfig holds round timing and the driver guard thresholds
type RoundConfig struct {
	Duration            time.Duration
	MinimumParticipants int
	TicketPriceLovelace int64
	TickInterval        time.Duration
	SettleDelay         time.Duration
	StaleAfter          time.Duration
	RecentWindow        time.Duration
	RecentCapacity      int
	DisburseTimeout     time.Duration
	HistoryRetention    int
}

func loadRoundConfig() RoundConfig {
	return RoundConfig{
		Duration:            getEnvDuration("ROUND_DURATION", 3*time.Minute),
		MinimumParticipants: getEnvInt("ROUND_MIN_PARTICIPANTS", 4),
		TicketPriceLovelace: getEnvInt64("TICKET_PRICE_LOVELACE", 5*lovelacePerADA),
		TickInterval:        getEnvDuration("ROUND_TICK_INTERVAL", 10*time.Second),
		SettleDelay:         getEnvDuration("ROUND_SETTLE_DELAY", 45*time.Second),
		StaleAfter:          getEnvDuration("ROUND_STALE_AFTER", 60*time.Second),
		RecentWindow:        getEnvDuration("ROUND_RECENT_WINDOW", 5*time.Minute),
		RecentCapacity:      getEnvInt("ROUND_RECENT_CAPACITY", 10),
		DisburseTimeout:     getEnvDuration("DISBURSE_TIMEOUT", 2*time.Minute),
		HistoryRetention:    getEnvInt("HISTORY_RETENTION", 7),
	}
}

// Validate rejects non-positive durations and counts
func (c RoundConfig) Validate() error {
	switch {
	case c.Duration <= 0:
		return errors.New("ROUND_DURATION must be positive")
	case c.MinimumParticipants < 1:
		return errors.New("ROUND_MIN_PARTICIPANTS must be at least 1")
	case c.TicketPriceLovelace <= 0:
		return errors.New("TICKET_PRICE_LOVELACE must be positive")
	case c.TickInterval <= 0:
		return errors.New("ROUND_TICK_INTERVAL must be positive")
	case c.SettleDelay < 0:
		return errors.New("ROUND_SETTLE_DELAY must not be negative")
	case c.StaleAfter < c.SettleDelay:
		return errors.New("ROUND_STALE_AFTER must be at least ROUND_SETTLE_DELAY")
	case c.RecentWindow <= 0 || c.RecentCapacity <= 0:
		return errors.New("recent round window and capacity must be positive")
	case c.DisburseTimeout <= 0:
		return errors.New("DISBURSE_TIMEOUT must be positive")
	case c.HistoryRetention <= 0:
		return errors.New("HISTORY_RETENTION must be positive")
	}
	return nil
}

// PayoutConfig holds commission, prize split and the wallets paid from the pool
type PayoutConfig struct {
	CommissionBps int64
	PrizeSplitBps []int64
	PoolWallet    string
	TeamWallet    string
	BurnWallet    string
}

func loadPayoutConfig() PayoutConfig {
	return PayoutConfig{
		CommissionBps: getEnvInt64("COMMISSION_BPS", 500),
		PrizeSplitBps: getEnvBpsList("PRIZE_SPLIT_BPS", []int64{5000, 3000, 2000}),
		PoolWallet:    getEnv("POOL_WALLET", "addr_test1_pool"),
		TeamWallet:    getEnv("TEAM_WALLET", defaultTeamWallet),
		BurnWallet:    getEnv("BURN_WALLET", defaultBurnWallet),
	}
}

// Validate checks the split sums to 10000 bps and all wallets are set
func (c PayoutConfig) Validate() error {
	if c.CommissionBps < 0 || c.CommissionBps >= 10000 {
		return fmt.Errorf("COMMISSION_BPS out of range: %d", c.CommissionBps)
	}
	var sum int64
	for _, bps := range c.PrizeSplitBps {
		if bps <= 0 {
			return fmt.Errorf("PRIZE_SPLIT_BPS entries must be positive: %v", c.PrizeSplitBps)
		}
		sum += bps
	}
	if sum != 10000 {
		return fmt.Errorf("PRIZE_SPLIT_BPS must sum to 10000, got %d", sum)
	}
	if c.PoolWallet == "" || c.TeamWallet == "" || c.BurnWallet == "" {
		return errors.New("POOL_WALLET, TEAM_WALLET and BURN_WALLET are required")
	}
	return nil
}

// LedgerConfig selects the ledger implementation
type LedgerConfig struct {
	Mode               string // mock, http
	BaseURL            string
	APIKey             string
	Timeout            time.Duration
	MockBalanceADA     float64
	BalanceMaxAttempts int
}

func loadLedgerConfig() LedgerConfig {
	return LedgerConfig{
		Mode:               getEnv("LEDGER_MODE", "mock"),
		BaseURL:            getEnv("LEDGER_URL", "http://localhost:4000"),
		APIKey:             getEnv("LEDGER_API_KEY", ""),
		Timeout:            getEnvDuration("LEDGER_TIMEOUT", 30*time.Second),
		MockBalanceADA:     getEnvFloat("LEDGER_MOCK_BALANCE_ADA", 10000),
		BalanceMaxAttempts: getEnvInt("LEDGER_BALANCE_ATTEMPTS", 3),
	}
}

// Validate checks the mode and that http mode has a URL
func (c LedgerConfig) Validate() error {
	switch c.Mode {
	case "mock":
	case "http":
		if c.BaseURL == "" {
			return errors.New("LEDGER_URL is required when LEDGER_MODE=http")
		}
	default:
		return fmt.Errorf("unknown LEDGER_MODE %q", c.Mode)
	}
	return nil
}

// MockBalanceLovelace returns the starting balance of mock wallets
func (c LedgerConfig) MockBalanceLovelace() int64 {
	return int64(c.MockBalanceADA * lovelacePerADA)
}

// AdminConfig guards the operator endpoints. An empty key disables them.
type AdminConfig struct {
	Key string
}

// RateLimitConfig is a per client IP token bucket
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: getEnvFloat("RATE_LIMIT_RPS", 10),
		Burst:             getEnvInt("RATE_LIMIT_BURST", 20),
	}
}
