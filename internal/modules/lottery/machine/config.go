package machine

import (
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/domain"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/selector"
)

// Config holds the timing and payout parameters of the round driver
type Config struct {
	RoundDuration       time.Duration
	MinimumParticipants int
	TicketPrice         domain.Amount

	TickInterval    time.Duration
	SettleDelay     time.Duration // wait before acting on a closed round
	StaleAfter      time.Duration // jackpot older than this is never paid automatically
	RecentWindow    time.Duration
	RecentCapacity  int
	DisburseTimeout time.Duration

	PoolWallet string
	Wallets    selector.Wallets

	Clock clockwork.Clock
}

// Validate fills defaults and rejects unusable values
func (c *Config) Validate() error {
	if c.RoundDuration <= 0 {
		c.RoundDuration = 3 * time.Minute
	}
	if c.MinimumParticipants <= 0 {
		c.MinimumParticipants = 4
	}
	if c.TicketPrice <= 0 {
		c.TicketPrice = 5 * domain.LovelacePerADA
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 10 * time.Second
	}
	if c.SettleDelay < 0 {
		return errors.New("settle delay must not be negative")
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 60 * time.Second
	}
	if c.StaleAfter < c.SettleDelay {
		return errors.New("stale bound must be at least the settle delay")
	}
	if c.RecentWindow <= 0 {
		c.RecentWindow = 5 * time.Minute
	}
	if c.RecentCapacity <= 0 {
		c.RecentCapacity = 10
	}
	if c.DisburseTimeout <= 0 {
		c.DisburseTimeout = 2 * time.Minute
	}
	if c.Wallets.Team == "" || c.Wallets.Burn == "" {
		return errors.New("team and burn wallets are required")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}
