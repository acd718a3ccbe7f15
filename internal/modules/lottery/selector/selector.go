// Package selector draws the winners of a jackpot round and computes the payout split.
package selector

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/domain"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const bpsDenominator int64 = 10000

var (
	// DefaultCommissionBps is 5% of the pool, split between team and burn wallets
	DefaultCommissionBps int64 = 500
	// DefaultPrizeSplitBps splits the winner pool 50/30/20
	DefaultPrizeSplitBps = []int64{5000, 3000, 2000}
)

// Config controls commission and prize split, all in basis points
type Config struct {
	CommissionBps int64
	PrizeSplitBps []int64 // share of the winner pool per position
	Rand          io.Reader
}

// Validate checks the config and fills defaults
func (c *Config) Validate() error {
	if c.CommissionBps < 0 || c.CommissionBps >= bpsDenominator {
		return fmt.Errorf("commission bps out of range: %d", c.CommissionBps)
	}
	if len(c.PrizeSplitBps) == 0 {
		return errors.New("prize split is empty")
	}
	var sum int64
	for _, bps := range c.PrizeSplitBps {
		if bps <= 0 {
			return fmt.Errorf("prize split entry must be positive: %d", bps)
		}
		sum += bps
	}
	if sum != bpsDenominator {
		return fmt.Errorf("prize split must sum to %d bps, got %d", bpsDenominator, sum)
	}
	if c.Rand == nil {
		c.Rand = rand.Reader
	}
	return nil
}

// Selector picks winners by weighted sampling without replacement
type Selector struct {
	cfg Config
}

// New creates a selector
func New(cfg Config) (*Selector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.PrizeSplitBps = append([]int64(nil), cfg.PrizeSplitBps...)
	return &Selector{cfg: cfg}, nil
}

// Default returns a selector with the 5% commission and 50/30/20 split
func Default() *Selector {
	s, _ := New(Config{CommissionBps: DefaultCommissionBps, PrizeSplitBps: DefaultPrizeSplitBps})
	return s
}

// SelectWinners draws up to winnerSlots winners with the default commission and split
func SelectWinners(participants []domain.Participant, poolAmount domain.Amount, winnerSlots int) ([]domain.WinnerResult, error) {
	if winnerSlots <= 0 {
		return []domain.WinnerResult{}, nil
	}
	return Default().selectWinners(participants, poolAmount, winnerSlots)
}

// Slots is the number of prize positions
func (s *Selector) Slots() int {
	return len(s.cfg.PrizeSplitBps)
}

// CommissionSplit is the commission taken off the top of the pool
type CommissionSplit struct {
	Team domain.Amount
	Burn domain.Amount
}

// Total of both commission parts
func (c CommissionSplit) Total() domain.Amount {
	return c.Team + c.Burn
}

// Commission computes the commission for a pool, team half rounded down
func (s *Selector) Commission(poolAmount domain.Amount) CommissionSplit {
	total := poolAmount.MulBps(s.cfg.CommissionBps)
	team := total / 2
	return CommissionSplit{Team: team, Burn: total - team}
}

// WinnerPool is what remains for the winners after commission
func (s *Selector) WinnerPool(poolAmount domain.Amount) domain.Amount {
	return poolAmount - s.Commission(poolAmount).Total()
}

// PositionPercentage is the share of the total pool paid to a position (1-based)
func (s *Selector) PositionPercentage(position int) decimal.Decimal {
	split := s.cfg.PrizeSplitBps[position-1]
	// split/10000 * (10000-commission)/10000 * 100
	return decimal.New(split*(bpsDenominator-s.cfg.CommissionBps), -6)
}

// SelectWinners draws the winners for a round
func (s *Selector) SelectWinners(participants []domain.Participant, poolAmount domain.Amount) ([]domain.WinnerResult, error) {
	return s.selectWinners(participants, poolAmount, s.Slots())
}

func (s *Selector) selectWinners(participants []domain.Participant, poolAmount domain.Amount, slots int) ([]domain.WinnerResult, error) {
	slots = min(slots, s.Slots())

	entries := lo.Filter(participants, func(p domain.Participant, _ int) bool {
		return p.TicketCount > 0
	})
	entries = lo.UniqBy(entries, func(p domain.Participant) string {
		return p.Address
	})
	if len(entries) == 0 {
		return []domain.WinnerResult{}, nil
	}

	var totalWeight int64
	for _, p := range entries {
		totalWeight += p.TicketCount
	}

	winnerPool := s.WinnerPool(poolAmount)
	winners := make([]domain.WinnerResult, 0, slots)

	for position := 1; position <= slots && len(entries) > 0; position++ {
		ticket, err := s.drawTicket(totalWeight)
		if err != nil {
			return nil, fmt.Errorf("draw position %d: %w", position, err)
		}

		// Walk the cumulative ticket ranges to find the holder
		idx := 0
		for cumulative := entries[0].TicketCount; ticket >= cumulative; cumulative += entries[idx].TicketCount {
			idx++
		}
		picked := entries[idx]

		winners = append(winners, domain.WinnerResult{
			Position:    position,
			Address:     picked.Address,
			Amount:      winnerPool.MulBps(s.cfg.PrizeSplitBps[position-1]),
			Percentage:  s.PositionPercentage(position),
			TicketCount: picked.TicketCount,
		})

		// An address wins at most once: drop all of its tickets from the pool
		totalWeight -= picked.TicketCount
		entries = append(entries[:idx], entries[idx+1:]...)
	}

	return winners, nil
}

// drawTicket returns a uniform ticket index in [0, totalWeight)
func (s *Selector) drawTicket(totalWeight int64) (int64, error) {
	n, err := rand.Int(s.cfg.Rand, big.NewInt(totalWeight))
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}

// Wallets are the commission destinations
type Wallets struct {
	Team string
	Burn string
}

// Payouts builds the single-transaction payout list: commission first, then winners.
// Zero amounts are left out.
func (s *Selector) Payouts(poolAmount domain.Amount, winners []domain.WinnerResult, wallets Wallets) []domain.Payout {
	commission := s.Commission(poolAmount)

	payouts := []domain.Payout{
		{Destination: wallets.Team, Amount: commission.Team, Kind: domain.PayoutTeam},
		{Destination: wallets.Burn, Amount: commission.Burn, Kind: domain.PayoutBurn},
	}
	for _, w := range winners {
		payouts = append(payouts, domain.Payout{Destination: w.Address, Amount: w.Amount, Kind: domain.PayoutWinner})
	}

	return lo.Filter(payouts, func(p domain.Payout, _ int) bool {
		return p.Amount > 0
	})
}
