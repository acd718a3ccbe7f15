package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const price Amount = 5 * LovelacePerADA

func newTestRound(now time.Time) *RoundState {
	return NewRoundState(3*time.Minute, 4, price, now)
}

func TestRoundState_AddTicketsUpserts(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestRound(now)

	s.AddTickets("addr1", 2, "tx1", now)
	s.AddTickets("addr2", 1, "tx2", now)
	p := s.AddTickets("addr1", 3, "tx3", now.Add(time.Second))

	assert.Equal(t, int64(5), p.TicketCount)
	assert.Equal(t, "tx1", p.TxReference, "first purchase reference is kept")
	assert.Len(t, s.Participants, 2)
	assert.Equal(t, int64(6), s.TotalTickets)
	assert.Equal(t, 6*price, s.TotalPoolAmount)
	assert.True(t, s.ConfirmedTx["tx3"])
	assert.Equal(t, int64(5), s.TicketsOf("addr1"))
	assert.Equal(t, int64(0), s.TicketsOf("nobody"))
	require.NoError(t, s.CheckInvariants())
}

func TestRoundState_RolloverKeepsPool(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestRound(now)
	s.AddTickets("addr1", 4, "tx1", now)

	later := now.Add(3 * time.Minute)
	require.True(t, s.IsDue(later))

	s.BeginProcessing(later)
	assert.False(t, s.CanAcceptPurchase())
	require.NoError(t, s.CheckInvariants())

	s.BeginRollover()
	s.CompleteRollover(later.Add(45 * time.Second))

	assert.Equal(t, int64(2), s.RoundNumber)
	assert.Equal(t, 1, s.RolledOverRounds)
	assert.Equal(t, int64(4), s.TotalTickets)
	assert.Equal(t, 4*price, s.TotalPoolAmount)
	assert.Len(t, s.Participants, 1)
	assert.True(t, s.CanAcceptPurchase())
	assert.Nil(t, s.ProcessingStartTime)
	require.NoError(t, s.CheckInvariants())
}

func TestRoundState_Reset(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestRound(now)
	s.AddTickets("addr1", 4, "tx1", now)
	s.RolledOverRounds = 2
	s.BeginProcessing(now)
	s.BeginJackpot()

	s.Reset(now.Add(time.Minute))

	assert.Equal(t, int64(2), s.RoundNumber)
	assert.Empty(t, s.Participants)
	assert.Zero(t, s.TotalTickets)
	assert.Zero(t, s.TotalPoolAmount)
	assert.Zero(t, s.RolledOverRounds)
	assert.Equal(t, StatusIdle, s.ProcessingStatus)
	assert.Empty(t, s.ConfirmedTx)
	require.NoError(t, s.CheckInvariants())
}

func TestRoundState_CloneIsDeep(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestRound(now)
	s.AddTickets("addr1", 1, "tx1", now)
	s.BeginProcessing(now)

	c := s.Clone()
	c.Participants[0].TicketCount = 99
	c.ConfirmedTx["tx9"] = true
	*c.ProcessingStartTime = now.Add(time.Hour)

	assert.Equal(t, int64(1), s.Participants[0].TicketCount)
	assert.False(t, s.ConfirmedTx["tx9"])
	assert.Equal(t, now, *s.ProcessingStartTime)
}

func TestRoundState_CheckInvariants(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	s := newTestRound(now)
	s.AddTickets("addr1", 1, "tx1", now)
	s.TotalTickets = 2
	assert.Error(t, s.CheckInvariants())

	s = newTestRound(now)
	s.SalesOpen = false
	assert.Error(t, s.CheckInvariants())

	s = newTestRound(now)
	s.Participants = append(s.Participants, Participant{Address: "a"}, Participant{Address: "a"})
	assert.Error(t, s.CheckInvariants())
}

func TestAmount(t *testing.T) {
	assert.Equal(t, "5", (5 * LovelacePerADA).ADA().String())
	assert.Equal(t, "0.5", Amount(500_000).ADA().String())
	assert.Equal(t, Amount(475), Amount(950).MulBps(5000))
	assert.Equal(t, Amount(0), Amount(1).MulBps(500))
}
