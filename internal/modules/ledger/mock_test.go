package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockService_Disburse(t *testing.T) {
	ctx := context.Background()
	m := NewMockService("pool", 0)
	m.SetBalance("pool", 1000)

	batch := domain.Disbursement{
		Reference: "r1",
		Payouts: []domain.Payout{
			{Destination: "team", Amount: 25},
			{Destination: "burn", Amount: 25},
			{Destination: "w1", Amount: 475},
		},
	}

	tx, err := m.DisburseFunds(ctx, batch)
	require.NoError(t, err)
	assert.NotEmpty(t, tx)

	pool, _ := m.QueryPoolBalance(ctx, "pool")
	assert.Equal(t, domain.Amount(475), pool)
	w1, _ := m.QueryPoolBalance(ctx, "w1")
	assert.Equal(t, domain.Amount(475), w1)

	// same reference is not paid twice
	again, err := m.DisburseFunds(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, tx, again)
	assert.Len(t, m.Disbursements(), 1)
}

func TestMockService_InsufficientFunds(t *testing.T) {
	m := NewMockService("pool", 10)
	_, err := m.DisburseFunds(context.Background(), domain.Disbursement{
		Reference: "r1",
		Payouts:   []domain.Payout{{Destination: "w1", Amount: 11}},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientPoolFund)
	assert.Empty(t, m.Disbursements())
}

func TestMockService_FailureAndDelay(t *testing.T) {
	m := NewMockService("", 0)

	boom := errors.New("node unreachable")
	m.FailWith(boom)
	_, err := m.DisburseFunds(context.Background(), domain.Disbursement{Reference: "r1"})
	assert.ErrorIs(t, err, boom)

	m.FailWith(nil)
	m.SetDelay(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.DisburseFunds(ctx, domain.Disbursement{Reference: "r2"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
