package selector

import (
	"fmt"
	"testing"

	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func participants(counts ...int64) []domain.Participant {
	ps := make([]domain.Participant, 0, len(counts))
	for i, c := range counts {
		ps = append(ps, domain.Participant{
			Address:     fmt.Sprintf("addr_test_%d", i+1),
			TicketCount: c,
			TxReference: fmt.Sprintf("tx_%d", i+1),
		})
	}
	return ps
}

func TestSelectWinners_PrizeSplit(t *testing.T) {
	winners, err := SelectWinners(participants(1, 1, 1, 1), 1000, 3)
	require.NoError(t, err)
	require.Len(t, winners, 3)

	assert.Equal(t, domain.Amount(475), winners[0].Amount)
	assert.Equal(t, domain.Amount(285), winners[1].Amount)
	assert.Equal(t, domain.Amount(190), winners[2].Amount)

	assert.Equal(t, "47.5", winners[0].Percentage.String())
	assert.Equal(t, "28.5", winners[1].Percentage.String())
	assert.Equal(t, "19", winners[2].Percentage.String())

	for i, w := range winners {
		assert.Equal(t, i+1, w.Position)
	}
}

func TestSelectWinners_DistinctAddresses(t *testing.T) {
	ps := participants(50, 1, 1, 1, 1)
	for i := 0; i < 500; i++ {
		winners, err := SelectWinners(ps, 20*5_000_000, 3)
		require.NoError(t, err)
		require.Len(t, winners, 3)

		seen := map[string]bool{}
		for _, w := range winners {
			assert.False(t, seen[w.Address], "address %s won twice", w.Address)
			seen[w.Address] = true
		}
	}
}

func TestSelectWinners_FewerParticipantsThanSlots(t *testing.T) {
	winners, err := SelectWinners(participants(3, 7), 1000, 3)
	require.NoError(t, err)
	require.Len(t, winners, 2)
	assert.NotEqual(t, winners[0].Address, winners[1].Address)
	assert.Equal(t, domain.Amount(475), winners[0].Amount)
	assert.Equal(t, domain.Amount(285), winners[1].Amount)
}

func TestSelectWinners_NoParticipants(t *testing.T) {
	winners, err := SelectWinners(nil, 1000, 3)
	require.NoError(t, err)
	assert.Empty(t, winners)

	winners, err = SelectWinners(participants(0, 0), 1000, 3)
	require.NoError(t, err)
	assert.Empty(t, winners)
}

func TestSelectWinners_WeightedFairness(t *testing.T) {
	ps := participants(90, 10)
	const runs = 10000

	wins := 0
	for i := 0; i < runs; i++ {
		winners, err := SelectWinners(ps, 100, 1)
		require.NoError(t, err)
		require.Len(t, winners, 1)
		if winners[0].Address == ps[0].Address {
			wins++
		}
	}

	ratio := float64(wins) / runs
	t.Logf("heavy holder won %.4f of %d draws", ratio, runs)
	assert.InDelta(t, 0.90, ratio, 0.02)
}

func TestCommission(t *testing.T) {
	s := Default()

	c := s.Commission(1000)
	assert.Equal(t, domain.Amount(25), c.Team)
	assert.Equal(t, domain.Amount(25), c.Burn)
	assert.Equal(t, domain.Amount(950), s.WinnerPool(1000))

	// odd commission: burn takes the extra unit
	c = s.Commission(1020)
	assert.Equal(t, domain.Amount(25), c.Team)
	assert.Equal(t, domain.Amount(26), c.Burn)
}

func TestPayouts(t *testing.T) {
	s := Default()
	winners, err := s.SelectWinners(participants(1, 1, 1, 1), 1000)
	require.NoError(t, err)

	payouts := s.Payouts(1000, winners, Wallets{Team: "team", Burn: "burn"})
	require.Len(t, payouts, 5)
	assert.Equal(t, domain.Payout{Destination: "team", Amount: 25, Kind: domain.PayoutTeam}, payouts[0])
	assert.Equal(t, domain.Payout{Destination: "burn", Amount: 25, Kind: domain.PayoutBurn}, payouts[1])

	var total domain.Amount
	for _, p := range payouts {
		total += p.Amount
	}
	assert.LessOrEqual(t, int64(total), int64(1000))
	assert.Equal(t, domain.Amount(1000), total)
}

func TestNew_RejectsBadSplit(t *testing.T) {
	_, err := New(Config{CommissionBps: 500, PrizeSplitBps: []int64{5000, 3000}})
	assert.Error(t, err)

	_, err = New(Config{CommissionBps: 10000, PrizeSplitBps: DefaultPrizeSplitBps})
	assert.Error(t, err)

	s, err := New(Config{CommissionBps: 0, PrizeSplitBps: []int64{10000}})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Slots())
}
