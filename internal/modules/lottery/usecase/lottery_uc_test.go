package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/ledger"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/domain"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/machine"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/repository/memory"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/selector"
	"github.com/nikepigwin/officialmainnetnplottery/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.Init(logger.Config{Level: "info", Format: "console"})
}

// TestBroadcaster collects notifications
type TestBroadcaster struct {
	messages chan *Notification
}

func (b *TestBroadcaster) Broadcast(event interface{}) {
	if n, ok := event.(*Notification); ok {
		b.messages <- n
	}
}

func (b *TestBroadcaster) waitFor(t *testing.T, typ machine.EventType) *Notification {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case n := <-b.messages:
			if n.Type == string(typ) {
				return n
			}
		case <-timeout:
			t.Fatalf("notification %s not broadcast", typ)
			return nil
		}
	}
}

type fixture struct {
	uc          *LotteryUseCase
	sm          *machine.StateMachine
	clock       *clockwork.FakeClock
	ledger      *ledger.MockService
	history     *memory.HistoryRepository
	broadcaster *TestBroadcaster
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	mock := ledger.NewMockService("addr_pool", 0)
	mock.SetBalance("addr_pool", 123*domain.LovelacePerADA)
	history := memory.NewHistoryRepository(7)

	sm, err := machine.NewStateMachine(machine.Config{
		RoundDuration:       3 * time.Minute,
		MinimumParticipants: 4,
		TicketPrice:         5 * domain.LovelacePerADA,
		SettleDelay:         45 * time.Second,
		StaleAfter:          60 * time.Second,
		PoolWallet:          "addr_pool",
		Wallets:             selector.Wallets{Team: "addr_team", Burn: "addr_burn"},
		Clock:               clock,
	}, selector.Default(), mock, history, nil)
	require.NoError(t, err)

	b := &TestBroadcaster{messages: make(chan *Notification, 64)}
	return &fixture{
		uc:          NewLotteryUseCase(sm, history, mock, b, "addr_pool"),
		sm:          sm,
		clock:       clock,
		ledger:      mock,
		history:     history,
		broadcaster: b,
	}
}

func TestConfirmTicketPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	receipt, err := f.uc.ConfirmTicketPurchase(ctx, PurchaseConfirmation{Address: "addr_a", TicketCount: 2, TxReference: "tx1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), receipt.RoundNumber)
	assert.Equal(t, int64(2), receipt.TicketCount)
	assert.Equal(t, 10*domain.LovelacePerADA, receipt.TotalPoolAmount)

	receipt, err = f.uc.ConfirmTicketPurchase(ctx, PurchaseConfirmation{Address: "addr_a", TicketCount: 1, TxReference: "tx2"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), receipt.TicketCount)
	assert.Equal(t, int64(3), receipt.TotalTickets)

	n := f.broadcaster.waitFor(t, machine.EventPoolUpdated)
	assert.Equal(t, int64(1), n.RoundNumber)
	assert.True(t, n.SalesOpen)

	mine, err := f.uc.GetMyTickets(ctx, "addr_a")
	require.NoError(t, err)
	assert.Equal(t, int64(3), mine.TicketCount)
	assert.True(t, mine.SalesOpen)

	assert.Len(t, f.uc.GetParticipants(ctx), 1)
}

func TestConfirmTicketPurchase_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.ConfirmTicketPurchase(ctx, PurchaseConfirmation{Address: "addr_a", TicketCount: 0, TxReference: "tx1"})
	assert.True(t, domain.IsValidationError(err))
	assert.Equal(t, "invalid", rejectReason(err))

	_, err = f.uc.GetMyTickets(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)

	assert.Equal(t, "sales_closed", rejectReason(domain.ErrSalesClosed))
	assert.Equal(t, "other", rejectReason(errors.New("x")))
	assert.Zero(t, f.uc.GetRoundStats(ctx).TotalTickets)
}

func TestJackpotNotification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, addr := range []string{"addr_a", "addr_b", "addr_c", "addr_d"} {
		_, err := f.uc.ConfirmTicketPurchase(ctx, PurchaseConfirmation{Address: addr, TicketCount: int64(i + 1), TxReference: "tx_" + addr})
		require.NoError(t, err)
	}

	f.clock.Advance(3 * time.Minute)
	done := make(chan machine.TickOutcome, 1)
	go func() {
		o, _ := f.sm.Tick(ctx)
		done <- o
	}()

	wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, f.clock.BlockUntilContext(wctx, 1))
	f.clock.Advance(45 * time.Second)

	select {
	case o := <-done:
		require.Equal(t, machine.OutcomeJackpotPaid, o)
	case <-time.After(2 * time.Second):
		t.Fatal("tick did not finish")
	}

	n := f.broadcaster.waitFor(t, machine.EventJackpotPaid)
	assert.Len(t, n.Winners, 3)
	assert.NotEmpty(t, n.TxReference)

	records, err := f.uc.GetHistoricalWinners(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].RoundNumber)

	status := f.uc.GetAdminStatus(ctx)
	assert.Equal(t, []int64{1}, status.RecentlyProcessed)
	assert.Equal(t, int64(2), status.Round.RoundNumber)
	assert.False(t, status.PassInFlight)
}

func TestGetPoolWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.ConfirmTicketPurchase(ctx, PurchaseConfirmation{Address: "addr_a", TicketCount: 1, TxReference: "tx1"})
	require.NoError(t, err)

	w, err := f.uc.GetPoolWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, "addr_pool", w.Address)
	assert.Equal(t, 123*domain.LovelacePerADA, w.OnChainBalance)
	assert.Equal(t, "123", w.OnChainADA.String())
	assert.Equal(t, 5*domain.LovelacePerADA, w.TrackedPool)
}
