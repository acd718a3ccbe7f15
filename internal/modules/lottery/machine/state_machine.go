package machine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/domain"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/selector"
	"github.com/nikepigwin/officialmainnetnplottery/pkg/logger"
)

// EventType identifies a round event
type EventType string

const (
	EventRoundStarted    EventType = "ROUND_STARTED"
	EventSalesClosed     EventType = "SALES_CLOSED"
	EventRoundRolledOver EventType = "ROUND_ROLLED_OVER"
	EventJackpotStarted  EventType = "JACKPOT_STARTED"
	EventJackpotPaid     EventType = "JACKPOT_PAID"
	EventJackpotFailed   EventType = "JACKPOT_FAILED"
	EventRoundStuck      EventType = "ROUND_STUCK"
	EventPoolUpdated     EventType = "POOL_UPDATED"
)

// RoundEvent is emitted on every state change
type RoundEvent struct {
	Type        EventType
	RoundNumber int64
	Round       *domain.RoundState // snapshot taken right after the change
	Record      *domain.HistoricalWinnersRecord
	TxReference string
	Err         error
	Elapsed     time.Duration // ledger call duration for jackpot outcomes
	At          time.Time
}

// EventHandler handles round events
type EventHandler func(event RoundEvent)

// TickOutcome reports what a driver pass did
type TickOutcome string

const (
	OutcomeSkippedBusy   TickOutcome = "skipped_busy"
	OutcomeNotDue        TickOutcome = "not_due"
	OutcomeRolledOver    TickOutcome = "rolled_over"
	OutcomeJackpotPaid   TickOutcome = "jackpot_paid"
	OutcomeJackpotFailed TickOutcome = "jackpot_failed"
	OutcomeStuck         TickOutcome = "stuck"
)

// PurchaseResult is returned for an accepted ticket confirmation
type PurchaseResult struct {
	RoundNumber     int64
	Participant     domain.Participant
	TotalTickets    int64
	TotalPoolAmount domain.Amount
}

// StateMachine owns the current round and drives it through
// idle -> processing -> rollover|jackpot -> idle.
type StateMachine struct {
	cfg   Config
	clock clockwork.Clock

	mu         sync.RWMutex
	state      *domain.RoundState
	stuckRound int64 // round left in jackpot by a failed or refused payout

	busy      atomic.Bool
	persistMu sync.Mutex

	selector *selector.Selector
	ledger   domain.Ledger
	history  domain.HistoryRepository
	store    domain.StateRepository // optional
	recent   *recentRounds

	handlersMu    sync.RWMutex
	eventHandlers []EventHandler

	passes  sync.WaitGroup
	running sync.WaitGroup
	cancel  context.CancelFunc
	stopMu  sync.Mutex
}

// NewStateMachine creates the driver with a fresh round 1. store may be nil.
func NewStateMachine(cfg Config, sel *selector.Selector, ledger domain.Ledger, history domain.HistoryRepository, store domain.StateRepository) (*StateMachine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid machine config: %w", err)
	}
	if sel == nil || ledger == nil || history == nil {
		return nil, errors.New("selector, ledger and history are required")
	}

	return &StateMachine{
		cfg:           cfg,
		clock:         cfg.Clock,
		state:         domain.NewRoundState(cfg.RoundDuration, cfg.MinimumParticipants, cfg.TicketPrice, cfg.Clock.Now()),
		selector:      sel,
		ledger:        ledger,
		history:       history,
		store:         store,
		recent:        newRecentRounds(cfg.RecentWindow, cfg.RecentCapacity),
		eventHandlers: make([]EventHandler, 0),
	}, nil
}

// RegisterEventHandler registers an event handler
func (sm *StateMachine) RegisterEventHandler(handler EventHandler) {
	sm.handlersMu.Lock()
	defer sm.handlersMu.Unlock()
	sm.eventHandlers = append(sm.eventHandlers, handler)
}

// emitEvent emits an event to all handlers
func (sm *StateMachine) emitEvent(event RoundEvent) {
	sm.handlersMu.RLock()
	handlers := make([]EventHandler, len(sm.eventHandlers))
	copy(handlers, sm.eventHandlers)
	sm.handlersMu.RUnlock()

	if event.At.IsZero() {
		event.At = sm.clock.Now()
	}
	for _, handler := range handlers {
		go handler(event)
	}
}

// Restore replaces the fresh round with the stored snapshot, if any
func (sm *StateMachine) Restore(ctx context.Context) error {
	if sm.store == nil {
		return nil
	}

	saved, err := sm.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load round snapshot: %w", err)
	}
	if saved == nil {
		logger.Info(ctx).Msg("📭 [Lottery] No round snapshot stored, starting at round 1")
		return nil
	}

	saved.RoundDuration = sm.cfg.RoundDuration
	saved.MinimumParticipants = sm.cfg.MinimumParticipants
	if saved.TotalTickets == 0 {
		saved.TicketPrice = sm.cfg.TicketPrice
	}
	if saved.ConfirmedTx == nil {
		saved.ConfirmedTx = make(map[string]bool)
	}
	if saved.Participants == nil {
		saved.Participants = make([]domain.Participant, 0)
	}

	switch saved.ProcessingStatus {
	case domain.StatusProcessing, domain.StatusRollover:
		// No ledger call happens before jackpot, so the pass can simply run again
		logger.Warn(ctx).
			Int64("round_number", saved.RoundNumber).
			Str("status", string(saved.ProcessingStatus)).
			Msg("⚠️ [Lottery] Restored an interrupted pass, reopening the round")
		saved.ProcessingStatus = domain.StatusIdle
		saved.SalesOpen = true
		saved.ProcessingStartTime = nil
	case domain.StatusJackpot:
		paid, err := sm.history.Exists(ctx, saved.RoundNumber)
		if err != nil {
			return fmt.Errorf("check history for restored round %d: %w", saved.RoundNumber, err)
		}
		if paid {
			logger.Warn(ctx).
				Int64("round_number", saved.RoundNumber).
				Msg("⚠️ [Lottery] Restored jackpot round is already in history, starting the next round")
			saved.Reset(sm.clock.Now())
			saved.TicketPrice = sm.cfg.TicketPrice
		} else {
			sm.stuckRound = saved.RoundNumber
			logger.Error(ctx).
				Int64("round_number", saved.RoundNumber).
				Int64("pool", int64(saved.TotalPoolAmount)).
				Msg("🚨 [Lottery] Restored a jackpot round with unknown payout outcome, left stuck for an operator")
		}
	}

	sm.mu.Lock()
	sm.state = saved
	sm.mu.Unlock()

	logger.Info(ctx).
		Int64("round_number", saved.RoundNumber).
		Int("participants", len(saved.Participants)).
		Int64("total_tickets", saved.TotalTickets).
		Str("status", string(saved.ProcessingStatus)).
		Msg("♻️ [Lottery] Round snapshot restored")
	return nil
}

// Start runs the polling loop until ctx is done or Stop is called.
// Every tick runs in its own goroutine; a tick that finds a pass in flight is skipped.
func (sm *StateMachine) Start(ctx context.Context) {
	sm.running.Add(1)
	defer sm.running.Done()

	sm.stopMu.Lock()
	ctx, sm.cancel = context.WithCancel(ctx)
	sm.stopMu.Unlock()

	ticker := sm.clock.NewTicker(sm.cfg.TickInterval)
	defer ticker.Stop()

	logger.Info(ctx).
		Dur("tick_interval", sm.cfg.TickInterval).
		Dur("round_duration", sm.cfg.RoundDuration).
		Int("minimum_participants", sm.cfg.MinimumParticipants).
		Msg("🚀 [Lottery] Round driver started")

	sm.emitEvent(RoundEvent{Type: EventRoundStarted, RoundNumber: sm.RoundNumber(), Round: sm.Snapshot()})

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx).Msg("🛑 [Lottery] Round driver stopping, waiting for the pass in flight")
			sm.passes.Wait()
			logger.Info(ctx).Msg("✅ [Lottery] Round driver stopped")
			return
		case <-ticker.Chan():
			sm.passes.Add(1)
			go func() {
				defer sm.passes.Done()
				_, _ = sm.Tick(ctx)
			}()
		}
	}
}

// Stop stops the loop and blocks until the pass in flight has finished
func (sm *StateMachine) Stop() {
	sm.stopMu.Lock()
	cancel := sm.cancel
	sm.stopMu.Unlock()

	if cancel != nil {
		cancel()
	}
	sm.running.Wait()
}

// Tick runs one driver pass. It is safe to call concurrently: only one pass
// runs at a time and the others return OutcomeSkippedBusy without touching state.
func (sm *StateMachine) Tick(ctx context.Context) (TickOutcome, error) {
	if !sm.busy.CompareAndSwap(false, true) {
		logger.Debug(ctx).Msg("⏭️ [Lottery] Previous pass still running, tick skipped")
		return OutcomeSkippedBusy, nil
	}
	defer sm.busy.Store(false)

	// A started pass always runs to the end
	ctx = context.WithoutCancel(ctx)
	now := sm.clock.Now()

	sm.mu.Lock()
	switch sm.state.ProcessingStatus {
	case domain.StatusJackpot:
		snap := sm.state.Clone()
		sm.mu.Unlock()
		return OutcomeStuck, sm.reportStuck(ctx, snap, now)
	case domain.StatusProcessing, domain.StatusRollover:
		logger.Warn(ctx).
			Int64("round_number", sm.state.RoundNumber).
			Str("status", string(sm.state.ProcessingStatus)).
			Msg("⚠️ [Lottery] Found an unfinished pass, processing the round again")
	default:
		if !sm.state.IsDue(now) {
			sm.mu.Unlock()
			return OutcomeNotDue, nil
		}
	}

	sm.state.BeginProcessing(now)
	roundNumber := sm.state.RoundNumber
	participants := len(sm.state.Participants)
	hasQuorum := sm.state.HasQuorum()
	if hasQuorum {
		sm.state.BeginJackpot()
	} else {
		sm.state.BeginRollover()
	}
	snap := sm.state.Clone()
	sm.mu.Unlock()

	logger.Info(ctx).
		Int64("round_number", roundNumber).
		Int("participants", participants).
		Int64("total_tickets", snap.TotalTickets).
		Int64("pool", int64(snap.TotalPoolAmount)).
		Msg("🔒 [Lottery] Round ended, ticket sales closed")

	sm.emitEvent(RoundEvent{Type: EventSalesClosed, RoundNumber: roundNumber, Round: snap, At: now})
	sm.persist(ctx)

	if !hasQuorum {
		return sm.rollover(ctx, snap)
	}

	sm.emitEvent(RoundEvent{Type: EventJackpotStarted, RoundNumber: roundNumber, Round: snap, At: now})
	return sm.jackpot(ctx)
}

func (sm *StateMachine) rollover(ctx context.Context, closed *domain.RoundState) (TickOutcome, error) {
	logger.Info(ctx).
		Int64("round_number", closed.RoundNumber).
		Int("participants", len(closed.Participants)).
		Int("minimum_participants", closed.MinimumParticipants).
		Dur("settle_delay", sm.cfg.SettleDelay).
		Msg("🔄 [Lottery] Not enough participants, rolling over")

	sm.clock.Sleep(sm.cfg.SettleDelay)

	sm.mu.Lock()
	sm.state.CompleteRollover(sm.clock.Now())
	snap := sm.state.Clone()
	sm.mu.Unlock()

	logger.Info(ctx).
		Int64("round_number", snap.RoundNumber).
		Int("rolled_over_rounds", snap.RolledOverRounds).
		Int64("carried_pool", int64(snap.TotalPoolAmount)).
		Int("carried_participants", len(snap.Participants)).
		Msg("✅ [Lottery] Round rolled over, sales reopened")

	sm.persist(ctx)
	sm.emitEvent(RoundEvent{Type: EventRoundRolledOver, RoundNumber: snap.RoundNumber, Round: snap})
	return OutcomeRolledOver, nil
}

func (sm *StateMachine) jackpot(ctx context.Context) (TickOutcome, error) {
	sm.clock.Sleep(sm.cfg.SettleDelay)

	// Sales are closed, so this snapshot is the final state of the round
	sm.mu.RLock()
	round := sm.state.Clone()
	sm.mu.RUnlock()
	now := sm.clock.Now()

	logger.Info(ctx).
		Int64("round_number", round.RoundNumber).
		Int("participants", len(round.Participants)).
		Int64("pool", int64(round.TotalPoolAmount)).
		Msg("🎰 [Lottery] Drawing jackpot winners")

	if err := sm.checkPayable(ctx, round, now); err != nil {
		return OutcomeStuck, sm.fail(ctx, round, EventRoundStuck, err, 0)
	}

	winners, err := sm.selector.SelectWinners(round.Participants, round.TotalPoolAmount)
	if err != nil {
		return OutcomeJackpotFailed, sm.fail(ctx, round, EventJackpotFailed, fmt.Errorf("select winners: %w", err), 0)
	}
	if len(winners) == 0 {
		return OutcomeJackpotFailed, sm.fail(ctx, round, EventJackpotFailed, errors.New("no eligible winners"), 0)
	}

	batch := domain.Disbursement{
		Reference:   sm.disbursementReference(round),
		RoundNumber: round.RoundNumber,
		Payouts:     sm.selector.Payouts(round.TotalPoolAmount, winners, sm.cfg.Wallets),
	}

	started := sm.clock.Now()
	txRef, err := sm.disburse(ctx, batch)
	elapsed := sm.clock.Since(started)
	if err != nil {
		return OutcomeJackpotFailed, sm.fail(ctx, round, EventJackpotFailed, fmt.Errorf("%w: %w", domain.ErrDisbursementFailed, err), elapsed)
	}

	paidAt := sm.clock.Now()
	record := domain.NewHistoricalWinnersRecord(round, winners, txRef, paidAt)
	sm.recent.Add(round.RoundNumber, paidAt)

	if err := sm.history.Append(ctx, record); err != nil {
		// Funds are out; the round must not be paid again, so the reset still happens
		logger.Error(ctx).
			Err(err).
			Int64("round_number", round.RoundNumber).
			Str("tx_reference", txRef).
			Interface("record", record).
			Msg("🚨 [Lottery] Payout succeeded but the history record was not stored")
	}

	sm.mu.Lock()
	sm.state.Reset(sm.clock.Now())
	sm.state.TicketPrice = sm.cfg.TicketPrice
	sm.stuckRound = 0
	next := sm.state.Clone()
	sm.mu.Unlock()

	winnerAddrs := make([]string, 0, len(winners))
	for _, w := range winners {
		winnerAddrs = append(winnerAddrs, w.Address)
	}
	logger.Info(ctx).
		Int64("round_number", round.RoundNumber).
		Str("tx_reference", txRef).
		Str("winners", strings.Join(winnerAddrs, ",")).
		Dur("elapsed", elapsed).
		Int64("next_round", next.RoundNumber).
		Msg("🏆 [Lottery] Jackpot paid, new round started")

	sm.persist(ctx)
	sm.emitEvent(RoundEvent{
		Type:        EventJackpotPaid,
		RoundNumber: round.RoundNumber,
		Round:       round,
		Record:      record,
		TxReference: txRef,
		Elapsed:     elapsed,
		At:          paidAt,
	})
	sm.emitEvent(RoundEvent{Type: EventRoundStarted, RoundNumber: next.RoundNumber, Round: next})
	return OutcomeJackpotPaid, nil
}

// checkPayable runs the guards that keep a round from being paid twice
func (sm *StateMachine) checkPayable(ctx context.Context, round *domain.RoundState, now time.Time) error {
	paid, err := sm.history.Exists(ctx, round.RoundNumber)
	if err != nil {
		return fmt.Errorf("check history: %w", err)
	}
	if paid {
		return fmt.Errorf("%w: round %d is in history", domain.ErrAlreadyPaid, round.RoundNumber)
	}
	if sm.recent.Contains(round.RoundNumber, now) {
		return fmt.Errorf("%w: round %d was paid recently", domain.ErrAlreadyPaid, round.RoundNumber)
	}
	if age := round.ProcessingAge(now); age > sm.cfg.StaleAfter {
		return fmt.Errorf("%w: processing for %s", domain.ErrRoundStuck, age)
	}
	return nil
}

func (sm *StateMachine) disburse(ctx context.Context, batch domain.Disbursement) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, sm.cfg.DisburseTimeout)
	defer cancel()

	if sm.cfg.PoolWallet != "" {
		balance, err := sm.ledger.QueryPoolBalance(ctx, sm.cfg.PoolWallet)
		if err != nil {
			return "", fmt.Errorf("query pool balance: %w", err)
		}
		if total := batch.Total(); balance < total {
			return "", fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientPoolFund, balance, total)
		}
	}

	txRef, err := sm.ledger.DisburseFunds(ctx, batch)
	if err != nil {
		return "", err
	}
	if txRef == "" {
		return "", errors.New("ledger returned an empty transaction reference")
	}
	return txRef, nil
}

// disbursementReference is stable for a round, so a retried submission can be deduplicated by the ledger
func (sm *StateMachine) disbursementReference(round *domain.RoundState) string {
	name := fmt.Sprintf("%s/%d/%d", sm.cfg.PoolWallet, round.RoundNumber, round.RoundStartTime.UnixNano())
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// fail leaves the round in jackpot: no history record, no reset
func (sm *StateMachine) fail(ctx context.Context, round *domain.RoundState, eventType EventType, err error, elapsed time.Duration) error {
	sm.mu.Lock()
	sm.stuckRound = round.RoundNumber
	sm.mu.Unlock()

	logger.Error(ctx).
		Err(err).
		Int64("round_number", round.RoundNumber).
		Int64("pool", int64(round.TotalPoolAmount)).
		Int("participants", len(round.Participants)).
		Dur("elapsed", elapsed).
		Msg("🚨 [Lottery] Jackpot not paid, round left in jackpot for an operator")

	sm.persist(ctx)
	sm.emitEvent(RoundEvent{
		Type:        eventType,
		RoundNumber: round.RoundNumber,
		Round:       round,
		Err:         err,
		Elapsed:     elapsed,
	})
	return err
}

func (sm *StateMachine) reportStuck(ctx context.Context, round *domain.RoundState, now time.Time) error {
	age := round.ProcessingAge(now)

	sm.mu.Lock()
	firstReport := sm.stuckRound != round.RoundNumber
	sm.stuckRound = round.RoundNumber
	sm.mu.Unlock()

	if firstReport {
		logger.Error(ctx).
			Int64("round_number", round.RoundNumber).
			Dur("age", age).
			Msg("🚨 [Lottery] Jackpot round is stuck, automatic processing skipped")
		sm.emitEvent(RoundEvent{Type: EventRoundStuck, RoundNumber: round.RoundNumber, Round: round, At: now})
	} else {
		logger.Warn(ctx).
			Int64("round_number", round.RoundNumber).
			Dur("age", age).
			Msg("⚠️ [Lottery] Jackpot round still stuck")
	}
	return fmt.Errorf("%w: round %d", domain.ErrRoundStuck, round.RoundNumber)
}

// persist stores the current snapshot; ordering is kept by persistMu
func (sm *StateMachine) persist(ctx context.Context) {
	if sm.store == nil {
		return
	}

	sm.persistMu.Lock()
	defer sm.persistMu.Unlock()

	snap := sm.Snapshot()
	if err := sm.store.Save(ctx, snap); err != nil {
		logger.Warn(ctx).
			Err(err).
			Int64("round_number", snap.RoundNumber).
			Msg("⚠️ [Lottery] Failed to save round snapshot")
	}
}

// ConfirmTicketPurchase records a confirmed purchase in the current round.
// Validation errors and ErrSalesClosed leave the state untouched.
func (sm *StateMachine) ConfirmTicketPurchase(ctx context.Context, address string, ticketCount int64, txReference string) (PurchaseResult, error) {
	address = strings.TrimSpace(address)
	txReference = strings.TrimSpace(txReference)

	switch {
	case address == "":
		return PurchaseResult{}, domain.ErrInvalidAddress
	case ticketCount < 1:
		return PurchaseResult{}, domain.ErrInvalidTicketCount
	case txReference == "":
		return PurchaseResult{}, domain.ErrInvalidTxReference
	}

	sm.mu.Lock()
	if !sm.state.CanAcceptPurchase() {
		status := sm.state.ProcessingStatus
		roundNumber := sm.state.RoundNumber
		sm.mu.Unlock()

		logger.Warn(ctx).
			Str("address", address).
			Int64("round_number", roundNumber).
			Str("status", string(status)).
			Msg("⛔ [Lottery] Purchase rejected, sales closed")
		return PurchaseResult{}, domain.ErrSalesClosed
	}
	if sm.state.ConfirmedTx[txReference] {
		sm.mu.Unlock()
		return PurchaseResult{}, fmt.Errorf("%w: %s", domain.ErrDuplicateTransaction, txReference)
	}

	participant := sm.state.AddTickets(address, ticketCount, txReference, sm.clock.Now())
	result := PurchaseResult{
		RoundNumber:     sm.state.RoundNumber,
		Participant:     participant,
		TotalTickets:    sm.state.TotalTickets,
		TotalPoolAmount: sm.state.TotalPoolAmount,
	}
	snap := sm.state.Clone()
	sm.mu.Unlock()

	logger.Info(ctx).
		Str("address", address).
		Int64("ticket_count", ticketCount).
		Str("tx_reference", txReference).
		Int64("round_number", result.RoundNumber).
		Int64("total_tickets", result.TotalTickets).
		Msg("🎟️ [Lottery] Ticket purchase confirmed")

	sm.persist(ctx)
	sm.emitEvent(RoundEvent{Type: EventPoolUpdated, RoundNumber: result.RoundNumber, Round: snap})
	return result, nil
}

// GetRoundStats returns the public view of the current round
func (sm *StateMachine) GetRoundStats() domain.RoundStats {
	now := sm.clock.Now()

	sm.mu.RLock()
	defer sm.mu.RUnlock()

	s := sm.state
	timeLeft := s.EndsAt().Sub(now)
	if timeLeft < 0 || !s.SalesOpen {
		timeLeft = 0
	}

	stats := domain.RoundStats{
		RoundNumber:         s.RoundNumber,
		TotalTickets:        s.TotalTickets,
		TotalPoolAmount:     s.TotalPoolAmount,
		ParticipantCount:    len(s.Participants),
		SalesOpen:           s.SalesOpen,
		ProcessingStatus:    s.ProcessingStatus,
		MinimumParticipants: s.MinimumParticipants,
		RolledOverRounds:    s.RolledOverRounds,
		RoundStartTime:      s.RoundStartTime,
		RoundEndsAt:         s.EndsAt(),
		TimeLeft:            timeLeft,
		TicketPrice:         s.TicketPrice,
		PoolADA:             s.TotalPoolAmount.ADA(),
		Stuck:               s.ProcessingStatus == domain.StatusJackpot && sm.stuckRound == s.RoundNumber,
	}
	if s.ProcessingStartTime != nil {
		t := *s.ProcessingStartTime
		stats.ProcessingStartTime = &t
	}
	if missing := s.MinimumParticipants - len(s.Participants); missing > 0 {
		stats.RolloverStatus = fmt.Sprintf("Need %d more participants", missing)
	}
	return stats
}

// Snapshot returns a deep copy of the current round
func (sm *StateMachine) Snapshot() *domain.RoundState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state.Clone()
}

// RoundNumber returns the current round number
func (sm *StateMachine) RoundNumber() int64 {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state.RoundNumber
}

// TicketsOf returns the tickets held by address in the current round
func (sm *StateMachine) TicketsOf(address string) (tickets int64, roundNumber int64, salesOpen bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state.TicketsOf(address), sm.state.RoundNumber, sm.state.SalesOpen
}

// RecentlyProcessed lists rounds paid within the recent window, oldest first
func (sm *StateMachine) RecentlyProcessed() []int64 {
	return sm.recent.Rounds(sm.clock.Now())
}

// IsBusy reports whether a driver pass is running
func (sm *StateMachine) IsBusy() bool {
	return sm.busy.Load()
}
