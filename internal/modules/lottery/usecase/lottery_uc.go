// Package usecase implements the business logic for the lottery module.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/domain"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/machine"
	"github.com/nikepigwin/officialmainnetnplottery/pkg/logger"
	"github.com/nikepigwin/officialmainnetnplottery/pkg/metrics"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// PurchaseConfirmation is a client report of an on-chain ticket payment
type PurchaseConfirmation struct {
	Address     string
	TicketCount int64
	TxReference string
}

// PurchaseReceipt is returned for an accepted confirmation
type PurchaseReceipt struct {
	RoundNumber     int64         `json:"round"`
	Address         string        `json:"address"`
	TicketCount     int64         `json:"ticketCount"`
	TotalTickets    int64         `json:"totalTickets"`
	TotalPoolAmount domain.Amount `json:"totalPoolAmount"`
	TxReference     string        `json:"txHash"`
}

// MyTickets is the ticket holding of one address in the current round
type MyTickets struct {
	Address     string `json:"address"`
	RoundNumber int64  `json:"currentRound"`
	TicketCount int64  `json:"ticketCount"`
	SalesOpen   bool   `json:"salesOpen"`
}

// PoolWallet describes the wallet that collects ticket payments
type PoolWallet struct {
	Address        string          `json:"address"`
	OnChainBalance domain.Amount   `json:"onChainBalance"`
	OnChainADA     decimal.Decimal `json:"onChainAda"`
	TrackedPool    domain.Amount   `json:"trackedPool"`
}

// AdminStatus is the operator view of the driver
type AdminStatus struct {
	Round             *domain.RoundState `json:"round"`
	Stats             domain.RoundStats  `json:"stats"`
	RecentlyProcessed []int64            `json:"recentlyProcessed"`
	PassInFlight      bool               `json:"passInFlight"`
}

// Notification is pushed to spectators on every round event
type Notification struct {
	Type             string               `json:"type"`
	RoundNumber      int64                `json:"round"`
	TotalPoolAmount  domain.Amount        `json:"totalPoolAmount"`
	TotalTickets     int64                `json:"totalTickets"`
	ParticipantCount int                  `json:"participantCount"`
	SalesOpen        bool                 `json:"salesOpen"`
	ProcessingStatus string               `json:"processingStatus"`
	RolledOverRounds int                  `json:"rolledOverRounds"`
	Winners          []domain.WinnerEntry `json:"winners,omitempty"`
	TxReference      string               `json:"txHash,omitempty"`
	Error            string               `json:"error,omitempty"`
	Timestamp        int64                `json:"timestamp"`
}

// Command names the notification for spectators, e.g. jackpot_paid
func (n *Notification) Command() string {
	return strings.ToLower(n.Type)
}

// LotteryUseCase is the application service in front of the round driver
type LotteryUseCase struct {
	stateMachine *machine.StateMachine
	history      domain.HistoryRepository
	ledger       domain.Ledger
	broadcaster  domain.Broadcaster
	poolWallet   string

	balanceGroup singleflight.Group
}

// NewLotteryUseCase creates the use case and subscribes to driver events. broadcaster may be nil.
func NewLotteryUseCase(stateMachine *machine.StateMachine, history domain.HistoryRepository, ledger domain.Ledger, broadcaster domain.Broadcaster, poolWallet string) *LotteryUseCase {
	uc := &LotteryUseCase{
		stateMachine: stateMachine,
		history:      history,
		ledger:       ledger,
		broadcaster:  broadcaster,
		poolWallet:   poolWallet,
	}

	stateMachine.RegisterEventHandler(uc.handleRoundEvent)
	return uc
}

// handleRoundEvent updates metrics and notifies spectators
func (uc *LotteryUseCase) handleRoundEvent(event machine.RoundEvent) {
	switch event.Type {
	case machine.EventRoundRolledOver:
		metrics.RecordRoundOutcome(string(machine.OutcomeRolledOver))
	case machine.EventJackpotPaid:
		metrics.RecordRoundOutcome(string(machine.OutcomeJackpotPaid))
		metrics.ObserveDisbursement(true, event.Elapsed)
	case machine.EventJackpotFailed:
		metrics.RecordRoundOutcome(string(machine.OutcomeJackpotFailed))
		if event.Elapsed > 0 {
			metrics.ObserveDisbursement(false, event.Elapsed)
		}
	case machine.EventRoundStuck:
		metrics.RecordRoundOutcome(string(machine.OutcomeStuck))
	}

	stats := uc.stateMachine.GetRoundStats()
	metrics.SetRound(stats.RoundNumber, int64(stats.TotalPoolAmount), stats.ParticipantCount, stats.Stuck)

	if uc.broadcaster == nil {
		return
	}
	uc.broadcaster.Broadcast(newNotification(event))
}

func newNotification(event machine.RoundEvent) *Notification {
	n := &Notification{
		Type:        string(event.Type),
		RoundNumber: event.RoundNumber,
		TxReference: event.TxReference,
		Timestamp:   event.At.UnixMilli(),
	}
	if r := event.Round; r != nil {
		n.TotalPoolAmount = r.TotalPoolAmount
		n.TotalTickets = r.TotalTickets
		n.ParticipantCount = len(r.Participants)
		n.SalesOpen = r.SalesOpen
		n.ProcessingStatus = string(r.ProcessingStatus)
		n.RolledOverRounds = r.RolledOverRounds
	}
	if event.Record != nil {
		n.Winners = event.Record.Winners
	}
	if event.Err != nil {
		n.Error = event.Err.Error()
	}
	return n
}

// ConfirmTicketPurchase adds confirmed tickets to the current round
func (uc *LotteryUseCase) ConfirmTicketPurchase(ctx context.Context, req PurchaseConfirmation) (*PurchaseReceipt, error) {
	logger.Debug(ctx).
		Str("address", req.Address).
		Int64("ticket_count", req.TicketCount).
		Str("tx_reference", req.TxReference).
		Msg("Confirm ticket request received")

	res, err := uc.stateMachine.ConfirmTicketPurchase(ctx, req.Address, req.TicketCount, req.TxReference)
	if err != nil {
		metrics.RecordPurchaseRejected(rejectReason(err))
		return nil, err
	}
	metrics.RecordTicketsConfirmed(req.TicketCount)

	return &PurchaseReceipt{
		RoundNumber:     res.RoundNumber,
		Address:         res.Participant.Address,
		TicketCount:     res.Participant.TicketCount,
		TotalTickets:    res.TotalTickets,
		TotalPoolAmount: res.TotalPoolAmount,
		TxReference:     req.TxReference,
	}, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrSalesClosed):
		return "sales_closed"
	case errors.Is(err, domain.ErrDuplicateTransaction):
		return "duplicate"
	case domain.IsValidationError(err):
		return "invalid"
	default:
		return "other"
	}
}

// GetRoundStats returns the current round summary
func (uc *LotteryUseCase) GetRoundStats(ctx context.Context) domain.RoundStats {
	return uc.stateMachine.GetRoundStats()
}

// GetHistoricalWinners returns paid rounds, most recent first
func (uc *LotteryUseCase) GetHistoricalWinners(ctx context.Context) ([]*domain.HistoricalWinnersRecord, error) {
	records, err := uc.history.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return records, nil
}

// GetMyTickets returns the tickets of address in the current round
func (uc *LotteryUseCase) GetMyTickets(ctx context.Context, address string) (*MyTickets, error) {
	if address == "" {
		return nil, domain.ErrInvalidAddress
	}
	tickets, round, salesOpen := uc.stateMachine.TicketsOf(address)
	return &MyTickets{
		Address:     address,
		RoundNumber: round,
		TicketCount: tickets,
		SalesOpen:   salesOpen,
	}, nil
}

// GetParticipants returns the participants of the current round
func (uc *LotteryUseCase) GetParticipants(ctx context.Context) []domain.Participant {
	return uc.stateMachine.Snapshot().Participants
}

// GetPoolWallet returns the pool wallet with its on-chain balance.
// Concurrent callers share one ledger query.
func (uc *LotteryUseCase) GetPoolWallet(ctx context.Context) (*PoolWallet, error) {
	v, err, _ := uc.balanceGroup.Do(uc.poolWallet, func() (interface{}, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return uc.ledger.QueryPoolBalance(qctx, uc.poolWallet)
	})
	if err != nil {
		logger.Warn(ctx).Err(err).Str("wallet", uc.poolWallet).Msg("Pool balance query failed")
		return nil, fmt.Errorf("query pool balance: %w", err)
	}

	balance := v.(domain.Amount)
	return &PoolWallet{
		Address:        uc.poolWallet,
		OnChainBalance: balance,
		OnChainADA:     balance.ADA(),
		TrackedPool:    uc.stateMachine.GetRoundStats().TotalPoolAmount,
	}, nil
}

// GetAdminStatus returns the full driver state for operators
func (uc *LotteryUseCase) GetAdminStatus(ctx context.Context) *AdminStatus {
	return &AdminStatus{
		Round:             uc.stateMachine.Snapshot(),
		Stats:             uc.stateMachine.GetRoundStats(),
		RecentlyProcessed: uc.stateMachine.RecentlyProcessed(),
		PassInFlight:      uc.stateMachine.IsBusy(),
	}
}
