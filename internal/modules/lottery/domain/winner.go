package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WinnerResult is one awarded position produced by the selector
type WinnerResult struct {
	Position    int             `json:"position"`
	Address     string          `json:"address"`
	Amount      Amount          `json:"amount"`
	Percentage  decimal.Decimal `json:"percentage"` // of the total pool
	TicketCount int64           `json:"ticketCount"`
}

// WinnerEntry is a paid winner inside a history record
type WinnerEntry struct {
	Position             int             `json:"position"`
	Address              string          `json:"address"`
	Amount               Amount          `json:"amount"`
	Percentage           decimal.Decimal `json:"percentage"`
	TransactionReference string          `json:"txHash"`
	ClaimedAt            time.Time       `json:"claimedAt"`
}

// HistoricalWinnersRecord is written once per paid jackpot round
type HistoricalWinnersRecord struct {
	RoundNumber       int64         `json:"round"`
	Winners           []WinnerEntry `json:"winners"`
	TotalPool         Amount        `json:"totalPool"`
	DrawDate          time.Time     `json:"drawDate"`
	TotalParticipants int           `json:"totalParticipants"`
	TotalTickets      int64         `json:"totalTickets"`
}

// NewHistoricalWinnersRecord builds the record for a round paid by txReference
func NewHistoricalWinnersRecord(round *RoundState, winners []WinnerResult, txReference string, paidAt time.Time) *HistoricalWinnersRecord {
	entries := make([]WinnerEntry, 0, len(winners))
	for _, w := range winners {
		entries = append(entries, WinnerEntry{
			Position:             w.Position,
			Address:              w.Address,
			Amount:               w.Amount,
			Percentage:           w.Percentage,
			TransactionReference: txReference,
			ClaimedAt:            paidAt,
		})
	}
	return &HistoricalWinnersRecord{
		RoundNumber:       round.RoundNumber,
		Winners:           entries,
		TotalPool:         round.TotalPoolAmount,
		DrawDate:          paidAt,
		TotalParticipants: len(round.Participants),
		TotalTickets:      round.TotalTickets,
	}
}
