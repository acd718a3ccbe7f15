package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundStats is the public view of the current round
type RoundStats struct {
	RoundNumber         int64            `json:"roundNumber"`
	TotalTickets        int64            `json:"totalTickets"`
	TotalPoolAmount     Amount           `json:"totalPoolAmount"`
	ParticipantCount    int              `json:"participantCount"`
	SalesOpen           bool             `json:"salesOpen"`
	ProcessingStatus    ProcessingStatus `json:"processingStatus"`
	MinimumParticipants int              `json:"minimumParticipants"`
	RolledOverRounds    int              `json:"rolledOverRounds"`

	RoundStartTime      time.Time       `json:"roundStartTime"`
	RoundEndsAt         time.Time       `json:"roundEndsAt"`
	TimeLeft            time.Duration   `json:"timeLeft"`
	ProcessingStartTime *time.Time      `json:"processingStartTime,omitempty"`
	TicketPrice         Amount          `json:"ticketPrice"`
	PoolADA             decimal.Decimal `json:"poolAda"`
	Stuck               bool            `json:"stuck"`
	RolloverStatus      string          `json:"rolloverStatus,omitempty"`
}
