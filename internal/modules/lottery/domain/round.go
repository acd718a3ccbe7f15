package domain

import (
	"fmt"
	"time"
)

// ProcessingStatus is the lifecycle phase of the current round
type ProcessingStatus string

const (
	StatusIdle       ProcessingStatus = "idle"
	StatusProcessing ProcessingStatus = "processing"
	StatusRollover   ProcessingStatus = "rollover"
	StatusJackpot    ProcessingStatus = "jackpot"
)

// Participant is one address holding tickets in the current round
type Participant struct {
	Address     string    `json:"address"`
	TicketCount int64     `json:"ticketCount"`
	TxReference string    `json:"txHash"`
	Timestamp   time.Time `json:"timestamp"`
}

// RoundState is the canonical state of the round in progress.
// It is owned by the state machine; every other reader gets a Clone.
type RoundState struct {
	RoundNumber         int64            `json:"roundNumber"`
	RoundStartTime      time.Time        `json:"roundStartTime"`
	Participants        []Participant    `json:"participants"`
	TotalTickets        int64            `json:"totalTickets"`
	TotalPoolAmount     Amount           `json:"totalPoolAmount"`
	SalesOpen           bool             `json:"salesOpen"`
	RoundDuration       time.Duration    `json:"roundDuration"`
	MinimumParticipants int              `json:"minimumParticipants"`
	RolledOverRounds    int              `json:"rolledOverRounds"`
	ProcessingStatus    ProcessingStatus `json:"processingStatus"`
	ProcessingStartTime *time.Time       `json:"processingStartTime,omitempty"`
	TicketPrice         Amount           `json:"ticketPrice"`
	ConfirmedTx         map[string]bool  `json:"confirmedTx"`
}

// NewRoundState creates the first round of a fresh process
func NewRoundState(roundDuration time.Duration, minimumParticipants int, ticketPrice Amount, now time.Time) *RoundState {
	return &RoundState{
		RoundNumber:         1,
		RoundStartTime:      now,
		Participants:        make([]Participant, 0),
		SalesOpen:           true,
		RoundDuration:       roundDuration,
		MinimumParticipants: minimumParticipants,
		ProcessingStatus:    StatusIdle,
		TicketPrice:         ticketPrice,
		ConfirmedTx:         make(map[string]bool),
	}
}

// CanAcceptPurchase checks if tickets can be sold right now
func (s *RoundState) CanAcceptPurchase() bool {
	return s.SalesOpen && s.ProcessingStatus == StatusIdle
}

// IsDue reports whether the round duration has elapsed
func (s *RoundState) IsDue(now time.Time) bool {
	return now.Sub(s.RoundStartTime) >= s.RoundDuration
}

// EndsAt is the moment the round becomes due for processing
func (s *RoundState) EndsAt() time.Time {
	return s.RoundStartTime.Add(s.RoundDuration)
}

// HasQuorum reports whether the round can pay out a jackpot
func (s *RoundState) HasQuorum() bool {
	return len(s.Participants) >= s.MinimumParticipants
}

// AddTickets upserts the participant and grows the totals.
// The caller must have checked CanAcceptPurchase.
func (s *RoundState) AddTickets(address string, ticketCount int64, txReference string, now time.Time) Participant {
	if s.ConfirmedTx == nil {
		s.ConfirmedTx = make(map[string]bool)
	}
	s.ConfirmedTx[txReference] = true

	s.TotalTickets += ticketCount
	s.TotalPoolAmount += Amount(ticketCount) * s.TicketPrice

	for i := range s.Participants {
		if s.Participants[i].Address == address {
			s.Participants[i].TicketCount += ticketCount
			return s.Participants[i]
		}
	}

	p := Participant{
		Address:     address,
		TicketCount: ticketCount,
		TxReference: txReference,
		Timestamp:   now,
	}
	s.Participants = append(s.Participants, p)
	return p
}

// TicketsOf returns the tickets held by address in this round
func (s *RoundState) TicketsOf(address string) int64 {
	for _, p := range s.Participants {
		if p.Address == address {
			return p.TicketCount
		}
	}
	return 0
}

// BeginProcessing closes sales and stamps the processing start
func (s *RoundState) BeginProcessing(now time.Time) {
	s.SalesOpen = false
	s.ProcessingStatus = StatusProcessing
	s.ProcessingStartTime = &now
}

// BeginRollover moves a processing round into rollover
func (s *RoundState) BeginRollover() {
	s.ProcessingStatus = StatusRollover
}

// BeginJackpot moves a processing round into jackpot
func (s *RoundState) BeginJackpot() {
	s.ProcessingStatus = StatusJackpot
}

// CompleteRollover opens the next round, carrying participants and pool over
func (s *RoundState) CompleteRollover(now time.Time) {
	s.RolledOverRounds++
	s.RoundNumber++
	s.RoundStartTime = now
	s.SalesOpen = true
	s.ProcessingStatus = StatusIdle
	s.ProcessingStartTime = nil
}

// Reset starts a fresh round after a successful payout
func (s *RoundState) Reset(now time.Time) {
	s.RoundNumber++
	s.RoundStartTime = now
	s.Participants = make([]Participant, 0)
	s.TotalTickets = 0
	s.TotalPoolAmount = 0
	s.RolledOverRounds = 0
	s.SalesOpen = true
	s.ProcessingStatus = StatusIdle
	s.ProcessingStartTime = nil
	s.ConfirmedTx = make(map[string]bool)
}

// ProcessingAge is how long the current processing pass has been running
func (s *RoundState) ProcessingAge(now time.Time) time.Duration {
	if s.ProcessingStartTime == nil {
		return 0
	}
	return now.Sub(*s.ProcessingStartTime)
}

// Clone returns a deep copy safe to hand out
func (s *RoundState) Clone() *RoundState {
	c := *s
	c.Participants = make([]Participant, len(s.Participants))
	copy(c.Participants, s.Participants)
	c.ConfirmedTx = make(map[string]bool, len(s.ConfirmedTx))
	for k, v := range s.ConfirmedTx {
		c.ConfirmedTx[k] = v
	}
	if s.ProcessingStartTime != nil {
		t := *s.ProcessingStartTime
		c.ProcessingStartTime = &t
	}
	return &c
}

// CheckInvariants returns the first broken invariant, if any
func (s *RoundState) CheckInvariants() error {
	if s.TotalTickets < 0 {
		return fmt.Errorf("total tickets negative: %d", s.TotalTickets)
	}

	var sum int64
	seen := make(map[string]bool, len(s.Participants))
	for _, p := range s.Participants {
		if seen[p.Address] {
			return fmt.Errorf("duplicate participant %s", p.Address)
		}
		seen[p.Address] = true
		sum += p.TicketCount
	}
	if sum != s.TotalTickets {
		return fmt.Errorf("total tickets %d != participant sum %d", s.TotalTickets, sum)
	}
	if want := Amount(s.TotalTickets) * s.TicketPrice; s.TotalPoolAmount != want {
		return fmt.Errorf("pool %d != tickets*price %d", s.TotalPoolAmount, want)
	}
	if s.SalesOpen != (s.ProcessingStatus == StatusIdle) {
		return fmt.Errorf("salesOpen=%v with status %s", s.SalesOpen, s.ProcessingStatus)
	}
	return nil
}
