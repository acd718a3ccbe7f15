package domain

import "context"

// PayoutKind tells the ledger what a transfer is for
type PayoutKind string

const (
	PayoutWinner PayoutKind = "winner"
	PayoutTeam   PayoutKind = "team"
	PayoutBurn   PayoutKind = "burn"
)

// Payout is a single transfer out of the pool wallet
type Payout struct {
	Destination string     `json:"destination"`
	Amount      Amount     `json:"amount"`
	Kind        PayoutKind `json:"kind"`
}

// Disbursement is the batch of payouts for one round, sent as a single transaction
type Disbursement struct {
	Reference   string   `json:"reference"` // idempotency key, stable per round
	RoundNumber int64    `json:"roundNumber"`
	Payouts     []Payout `json:"payouts"`
}

// Total sums every payout in the batch
func (d Disbursement) Total() Amount {
	var total Amount
	for _, p := range d.Payouts {
		total += p.Amount
	}
	return total
}

// Ledger is the external service that holds the pool wallet and submits transactions
type Ledger interface {
	QueryPoolBalance(ctx context.Context, walletRef string) (Amount, error)
	DisburseFunds(ctx context.Context, batch Disbursement) (string, error)
}
