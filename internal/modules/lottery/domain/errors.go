package domain

import "errors"

var (
	// ErrSalesClosed is returned when a purchase arrives while the round is being processed.
	ErrSalesClosed = errors.New("ticket sales are closed while the round is processed")

	ErrInvalidAddress       = errors.New("address is required")
	ErrInvalidTicketCount   = errors.New("ticket count must be at least 1")
	ErrInvalidTxReference   = errors.New("transaction reference is required")
	ErrDuplicateTransaction = errors.New("transaction already confirmed")

	// ErrRoundStuck marks a jackpot round that needs an operator.
	ErrRoundStuck = errors.New("jackpot round is stuck")
	// ErrAlreadyPaid is returned by the idempotency guards.
	ErrAlreadyPaid          = errors.New("round already paid out")
	ErrDisbursementFailed   = errors.New("disbursement failed")
	ErrInsufficientPoolFund = errors.New("pool wallet balance below payout total")
)

// IsValidationError reports whether err came from input validation.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidAddress) ||
		errors.Is(err, ErrInvalidTicketCount) ||
		errors.Is(err, ErrInvalidTxReference)
}
