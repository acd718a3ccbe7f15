package domain

import "context"

// HistoryRepository stores paid jackpot rounds
type HistoryRepository interface {
	Append(ctx context.Context, record *HistoricalWinnersRecord) error
	// List returns the retained records, most recent first
	List(ctx context.Context) ([]*HistoricalWinnersRecord, error)
	Exists(ctx context.Context, roundNumber int64) (bool, error)
}

// StateRepository persists round snapshots across restarts
type StateRepository interface {
	Load(ctx context.Context) (*RoundState, error) // nil, nil when nothing is stored
	Save(ctx context.Context, state *RoundState) error
}
