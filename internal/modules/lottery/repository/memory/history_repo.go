// Package memory provides memory-based repositories for the lottery module.
package memory

import (
	"context"
	"sync"

	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/domain"
)

// HistoryRepository implements domain.HistoryRepository with a bounded slice
type HistoryRepository struct {
	records   []*domain.HistoricalWinnersRecord // most recent first
	retention int
	mu        sync.RWMutex
}

// NewHistoryRepository creates a history keeping at most retention records
func NewHistoryRepository(retention int) *HistoryRepository {
	if retention <= 0 {
		retention = 7
	}
	return &HistoryRepository{
		records:   make([]*domain.HistoricalWinnersRecord, 0, retention),
		retention: retention,
	}
}

func (r *HistoryRepository) Append(ctx context.Context, record *domain.HistoricalWinnersRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append([]*domain.HistoricalWinnersRecord{record}, r.records...)
	if len(r.records) > r.retention {
		r.records = r.records[:r.retention]
	}
	return nil
}

func (r *HistoryRepository) List(ctx context.Context) ([]*domain.HistoricalWinnersRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.HistoricalWinnersRecord, len(r.records))
	copy(out, r.records)
	return out, nil
}

func (r *HistoryRepository) Exists(ctx context.Context, roundNumber int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.RoundNumber == roundNumber {
			return true, nil
		}
	}
	return false, nil
}
