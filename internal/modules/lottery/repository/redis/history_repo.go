package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/domain"
	"github.com/redis/go-redis/v9"
)

// HistoryRepository keeps the latest records in a Redis list, newest at the head.
// Paid round numbers also go to a set so Exists survives list trimming.
type HistoryRepository struct {
	rdb       *redis.Client
	listKey   string
	roundsKey string
	retention int
}

// NewHistoryRepository creates a new Redis history repository
func NewHistoryRepository(rdb *redis.Client, prefix string, retention int) *HistoryRepository {
	if retention <= 0 {
		retention = 7
	}
	if prefix != "" {
		prefix += ":"
	}
	return &HistoryRepository{
		rdb:       rdb,
		listKey:   prefix + "lottery:history",
		roundsKey: prefix + "lottery:paid_rounds",
		retention: retention,
	}
}

func (r *HistoryRepository) Append(ctx context.Context, record *domain.HistoricalWinnersRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	pipe := r.rdb.TxPipeline()
	pipe.LPush(ctx, r.listKey, data)
	pipe.LTrim(ctx, r.listKey, 0, int64(r.retention-1))
	pipe.SAdd(ctx, r.roundsKey, strconv.FormatInt(record.RoundNumber, 10))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *HistoryRepository) List(ctx context.Context) ([]*domain.HistoricalWinnersRecord, error) {
	items, err := r.rdb.LRange(ctx, r.listKey, 0, int64(r.retention-1)).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*domain.HistoricalWinnersRecord, 0, len(items))
	for _, item := range items {
		var rec domain.HistoricalWinnersRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode history record: %w", err)
		}
		records = append(records, &rec)
	}
	return records, nil
}

func (r *HistoryRepository) Exists(ctx context.Context, roundNumber int64) (bool, error) {
	return r.rdb.SIsMember(ctx, r.roundsKey, strconv.FormatInt(roundNumber, 10)).Result()
}
