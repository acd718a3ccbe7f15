package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/domain"
	"github.com/redis/go-redis/v9"
)

const stateKey = "lottery:round_state"

// StateRepository implements domain.StateRepository as one JSON value
type StateRepository struct {
	rdb *redis.Client
	key string
}

// NewStateRepository creates a new Redis state repository; prefix separates deployments
func NewStateRepository(rdb *redis.Client, prefix string) *StateRepository {
	key := stateKey
	if prefix != "" {
		key = prefix + ":" + stateKey
	}
	return &StateRepository{rdb: rdb, key: key}
}

// Load returns nil, nil when no snapshot is stored
func (r *StateRepository) Load(ctx context.Context) (*domain.RoundState, error) {
	data, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state domain.RoundState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode round snapshot: %w", err)
	}
	return &state, nil
}

func (r *StateRepository) Save(ctx context.Context, state *domain.RoundState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.key, data, 0).Err()
}
