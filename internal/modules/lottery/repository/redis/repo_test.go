package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs a live server: REDIS_TEST_ADDR=localhost:6379 go test ./...
func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	require.NoError(t, rdb.Ping(context.Background()).Err())
	t.Cleanup(func() {
		rdb.FlushDB(context.Background())
		rdb.Close()
	})
	return rdb
}

func TestStateRepository_SaveLoad(t *testing.T) {
	ctx := context.Background()
	repo := NewStateRepository(newTestClient(t), "test")

	state, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, state)

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	saved := domain.NewRoundState(3*time.Minute, 4, 5_000_000, now)
	saved.AddTickets("addr1", 2, "tx1", now)
	require.NoError(t, repo.Save(ctx, saved))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(2), loaded.TotalTickets)
	assert.True(t, loaded.ConfirmedTx["tx1"])
	assert.True(t, loaded.RoundStartTime.Equal(now))
	require.NoError(t, loaded.CheckInvariants())
}

func TestHistoryRepository_Trim(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(newTestClient(t), "test", 2)

	for round := int64(1); round <= 3; round++ {
		require.NoError(t, repo.Append(ctx, &domain.HistoricalWinnersRecord{RoundNumber: round}))
	}

	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(3), records[0].RoundNumber)

	ok, err := repo.Exists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}
