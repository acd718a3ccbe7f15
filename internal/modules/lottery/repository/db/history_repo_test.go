package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/domain"
	"github.com/nikepigwin/officialmainnetnplottery/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T, retention int) *HistoryRepository {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.NewGormLogger()})
	require.NoError(t, err)

	repo, err := NewHistoryRepository(db, retention, 1)
	require.NoError(t, err)
	require.NoError(t, repo.AutoMigrate(context.Background()))
	return repo
}

func record(round int64, drawDate time.Time) *domain.HistoricalWinnersRecord {
	return &domain.HistoricalWinnersRecord{
		RoundNumber:       round,
		TotalPool:         20_000_000,
		DrawDate:          drawDate,
		TotalParticipants: 4,
		TotalTickets:      4,
		Winners: []domain.WinnerEntry{
			{Position: 2, Address: "addr_b", Amount: 5_700_000, Percentage: decimal.RequireFromString("28.5"), TransactionReference: "tx", ClaimedAt: drawDate},
			{Position: 1, Address: "addr_a", Amount: 9_500_000, Percentage: decimal.RequireFromString("47.5"), TransactionReference: "tx", ClaimedAt: drawDate},
		},
	}
}

func TestHistoryRepository_AppendListExists(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, 2)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for round := int64(1); round <= 3; round++ {
		require.NoError(t, repo.Append(ctx, record(round, base.Add(time.Duration(round)*time.Minute))))
	}

	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(3), records[0].RoundNumber)
	assert.Equal(t, int64(2), records[1].RoundNumber)

	require.Len(t, records[0].Winners, 2)
	assert.Equal(t, 1, records[0].Winners[0].Position)
	assert.Equal(t, "addr_a", records[0].Winners[0].Address)
	assert.Equal(t, domain.Amount(9_500_000), records[0].Winners[0].Amount)
	assert.Equal(t, "47.5", records[0].Winners[0].Percentage.String())

	ok, err := repo.Exists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok, "older rounds stay in the audit table")

	ok, err = repo.Exists(ctx, 4)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHistoryRepository_RoundIsUnique(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, 7)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx, record(5, now)))
	assert.Error(t, repo.Append(ctx, record(5, now)))
}
