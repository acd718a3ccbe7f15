package db

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// HistoryRepository keeps every paid round in SQL; List shows the latest retention rounds
type HistoryRepository struct {
	db        *gorm.DB
	retention int
	node      *snowflake.Node
}

func NewHistoryRepository(db *gorm.DB, retention int, nodeID int64) (*HistoryRepository, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node: %w", err)
	}
	if retention <= 0 {
		retention = 7
	}
	return &HistoryRepository{db: db, retention: retention, node: node}, nil
}

// AutoMigrate creates the history tables
func (r *HistoryRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&domain.DrawRecord{}, &domain.DrawWinner{})
}

func (r *HistoryRepository) Append(ctx context.Context, record *domain.HistoricalWinnersRecord) error {
	row := &domain.DrawRecord{
		ID:                r.node.Generate().Int64(),
		RoundNumber:       record.RoundNumber,
		TotalPool:         int64(record.TotalPool),
		TotalParticipants: record.TotalParticipants,
		TotalTickets:      record.TotalTickets,
		DrawDate:          record.DrawDate,
		CreatedAt:         record.DrawDate,
		Winners:           make([]domain.DrawWinner, 0, len(record.Winners)),
	}
	for _, w := range record.Winners {
		row.TxReference = w.TransactionReference
		row.Winners = append(row.Winners, domain.DrawWinner{
			ID:          r.node.Generate().Int64(),
			DrawID:      row.ID,
			Position:    w.Position,
			Address:     w.Address,
			Amount:      int64(w.Amount),
			Percentage:  w.Percentage.String(),
			TxReference: w.TransactionReference,
			ClaimedAt:   w.ClaimedAt,
		})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(row).Error
	})
}

func (r *HistoryRepository) List(ctx context.Context) ([]*domain.HistoricalWinnersRecord, error) {
	var rows []domain.DrawRecord
	err := r.db.WithContext(ctx).
		Preload("Winners", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("round_number DESC").
		Limit(r.retention).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]*domain.HistoricalWinnersRecord, 0, len(rows))
	for _, row := range rows {
		rec := &domain.HistoricalWinnersRecord{
			RoundNumber:       row.RoundNumber,
			TotalPool:         domain.Amount(row.TotalPool),
			DrawDate:          row.DrawDate,
			TotalParticipants: row.TotalParticipants,
			TotalTickets:      row.TotalTickets,
			Winners:           make([]domain.WinnerEntry, 0, len(row.Winners)),
		}
		for _, w := range row.Winners {
			pct, err := decimal.NewFromString(w.Percentage)
			if err != nil {
				pct = decimal.Zero
			}
			rec.Winners = append(rec.Winners, domain.WinnerEntry{
				Position:             w.Position,
				Address:              w.Address,
				Amount:               domain.Amount(w.Amount),
				Percentage:           pct,
				TransactionReference: w.TxReference,
				ClaimedAt:            w.ClaimedAt,
			})
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *HistoryRepository) Exists(ctx context.Context, roundNumber int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.DrawRecord{}).
		Where("round_number = ?", roundNumber).
		Count(&count).Error
	return count > 0, err
}
