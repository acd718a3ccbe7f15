package domain

import (
	"time"
)

// DrawRecord is the persisted form of a paid jackpot round
type DrawRecord struct {
	ID                int64        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	RoundNumber       int64        `gorm:"uniqueIndex;not null" json:"round_number"`
	TotalPool         int64        `gorm:"not null" json:"total_pool"`
	TotalParticipants int          `gorm:"not null;default:0" json:"total_participants"`
	TotalTickets      int64        `gorm:"not null;default:0" json:"total_tickets"`
	TxReference       string       `gorm:"type:varchar(128)" json:"tx_reference"`
	DrawDate          time.Time    `gorm:"index;not null" json:"draw_date"`
	Winners           []DrawWinner `gorm:"foreignKey:DrawID;constraint:OnDelete:CASCADE" json:"winners"`
	CreatedAt         time.Time    `gorm:"autoCreateTime:false" json:"created_at"`
}

// TableName overrides the table name
func (DrawRecord) TableName() string {
	return "lottery_draws"
}

// DrawWinner is one paid position of a DrawRecord
type DrawWinner struct {
	ID          int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	DrawID      int64     `gorm:"index;not null" json:"draw_id"`
	Position    int       `gorm:"not null" json:"position"`
	Address     string    `gorm:"type:varchar(128);index;not null" json:"address"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Percentage  string    `gorm:"type:varchar(16)" json:"percentage"`
	TxReference string    `gorm:"type:varchar(128)" json:"tx_reference"`
	ClaimedAt   time.Time `json:"claimed_at"`
}

// TableName overrides the table name
func (DrawWinner) TableName() string {
	return "lottery_draw_winners"
}
