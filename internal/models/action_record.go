package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Represents one recorded user action. Rows are append-only.
type ActionRecord struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID     string    `gorm:"not null;index:idx_action_records_lookup,priority:1" json:"userId"`
	ActionType string    `gorm:"not null;index:idx_action_records_lookup,priority:2" json:"action"`
	Amount     int64     `gorm:"not null" json:"amount"`
	Timestamp  time.Time `gorm:"not null;index:idx_action_records_lookup,priority:3" json:"timestamp"`
}

func (a *ActionRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (ActionRecord) TableName() string {
	return "action_records"
}
