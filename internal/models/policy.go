package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Time windows a policy can be evaluated over
const (
	WindowHourly  = "hourly"
	WindowDaily   = "daily"
	WindowWeekly  = "weekly"
	WindowMonthly = "monthly"
)

// Represents a usage limit for one action type
type Policy struct {
	ID          string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	ActionType  string         `gorm:"not null;index:idx_policies_action_active,priority:1" json:"action"`
	LimitAmount int64          `gorm:"not null" json:"limit"`
	TimeWindow  string         `gorm:"type:varchar(16);not null" json:"window"`
	Rules       datatypes.JSON `json:"rules"`
	IsActive    bool           `gorm:"not null;default:true;index:idx_policies_action_active,priority:2" json:"isActive"`
	CreatedAt   time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func (p *Policy) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (Policy) TableName() string {
	return "policies"
}
