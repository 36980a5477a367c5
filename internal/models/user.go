package models

import (
	"time"
)

const UserStatusActive = "active"

// Represents an end user whose actions are recorded. The ID is supplied by the caller.
type User struct {
	ID        string    `gorm:"type:varchar(255);primaryKey" json:"id"`
	Email     string    `gorm:"not null" json:"email"`
	Status    string    `gorm:"type:varchar(32);not null;default:'active'" json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Returns the placeholder email used when a user is created without one
func DefaultEmail(userID string) string {
	return userID + "@example.com"
}

func (User) TableName() string {
	return "users"
}
