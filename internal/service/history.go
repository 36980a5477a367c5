package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/aman-churiwal/eligibility-engine/internal/models"
	"github.com/aman-churiwal/eligibility-engine/internal/repository"
)

const (
	DefaultHistoryDays = 7
	// Upper bound on the lookback so the cutoff stays a sane date
	MaxHistoryDays = 1825
)

type History struct {
	UserID     string
	Since      time.Time
	Actions    []models.ActionRecord
	TotalCount int
}

type HistoryService struct {
	actions *repository.ActionRepository
	clock   Clock
}

func NewHistoryService(actions *repository.ActionRepository, clock Clock) *HistoryService {
	if clock == nil {
		clock = SystemClock()
	}
	return &HistoryService{actions: actions, clock: clock}
}

// Parses the days query value. Missing, non-numeric or non-positive values
// fall back to the default; large values are clamped.
func ParseDays(raw string) int {
	days, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return DefaultHistoryDays
	}
	return NormalizeDays(days)
}

func NormalizeDays(days int) int {
	if days <= 0 {
		return DefaultHistoryDays
	}
	if days > MaxHistoryDays {
		return MaxHistoryDays
	}
	return days
}

// Returns the user's actions over the last days*24h, most recent first
func (s *HistoryService) History(ctx context.Context, userID string, days int) (*History, error) {
	days = NormalizeDays(days)
	since := s.clock().Add(-time.Duration(days) * 24 * time.Hour)

	records, err := s.actions.FindByUserSince(ctx, userID, since)
	if err != nil {
		return nil, Storage("load history", err)
	}

	return &History{
		UserID:     userID,
		Since:      since,
		Actions:    records,
		TotalCount: len(records),
	}, nil
}
