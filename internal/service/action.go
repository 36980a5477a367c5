package service

import (
	"context"
	"time"

	"github.com/aman-churiwal/eligibility-engine/internal/models"
	"github.com/aman-churiwal/eligibility-engine/internal/repository"
	"github.com/aman-churiwal/eligibility-engine/internal/storage"
	"gorm.io/gorm"
)

type RecordRequest struct {
	UserID     string
	ActionType string
	Amount     int64
	At         *time.Time // defaults to the service clock
}

// Appends actions to the usage ledger. Never evaluates policies.
type ActionService struct {
	db      *storage.Database
	users   *repository.UserRepository
	actions *repository.ActionRepository
	clock   Clock
}

func NewActionService(db *storage.Database, users *repository.UserRepository, actions *repository.ActionRepository, clock Clock) *ActionService {
	if clock == nil {
		clock = SystemClock()
	}
	return &ActionService{
		db:      db,
		users:   users,
		actions: actions,
		clock:   clock,
	}
}

// Records one action, creating the user first when it does not exist yet
func (s *ActionService) Record(ctx context.Context, req RecordRequest) (*models.ActionRecord, error) {
	if req.Amount < 0 {
		return nil, Validation("Invalid request data", FieldError{Field: "amount", Message: "must be greater than or equal to 0"})
	}

	ts := s.clock()
	if req.At != nil {
		ts = *req.At
	}

	record := &models.ActionRecord{
		UserID:     req.UserID,
		ActionType: req.ActionType,
		Amount:     req.Amount,
		Timestamp:  ts,
	}

	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		user := &models.User{
			ID:     req.UserID,
			Email:  models.DefaultEmail(req.UserID),
			Status: models.UserStatusActive,
		}
		if _, err := s.users.CreateIfAbsentTx(tx, user); err != nil {
			return err
		}
		return s.actions.CreateTx(tx, record)
	})
	if err != nil {
		return nil, Storage("record action", err)
	}

	return record, nil
}
