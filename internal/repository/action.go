package repository

import (
	"context"
	"time"

	"github.com/aman-churiwal/eligibility-engine/internal/models"
	"github.com/aman-churiwal/eligibility-engine/internal/storage"
	"gorm.io/gorm"
)

// Append-only ledger of recorded actions
type ActionRepository struct {
	db *storage.Database
}

func NewActionRepository(db *storage.Database) *ActionRepository {
	return &ActionRepository{db: db}
}

// Inserts a new action record
func (r *ActionRepository) Create(ctx context.Context, record *models.ActionRecord) error {
	return r.CreateTx(r.db.DB.WithContext(ctx), record)
}

// Inserts a new action record inside an open transaction
func (r *ActionRepository) CreateTx(tx *gorm.DB, record *models.ActionRecord) error {
	record.Timestamp = record.Timestamp.UTC()
	return tx.Create(record).Error
}

// Sums amounts for a user and action with timestamp in [from, to)
func (r *ActionRepository) SumAmount(ctx context.Context, userID, actionType string, from, to time.Time) (int64, error) {
	var total int64

	err := r.db.DB.WithContext(ctx).
		Model(&models.ActionRecord{}).
		Select("CAST(COALESCE(SUM(amount), 0) AS BIGINT)").
		Where("user_id = ? AND action_type = ? AND timestamp >= ? AND timestamp < ?",
			userID, actionType, from.UTC(), to.UTC()).
		Scan(&total).Error

	return total, err
}

// Retrieves a user's records at or after since, most recent first
func (r *ActionRepository) FindByUserSince(ctx context.Context, userID string, since time.Time) ([]models.ActionRecord, error) {
	records := make([]models.ActionRecord, 0)

	err := r.db.DB.WithContext(ctx).
		Where("user_id = ? AND timestamp >= ?", userID, since.UTC()).
		Order("timestamp DESC").
		Order("id DESC").
		Find(&records).Error

	return records, err
}
