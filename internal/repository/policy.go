package repository

import (
	"context"
	"errors"

	"github.com/aman-churiwal/eligibility-engine/internal/models"
	"github.com/aman-churiwal/eligibility-engine/internal/storage"
	"gorm.io/gorm"
)

type PolicyRepository struct {
	db *storage.Database
}

func NewPolicyRepository(db *storage.Database) *PolicyRepository {
	return &PolicyRepository{db: db}
}

func (r *PolicyRepository) Create(ctx context.Context, policy *models.Policy) error {
	return r.db.DB.WithContext(ctx).Create(policy).Error
}

func (r *PolicyRepository) FindByID(ctx context.Context, id string) (*models.Policy, error) {
	var policy models.Policy
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		First(&policy).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &policy, nil
}

// Lists policies, newest first. Inactive ones are included only when asked for.
func (r *PolicyRepository) List(ctx context.Context, includeInactive bool) ([]models.Policy, error) {
	policies := make([]models.Policy, 0)

	query := r.db.DB.WithContext(ctx)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Find(&policies).Error

	return policies, err
}

// Lists active policies for an action in evaluation order: oldest first, ties broken by id
func (r *PolicyRepository) ListActiveByAction(ctx context.Context, actionType string) ([]models.Policy, error) {
	policies := make([]models.Policy, 0)

	err := r.db.DB.WithContext(ctx).
		Where("action_type = ? AND is_active = ?", actionType, true).
		Order("created_at ASC").
		Order("id ASC").
		Find(&policies).Error

	return policies, err
}

// Applies updates and reports whether a row matched
func (r *PolicyRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (bool, error) {
	result := r.db.DB.WithContext(ctx).
		Model(&models.Policy{}).
		Where("id = ?", id).
		Updates(updates)

	return result.RowsAffected > 0, result.Error
}

// Deletes a policy and reports whether a row matched
func (r *PolicyRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Policy{})

	return result.RowsAffected > 0, result.Error
}
