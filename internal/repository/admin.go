package repository

import (
	"context"
	"errors"

	"github.com/aman-churiwal/eligibility-engine/internal/models"
	"github.com/aman-churiwal/eligibility-engine/internal/storage"
	"gorm.io/gorm"
)

type AdminRepository struct {
	db *storage.Database
}

func NewAdminRepository(db *storage.Database) *AdminRepository {
	return &AdminRepository{db: db}
}

// Inserts a new admin into the database
func (r *AdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	return r.db.DB.WithContext(ctx).Create(admin).Error
}

// Retrieves admin by email
func (r *AdminRepository) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	err := r.db.DB.WithContext(ctx).
		Where("email = ?", email).
		First(&admin).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &admin, nil
}
