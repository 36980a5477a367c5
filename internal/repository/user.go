package repository

import (
	"context"
	"errors"

	"github.com/aman-churiwal/eligibility-engine/internal/models"
	"github.com/aman-churiwal/eligibility-engine/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *storage.Database
}

func NewUserRepository(db *storage.Database) *UserRepository {
	return &UserRepository{db: db}
}

// Inserts the user unless the id is taken. Reports whether a row was inserted.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (bool, error) {
	return r.CreateIfAbsentTx(r.db.DB.WithContext(ctx), user)
}

// Same as Create, inside an open transaction. A concurrent insert of the same
// id resolves to a no-op instead of a unique violation.
func (r *UserRepository) CreateIfAbsentTx(tx *gorm.DB, user *models.User) (bool, error) {
	result := tx.
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(user)

	return result.RowsAffected > 0, result.Error
}

// Retrieves user by id
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}
