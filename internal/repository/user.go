package repository

import (
	"context"

	"example.com/warehouse/internal/database"
	"example.com/warehouse/internal/models"

	"github.com/google/uuid"
)

// CreateUser creates a new user
func (r *repo) CreateUser(ctx context.Context, user *models.User) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return gormDB.WithContext(ctx).Create(user).Error
}

// FindUserByUsername gets a user by username
func (r *repo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var user models.User
	err = gormDB.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
