package repository

import (
	"context"

	"matchwell/internal/models"

	"gorm.io/gorm"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Create(ctx context.Context, p *models.Profile) error {
	return classify("create profile", r.db.WithContext(ctx).Create(p).Error)
}

// GetByUserID returns the user's profile or domain.ErrNotFound.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, classify("get profile", err)
	}
	return &p, nil
}
