package models

import (
	"time"

	"matchwell/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Interest is a one-directional request from FromUserID to ToUserID.
// At most one row exists per ordered pair (idx_interests_pair).
type Interest struct {
	ID         string                `gorm:"primaryKey;size:36" json:"id"`
	FromUserID string                `gorm:"size:36;not null;uniqueIndex:idx_interests_pair,priority:1;index:idx_interests_from_status,priority:1" json:"from_user_id"`
	ToUserID   string                `gorm:"size:36;not null;uniqueIndex:idx_interests_pair,priority:2;index:idx_interests_to_status,priority:1" json:"to_user_id"`
	Status     domain.InterestStatus `gorm:"size:20;not null;index:idx_interests_from_status,priority:2;index:idx_interests_to_status,priority:2" json:"status"`
	Message    *string               `gorm:"type:text" json:"message"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

func (Interest) TableName() string {
	return "interests"
}

func (i *Interest) BeforeCreate(_ *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

func (i *Interest) IsPending() bool { return i.Status == domain.InterestPending }

// Counterpart returns the participant that is not userID.
func (i *Interest) Counterpart(userID string) string {
	if i.FromUserID == userID {
		return i.ToUserID
	}
	return i.FromUserID
}
