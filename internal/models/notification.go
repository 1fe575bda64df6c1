package models

import (
	"time"

	"matchwell/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Notification struct {
	ID         string                  `gorm:"primaryKey;size:36" json:"id"`
	UserID     string                  `gorm:"size:36;not null;index:idx_notifications_user_read,priority:1" json:"user_id"`
	Type       domain.NotificationType `gorm:"size:50;not null" json:"type"`
	FromUserID *string                 `gorm:"size:36" json:"from_user_id"`
	Message    string                  `gorm:"type:text;not null" json:"message"`
	IsRead     bool                    `gorm:"not null;default:false;index:idx_notifications_user_read,priority:2" json:"is_read"`
	RelatedID  *string                 `gorm:"size:36" json:"related_id"` // interest id; nil once the interest is gone
	CreatedAt  time.Time               `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
