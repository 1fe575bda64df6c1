package repository

import (
	"context"
	"errors"

	"matchwell/internal/models"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores n. A retried write whose first attempt did commit hits the
// primary key and is treated as success.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && n.ID != "" {
			return nil
		}
		return classify("create notification", err)
	}
	return nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, classify("get notification", err)
	}
	return &n, nil
}

// ListByUserID returns the user's notifications, newest first.
func (r *NotificationRepository) ListByUserID(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	var list []models.Notification
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if err := q.Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, classify("list notifications", err)
	}
	return list, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var c int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&c).Error
	if err != nil {
		return 0, classify("count unread notifications", err)
	}
	return c, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("is_read", true).Error
	return classify("mark notification read", err)
}

// MarkAllRead flips every unread notification of userID and returns how many changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, classify("mark all notifications read", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Notification{}).Error
	return classify("delete notification", err)
}
