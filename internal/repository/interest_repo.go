package repository

import (
	"context"
	"errors"
	"time"

	"matchwell/internal/domain"
	"matchwell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InterestRepository is the relationship store. A repository returned by
// Transaction is bound to that transaction, so a capacity count and the
// write that follows it run as one atomic unit.
type InterestRepository struct {
	db *gorm.DB
}

func NewInterestRepository(db *gorm.DB) *InterestRepository {
	return &InterestRepository{db: db}
}

// Transaction runs fn inside a single database transaction. Errors from fn
// roll the transaction back and are returned unchanged; commit failures are
// classified like any other storage error.
func (r *InterestRepository) Transaction(ctx context.Context, fn func(tx *InterestRepository) error) error {
	var fnErr error
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&InterestRepository{db: tx})
		return fnErr
	})
	if err == nil {
		return nil
	}
	if fnErr != nil {
		return fnErr
	}
	return classify("commit interest transaction", err)
}

// LockUsers takes row locks on the given users in id order and returns the
// subset that exists. Within a transaction this serializes every
// capacity-bearing write that touches the same users.
func (r *InterestRepository) LockUsers(ctx context.Context, userIDs ...string) (map[string]bool, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", userIDs).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, classify("lock users", err)
	}
	found := make(map[string]bool, len(ids))
	for _, id := range ids {
		found[id] = true
	}
	return found, nil
}

// Find returns the interest for the ordered pair, or domain.ErrNotFound.
func (r *InterestRepository) Find(ctx context.Context, fromUserID, toUserID string) (*models.Interest, error) {
	var i models.Interest
	err := r.db.WithContext(ctx).
		Where("from_user_id = ? AND to_user_id = ?", fromUserID, toUserID).
		First(&i).Error
	if err != nil {
		return nil, classify("find interest", err)
	}
	return &i, nil
}

func (r *InterestRepository) GetByID(ctx context.Context, id string) (*models.Interest, error) {
	var i models.Interest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&i).Error
	if err != nil {
		return nil, classify("get interest", err)
	}
	return &i, nil
}

// CountActiveSent counts interests sent by userID that are pending or accepted.
func (r *InterestRepository) CountActiveSent(ctx context.Context, userID string) (int64, error) {
	var c int64
	err := r.db.WithContext(ctx).Model(&models.Interest{}).
		Where("from_user_id = ? AND status IN ?", userID, domain.ActiveSentStatuses).
		Count(&c).Error
	if err != nil {
		return 0, classify("count active sent", err)
	}
	return c, nil
}

// CountAccepted counts accepted interests where userID is either party.
func (r *InterestRepository) CountAccepted(ctx context.Context, userID string) (int64, error) {
	var c int64
	err := r.db.WithContext(ctx).Model(&models.Interest{}).
		Where("status = ? AND (from_user_id = ? OR to_user_id = ?)", domain.InterestAccepted, userID, userID).
		Count(&c).Error
	if err != nil {
		return 0, classify("count accepted", err)
	}
	return c, nil
}

// Insert creates the interest. A second row for the same ordered pair fails
// with domain.ErrDuplicateInterest.
func (r *InterestRepository) Insert(ctx context.Context, i *models.Interest) error {
	if err := r.db.WithContext(ctx).Create(i).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.E(domain.KindDuplicateInterest, "Interest already exists")
		}
		return classify("insert interest", err)
	}
	return nil
}

// Transition moves the interest from expected to next. It fails with
// domain.ErrConflict when the stored status is no longer expected and with
// domain.ErrNotFound when the row is gone.
func (r *InterestRepository) Transition(ctx context.Context, id string, next, expected domain.InterestStatus) (*models.Interest, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.Interest{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(map[string]interface{}{"status": next, "updated_at": now})
	if res.Error != nil {
		return nil, classify("transition interest", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, r.casMiss(ctx, id)
	}
	return r.GetByID(ctx, id)
}

// Delete removes the interest if its status is still expected, with the same
// failure modes as Transition.
func (r *InterestRepository) Delete(ctx context.Context, id string, expected domain.InterestStatus) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, expected).
		Delete(&models.Interest{})
	if res.Error != nil {
		return classify("delete interest", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.casMiss(ctx, id)
	}
	return nil
}

func (r *InterestRepository) casMiss(ctx context.Context, id string) error {
	var c int64
	if err := r.db.WithContext(ctx).Model(&models.Interest{}).Where("id = ?", id).Count(&c).Error; err != nil {
		return classify("check interest", err)
	}
	if c == 0 {
		return domain.E(domain.KindNotFound, "Interest not found")
	}
	return domain.ErrConflict
}

// ListReceived returns interests addressed to userID, newest first.
func (r *InterestRepository) ListReceived(ctx context.Context, userID string, status ...domain.InterestStatus) ([]models.Interest, error) {
	var list []models.Interest
	q := r.db.WithContext(ctx).Where("to_user_id = ?", userID)
	if len(status) > 0 {
		q = q.Where("status IN ?", status)
	}
	if err := q.Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, classify("list received interests", err)
	}
	return list, nil
}

// ListSent returns interests sent by userID, newest first.
func (r *InterestRepository) ListSent(ctx context.Context, userID string, status ...domain.InterestStatus) ([]models.Interest, error) {
	var list []models.Interest
	q := r.db.WithContext(ctx).Where("from_user_id = ?", userID)
	if len(status) > 0 {
		q = q.Where("status IN ?", status)
	}
	if err := q.Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, classify("list sent interests", err)
	}
	return list, nil
}

// ListAccepted returns the matches of userID, most recently accepted first.
func (r *InterestRepository) ListAccepted(ctx context.Context, userID string) ([]models.Interest, error) {
	var list []models.Interest
	err := r.db.WithContext(ctx).
		Where("status = ? AND (from_user_id = ? OR to_user_id = ?)", domain.InterestAccepted, userID, userID).
		Order("updated_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, classify("list accepted interests", err)
	}
	return list, nil
}

// HasMutualInterest reports whether an accepted interest links a and b in
// either direction.
func (r *InterestRepository) HasMutualInterest(ctx context.Context, a, b string) (bool, error) {
	var c int64
	err := r.db.WithContext(ctx).Model(&models.Interest{}).
		Where("status = ?", domain.InterestAccepted).
		Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)", a, b, b, a).
		Limit(1).
		Count(&c).Error
	if err != nil {
		return false, classify("check mutual interest", err)
	}
	return c > 0, nil
}
