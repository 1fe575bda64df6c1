package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"matchwell/internal/domain"
	"matchwell/internal/models"
	"matchwell/internal/repository"
)

// Notifier receives the notification emitted after each committed transition.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

// InterestService coordinates the interest state machine. Capacity checks and
// the write they guard run under per-user locks inside one transaction.
type InterestService struct {
	repo        *repository.InterestRepository
	users       UserDirectory
	notifier    Notifier
	view        *MatchView
	policy      CapacityPolicy
	locks       *KeyedMutex
	maxAttempts int
	log         *slog.Logger
}

func NewInterestService(
	repo *repository.InterestRepository,
	users UserDirectory,
	notifier Notifier,
	view *MatchView,
	policy CapacityPolicy,
	maxAttempts int,
	log *slog.Logger,
) *InterestService {
	if maxAttempts <= 0 {
		maxAttempts = domain.DefaultMaxAttempts
	}
	return &InterestService{
		repo:        repo,
		users:       users,
		notifier:    notifier,
		view:        view,
		policy:      policy,
		locks:       NewKeyedMutex(),
		maxAttempts: maxAttempts,
		log:         log.With("component", "interests"),
	}
}

// Send creates a pending interest from fromID to toID and notifies the recipient.
func (s *InterestService) Send(ctx context.Context, fromID, toID string, message *string) (*models.Interest, error) {
	if fromID == toID {
		err := domain.E(domain.KindInvalidTarget, "Cannot send interest to yourself")
		observeOp("send", err)
		return nil, err
	}

	var created *models.Interest
	err := s.atomically(ctx, "send", []string{fromID, toID}, func(tx *repository.InterestRepository) error {
		found, err := tx.LockUsers(ctx, fromID, toID)
		if err != nil {
			return err
		}
		if !found[toID] {
			return domain.E(domain.KindInvalidTarget, "User not found")
		}
		if !found[fromID] {
			return domain.E(domain.KindNotFound, "Current user not found")
		}

		ok, err := s.policy.CanSend(ctx, tx, fromID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.E(domain.KindCapacityExceeded, fmt.Sprintf(
				"You have reached the maximum limit of %d active interests. Please wait for responses or withdraw pending interests.",
				s.policy.MaxActiveSent))
		}

		if existing, err := tx.Find(ctx, fromID, toID); err == nil {
			return domain.E(domain.KindDuplicateInterest,
				fmt.Sprintf("Interest already exists with status: %s", existing.Status))
		} else if !isNotFound(err) {
			return err
		}
		if _, err := tx.Find(ctx, toID, fromID); err == nil {
			return domain.E(domain.KindReverseInterestExists,
				"This user has already sent you an interest. Please respond to their request.")
		} else if !isNotFound(err) {
			return err
		}

		i := &models.Interest{
			FromUserID: fromID,
			ToUserID:   toID,
			Status:     domain.InterestPending,
			Message:    message,
		}
		if err := tx.Insert(ctx, i); err != nil {
			return err
		}
		created = i
		return nil
	})
	observeOp("send", err)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, fromID, toID, domain.NotifInterestReceived, "%s has sent you an interest", &created.ID)
	return created, nil
}

// Accept moves a pending interest addressed to actorID into a match.
func (s *InterestService) Accept(ctx context.Context, id, actorID string) (*models.Interest, error) {
	cur, err := s.participant(ctx, id, actorID, "accept", func(i *models.Interest) bool { return i.ToUserID == actorID },
		"You can only accept interests sent to you")
	if err != nil {
		observeOp("accept", err)
		return nil, err
	}

	var updated *models.Interest
	err = s.atomically(ctx, "accept", []string{cur.FromUserID, cur.ToUserID}, func(tx *repository.InterestRepository) error {
		if _, err := tx.LockUsers(ctx, cur.FromUserID, cur.ToUserID); err != nil {
			return err
		}
		i, err := pendingInTx(ctx, tx, id, "Interest has already been %s")
		if err != nil {
			return err
		}

		ok, err := s.policy.CanAccept(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.E(domain.KindCapacityExceeded,
				fmt.Sprintf("You have reached the maximum limit of %d mutual interests", s.policy.MaxAccepted))
		}
		ok, err = s.policy.CanAccept(ctx, tx, i.FromUserID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.E(domain.KindCapacityExceeded, "The sender has reached their interest limit. Cannot accept.")
		}

		updated, err = tx.Transition(ctx, id, domain.InterestAccepted, domain.InterestPending)
		return err
	})
	observeOp("accept", err)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, actorID, updated.FromUserID, domain.NotifInterestAccepted, "%s has accepted your interest", &updated.ID)
	return updated, nil
}

// Reject closes a pending interest addressed to actorID. It never raises a
// count, so only the record itself is guarded.
func (s *InterestService) Reject(ctx context.Context, id, actorID string) (*models.Interest, error) {
	if _, err := s.participant(ctx, id, actorID, "reject", func(i *models.Interest) bool { return i.ToUserID == actorID },
		"You can only reject interests sent to you"); err != nil {
		observeOp("reject", err)
		return nil, err
	}

	var updated *models.Interest
	err := s.atomically(ctx, "reject", nil, func(tx *repository.InterestRepository) error {
		if _, err := pendingInTx(ctx, tx, id, "Interest has already been %s"); err != nil {
			return err
		}
		var err error
		updated, err = tx.Transition(ctx, id, domain.InterestRejected, domain.InterestPending)
		return err
	})
	observeOp("reject", err)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, actorID, updated.FromUserID, domain.NotifInterestRejected, "%s has declined your interest", &updated.ID)
	return updated, nil
}

// Cancel withdraws a pending interest sent by actorID. The record is deleted,
// so the resulting notification carries no related id.
func (s *InterestService) Cancel(ctx context.Context, id, actorID string) error {
	cur, err := s.participant(ctx, id, actorID, "cancel", func(i *models.Interest) bool { return i.FromUserID == actorID },
		"You can only cancel interests you sent")
	if err != nil {
		observeOp("cancel", err)
		return err
	}

	err = s.atomically(ctx, "cancel", nil, func(tx *repository.InterestRepository) error {
		if _, err := pendingInTx(ctx, tx, id, "Cannot cancel an interest that has been %s"); err != nil {
			return err
		}
		return tx.Delete(ctx, id, domain.InterestPending)
	})
	observeOp("cancel", err)
	if err != nil {
		return err
	}

	s.emit(ctx, actorID, cur.ToUserID, domain.NotifInterestCanceled, "%s has withdrawn their interest", nil)
	return nil
}

// participant loads the interest and checks the actor's role in it. The
// participants of an interest never change, so this read may happen before
// any lock is taken.
func (s *InterestService) participant(ctx context.Context, id, actorID, op string, allowed func(*models.Interest) bool, denied string) (*models.Interest, error) {
	i, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.E(domain.KindNotFound, "Interest not found")
		}
		return nil, err
	}
	if !allowed(i) {
		s.log.Debug("forbidden interest operation", "op", op, "interest_id", id, "actor_id", actorID)
		return nil, domain.E(domain.KindForbidden, denied)
	}
	return i, nil
}

// pendingInTx re-reads the interest inside tx and requires it to be pending.
func pendingInTx(ctx context.Context, tx *repository.InterestRepository, id, stateMsg string) (*models.Interest, error) {
	i, err := tx.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.E(domain.KindNotFound, "Interest not found")
		}
		return nil, err
	}
	if !i.IsPending() {
		return nil, domain.E(domain.KindInvalidState, fmt.Sprintf(stateMsg, i.Status))
	}
	return i, nil
}

// atomically runs fn in a transaction while holding the keyed locks of
// userIDs. Conflicts are retried up to maxAttempts times; the last one is
// returned to the caller.
func (s *InterestService) atomically(ctx context.Context, op string, userIDs []string, fn func(tx *repository.InterestRepository) error) error {
	if len(userIDs) > 0 {
		unlock := s.locks.Lock(userIDs...)
		defer unlock()
	}

	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return domain.Unavailable(op+": canceled", cerr)
		}
		err = s.repo.Transaction(ctx, fn)
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
		if attempt < s.maxAttempts {
			interestAtomicRetries.WithLabelValues(op).Inc()
			s.log.Warn("atomic interest operation conflicted, retrying", "op", op, "attempt", attempt, "error", err)
		}
	}
	s.log.Error("atomic interest operation gave up", "op", op, "attempts", s.maxAttempts, "error", err)
	return err
}

// emit builds and hands off the notification for a committed transition.
// Failures are logged and counted and never reach the caller.
func (s *InterestService) emit(ctx context.Context, actorID, recipientID string, typ domain.NotificationType, format string, relatedID *string) {
	name := "Someone"
	if u, err := s.users.GetByID(ctx, actorID); err == nil {
		name = u.DisplayName()
	} else {
		s.log.Warn("actor lookup for notification failed", "actor_id", actorID, "error", err)
	}

	from := actorID
	n := &models.Notification{
		UserID:     recipientID,
		Type:       typ,
		FromUserID: &from,
		Message:    fmt.Sprintf(format, name),
		RelatedID:  relatedID,
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		notificationFailures.WithLabelValues("emit").Inc()
		s.log.Error("notification not delivered", "type", typ, "user_id", recipientID, "error", err)
	}
}

// ListReceived returns interests addressed to userID annotated with their senders.
func (s *InterestService) ListReceived(ctx context.Context, userID string) ([]InterestView, error) {
	list, err := s.repo.ListReceived(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view.Project(ctx, userID, list, AsRecipient), nil
}

// ListSent returns interests sent by userID annotated with their recipients.
func (s *InterestService) ListSent(ctx context.Context, userID string) ([]InterestView, error) {
	list, err := s.repo.ListSent(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view.Project(ctx, userID, list, AsSender), nil
}

// Matches returns the accepted interests of userID, each annotated with the
// other participant, most recently accepted first.
func (s *InterestService) Matches(ctx context.Context, userID string) ([]InterestView, error) {
	list, err := s.repo.ListAccepted(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view.Project(ctx, userID, list, AsMatch), nil
}

// MutualInterest reports whether a and b are matched.
func (s *InterestService) MutualInterest(ctx context.Context, a, b string) (bool, error) {
	return s.repo.HasMutualInterest(ctx, a, b)
}

// Counts returns userID's current active-sent and accepted counts.
func (s *InterestService) Counts(ctx context.Context, userID string) (activeSent, accepted int, err error) {
	if activeSent, err = s.policy.ActiveSentCount(ctx, s.repo, userID); err != nil {
		return 0, 0, err
	}
	if accepted, err = s.policy.AcceptedCount(ctx, s.repo, userID); err != nil {
		return 0, 0, err
	}
	return activeSent, accepted, nil
}

// Policy returns the caps the service enforces.
func (s *InterestService) Policy() CapacityPolicy { return s.policy }
