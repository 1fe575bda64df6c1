package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"matchwell/internal/domain"
	"matchwell/internal/models"
)

// NotificationStore persists notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	ListByUserID(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id string) error
}

// Publisher pushes a stored notification to the recipient's live connections.
type Publisher interface {
	PublishToUser(userID string, payload interface{})
}

// NotificationOptions tune the retry queue.
type NotificationOptions struct {
	QueueSize   int
	MaxAttempts int
	Backoff     time.Duration
}

type pendingNotification struct {
	n         *models.Notification
	attempts  int
	notBefore time.Time
}

// ErrNotificationDropped is returned by Notify when a failed write could not
// be queued for retry, either because the queue is full or because the retry
// worker has stopped.
var ErrNotificationDropped = errors.New("notification dropped: retry queue unavailable")

// finalAttemptTimeout bounds the last write tried for each queued
// notification when the retry worker stops.
const finalAttemptTimeout = 2 * time.Second

// NotificationService is the notification sink. Writes that fail are queued
// and retried by Run; a notification is only given up on after MaxAttempts,
// and that is logged at error level.
type NotificationService struct {
	store  NotificationStore
	pub    Publisher
	pusher Pusher
	view   *MatchView
	opts   NotificationOptions
	retry  chan pendingNotification
	log    *slog.Logger

	mu     sync.Mutex
	closed bool
}

func NewNotificationService(store NotificationStore, pub Publisher, view *MatchView, opts NotificationOptions, log *slog.Logger) *NotificationService {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}
	return &NotificationService{
		store: store,
		pub:   pub,
		view:  view,
		opts:  opts,
		retry: make(chan pendingNotification, opts.QueueSize),
		log:   log.With("component", "notifications"),
	}
}

// Notify stores n and pushes it live. A storage failure is logged and the
// notification queued for retry; only a full queue is reported as an error.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) error {
	err := s.store.Create(ctx, n)
	if err == nil {
		s.publish(n)
		return nil
	}
	notificationFailures.WithLabelValues("initial").Inc()
	s.log.Error("notification write failed",
		"user_id", n.UserID, "type", n.Type, "error", err)
	return s.enqueue(pendingNotification{n: n, attempts: 1, notBefore: time.Now().Add(s.opts.Backoff)})
}

func (s *NotificationService) enqueue(p pendingNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		notificationFailures.WithLabelValues("dropped").Inc()
		s.log.Error("notification dropped, retry worker stopped",
			"user_id", p.n.UserID, "type", p.n.Type, "attempts", p.attempts)
		return ErrNotificationDropped
	}
	select {
	case s.retry <- p:
		notificationRetryDepth.Inc()
		s.log.Warn("notification queued for retry", "user_id", p.n.UserID, "type", p.n.Type, "attempts", p.attempts)
		return nil
	default:
		notificationFailures.WithLabelValues("dropped").Inc()
		s.log.Error("notification dropped, retry queue full",
			"user_id", p.n.UserID, "type", p.n.Type, "attempts", p.attempts)
		return ErrNotificationDropped
	}
}

// Run drains the retry queue until ctx is done. On the way out it stops
// accepting retries and gives every queued notification one last write
// attempt; whatever still fails is logged as lost. Cancel ctx only after
// request handling has stopped.
func (s *NotificationService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.drainOnShutdown()
			return
		case p := <-s.retry:
			notificationRetryDepth.Dec()
			if wait := time.Until(p.notBefore); wait > 0 {
				t := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					t.Stop()
					s.flush(p)
					s.drainOnShutdown()
					return
				case <-t.C:
				}
			}
			s.retryOnce(ctx, p)
		}
	}
}

func (s *NotificationService) retryOnce(ctx context.Context, p pendingNotification) {
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err := s.store.Create(wctx, p.n)
	cancel()
	if err == nil {
		s.log.Info("notification delivered after retry", "user_id", p.n.UserID, "type", p.n.Type, "attempts", p.attempts+1)
		s.publish(p.n)
		return
	}
	p.attempts++
	notificationFailures.WithLabelValues("retry").Inc()
	if p.attempts >= s.opts.MaxAttempts {
		notificationFailures.WithLabelValues("dropped").Inc()
		s.log.Error("notification dropped after retries",
			"user_id", p.n.UserID, "type", p.n.Type, "attempts", p.attempts, "error", err)
		return
	}
	s.log.Warn("notification retry failed", "user_id", p.n.UserID, "attempts", p.attempts, "error", err)
	p.notBefore = time.Now().Add(s.opts.Backoff * time.Duration(p.attempts))
	_ = s.enqueue(p)
}

func (s *NotificationService) drainOnShutdown() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	for {
		select {
		case p := <-s.retry:
			notificationRetryDepth.Dec()
			s.flush(p)
		default:
			return
		}
	}
}

// flush makes the final write attempt for p. The worker's context is already
// done here, so the attempt gets its own deadline.
func (s *NotificationService) flush(p pendingNotification) {
	ctx, cancel := context.WithTimeout(context.Background(), finalAttemptTimeout)
	err := s.store.Create(ctx, p.n)
	cancel()
	if err == nil {
		s.log.Info("notification delivered at shutdown", "user_id", p.n.UserID, "type", p.n.Type, "attempts", p.attempts+1)
		s.publish(p.n)
		return
	}
	notificationFailures.WithLabelValues("dropped").Inc()
	s.log.Error("notification lost at shutdown",
		"user_id", p.n.UserID, "type", p.n.Type, "attempts", p.attempts+1, "error", err)
}

// SetPusher adds device push delivery for stored notifications. Call before
// serving traffic.
func (s *NotificationService) SetPusher(p Pusher) { s.pusher = p }

// Pending reports how many notifications wait for a retry.
func (s *NotificationService) Pending() int { return len(s.retry) }

// publish fans a stored notification out to live sockets and device push.
// Both are best effort; the stored row is the durable copy.
func (s *NotificationService) publish(n *models.Notification) {
	if s.pub != nil {
		s.pub.PublishToUser(n.UserID, map[string]interface{}{"type": "notification", "notification": n})
	}
	if s.pusher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.pusher.Push(ctx, n); err != nil {
			notificationFailures.WithLabelValues("push").Inc()
			s.log.Warn("push notification failed", "user_id", n.UserID, "type", n.Type, "error", err)
		}
	}()
}

// NotificationView is a notification annotated with its origin user.
type NotificationView struct {
	models.Notification
	FromUser *Counterpart `json:"from_user,omitempty"`
}

// List returns userID's notifications, newest first, and the unread count.
func (s *NotificationService) List(ctx context.Context, userID string) ([]NotificationView, int64, error) {
	list, err := s.store.ListByUserID(ctx, userID, false)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	var people map[string]*Counterpart
	if s.view != nil {
		ids := make([]string, 0, len(list))
		for _, n := range list {
			if n.FromUserID != nil {
				ids = append(ids, *n.FromUserID)
			}
		}
		people = s.view.Counterparts(ctx, ids...)
	}
	out := make([]NotificationView, 0, len(list))
	for _, n := range list {
		v := NotificationView{Notification: n}
		if n.FromUserID != nil {
			v.FromUser = people[*n.FromUserID]
		}
		out = append(out, v)
	}
	return out, unread, nil
}

// owned loads a notification and checks that actorID is its recipient.
func (s *NotificationService) owned(ctx context.Context, id, actorID, verb string) (*models.Notification, error) {
	n, err := s.store.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.E(domain.KindNotFound, "Notification not found")
		}
		return nil, err
	}
	if n.UserID != actorID {
		return nil, domain.E(domain.KindForbidden, fmt.Sprintf("You can only %s your own notifications", verb))
	}
	return n, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id, actorID string) (*models.Notification, error) {
	n, err := s.owned(ctx, id, actorID, "mark")
	if err != nil {
		return nil, err
	}
	if err := s.store.MarkRead(ctx, id); err != nil {
		return nil, err
	}
	n.IsRead = true
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.store.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, id, actorID string) error {
	if _, err := s.owned(ctx, id, actorID, "delete"); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
