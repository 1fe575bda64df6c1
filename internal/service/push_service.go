package service

import (
	"context"
	"fmt"
	"log/slog"

	"matchwell/internal/domain"
	"matchwell/internal/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Pusher delivers a stored notification to the recipient's devices.
type Pusher interface {
	Push(ctx context.Context, n *models.Notification) error
}

type messageSender interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

// PushService sends notifications via Firebase Cloud Messaging.
type PushService struct {
	client messageSender
	users  UserDirectory
	log    *slog.Logger
}

// NewPushService creates an FCM pusher. It returns nil, nil when no
// service account is configured.
func NewPushService(ctx context.Context, serviceAccountPath string, users UserDirectory, log *slog.Logger) (*PushService, error) {
	if serviceAccountPath == "" {
		return nil, nil
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging client: %w", err)
	}
	return &PushService{client: client, users: users, log: log.With("component", "fcm")}, nil
}

var pushTitles = map[domain.NotificationType]string{
	domain.NotifInterestReceived: "New interest",
	domain.NotifInterestAccepted: "Interest accepted",
	domain.NotifInterestRejected: "Interest declined",
	domain.NotifInterestCanceled: "Interest withdrawn",
}

// Push is a no-op for users without a registered device token.
func (s *PushService) Push(ctx context.Context, n *models.Notification) error {
	u, err := s.users.GetByID(ctx, n.UserID)
	if err != nil {
		return err
	}
	if u.FCMToken == "" {
		return nil
	}

	data := map[string]string{
		"type":            string(n.Type),
		"notification_id": n.ID,
	}
	if n.RelatedID != nil {
		data["interest_id"] = *n.RelatedID
	}
	if n.FromUserID != nil {
		data["from_user_id"] = *n.FromUserID
	}
	msg := &messaging.Message{
		Notification: &messaging.Notification{
			Title: pushTitles[n.Type],
			Body:  n.Message,
		},
		Data:  data,
		Token: u.FCMToken,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
	if _, err := s.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}
