package service

import (
	"context"

	"matchwell/internal/domain"
)

// CapacityCounter supplies the derived counts the policy decides on. The
// transaction-bound InterestRepository satisfies it, so a decision always
// reflects the state the following write will see.
type CapacityCounter interface {
	CountActiveSent(ctx context.Context, userID string) (int64, error)
	CountAccepted(ctx context.Context, userID string) (int64, error)
}

// CapacityPolicy bounds how many interests a user may have in flight.
type CapacityPolicy struct {
	MaxActiveSent int
	MaxAccepted   int
}

// NewCapacityPolicy falls back to the default caps for non-positive limits.
func NewCapacityPolicy(maxActiveSent, maxAccepted int) CapacityPolicy {
	if maxActiveSent <= 0 {
		maxActiveSent = domain.DefaultMaxActiveSent
	}
	if maxAccepted <= 0 {
		maxAccepted = domain.DefaultMaxAccepted
	}
	return CapacityPolicy{MaxActiveSent: maxActiveSent, MaxAccepted: maxAccepted}
}

func (p CapacityPolicy) ActiveSentCount(ctx context.Context, c CapacityCounter, userID string) (int, error) {
	n, err := c.CountActiveSent(ctx, userID)
	return int(n), err
}

func (p CapacityPolicy) AcceptedCount(ctx context.Context, c CapacityCounter, userID string) (int, error) {
	n, err := c.CountAccepted(ctx, userID)
	return int(n), err
}

// CanSend reports whether userID may have one more pending or accepted sent interest.
func (p CapacityPolicy) CanSend(ctx context.Context, c CapacityCounter, userID string) (bool, error) {
	n, err := p.ActiveSentCount(ctx, c, userID)
	if err != nil {
		return false, err
	}
	return n < p.MaxActiveSent, nil
}

// CanAccept reports whether userID may take part in one more match.
func (p CapacityPolicy) CanAccept(ctx context.Context, c CapacityCounter, userID string) (bool, error) {
	n, err := p.AcceptedCount(ctx, c, userID)
	if err != nil {
		return false, err
	}
	return n < p.MaxAccepted, nil
}
