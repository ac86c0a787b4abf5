package services

import (
	"storefront-service/apperrors"
	"storefront-service/models"
)

// TransitionPolicy decides whether an admin may move an order between two
// statuses. Re-setting the current status is always allowed.
type TransitionPolicy interface {
	Allow(from, to models.OrderStatus) error
}

// PermissivePolicy lets any status follow any other.
type PermissivePolicy struct{}

func (PermissivePolicy) Allow(_, _ models.OrderStatus) error { return nil }

// StrictPolicy only allows the forward lifecycle plus the early exits.
type StrictPolicy struct {
	next map[models.OrderStatus][]models.OrderStatus
}

func NewStrictPolicy() *StrictPolicy {
	return &StrictPolicy{next: map[models.OrderStatus][]models.OrderStatus{
		models.OrderStatusPending: {
			models.OrderStatusAccepted,
			models.OrderStatusRejected,
			models.OrderStatusCancelled,
		},
		models.OrderStatusAccepted:       {models.OrderStatusPreparing, models.OrderStatusCancelled},
		models.OrderStatusPreparing:      {models.OrderStatusOutForDelivery},
		models.OrderStatusOutForDelivery: {models.OrderStatusDelivered},
		models.OrderStatusDelivered:      {models.OrderStatusCompleted},
	}}
}

func (p *StrictPolicy) Allow(from, to models.OrderStatus) error {
	if from == to {
		return nil
	}
	for _, s := range p.next[from] {
		if s == to {
			return nil
		}
	}
	return apperrors.TransitionNotAllowed(string(from), string(to))
}

// NewTransitionPolicy picks the policy selected by configuration.
func NewTransitionPolicy(strict bool) TransitionPolicy {
	if strict {
		return NewStrictPolicy()
	}
	return PermissivePolicy{}
}
