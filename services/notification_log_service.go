package services

import (
	"context"

	"storefront-service/apperrors"
	"storefront-service/models"
	"storefront-service/repository"
)

// NotificationLogList is one page of notification attempts.
type NotificationLogList struct {
	Attempts []models.NotificationAttempt `json:"notifications"`
	Meta     MetaData                     `json:"meta"`
}

// NotificationLogService serves the admin view of the attempt log.
type NotificationLogService struct {
	repo repository.NotificationRepository
}

func NewNotificationLogService(repo repository.NotificationRepository) *NotificationLogService {
	return &NotificationLogService{repo: repo}
}

func (s *NotificationLogService) List(ctx context.Context, filter models.NotificationFilter) (*NotificationLogList, error) {
	switch filter.Status {
	case "", models.AttemptStatusPending, models.AttemptStatusSent, models.AttemptStatusFailed:
	default:
		return nil, apperrors.Validation("invalid status filter", map[string]string{"status": "oneof"})
	}
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize, 20, 100)

	attempts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if attempts == nil {
		attempts = []models.NotificationAttempt{}
	}
	return &NotificationLogList{
		Attempts: attempts,
		Meta:     newMeta(filter.Page, filter.PageSize, total),
	}, nil
}
