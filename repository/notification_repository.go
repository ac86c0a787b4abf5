package repository

import (
	"context"

	"storefront-service/models"

	"gorm.io/gorm"
)

// NotificationRepository stores the outbound message attempt log.
type NotificationRepository interface {
	Create(ctx context.Context, attempt *models.NotificationAttempt) error
	UpdateOutcome(ctx context.Context, attempt *models.NotificationAttempt) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.NotificationAttempt, int64, error)
}

type GormNotificationRepository struct {
	db *gorm.DB
}

func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) Create(ctx context.Context, attempt *models.NotificationAttempt) error {
	return conn(ctx, r.db).Create(attempt).Error
}

// UpdateOutcome records the delivery result. Only the outcome columns change.
func (r *GormNotificationRepository) UpdateOutcome(ctx context.Context, attempt *models.NotificationAttempt) error {
	return conn(ctx, r.db).Model(&models.NotificationAttempt{}).
		Where("id = ?", attempt.ID).
		Updates(map[string]interface{}{
			"status":            attempt.Status,
			"provider":          attempt.Provider,
			"provider_response": attempt.ProviderResponse,
			"error":             attempt.Error,
			"attempts":          attempt.Attempts,
		}).Error
}

func (r *GormNotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.NotificationAttempt, int64, error) {
	var attempts []models.NotificationAttempt
	var total int64

	query := conn(ctx, r.db).Model(&models.NotificationAttempt{})
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Order("created_at DESC").
		Offset(offset(filter.Page, filter.PageSize)).
		Limit(filter.PageSize).
		Find(&attempts).Error; err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}
