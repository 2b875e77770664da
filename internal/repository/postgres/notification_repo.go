package postgres

import (
	"context"

	"github.com/dom/auth-backend/internal/domain"
	"gorm.io/gorm"
)

type notificationDeliveryRepository struct {
	db *gorm.DB
}

func NewNotificationDeliveryRepository(db *gorm.DB) *notificationDeliveryRepository {
	return &notificationDeliveryRepository{db: db}
}

func (r *notificationDeliveryRepository) Create(ctx context.Context, delivery *domain.NotificationDelivery) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

func (r *notificationDeliveryRepository) ListByRecipient(ctx context.Context, recipient string, limit int) ([]*domain.NotificationDelivery, error) {
	var deliveries []*domain.NotificationDelivery
	err := r.db.WithContext(ctx).
		Where("recipient = ?", recipient).
		Order("created_at DESC").
		Limit(limit).
		Find(&deliveries).Error
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}
