package notify

import (
	"context"
	"encoding/json"
	"log"

	"github.com/dom/auth-backend/internal/domain"
	"github.com/dom/auth-backend/internal/repository"
)

// DeliveryRecorder writes terminal delivery outcomes to the delivery log.
// A nil repository makes it log-only.
type DeliveryRecorder struct {
	repo repository.NotificationDeliveryRepository
}

func NewDeliveryRecorder(repo repository.NotificationDeliveryRepository) *DeliveryRecorder {
	return &DeliveryRecorder{repo: repo}
}

func (r *DeliveryRecorder) Record(ctx context.Context, msg Message, attempts int, sendErr error) {
	delivery := &domain.NotificationDelivery{
		Kind:      msg.Kind,
		Recipient: msg.To,
		Status:    domain.DeliveryStatusSent,
		Attempts:  attempts,
	}
	if sendErr != nil {
		delivery.Status = domain.DeliveryStatusFailed
		delivery.LastError = sendErr.Error()
		log.Printf("ERROR [notify.Record] %s to %s failed after %d attempts: %v", msg.Kind, msg.To, attempts, sendErr)
	}

	if r == nil || r.repo == nil {
		return
	}

	payload, err := json.Marshal(msg.redacted())
	if err != nil {
		log.Printf("ERROR [notify.Record] failed to encode payload: %v", err)
		return
	}
	delivery.Payload = payload

	if err := r.repo.Create(ctx, delivery); err != nil {
		log.Printf("ERROR [notify.Record] failed to store delivery: %v", err)
	}
}
