package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NotificationKind string

const (
	NotificationVerificationCode NotificationKind = "verification_code"
	NotificationWelcome          NotificationKind = "welcome"
	NotificationResetLink        NotificationKind = "reset_link"
	NotificationResetSuccess     NotificationKind = "reset_success"
)

type DeliveryStatus string

const (
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// NotificationDelivery records the terminal outcome of one outbound email.
type NotificationDelivery struct {
	ID        uuid.UUID        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Kind      NotificationKind `json:"kind" gorm:"not null;index"`
	Recipient string           `json:"recipient" gorm:"not null;index"`
	Status    DeliveryStatus   `json:"status" gorm:"not null"`
	Attempts  int              `json:"attempts" gorm:"not null;default:0"`
	LastError string           `json:"lastError"`
	Payload   datatypes.JSON   `json:"payload"`
	CreatedAt time.Time        `json:"createdAt"`
}
