package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dom/auth-backend/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrStaleUser is returned by Update when the stored version no longer
	// matches the version the caller read.
	ErrStaleUser = errors.New("user record was modified concurrently")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByToken returns the user whose token of the given kind equals token
	// and whose expiry is strictly after now.
	FindByToken(ctx context.Context, kind domain.TokenKind, token string, now time.Time) (*domain.User, error)
	// Update persists user if its version still matches the stored one and
	// increments user.Version on success.
	Update(ctx context.Context, user *domain.User) error
	// TouchLastLogin sets last_login only. It neither checks nor bumps the
	// version.
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type NotificationDeliveryRepository interface {
	Create(ctx context.Context, delivery *domain.NotificationDelivery) error
	ListByRecipient(ctx context.Context, recipient string, limit int) ([]*domain.NotificationDelivery, error)
}

type Repositories struct {
	User     UserRepository
	Delivery NotificationDeliveryRepository
}
