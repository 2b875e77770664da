package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/dom/auth-backend/internal/domain"
	"github.com/dom/auth-backend/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repository.ErrDuplicateEmail
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) FindByToken(ctx context.Context, kind domain.TokenKind, token string, now time.Time) (*domain.User, error) {
	var tokenColumn, expiryColumn string
	switch kind {
	case domain.TokenKindVerification:
		tokenColumn, expiryColumn = "verification_token", "verification_token_expires_at"
	case domain.TokenKindReset:
		tokenColumn, expiryColumn = "reset_password_token", "reset_password_token_expires_at"
	default:
		return nil, domain.ErrUnknownTokenKind
	}

	var user domain.User
	err := r.db.WithContext(ctx).
		Where(tokenColumn+" = ?", token).
		Where(expiryColumn+" > ?", now).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? AND version = ?", user.ID, user.Version).
		Updates(map[string]interface{}{
			"email":                           user.Email,
			"name":                            user.Name,
			"password_hash":                   user.PasswordHash,
			"is_verified":                     user.IsVerified,
			"verification_token":              user.VerificationToken,
			"verification_token_expires_at":   user.VerificationTokenExpiresAt,
			"reset_password_token":            user.ResetPasswordToken,
			"reset_password_token_expires_at": user.ResetPasswordTokenExpiresAt,
			"last_login":                      user.LastLogin,
			"version":                         user.Version + 1,
			"updated_at":                      now,
		})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return repository.ErrDuplicateEmail
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrStaleUser
	}

	user.Version++
	user.UpdatedAt = now
	return nil
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	return err
}
