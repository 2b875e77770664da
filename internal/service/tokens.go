package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dom/auth-backend/internal/domain"
	"github.com/dom/auth-backend/internal/repository"
)

const (
	verificationCodeMin   = 100000
	verificationCodeRange = 900000
	resetTokenBytes       = 20
)

// TokenManager issues, validates and consumes the single-use verification
// and password-reset tokens stored on user records.
type TokenManager struct {
	userRepo        repository.UserRepository
	verificationTTL time.Duration
	resetTTL        time.Duration
	now             func() time.Time
}

func NewTokenManager(userRepo repository.UserRepository, verificationTTL, resetTTL time.Duration) *TokenManager {
	return &TokenManager{
		userRepo:        userRepo,
		verificationTTL: verificationTTL,
		resetTTL:        resetTTL,
		now:             time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

// IssueVerificationToken writes a fresh six-digit code onto user. The caller
// persists the record.
func (m *TokenManager) IssueVerificationToken(user *domain.User) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(verificationCodeRange))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	code := fmt.Sprintf("%d", verificationCodeMin+n.Int64())

	user.SetToken(domain.TokenKindVerification, code, m.now().Add(m.verificationTTL))
	return code, nil
}

// IssueResetToken writes a fresh opaque reset token onto user. The caller
// persists the record.
func (m *TokenManager) IssueResetToken(user *domain.User) (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(buf)

	user.SetToken(domain.TokenKindReset, token, m.now().Add(m.resetTTL))
	return token, nil
}

// Validate returns the user holding an unexpired token of kind equal to
// candidate. Unknown and expired tokens both yield ErrInvalidToken.
func (m *TokenManager) Validate(ctx context.Context, candidate string, kind domain.TokenKind) (*domain.User, error) {
	if candidate == "" {
		return nil, ErrInvalidToken
	}

	user, err := m.userRepo.FindByToken(ctx, kind, candidate, m.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

// Consume clears the token of kind so it cannot be replayed. The caller
// persists the record.
func (m *TokenManager) Consume(user *domain.User, kind domain.TokenKind) {
	user.ClearToken(kind)
}
