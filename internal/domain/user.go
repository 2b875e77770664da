package domain

import (
	"time"

	"github.com/google/uuid"
)

type TokenKind string

const (
	TokenKindVerification TokenKind = "verification"
	TokenKindReset        TokenKind = "reset"
)

type User struct {
	ID                          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email                       string     `json:"email" gorm:"uniqueIndex;not null"`
	Name                        string     `json:"name" gorm:"not null"`
	PasswordHash                string     `json:"-" gorm:"not null"`
	IsVerified                  bool       `json:"isVerified" gorm:"not null;default:false"`
	VerificationToken           *string    `json:"-" gorm:"index"`
	VerificationTokenExpiresAt  *time.Time `json:"-"`
	ResetPasswordToken          *string    `json:"-" gorm:"index"`
	ResetPasswordTokenExpiresAt *time.Time `json:"-"`
	LastLogin                   time.Time  `json:"lastLogin"`
	Version                     int64      `json:"-" gorm:"not null;default:0"`
	CreatedAt                   time.Time  `json:"createdAt"`
	UpdatedAt                   time.Time  `json:"updatedAt"`
}

// Token returns the stored token and expiry for kind. Both are nil when no
// token of that kind is outstanding.
func (u *User) Token(kind TokenKind) (*string, *time.Time) {
	switch kind {
	case TokenKindVerification:
		return u.VerificationToken, u.VerificationTokenExpiresAt
	case TokenKindReset:
		return u.ResetPasswordToken, u.ResetPasswordTokenExpiresAt
	}
	return nil, nil
}

// SetToken overwrites any outstanding token of the same kind.
func (u *User) SetToken(kind TokenKind, token string, expiresAt time.Time) {
	switch kind {
	case TokenKindVerification:
		u.VerificationToken = &token
		u.VerificationTokenExpiresAt = &expiresAt
	case TokenKindReset:
		u.ResetPasswordToken = &token
		u.ResetPasswordTokenExpiresAt = &expiresAt
	}
}

func (u *User) ClearToken(kind TokenKind) {
	switch kind {
	case TokenKindVerification:
		u.VerificationToken = nil
		u.VerificationTokenExpiresAt = nil
	case TokenKindReset:
		u.ResetPasswordToken = nil
		u.ResetPasswordTokenExpiresAt = nil
	}
}
