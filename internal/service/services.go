package service

import (
	"github.com/dom/auth-backend/internal/config"
	"github.com/dom/auth-backend/internal/notify"
	"github.com/dom/auth-backend/internal/repository"
)

type Services struct {
	Auth     *AuthService
	Tokens   *TokenManager
	Sessions *SessionIssuer
}

func NewServices(repos *repository.Repositories, notifier notify.Notifier, cfg *config.Config) (*Services, error) {
	sessions, err := NewSessionIssuer(cfg)
	if err != nil {
		return nil, err
	}
	tokens := NewTokenManager(repos.User, cfg.VerificationTokenTTL, cfg.ResetTokenTTL)

	return &Services{
		Auth:     NewAuthService(repos.User, tokens, sessions, notifier, cfg),
		Tokens:   tokens,
		Sessions: sessions,
	}, nil
}
