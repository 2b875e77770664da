package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dom/auth-backend/internal/config"
	"github.com/dom/auth-backend/internal/domain"
	"github.com/dom/auth-backend/internal/notify"
	"github.com/dom/auth-backend/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingFields      = errors.New("required fields are missing")
	ErrPasswordTooShort   = errors.New("password is too short")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
)

// maxSaveAttempts bounds retries of a versioned write that lost a race.
const maxSaveAttempts = 2

type AuthService struct {
	userRepo repository.UserRepository
	tokens   *TokenManager
	sessions *SessionIssuer
	notifier notify.Notifier
	cfg      *config.Config
	now      func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, tokens *TokenManager, sessions *SessionIssuer, notifier notify.Notifier, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		sessions: sessions,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

type SignupInput struct {
	Email    string
	Password string
	Name     string
}

type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is returned by the flows that start a session.
type AuthResult struct {
	User         *domain.User
	SessionToken string
}

func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" || strings.TrimSpace(input.Name) == "" {
		return nil, ErrMissingFields
	}
	if err := s.checkPassword(input.Password); err != nil {
		return nil, err
	}

	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: string(hashedPassword),
		LastLogin:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	code, err := s.tokens.IssueVerificationToken(user)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	sessionToken, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	if err := s.notifier.SendVerificationCode(ctx, user.Email, code); err != nil {
		log.Printf("ERROR [auth.Signup] failed to queue verification email for %s: %v", user.ID, err)
	}

	return &AuthResult{User: user, SessionToken: sessionToken}, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, code string) (*domain.User, error) {
	user, err := s.consumeToken(ctx, code, domain.TokenKindVerification, func(u *domain.User) {
		u.IsVerified = true
	})
	if err != nil {
		return nil, err
	}

	if err := s.notifier.SendWelcome(ctx, user.Email, user.Name); err != nil {
		log.Printf("ERROR [auth.VerifyEmail] failed to queue welcome email for %s: %v", user.ID, err)
	}

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.userRepo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	user.LastLogin = now

	sessionToken, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	return &AuthResult{User: user, SessionToken: sessionToken}, nil
}

// ForgotPassword issues a reset token for email and queues the reset link.
// Unknown emails return ErrUserNotFound unless enumeration-safe resets are
// enabled, in which case they succeed silently.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return ErrMissingFields
	}

	var (
		user  *domain.User
		token string
		err   error
	)
	for attempt := 1; ; attempt++ {
		user, err = s.userRepo.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				if s.cfg.EnumerationSafeReset {
					return nil
				}
				return ErrUserNotFound
			}
			return fmt.Errorf("lookup email: %w", err)
		}

		token, err = s.tokens.IssueResetToken(user)
		if err != nil {
			return err
		}
		err = s.userRepo.Update(ctx, user)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrStaleUser) || attempt == maxSaveAttempts {
			return fmt.Errorf("save user: %w", err)
		}
	}

	if err := s.notifier.SendResetLink(ctx, user.Email, s.cfg.ResetURL(token)); err != nil {
		log.Printf("ERROR [auth.ForgotPassword] failed to queue reset email for %s: %v", user.ID, err)
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if password == "" {
		return ErrMissingFields
	}
	if err := s.checkPassword(password); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user, err := s.consumeToken(ctx, token, domain.TokenKindReset, func(u *domain.User) {
		u.PasswordHash = string(hashedPassword)
	})
	if err != nil {
		return err
	}

	if err := s.notifier.SendResetSuccess(ctx, user.Email); err != nil {
		log.Printf("ERROR [auth.ResetPassword] failed to queue reset confirmation for %s: %v", user.ID, err)
	}
	return nil
}

// consumeToken validates candidate, applies apply and clears the token in one
// versioned write. A stale write is retried against fresh state: if another
// writer consumed the token meanwhile, Validate reports ErrInvalidToken.
func (s *AuthService) consumeToken(ctx context.Context, candidate string, kind domain.TokenKind, apply func(*domain.User)) (*domain.User, error) {
	for attempt := 1; ; attempt++ {
		user, err := s.tokens.Validate(ctx, candidate, kind)
		if err != nil {
			return nil, err
		}

		apply(user)
		s.tokens.Consume(user, kind)

		err = s.userRepo.Update(ctx, user)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, repository.ErrStaleUser) || attempt == maxSaveAttempts {
			return nil, fmt.Errorf("save user: %w", err)
		}
	}
}

func (s *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) PasswordMinLength() int {
	return s.cfg.PasswordMinLength
}

func (s *AuthService) checkPassword(password string) error {
	if len(password) < s.cfg.PasswordMinLength {
		return ErrPasswordTooShort
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
