package service

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dom/auth-backend/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const SessionCookieName = "token"

var ErrMissingSecret = errors.New("session signing secret is not configured")

// SessionClaims is the payload carried in the session cookie.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

// SessionIssuer signs session tokens and describes the cookie that carries
// them. Sessions are not tracked server-side.
type SessionIssuer struct {
	secret     []byte
	ttl        time.Duration
	production bool
	now        func() time.Time
}

func NewSessionIssuer(cfg *config.Config) (*SessionIssuer, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	return &SessionIssuer{
		secret:     []byte(cfg.JWTSecret),
		ttl:        cfg.SessionTTL(),
		production: cfg.IsProduction(),
		now:        time.Now,
	}, nil
}

func (s *SessionIssuer) Issue(userID uuid.UUID) (string, error) {
	now := s.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID: userID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse verifies signature and expiry and returns the user the session
// belongs to.
func (s *SessionIssuer) Parse(tokenString string) (uuid.UUID, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, err
	}
	if !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid userId claim: %w", err)
	}
	return userID, nil
}

// Cookie returns the cookie that stores token on the client.
func (s *SessionIssuer) Cookie(token string) *http.Cookie {
	c := s.baseCookie()
	c.Value = token
	c.MaxAge = int(s.ttl.Seconds())
	c.Expires = s.now().Add(s.ttl)
	return c
}

// ClearCookie returns a cookie that removes the session cookie. Its
// attributes must match the ones used when setting it.
func (s *SessionIssuer) ClearCookie() *http.Cookie {
	c := s.baseCookie()
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}

func (s *SessionIssuer) baseCookie() *http.Cookie {
	sameSite := http.SameSiteStrictMode
	if s.production {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     SessionCookieName,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.production,
		SameSite: sameSite,
	}
}
