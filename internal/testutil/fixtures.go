package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dom/auth-backend/internal/domain"
	"github.com/dom/auth-backend/internal/service"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	email    string
	name     string
	password string
	verified bool
	tokens   map[domain.TokenKind]string
	expiries map[domain.TokenKind]time.Time
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		email:    fmt.Sprintf("user_%s@example.com", uuid.New().String()[:8]),
		name:     "Test User",
		password: "testpassword123",
		tokens:   make(map[domain.TokenKind]string),
		expiries: make(map[domain.TokenKind]time.Time),
	}
}

// WithEmail sets the email
func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

// WithName sets the display name
func (b *UserBuilder) WithName(name string) *UserBuilder {
	b.name = name
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// Verified marks the user as having verified their email
func (b *UserBuilder) Verified() *UserBuilder {
	b.verified = true
	return b
}

// WithToken stores a token of kind expiring at expiresAt
func (b *UserBuilder) WithToken(kind domain.TokenKind, token string, expiresAt time.Time) *UserBuilder {
	b.tokens[kind] = token
	b.expiries[kind] = expiresAt
	return b
}

// Build creates the user in the database and returns the user with the raw password
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) (*domain.User, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        b.email,
		Name:         b.name,
		PasswordHash: string(hashedPassword),
		IsVerified:   b.verified,
		LastLogin:    time.Now(),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	for kind, token := range b.tokens {
		user.SetToken(kind, token, b.expiries[kind])
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// SignupResponse matches the API signup response
type SignupResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	User    struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		Name       string `json:"name"`
		IsVerified bool   `json:"isVerified"`
	} `json:"user"`
}

// BuildAndAuthenticate signs the user up via the API and returns the user and session cookie
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (*domain.User, *http.Cookie) {
	t.Helper()

	reqBody := map[string]string{
		"email":    b.email,
		"password": b.password,
		"name":     b.name,
	}
	body, _ := json.Marshal(reqBody)

	resp, err := http.Post(ts.APIURL("/signup"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to sign up user: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	var signupResp SignupResponse
	if err := json.NewDecoder(resp.Body).Decode(&signupResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	cookie := SessionCookie(resp)
	if cookie == nil {
		t.Fatalf("signup response did not set a session cookie")
	}

	userID, _ := uuid.Parse(signupResp.User.ID)
	user := &domain.User{
		ID:    userID,
		Email: signupResp.User.Email,
		Name:  signupResp.User.Name,
	}

	return user, cookie
}

// SessionCookie returns the session cookie set by resp, if any
func SessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == service.SessionCookieName {
			return c
		}
	}
	return nil
}

// PostJSON sends body as JSON, attaching cookie when non-nil
func PostJSON(t *testing.T, url string, body interface{}, cookie *http.Cookie) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// CreateCookieRequest creates an HTTP request carrying the session cookie
func CreateCookieRequest(t *testing.T, method, url string, cookie *http.Cookie) *http.Request {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}
