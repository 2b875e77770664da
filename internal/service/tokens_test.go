package service_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/dom/auth-backend/internal/domain"
	"github.com/dom/auth-backend/internal/repository/postgres"
	"github.com/dom/auth-backend/internal/service"
	"github.com/dom/auth-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_IssueVerificationToken(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tokens := service.NewTokenManager(nil, 24*time.Hour, time.Hour).
		WithClock(func() time.Time { return now })

	sixDigits := regexp.MustCompile(`^[1-9][0-9]{5}$`)
	user := &domain.User{}
	for i := 0; i < 200; i++ {
		code, err := tokens.IssueVerificationToken(user)
		require.NoError(t, err)
		require.Regexp(t, sixDigits, code)
	}

	token, expiresAt := user.Token(domain.TokenKindVerification)
	require.NotNil(t, token)
	require.NotNil(t, expiresAt)
	assert.Equal(t, now.Add(24*time.Hour), *expiresAt)

	reset, resetExpiry := user.Token(domain.TokenKindReset)
	assert.Nil(t, reset)
	assert.Nil(t, resetExpiry)
}

func TestTokenManager_IssueResetToken(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tokens := service.NewTokenManager(nil, 24*time.Hour, time.Hour).
		WithClock(func() time.Time { return now })

	user := &domain.User{}
	first, err := tokens.IssueResetToken(user)
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{40}$`, first)

	second, err := tokens.IssueResetToken(user)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// A second issue overwrites the first.
	stored, expiresAt := user.Token(domain.TokenKindReset)
	require.NotNil(t, stored)
	assert.Equal(t, second, *stored)
	assert.Equal(t, now.Add(time.Hour), *expiresAt)
}

func TestTokenManager_Consume(t *testing.T) {
	tokens := service.NewTokenManager(nil, 24*time.Hour, time.Hour)
	user := &domain.User{}

	_, err := tokens.IssueVerificationToken(user)
	require.NoError(t, err)
	_, err = tokens.IssueResetToken(user)
	require.NoError(t, err)

	tokens.Consume(user, domain.TokenKindReset)

	reset, resetExpiry := user.Token(domain.TokenKindReset)
	assert.Nil(t, reset)
	assert.Nil(t, resetExpiry)

	verification, verificationExpiry := user.Token(domain.TokenKindVerification)
	assert.NotNil(t, verification)
	assert.NotNil(t, verificationExpiry)
}

func TestTokenManager_Validate(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	expiry := time.Now().Add(time.Hour).Truncate(time.Microsecond)
	user, _ := testutil.NewUserBuilder().
		WithToken(domain.TokenKindVerification, "246810", expiry).
		Build(t, testDB.DB)

	tests := []struct {
		name    string
		code    string
		now     time.Time
		wantErr error
	}{
		{name: "valid before expiry", code: "246810", now: expiry.Add(-time.Second)},
		{name: "exactly at expiry", code: "246810", now: expiry, wantErr: service.ErrInvalidToken},
		{name: "after expiry", code: "246810", now: expiry.Add(time.Second), wantErr: service.ErrInvalidToken},
		{name: "unknown code", code: "999999", now: expiry.Add(-time.Second), wantErr: service.ErrInvalidToken},
		{name: "empty code", code: "", now: expiry.Add(-time.Second), wantErr: service.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := tt.now
			tokens := service.NewTokenManager(repos.User, 24*time.Hour, time.Hour).
				WithClock(func() time.Time { return at })

			got, err := tokens.Validate(ctx, tt.code, domain.TokenKindVerification)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, user.ID, got.ID)
		})
	}
}
