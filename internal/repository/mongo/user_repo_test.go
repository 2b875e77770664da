package mongo_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/auth-backend/internal/domain"
	"github.com/dom/auth-backend/internal/repository"
	repoMongo "github.com/dom/auth-backend/internal/repository/mongo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcMongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
)

func newTestDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	ctx := context.Background()

	container, err := tcMongo.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("failed to start mongo container: %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	client, err := repoMongo.NewConnection(ctx, uri)
	if err != nil {
		t.Fatalf("failed to connect to mongo: %v", err)
	}
	t.Cleanup(func() {
		client.Disconnect(context.Background())
	})

	db := client.Database("test_auth")
	if err := repoMongo.EnsureIndexes(ctx, db); err != nil {
		t.Fatalf("failed to create indexes: %v", err)
	}
	return db
}

func newUser(email string) *domain.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Mongo User",
		PasswordHash: "hashedpassword",
		LastLogin:    now,
		CreatedAt:    now,
	}
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := newTestDatabase(t)
	repo := repoMongo.NewUserRepository(db)
	ctx := context.Background()

	user := newUser("mongo@example.com")
	require.NoError(t, repo.Create(ctx, user))

	err := repo.Create(ctx, newUser("mongo@example.com"))
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)

	byEmail, err := repo.GetByEmail(ctx, "mongo@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_FindByTokenAndConsume(t *testing.T) {
	db := newTestDatabase(t)
	repo := repoMongo.NewUserRepository(db)
	ctx := context.Background()
	now := time.Now()

	user := newUser("tokens@example.com")
	user.SetToken(domain.TokenKindVerification, "123456", now.Add(time.Hour))
	user.SetToken(domain.TokenKindReset, "resettoken", now.Add(-time.Minute))
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.FindByToken(ctx, domain.TokenKindVerification, "123456", now)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.FindByToken(ctx, domain.TokenKindReset, "resettoken", now)
	assert.ErrorIs(t, err, repository.ErrNotFound, "expired token must not match")

	got.IsVerified = true
	got.ClearToken(domain.TokenKindVerification)
	require.NoError(t, repo.Update(ctx, got))

	_, err = repo.FindByToken(ctx, domain.TokenKindVerification, "123456", now)
	assert.ErrorIs(t, err, repository.ErrNotFound, "consumed token must not match")

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)
	assert.Nil(t, stored.VerificationToken)
	assert.Nil(t, stored.VerificationTokenExpiresAt)
	assert.Equal(t, int64(1), stored.Version)
}

func TestUserRepository_Update_RejectsStaleVersion(t *testing.T) {
	db := newTestDatabase(t)
	repo := repoMongo.NewUserRepository(db)
	ctx := context.Background()

	user := newUser("stale@example.com")
	require.NoError(t, repo.Create(ctx, user))

	first, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)

	first.Name = "first writer"
	require.NoError(t, repo.Update(ctx, first))

	second.Name = "second writer"
	assert.ErrorIs(t, repo.Update(ctx, second), repository.ErrStaleUser)
}

func TestUserRepository_TouchLastLogin(t *testing.T) {
	db := newTestDatabase(t)
	repo := repoMongo.NewUserRepository(db)
	ctx := context.Background()

	user := newUser("touch@example.com")
	require.NoError(t, repo.Create(ctx, user))

	loginAt := time.Now().Add(time.Minute).UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.TouchLastLogin(ctx, user.ID, loginAt))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, loginAt.Equal(got.LastLogin))
	assert.Equal(t, user.Version, got.Version)

	assert.ErrorIs(t, repo.TouchLastLogin(ctx, uuid.New(), loginAt), repository.ErrNotFound)
}

func TestNotificationDeliveryRepository_CreateAndList(t *testing.T) {
	db := newTestDatabase(t)
	repo := repoMongo.NewNotificationDeliveryRepository(db)
	ctx := context.Background()

	err := repo.Create(ctx, &domain.NotificationDelivery{
		Kind:      domain.NotificationResetSuccess,
		Recipient: "mongo@example.com",
		Status:    domain.DeliveryStatusFailed,
		Attempts:  3,
		LastError: "connection refused",
	})
	require.NoError(t, err)

	got, err := repo.ListByRecipient(ctx, "mongo@example.com", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.DeliveryStatusFailed, got[0].Status)
	assert.Equal(t, 3, got[0].Attempts)
}
