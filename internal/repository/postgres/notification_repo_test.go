package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/auth-backend/internal/domain"
	"github.com/dom/auth-backend/internal/repository/postgres"
	"github.com/dom/auth-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestNotificationDeliveryRepository_CreateAndList(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewNotificationDeliveryRepository(testDB.DB)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)
	for i, kind := range []domain.NotificationKind{domain.NotificationVerificationCode, domain.NotificationWelcome} {
		err := repo.Create(ctx, &domain.NotificationDelivery{
			Kind:      kind,
			Recipient: "deliveries@example.com",
			Status:    domain.DeliveryStatusSent,
			Attempts:  1,
			Payload:   datatypes.JSON(`{"name":"Alice"}`),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	got, err := repo.ListByRecipient(ctx, "deliveries@example.com", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.NotificationWelcome, got[0].Kind)
	assert.JSONEq(t, `{"name":"Alice"}`, string(got[0].Payload))

	got, err = repo.ListByRecipient(ctx, "nobody@example.com", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
