package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dom/auth-backend/internal/domain"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(t *testing.T, msg Message) *asynq.Task {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return asynq.NewTask(TaskTypeDeliver, body)
}

func TestAsynqQueue_HandleDeliver(t *testing.T) {
	mailer := &flakyMailer{}
	repo := &memoryDeliveryRepo{}
	q := &AsynqQueue{mailer: mailer, recorder: NewDeliveryRecorder(repo)}

	err := q.handleDeliver(context.Background(), newTask(t, verificationMessage("a@x.com")))
	require.NoError(t, err)

	require.Len(t, mailer.Sent(), 1)
	deliveries := repo.All()
	require.Len(t, deliveries, 1)
	assert.Equal(t, domain.DeliveryStatusSent, deliveries[0].Status)
}

func TestAsynqQueue_HandleDeliver_FailureIsReturned(t *testing.T) {
	mailer := &flakyMailer{failures: 1}
	repo := &memoryDeliveryRepo{}
	q := &AsynqQueue{mailer: mailer, recorder: NewDeliveryRecorder(repo)}

	err := q.handleDeliver(context.Background(), newTask(t, verificationMessage("a@x.com")))
	assert.ErrorIs(t, err, errSMTPDown)

	// Outside a worker there is no retry budget left, so the failure is final.
	deliveries := repo.All()
	require.Len(t, deliveries, 1)
	assert.Equal(t, domain.DeliveryStatusFailed, deliveries[0].Status)
}

func TestAsynqQueue_HandleDeliver_BadPayloadSkipsRetry(t *testing.T) {
	q := &AsynqQueue{mailer: &flakyMailer{}}

	err := q.handleDeliver(context.Background(), asynq.NewTask(TaskTypeDeliver, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestNewAsynqQueue_InvalidURL(t *testing.T) {
	_, err := NewAsynqQueue("://nope", &flakyMailer{}, nil, 1, 3)
	assert.Error(t, err)
}

func TestAsynqQueue_HandleDeliver_RenderFailureSkipsRetry(t *testing.T) {
	mailer := &flakyMailer{}
	repo := &memoryDeliveryRepo{}
	q := &AsynqQueue{mailer: mailer, recorder: NewDeliveryRecorder(repo)}

	err := q.handleDeliver(context.Background(), newTask(t, Message{Kind: "bogus", To: "a@x.com"}))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Equal(t, 0, mailer.Calls())

	deliveries := repo.All()
	require.Len(t, deliveries, 1)
	assert.Equal(t, domain.DeliveryStatusFailed, deliveries[0].Status)
	assert.Equal(t, 1, deliveries[0].Attempts)
}
