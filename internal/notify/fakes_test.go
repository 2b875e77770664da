package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/dom/auth-backend/internal/domain"
)

var errSMTPDown = errors.New("smtp unavailable")

type sentMail struct {
	To      string
	Subject string
	Body    string
}

// flakyMailer fails its first `failures` sends and records the rest.
type flakyMailer struct {
	mu       sync.Mutex
	failures int
	calls    int
	sent     []sentMail
	block    chan struct{}
}

func (m *flakyMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	if m.block != nil {
		<-m.block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return errSMTPDown
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (m *flakyMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentMail, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *flakyMailer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type memoryDeliveryRepo struct {
	mu         sync.Mutex
	deliveries []*domain.NotificationDelivery
}

func (r *memoryDeliveryRepo) Create(_ context.Context, d *domain.NotificationDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, d)
	return nil
}

func (r *memoryDeliveryRepo) ListByRecipient(_ context.Context, recipient string, limit int) ([]*domain.NotificationDelivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.NotificationDelivery
	for i := len(r.deliveries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.deliveries[i].Recipient == recipient {
			out = append(out, r.deliveries[i])
		}
	}
	return out, nil
}

func (r *memoryDeliveryRepo) All() []*domain.NotificationDelivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.NotificationDelivery, len(r.deliveries))
	copy(out, r.deliveries)
	return out
}

type captureQueue struct {
	messages []Message
	err      error
}

func (q *captureQueue) Enqueue(_ context.Context, msg Message) error {
	if q.err != nil {
		return q.err
	}
	q.messages = append(q.messages, msg)
	return nil
}
