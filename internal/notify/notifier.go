// Package notify delivers the transactional emails of the auth flows.
//
// Notifications are fire-and-forget from the caller's point of view: the
// Notifier methods only report whether the message was accepted for
// delivery. Delivery itself happens on a worker (in-process Dispatcher or
// the Redis-backed AsynqQueue) with its own retry policy, and every terminal
// outcome is written through a DeliveryRecorder.
package notify

import (
	"context"
	"errors"

	"github.com/dom/auth-backend/internal/domain"
)

var (
	ErrQueueFull        = errors.New("notification queue is full")
	ErrDispatcherClosed = errors.New("notification dispatcher is closed")
)

type Notifier interface {
	SendVerificationCode(ctx context.Context, email, code string) error
	SendWelcome(ctx context.Context, email, name string) error
	SendResetLink(ctx context.Context, email, resetURL string) error
	SendResetSuccess(ctx context.Context, email string) error
}

// Enqueuer accepts a message for asynchronous delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg Message) error
}

type TemplateData struct {
	Name     string `json:"name,omitempty"`
	Code     string `json:"code,omitempty"`
	ResetURL string `json:"resetUrl,omitempty"`
}

type Message struct {
	Kind domain.NotificationKind `json:"kind"`
	To   string                  `json:"to"`
	Data TemplateData            `json:"data"`
}

// redacted returns the data safe to persist in the delivery log.
func (m Message) redacted() TemplateData {
	d := m.Data
	if d.Code != "" {
		d.Code = "[redacted]"
	}
	if d.ResetURL != "" {
		d.ResetURL = "[redacted]"
	}
	return d
}

type queuedNotifier struct {
	queue Enqueuer
}

// New returns a Notifier that hands every message to queue.
func New(queue Enqueuer) Notifier {
	return &queuedNotifier{queue: queue}
}

func (n *queuedNotifier) SendVerificationCode(ctx context.Context, email, code string) error {
	return n.queue.Enqueue(ctx, Message{
		Kind: domain.NotificationVerificationCode,
		To:   email,
		Data: TemplateData{Code: code},
	})
}

func (n *queuedNotifier) SendWelcome(ctx context.Context, email, name string) error {
	return n.queue.Enqueue(ctx, Message{
		Kind: domain.NotificationWelcome,
		To:   email,
		Data: TemplateData{Name: name},
	})
}

func (n *queuedNotifier) SendResetLink(ctx context.Context, email, resetURL string) error {
	return n.queue.Enqueue(ctx, Message{
		Kind: domain.NotificationResetLink,
		To:   email,
		Data: TemplateData{ResetURL: resetURL},
	})
}

func (n *queuedNotifier) SendResetSuccess(ctx context.Context, email string) error {
	return n.queue.Enqueue(ctx, Message{
		Kind: domain.NotificationResetSuccess,
		To:   email,
	})
}
