package testutil

import (
	"context"
	"sync"

	"github.com/dom/auth-backend/internal/domain"
	"github.com/dom/auth-backend/internal/notify"
)

// RecordingNotifier captures notifications instead of delivering them
type RecordingNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
	err      error
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

// FailWith makes every subsequent send return err
func (n *RecordingNotifier) FailWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *RecordingNotifier) record(msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, msg)
	return nil
}

func (n *RecordingNotifier) SendVerificationCode(_ context.Context, email, code string) error {
	return n.record(notify.Message{Kind: domain.NotificationVerificationCode, To: email, Data: notify.TemplateData{Code: code}})
}

func (n *RecordingNotifier) SendWelcome(_ context.Context, email, name string) error {
	return n.record(notify.Message{Kind: domain.NotificationWelcome, To: email, Data: notify.TemplateData{Name: name}})
}

func (n *RecordingNotifier) SendResetLink(_ context.Context, email, resetURL string) error {
	return n.record(notify.Message{Kind: domain.NotificationResetLink, To: email, Data: notify.TemplateData{ResetURL: resetURL}})
}

func (n *RecordingNotifier) SendResetSuccess(_ context.Context, email string) error {
	return n.record(notify.Message{Kind: domain.NotificationResetSuccess, To: email})
}

// Messages returns a copy of everything recorded so far
func (n *RecordingNotifier) Messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Message, len(n.messages))
	copy(out, n.messages)
	return out
}

// Last returns the most recent message of kind
func (n *RecordingNotifier) Last(kind domain.NotificationKind) (notify.Message, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.messages) - 1; i >= 0; i-- {
		if n.messages[i].Kind == kind {
			return n.messages[i], true
		}
	}
	return notify.Message{}, false
}

// Reset forgets recorded messages and clears any failure
func (n *RecordingNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = nil
	n.err = nil
}
