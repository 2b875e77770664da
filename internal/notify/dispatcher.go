package notify

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type DispatcherOptions struct {
	Workers         int
	QueueSize       int
	MaxRetries      int
	SendTimeout     time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (o *DispatcherOptions) setDefaults() {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 100
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = 30 * time.Second
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = 500 * time.Millisecond
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = 30 * time.Second
	}
}

// Dispatcher is an in-process bounded queue drained by a fixed worker pool.
// A failed send is retried with exponential backoff up to MaxRetries times
// after the first attempt. Render failures are not retried.
type Dispatcher struct {
	mailer   Mailer
	recorder *DeliveryRecorder
	opts     DispatcherOptions

	jobs   chan Message
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	start  sync.Once
}

func NewDispatcher(mailer Mailer, recorder *DeliveryRecorder, opts DispatcherOptions) *Dispatcher {
	opts.setDefaults()
	return &Dispatcher{
		mailer:   mailer,
		recorder: recorder,
		opts:     opts,
		jobs:     make(chan Message, opts.QueueSize),
	}
}

func (d *Dispatcher) Start() {
	d.start.Do(func() {
		for i := 0; i < d.opts.Workers; i++ {
			d.wg.Add(1)
			go d.work()
		}
	})
}

// Enqueue never blocks: a full queue is reported as ErrQueueFull.
func (d *Dispatcher) Enqueue(_ context.Context, msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.jobs <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting messages and waits for queued ones to drain.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for msg := range d.jobs {
		d.process(msg)
	}
}

func (d *Dispatcher) process(msg Message) {
	attempts := 0
	operation := func() error {
		attempts++
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.SendTimeout)
		defer cancel()

		subject, body, err := Render(msg)
		if err != nil {
			return backoff.Permanent(err)
		}
		return d.mailer.Send(ctx, msg.To, subject, body)
	}

	err := backoff.Retry(operation, backoff.WithMaxRetries(d.newBackOff(), uint64(d.opts.MaxRetries)))
	d.recorder.Record(context.Background(), msg, attempts, err)
}

func (d *Dispatcher) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.opts.InitialInterval
	b.MaxInterval = d.opts.MaxInterval
	b.MaxElapsedTime = 0
	return b
}
