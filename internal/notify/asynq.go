package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeDeliver = "email:deliver"
	QueueName       = "notifications"
)

// AsynqQueue is a Redis-backed Enqueuer. Messages survive process restarts
// and are retried by asynq.
type AsynqQueue struct {
	client     *asynq.Client
	server     *asynq.Server
	mux        *asynq.ServeMux
	mailer     Mailer
	recorder   *DeliveryRecorder
	maxRetries int
}

func NewAsynqQueue(redisURL string, mailer Mailer, recorder *DeliveryRecorder, workers, maxRetries int) (*AsynqQueue, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if workers <= 0 {
		workers = 1
	}

	q := &AsynqQueue{
		client: asynq.NewClient(opt),
		server: asynq.NewServer(opt, asynq.Config{
			Concurrency: workers,
			Queues: map[string]int{
				QueueName: 1,
			},
		}),
		mux:        asynq.NewServeMux(),
		mailer:     mailer,
		recorder:   recorder,
		maxRetries: maxRetries,
	}
	q.mux.HandleFunc(TaskTypeDeliver, q.handleDeliver)
	return q, nil
}

func (q *AsynqQueue) Enqueue(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeDeliver, body)
	_, err = q.client.EnqueueContext(ctx, task, asynq.Queue(QueueName), asynq.MaxRetry(q.maxRetries))
	return err
}

// Start runs the asynq worker server in the background.
func (q *AsynqQueue) Start() {
	go func() {
		if err := q.server.Run(q.mux); err != nil && err != asynq.ErrServerClosed {
			log.Printf("ERROR [notify.AsynqQueue] server stopped: %v", err)
		}
	}()
}

func (q *AsynqQueue) Shutdown(ctx context.Context) error {
	q.server.Shutdown()
	return q.client.Close()
}

func (q *AsynqQueue) handleDeliver(ctx context.Context, task *asynq.Task) error {
	var msg Message
	if err := json.Unmarshal(task.Payload(), &msg); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	subject, body, err := Render(msg)
	if err != nil {
		q.recorder.Record(ctx, msg, retried+1, err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := q.mailer.Send(ctx, msg.To, subject, body); err != nil {
		if retried >= maxRetry {
			q.recorder.Record(ctx, msg, retried+1, err)
		}
		return err
	}

	q.recorder.Record(ctx, msg, retried+1, nil)
	return nil
}
