package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tripfluence-api/core/logger"

	"github.com/hibiken/asynq"
)

// Client enqueues background tasks. Tasks live in redis, so a scheduled
// task survives process restarts; asynq delivers at-least-once, which is
// why every handler re-checks state before acting.
type Client struct {
	inner *asynq.Client
}

func NewClient(redis asynq.RedisClientOpt) *Client {
	return &Client{inner: asynq.NewClient(redis)}
}

// Enqueue queues a task for immediate processing.
func (c *Client) Enqueue(ctx context.Context, taskType string, payload any) (string, error) {
	return c.enqueue(ctx, taskType, payload)
}

// Schedule queues a task to run after delay.
func (c *Client) Schedule(ctx context.Context, taskType string, payload any, delay time.Duration) (string, error) {
	return c.enqueue(ctx, taskType, payload, asynq.ProcessIn(delay))
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload any, opts ...asynq.Option) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task payload: %w", err)
	}

	info, err := c.inner.EnqueueContext(ctx, asynq.NewTask(taskType, data), opts...)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue task %s: %w", taskType, err)
	}

	logger.Info("Jobs:Enqueued", "task", taskType, "task_id", info.ID, "queue", info.Queue)
	return info.ID, nil
}

func (c *Client) Close() error {
	return c.inner.Close()
}

// Worker runs registered task handlers.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewWorker(redis asynq.RedisClientOpt) *Worker {
	server := asynq.NewServer(redis, asynq.Config{
		Concurrency: 10,
		RetryDelayFunc: func(n int, e error, t *asynq.Task) time.Duration {
			return time.Duration(n*n) * 30 * time.Second
		},
	})
	return &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
	}
}

func (w *Worker) Handle(taskType string, handler func(ctx context.Context, payload []byte) error) {
	w.mux.HandleFunc(taskType, func(ctx context.Context, t *asynq.Task) error {
		return handler(ctx, t.Payload())
	})
}

func (w *Worker) Start() error {
	return w.server.Start(w.mux)
}

func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

// Sweeper registers periodic tasks (the expired-token sweep).
type Sweeper struct {
	scheduler *asynq.Scheduler
}

func NewSweeper(redis asynq.RedisClientOpt) *Sweeper {
	return &Sweeper{
		scheduler: asynq.NewScheduler(redis, &asynq.SchedulerOpts{}),
	}
}

func (s *Sweeper) Register(cronspec string, taskType string) error {
	_, err := s.scheduler.Register(cronspec, asynq.NewTask(taskType, nil))
	if err != nil {
		return fmt.Errorf("failed to register periodic task %s: %w", taskType, err)
	}
	return nil
}

func (s *Sweeper) Start() error {
	return s.scheduler.Start()
}

func (s *Sweeper) Shutdown() {
	s.scheduler.Shutdown()
}
