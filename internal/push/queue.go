package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"loyalty/internal/metrics"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypePassUpdated = "wallet:pass_updated"

const queueName = "wallet"

type PassUpdatedPayload struct {
	CardToken string `json:"card_token"`
}

func NewPassUpdatedTask(cardToken string) (*asynq.Task, error) {
	payload, err := json.Marshal(PassUpdatedPayload{CardToken: cardToken})
	if err != nil {
		return nil, err
	}
	// a missed push only delays the refresh until the next change
	return asynq.NewTask(TypePassUpdated, payload, asynq.Queue(queueName), asynq.MaxRetry(0)), nil
}

// Enqueuer is the part of *asynq.Client the queue uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

const enqueueTimeout = 2 * time.Second

// Queue hands pass updates to Redis so any process can deliver them. Writes
// run off the request path; at most maxPending may be in flight and anything
// beyond that is dropped.
type Queue struct {
	client  Enqueuer
	log     *zap.Logger
	timeout time.Duration
	pending chan struct{}
	wg      sync.WaitGroup
}

func NewQueue(client Enqueuer, maxPending int, log *zap.Logger) *Queue {
	if maxPending <= 0 {
		maxPending = 1
	}
	return &Queue{
		client:  client,
		log:     log,
		timeout: enqueueTimeout,
		pending: make(chan struct{}, maxPending),
	}
}

// Enqueue returns immediately.
func (q *Queue) Enqueue(cardToken string) {
	select {
	case q.pending <- struct{}{}:
	default:
		metrics.PushQueueDropped.Inc()
		q.log.Warn("push: too many pending enqueues, dropping update", zap.String("card", cardToken))
		return
	}
	q.wg.Add(1)
	go func() {
		defer func() {
			<-q.pending
			q.wg.Done()
		}()
		q.enqueue(cardToken)
	}()
}

func (q *Queue) enqueue(cardToken string) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	task, err := NewPassUpdatedTask(cardToken)
	if err == nil {
		_, err = q.client.EnqueueContext(ctx, task)
	}
	if err != nil {
		metrics.PushQueueDropped.Inc()
		q.log.Warn("push: enqueue failed", zap.String("card", cardToken), zap.Error(err))
	}
}

// Wait blocks until every pending enqueue has finished or timed out.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// NewTaskHandler serves TypePassUpdated tasks.
func NewTaskHandler(svc *Service) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p PassUpdatedPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		svc.Notify(ctx, p.CardToken)
		return nil
	}
}

// NewServer builds the asynq worker serving the wallet queue.
func NewServer(redis asynq.RedisClientOpt, concurrency int, log *zap.Logger) *asynq.Server {
	return asynq.NewServer(redis, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queueName: 1},
		Logger:      log.Sugar(),
	})
}

func NewServeMux(svc *Service) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypePassUpdated, NewTaskHandler(svc))
	return mux
}
