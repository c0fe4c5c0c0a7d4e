package push

import (
	"context"
	"sync"
	"time"

	"loyalty/internal/metrics"

	"go.uber.org/zap"
)

// Pool runs Notify on a fixed set of workers fed by a bounded queue.
type Pool struct {
	svc      *Service
	workers  int
	jobQueue chan string
	stopChan chan struct{}
	wg       sync.WaitGroup
	timeout  time.Duration
	log      *zap.Logger
	once     sync.Once
}

func NewPool(svc *Service, workers, queueSize int, log *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	p := &Pool{
		svc:      svc,
		workers:  workers,
		jobQueue: make(chan string, queueSize),
		stopChan: make(chan struct{}),
		timeout:  30 * time.Second,
		log:      log,
	}
	p.startWorkers()
	return p
}

func (p *Pool) startWorkers() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case token := <-p.jobQueue:
			p.process(token)
		case <-p.stopChan:
			// drain what was accepted before Stop
			for {
				select {
				case token := <-p.jobQueue:
					p.process(token)
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) process(cardToken string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	p.svc.Notify(ctx, cardToken)
}

// Enqueue never blocks the caller; a full queue drops the job.
func (p *Pool) Enqueue(cardToken string) {
	select {
	case <-p.stopChan:
		metrics.PushQueueDropped.Inc()
		return
	default:
	}
	select {
	case p.jobQueue <- cardToken:
	default:
		metrics.PushQueueDropped.Inc()
		p.log.Warn("push queue full, dropping update", zap.String("card", cardToken))
	}
}

// Stop processes already queued jobs and waits for the workers to exit.
func (p *Pool) Stop() {
	p.once.Do(func() { close(p.stopChan) })
	p.wg.Wait()
}
