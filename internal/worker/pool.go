package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oj-platform/judge-executor/internal/domain"
	"github.com/oj-platform/judge-executor/internal/metrics"
	"github.com/oj-platform/judge-executor/internal/queue"
)

const (
	emptyPullBackoff = 100 * time.Millisecond
	errorPullBackoff = 1 * time.Second
)

// Pool is a fixed-size set of cooperative workers pulling from q and
// driving each delivery through a Pipeline.
type Pool struct {
	size     int
	q        queue.Queue
	pipeline *Pipeline
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewPool builds a Pool of size workers (size should already be resolved
// from config: num_workers if >= 1, else runtime.NumCPU()).
func NewPool(size int, q queue.Queue, pipeline *Pipeline, logger *zap.Logger) *Pool {
	return &Pool{size: size, q: q, pipeline: pipeline, logger: logger}
}

// Start launches all worker goroutines. Call Stop to await their exit.
func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("worker pool starting", zap.Int("size", p.size))
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

// Stop blocks until every worker has finished its current job and exited.
func (p *Pool) Stop() {
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker panic recovered", zap.Int("worker_id", id), zap.Any("panic", r))
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		msg, err := p.q.Pull(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("worker: queue pull error", zap.Int("worker_id", id), zap.Error(err))
			metrics.QueuePullErrors.Inc()
			time.Sleep(errorPullBackoff)
			continue
		}
		if msg == nil {
			time.Sleep(emptyPullBackoff)
			continue
		}

		p.process(ctx, id, msg)
	}
}

func (p *Pool) process(ctx context.Context, id int, msg *domain.JobMessage) {
	metrics.WorkersActive.Inc()
	defer metrics.WorkersActive.Dec()

	ack, err := p.pipeline.Execute(ctx, msg)
	if err != nil {
		p.logger.Error("worker: pipeline error", zap.Int("worker_id", id), zap.Error(err))
	}

	if ack {
		if err := msg.Ack(); err != nil {
			p.logger.Error("worker: ack failed", zap.Int("worker_id", id), zap.Error(err))
		}
		return
	}
	if err := msg.Nack(true); err != nil {
		p.logger.Error("worker: nack failed", zap.Int("worker_id", id), zap.Error(err))
	}
}
