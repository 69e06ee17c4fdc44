// Package worker implements the per-worker pipeline and fixed-size pool:
// deserialize, allocate a box, compile, run, classify, persist, ack, all
// driven by a bounded goroutine pool with graceful shutdown.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/oj-platform/judge-executor/internal/boxpool"
	"github.com/oj-platform/judge-executor/internal/callback"
	"github.com/oj-platform/judge-executor/internal/classifier"
	"github.com/oj-platform/judge-executor/internal/domain"
	"github.com/oj-platform/judge-executor/internal/idempotency"
	"github.com/oj-platform/judge-executor/internal/metrics"
	"github.com/oj-platform/judge-executor/internal/repository"
	"github.com/oj-platform/judge-executor/internal/sandbox"
)

// Pipeline drives one submission through stage→compile→run→classify→cleanup.
type Pipeline struct {
	allocator  *boxpool.Allocator
	jailerPath string
	repo       repository.SubmissionRepository
	locker     idempotency.Locker
	callbacks  *callback.Client
	logger     *zap.Logger
}

// NewPipeline builds a Pipeline from its collaborators.
func NewPipeline(
	allocator *boxpool.Allocator,
	jailerPath string,
	repo repository.SubmissionRepository,
	locker idempotency.Locker,
	callbacks *callback.Client,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		allocator:  allocator,
		jailerPath: jailerPath,
		repo:       repo,
		locker:     locker,
		callbacks:  callbacks,
		logger:     logger,
	}
}

// Execute deserialises msg.Body and runs the full pipeline. It returns
// (ack bool, err error): ack=true means the caller must Ack regardless of
// err (poison pill or a terminal, recorded failure); ack=false with a
// non-nil err means the caller should Nack(requeue=true) so the broker
// redelivers.
func (p *Pipeline) Execute(ctx context.Context, msg *domain.JobMessage) (ack bool, err error) {
	var sub domain.Submission
	if err := json.Unmarshal(msg.Body, &sub); err != nil {
		p.logger.Warn("worker: poison pill, acking without processing", zap.Error(err))
		return true, nil
	}

	lang := sub.Language.Name

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker: panic during execution", zap.String("submission_id", sub.ID.String()), zap.Any("panic", r))
			_ = p.repo.UpdateResult(context.Background(), sub.ID, domain.Result{
				Verdict:    domain.VerdictInternalError,
				Message:    "internal error during execution",
				FinishedAt: time.Now(),
			})
			ack, err = true, nil
		}
	}()

	acquired, err := p.locker.Acquire(ctx, sub.ID)
	if err != nil {
		p.logger.Error("worker: idempotency lock error", zap.String("submission_id", sub.ID.String()), zap.Error(err))
		return false, err
	}
	if !acquired {
		p.logger.Info("worker: duplicate delivery, skipping", zap.String("submission_id", sub.ID.String()))
		return true, nil
	}
	defer p.locker.Release(ctx, sub.ID)

	if err := p.repo.UpdateStatus(ctx, sub.ID, domain.StatusProcessing); err != nil {
		p.logger.Error("worker: update status failed", zap.String("submission_id", sub.ID.String()), zap.Error(err))
		return false, err
	}

	boxID, err := p.allocator.Acquire()
	if err != nil {
		p.logger.Error("worker: box-id allocation failed", zap.Error(err))
		return false, err
	}
	metrics.BoxIDsOutstanding.Set(float64(p.allocator.Outstanding()))
	defer func() {
		p.allocator.Release(boxID)
		metrics.BoxIDsOutstanding.Set(float64(p.allocator.Outstanding()))
	}()

	start := time.Now()
	result := p.runSandbox(ctx, boxID, &sub)
	result.FinishedAt = time.Now()
	elapsed := time.Since(start).Seconds()

	if err := p.repo.UpdateResult(ctx, sub.ID, result); err != nil {
		p.logger.Error("worker: persist result failed", zap.String("submission_id", sub.ID.String()), zap.Error(err))
		return false, err
	}

	metrics.SubmissionsTotal.WithLabelValues(lang, string(result.Verdict)).Inc()
	metrics.SubmissionDuration.WithLabelValues(lang).Observe(elapsed)
	if result.Verdict == domain.VerdictBoxError || result.Verdict == domain.VerdictInternalError {
		metrics.SandboxFailures.Inc()
	}

	go p.callbacks.Deliver(context.Background(), sub.CallbackURL, sub.ID, result)

	p.logger.Info("worker: submission judged",
		zap.String("submission_id", sub.ID.String()),
		zap.String("verdict", string(result.Verdict)),
		zap.Float64("elapsed_seconds", elapsed),
	)
	return true, nil
}

// runSandbox runs stage→compile→run→read→classify, translating any
// infrastructure failure into a BoxError/InternalError verdict rather than
// propagating an error. Cleanup is always attempted via defer, satisfying
// the one-cleanup-per-sandbox invariant on every exit path.
func (p *Pipeline) runSandbox(ctx context.Context, boxID uint32, sub *domain.Submission) domain.Result {
	supervisory, cancel := context.WithTimeout(ctx, sub.SupervisoryTimeout())
	defer cancel()

	sb, err := sandbox.New(supervisory, boxID, p.jailerPath, p.logger)
	if err != nil {
		p.logger.Error("worker: sandbox init failed", zap.Uint32("box_id", boxID), zap.Error(err))
		return domain.Result{Verdict: domain.VerdictBoxError, Message: err.Error()}
	}
	defer func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cleanupCancel()
		if err := sb.Cleanup(cleanupCtx); err != nil {
			p.logger.Warn("worker: sandbox cleanup failed", zap.Uint32("box_id", boxID), zap.Error(err))
		}
	}()

	if err := sb.Stage(sub.SourceCode, sub.Stdin, sub.Language); err != nil {
		p.logger.Error("worker: stage failed", zap.Error(err))
		return domain.Result{Verdict: domain.VerdictInternalError, Message: err.Error()}
	}

	compileOutcome, err := sb.Compile(supervisory, sub)
	if err != nil {
		p.logger.Error("worker: compile invocation failed", zap.Error(err))
		return domain.Result{Verdict: domain.VerdictBoxError, Message: err.Error()}
	}

	if compileOutcome.Status != sandbox.CompileFailed {
		if err := sb.Run(supervisory, sub); err != nil {
			p.logger.Error("worker: run invocation failed", zap.Error(err))
			return domain.Result{Verdict: domain.VerdictBoxError, Message: err.Error()}
		}
	}

	meta, err := sb.ReadMetadata()
	if err != nil {
		// A Failed compile never produces a run, hence no metadata —
		// classifier only reaches the metadata.Status() branch once
		// CompileOutcome != Failed, so an empty Metadata is safe here.
		if compileOutcome.Status != sandbox.CompileFailed {
			p.logger.Error("worker: read metadata failed", zap.Error(err))
			return domain.Result{Verdict: domain.VerdictBoxError, Message: err.Error()}
		}
		meta = sandbox.Metadata{}
	}

	output := sb.ReadOutput()
	return classifier.Classify(sub, output, meta, compileOutcome)
}
