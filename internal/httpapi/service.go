// Package httpapi is the thin HTTP intake collaborator: validate, persist,
// publish. It never runs a sandbox or classifies a verdict — that is the
// worker's job.
package httpapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oj-platform/judge-executor/internal/config"
	"github.com/oj-platform/judge-executor/internal/domain"
	"github.com/oj-platform/judge-executor/internal/queue"
	"github.com/oj-platform/judge-executor/internal/repository"
)

const (
	maxSourceCodeSize = 1 << 20 // 1 MB

	maxCPUTimeLimit  = 15.0
	maxWallTimeLimit = 30.0
	maxMemoryLimit   = 1 << 20 // 1 GB in KB
)

// SubmissionService validates incoming submissions, persists them, and
// publishes them to the worker queue.
type SubmissionService struct {
	repo      repository.SubmissionRepository
	publisher queue.Publisher
	langs     *config.LanguageRegistry
	logger    *zap.Logger
}

// NewSubmissionService builds a SubmissionService.
func NewSubmissionService(repo repository.SubmissionRepository, publisher queue.Publisher, langs *config.LanguageRegistry, logger *zap.Logger) *SubmissionService {
	return &SubmissionService{repo: repo, publisher: publisher, langs: langs, logger: logger}
}

// Submit validates req, inserts a StatusInQueue row, and publishes the
// submission. On publish failure the row is marked done/internal-error
// rather than left stuck in_queue forever.
func (s *SubmissionService) Submit(ctx context.Context, req *domain.SubmitRequest) (*domain.SubmitResponse, error) {
	lang, ok := s.langs.Lookup(req.Language)
	if !ok {
		return nil, domain.ErrInvalidLanguage
	}

	if strings.TrimSpace(req.SourceCode) == "" {
		return nil, domain.ErrEmptySourceCode
	}
	if len(req.SourceCode) > maxSourceCodeSize {
		return nil, domain.ErrPayloadTooLarge
	}

	sub := &domain.Submission{
		SourceCode:             req.SourceCode,
		Language:               lang,
		CompilerOptions:        req.CompilerOptions,
		CommandLineArguments:   req.CommandLineArguments,
		Stdin:                  req.Stdin,
		ExpectedOutput:         req.ExpectedOutput,
		AdditionalFiles:        req.AdditionalFiles,
		CallbackURL:            req.CallbackURL,
		RedirectStderrToStdout: req.RedirectStderrToStdout,
		CPUTimeLimit:           clamp(req.CPUTimeLimit, maxCPUTimeLimit),
		CPUExtraTime:           req.CPUExtraTime,
		WallTimeLimit:          clamp(req.WallTimeLimit, maxWallTimeLimit),
		MemoryLimit:            clamp(req.MemoryLimit, maxMemoryLimit),
		StackLimit:             req.StackLimit,
		MaxProcesses:           req.MaxProcesses,
		MaxFileSize:            req.MaxFileSize,
		NumberOfRuns:           req.NumberOfRuns,
		EnableNetwork:          req.EnableNetwork,
	}

	id, err := s.repo.Insert(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("httpapi: insert submission: %w", err)
	}
	sub.ID = id

	if err := s.publisher.Publish(ctx, sub); err != nil {
		s.logger.Error("httpapi: publish failed, marking submission failed", zap.String("submission_id", id.String()), zap.Error(err))
		_ = s.repo.UpdateResult(context.Background(), id, domain.Result{
			Verdict:    domain.VerdictInternalError,
			Message:    "submission could not be queued for execution",
			FinishedAt: time.Now().UTC(),
		})
		return nil, domain.ErrPublishFailed
	}

	s.logger.Info("httpapi: submission accepted", zap.String("submission_id", id.String()), zap.String("language", lang.Name))
	return &domain.SubmitResponse{ID: id.String(), Status: domain.StatusInQueue}, nil
}

// Get returns the flattened view of a submission and its result, if any.
func (s *SubmissionService) Get(ctx context.Context, id uuid.UUID) (*domain.SubmissionView, error) {
	sub, result, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := domain.NewSubmissionView(sub, result)
	return &view, nil
}

// Languages returns every configured language for GET /languages.
func (s *SubmissionService) Languages() []domain.LanguageInfo {
	descs := s.langs.All()
	out := make([]domain.LanguageInfo, 0, len(descs))
	for _, l := range descs {
		out = append(out, domain.LanguageInfo{
			Name:           l.Name,
			Version:        l.Version,
			FileExtension:  l.FileExtension,
			HasCompileStep: l.HasCompileStep(),
		})
	}
	return out
}

func clamp(v *float64, max float64) *float64 {
	if v == nil {
		return nil
	}
	if *v > max {
		c := max
		return &c
	}
	if *v < 0 {
		c := 0.0
		return &c
	}
	return v
}

// pollInterval is how often the websocket handler re-reads a submission's
// status while it is not yet terminal (used by WebSocketHandler.Stream).
const pollInterval = 500 * time.Millisecond
