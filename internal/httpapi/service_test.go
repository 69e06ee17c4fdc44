package httpapi

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/oj-platform/judge-executor/internal/config"
	"github.com/oj-platform/judge-executor/internal/domain"
	mockqueue "github.com/oj-platform/judge-executor/internal/queue/mock"
	mockrepo "github.com/oj-platform/judge-executor/internal/repository/mock"
)

func testRegistry() *config.LanguageRegistry {
	cfg := &config.Config{
		Languages: []config.LanguageConfig{
			{Name: "python", SourceFile: "main.py", FileExtension: ".py", Version: "3.12", RunCmd: "/usr/bin/python3 main.py"},
			{Name: "cpp", SourceFile: "main.cpp", FileExtension: ".cpp", Version: "17", CompileCmd: "g++ -O2 -o prog main.cpp", RunCmd: "./prog"},
		},
	}
	return config.NewLanguageRegistry(cfg)
}

func TestSubmissionService_Submit_Success(t *testing.T) {
	repo := &mockrepo.SubmissionRepository{}
	q := mockqueue.New(4)
	svc := NewSubmissionService(repo, q, testRegistry(), zap.NewNop())

	resp, err := svc.Submit(context.Background(), &domain.SubmitRequest{
		Language:   "python",
		SourceCode: "print('hi')",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ID == "" {
		t.Error("expected non-empty id")
	}
	if resp.Status != domain.StatusInQueue {
		t.Errorf("expected StatusInQueue, got %s", resp.Status)
	}
	if len(repo.Inserted) != 1 {
		t.Fatalf("expected 1 inserted row, got %d", len(repo.Inserted))
	}
}

func TestSubmissionService_Submit_InvalidLanguage(t *testing.T) {
	repo := &mockrepo.SubmissionRepository{}
	q := mockqueue.New(4)
	svc := NewSubmissionService(repo, q, testRegistry(), zap.NewNop())

	_, err := svc.Submit(context.Background(), &domain.SubmitRequest{
		Language:   "ruby",
		SourceCode: "puts 1",
	})
	if !errors.Is(err, domain.ErrInvalidLanguage) {
		t.Errorf("expected ErrInvalidLanguage, got %v", err)
	}
}

func TestSubmissionService_Submit_EmptySource(t *testing.T) {
	repo := &mockrepo.SubmissionRepository{}
	q := mockqueue.New(4)
	svc := NewSubmissionService(repo, q, testRegistry(), zap.NewNop())

	_, err := svc.Submit(context.Background(), &domain.SubmitRequest{
		Language:   "python",
		SourceCode: "   ",
	})
	if !errors.Is(err, domain.ErrEmptySourceCode) {
		t.Errorf("expected ErrEmptySourceCode, got %v", err)
	}
}

func TestSubmissionService_Submit_PayloadTooLarge(t *testing.T) {
	repo := &mockrepo.SubmissionRepository{}
	q := mockqueue.New(4)
	svc := NewSubmissionService(repo, q, testRegistry(), zap.NewNop())

	big := make([]byte, maxSourceCodeSize+1)
	for i := range big {
		big[i] = 'x'
	}

	_, err := svc.Submit(context.Background(), &domain.SubmitRequest{
		Language:   "python",
		SourceCode: string(big),
	})
	if !errors.Is(err, domain.ErrPayloadTooLarge) {
		t.Errorf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestSubmissionService_Submit_PublishFailureRecordsInternalError(t *testing.T) {
	repo := &mockrepo.SubmissionRepository{}
	q := mockqueue.New(4)
	q.PullFn = nil
	svc := NewSubmissionService(repo, &failingPublisher{}, testRegistry(), zap.NewNop())

	_, err := svc.Submit(context.Background(), &domain.SubmitRequest{
		Language:   "python",
		SourceCode: "print(1)",
	})
	if !errors.Is(err, domain.ErrPublishFailed) {
		t.Errorf("expected ErrPublishFailed, got %v", err)
	}
	if len(repo.Updates) != 1 {
		t.Fatalf("expected 1 compensating result update, got %d", len(repo.Updates))
	}
	if repo.Updates[0].Result.Verdict != domain.VerdictInternalError {
		t.Errorf("expected VerdictInternalError, got %s", repo.Updates[0].Result.Verdict)
	}
}

type failingPublisher struct{}

func (f *failingPublisher) Publish(ctx context.Context, sub *domain.Submission) error {
	return errors.New("broker unreachable")
}
func (f *failingPublisher) Close() error { return nil }

func TestSubmissionService_Get_NotFound(t *testing.T) {
	repo := &mockrepo.SubmissionRepository{}
	q := mockqueue.New(4)
	svc := NewSubmissionService(repo, q, testRegistry(), zap.NewNop())

	_, err := svc.Get(context.Background(), uuidForAPITest(1))
	if !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Errorf("expected ErrSubmissionNotFound, got %v", err)
	}
}

func TestSubmissionService_Languages(t *testing.T) {
	repo := &mockrepo.SubmissionRepository{}
	q := mockqueue.New(4)
	svc := NewSubmissionService(repo, q, testRegistry(), zap.NewNop())

	langs := svc.Languages()
	if len(langs) != 2 {
		t.Fatalf("expected 2 languages, got %d", len(langs))
	}
}
