// Package postgres implements repository.SubmissionRepository on pgxpool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oj-platform/judge-executor/internal/domain"
	"github.com/oj-platform/judge-executor/internal/repository"
)

var _ repository.SubmissionRepository = (*SubmissionRepository)(nil)

// SubmissionRepository is the Postgres-backed submission store.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// New wraps an existing pgxpool.Pool.
func New(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

func (r *SubmissionRepository) Insert(ctx context.Context, sub *domain.Submission) (uuid.UUID, error) {
	id := uuid.New()
	sub.ID = id
	sub.Status = domain.StatusInQueue
	sub.CreatedAt = time.Now().UTC()

	lang, err := json.Marshal(sub.Language)
	if err != nil {
		return uuid.Nil, fmt.Errorf("postgres: marshal language: %w", err)
	}

	const query = `
		INSERT INTO submissions (id, source_code, language, compiler_options, command_line_arguments,
			stdin, expected_output, additional_files, callback_url, redirect_stderr_to_stdout,
			status, created_at,
			cpu_time_limit, cpu_extra_time, wall_time_limit, memory_limit, stack_limit,
			max_processes, max_file_size, number_of_runs, enable_network)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err = r.pool.Exec(ctx, query,
		id, sub.SourceCode, lang, sub.CompilerOptions, sub.CommandLineArguments,
		sub.Stdin, sub.ExpectedOutput, sub.AdditionalFiles, sub.CallbackURL, sub.RedirectStderrToStdout,
		sub.Status, sub.CreatedAt,
		sub.CPUTimeLimit, sub.CPUExtraTime, sub.WallTimeLimit, sub.MemoryLimit, sub.StackLimit,
		sub.MaxProcesses, sub.MaxFileSize, sub.NumberOfRuns, sub.EnableNetwork,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("postgres: insert submission: %w", err)
	}
	return id, nil
}

func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) error {
	const query = `UPDATE submissions SET status = $1 WHERE id = $2`
	tag, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("postgres: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: %w: %s", domain.ErrSubmissionNotFound, id)
	}
	return nil
}

func (r *SubmissionRepository) UpdateResult(ctx context.Context, id uuid.UUID, result domain.Result) error {
	const query = `
		UPDATE submissions
		SET status = $1, verdict = $2, compile_output = $3, stdout = $4, stderr = $5,
		    message = $6, exit_code = $7, exit_signal = $8, cpu_time = $9, wall_time = $10,
		    memory = $11, finished_at = $12
		WHERE id = $13`
	tag, err := r.pool.Exec(ctx, query,
		domain.StatusDone, result.Verdict, result.CompileOutput, result.Stdout, result.Stderr,
		result.Message, result.ExitCode, result.ExitSignal, result.Time, result.WallTime,
		result.Memory, result.FinishedAt, id,
	)
	if err != nil {
		return fmt.Errorf("postgres: update result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: %w: %s", domain.ErrSubmissionNotFound, id)
	}
	return nil
}

func (r *SubmissionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Submission, *domain.Result, error) {
	const query = `
		SELECT source_code, language, compiler_options, command_line_arguments, stdin,
		       expected_output, additional_files, callback_url, redirect_stderr_to_stdout,
		       status, created_at,
		       cpu_time_limit, cpu_extra_time, wall_time_limit, memory_limit, stack_limit,
		       max_processes, max_file_size, number_of_runs, enable_network,
		       verdict, compile_output, stdout, stderr, message, exit_code, exit_signal,
		       cpu_time, wall_time, memory, finished_at
		FROM submissions WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)

	sub := &domain.Submission{ID: id}
	res := &domain.Result{}
	var lang []byte
	var verdict *domain.Verdict

	err := row.Scan(
		&sub.SourceCode, &lang, &sub.CompilerOptions, &sub.CommandLineArguments, &sub.Stdin,
		&sub.ExpectedOutput, &sub.AdditionalFiles, &sub.CallbackURL, &sub.RedirectStderrToStdout,
		&sub.Status, &sub.CreatedAt,
		&sub.CPUTimeLimit, &sub.CPUExtraTime, &sub.WallTimeLimit, &sub.MemoryLimit, &sub.StackLimit,
		&sub.MaxProcesses, &sub.MaxFileSize, &sub.NumberOfRuns, &sub.EnableNetwork,
		&verdict, &res.CompileOutput, &res.Stdout, &res.Stderr, &res.Message,
		&res.ExitCode, &res.ExitSignal, &res.Time, &res.WallTime, &res.Memory, &res.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: get submission: %w", err)
	}

	if err := json.Unmarshal(lang, &sub.Language); err != nil {
		return nil, nil, fmt.Errorf("postgres: unmarshal language: %w", err)
	}
	if verdict == nil {
		return sub, nil, nil
	}
	res.Verdict = *verdict
	return sub, res, nil
}
