package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks a submission's lifecycle in persistence, independent of the
// final Verdict (which is only known once classification runs).
type Status string

const (
	StatusInQueue    Status = "in_queue"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
)

// Submission is the payload a worker pulls off the durable queue and the
// row persistence tracks end to end. Every optional field is a pointer or
// zero-value-means-absent string here.
type Submission struct {
	ID         uuid.UUID          `json:"id"`
	SourceCode string             `json:"source_code"`
	Language   LanguageDescriptor `json:"language"`

	CompilerOptions       string `json:"compiler_options,omitempty"`
	CommandLineArguments  string `json:"command_line_arguments,omitempty"`
	Stdin                 string `json:"stdin,omitempty"`
	ExpectedOutput        string `json:"expected_output,omitempty"`
	AdditionalFiles       string `json:"additional_files,omitempty"`
	CallbackURL           string `json:"callback_url,omitempty"`
	RedirectStderrToStdout bool  `json:"redirect_stderr_to_stdout,omitempty"`

	CPUTimeLimit     *float64 `json:"cpu_time_limit,omitempty"`
	CPUExtraTime     *float64 `json:"cpu_extra_time,omitempty"`
	WallTimeLimit    *float64 `json:"wall_time_limit,omitempty"`
	MemoryLimit      *float64 `json:"memory_limit,omitempty"`
	StackLimit       *int     `json:"stack_limit,omitempty"`
	MaxProcesses     *int     `json:"max_processes_and_or_threads,omitempty"`
	MaxFileSize      *int     `json:"max_file_size,omitempty"`
	NumberOfRuns     *int     `json:"number_of_runs,omitempty"`
	EnableNetwork    *bool    `json:"enable_network,omitempty"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Resource defaults, used whenever the corresponding Submission field is nil.
// Run-time caps.
const (
	DefaultCPUTimeLimit  = 2.0
	DefaultCPUExtraTime  = 1.0
	DefaultWallTimeLimit = 4.0
	DefaultStackLimit    = 67108864
	DefaultMaxProcesses  = 50
	DefaultMemoryLimit   = 262144.0
	DefaultMaxFileSize   = 1024
	DefaultEnableNetwork = false

	// Compile-time caps are fixed, never submission-overridable.
	CompileCPUTimeLimit  = 2.0
	CompileWallTimeLimit = 4.0
	CompileExtraTime     = 0.0
	CompileStackLimit    = 67108864
	CompileMemoryLimit   = 262144
	CompileMaxFileSize   = 1024
)

func (s *Submission) cpuTimeLimit() float64 {
	if s.CPUTimeLimit != nil {
		return *s.CPUTimeLimit
	}
	return DefaultCPUTimeLimit
}

func (s *Submission) cpuExtraTime() float64 {
	if s.CPUExtraTime != nil {
		return *s.CPUExtraTime
	}
	return DefaultCPUExtraTime
}

func (s *Submission) wallTimeLimit() float64 {
	if s.WallTimeLimit != nil {
		return *s.WallTimeLimit
	}
	return DefaultWallTimeLimit
}

func (s *Submission) memoryLimit() float64 {
	if s.MemoryLimit != nil {
		return *s.MemoryLimit
	}
	return DefaultMemoryLimit
}

func (s *Submission) stackLimit() int {
	if s.StackLimit != nil {
		return *s.StackLimit
	}
	return DefaultStackLimit
}

func (s *Submission) maxProcesses() int {
	if s.MaxProcesses != nil {
		return *s.MaxProcesses
	}
	return DefaultMaxProcesses
}

func (s *Submission) maxFileSize() int {
	if s.MaxFileSize != nil {
		return *s.MaxFileSize
	}
	return DefaultMaxFileSize
}

// NetworkEnabled reports whether this submission asked for network access,
// falling back to DefaultEnableNetwork when left unset. It is one half of
// the network-enabling decision: Sandbox.Run only shares the host network
// namespace when this AND the language's AllowNetwork are both true.
func (s *Submission) NetworkEnabled() bool {
	if s.EnableNetwork != nil {
		return *s.EnableNetwork
	}
	return DefaultEnableNetwork
}

// RunCaps resolves every resource limit for the run phase, substituting
// defaults for any field the submission left nil.
type RunCaps struct {
	CPUTime      float64
	CPUExtra     float64
	WallTime     float64
	Stack        int
	MaxProcesses int
	Memory       float64
	MaxFileSize  int
}

// ResolveRunCaps applies the submission-field/default table, preferring
// the submission's own values and falling back to the Default* constants.
func (s *Submission) ResolveRunCaps() RunCaps {
	return RunCaps{
		CPUTime:      s.cpuTimeLimit(),
		CPUExtra:     s.cpuExtraTime(),
		WallTime:     s.wallTimeLimit(),
		Stack:        s.stackLimit(),
		MaxProcesses: s.maxProcesses(),
		Memory:       s.memoryLimit(),
		MaxFileSize:  s.maxFileSize(),
	}
}

// SupervisoryTimeout is the whole-pipeline watchdog:
// wall_time_limit + cpu_extra_time + 5s.
func (s *Submission) SupervisoryTimeout() time.Duration {
	seconds := s.wallTimeLimit() + s.cpuExtraTime() + 5.0
	return time.Duration(seconds * float64(time.Second))
}

// ProgramOutput is the captured stdout/stderr of a run, with empty or
// whitespace-only streams normalized to absent.
type ProgramOutput struct {
	Stdout *string
	Stderr *string
}

// Result is everything the worker persists after classification completes.
type Result struct {
	Verdict       Verdict
	CompileOutput string
	Stdout        string
	Stderr        string
	Message       string
	ExitCode      *int
	ExitSignal    *int
	Time          *float64
	WallTime      *float64
	Memory        *float64
	FinishedAt    time.Time
}
