package domain

// SubmitRequest is the JSON body accepted by POST /submissions. Field names
// match the submission shape shared by the HTTP intake and the worker.
type SubmitRequest struct {
	Language             string   `json:"language" binding:"required"`
	SourceCode           string   `json:"source_code" binding:"required"`
	Stdin                string   `json:"stdin,omitempty"`
	CompilerOptions      string   `json:"compiler_options,omitempty"`
	CommandLineArguments string   `json:"command_line_arguments,omitempty"`
	ExpectedOutput       string   `json:"expected_output,omitempty"`
	AdditionalFiles      string   `json:"additional_files,omitempty"`
	CallbackURL          string   `json:"callback_url,omitempty"`
	RedirectStderrToStdout bool   `json:"redirect_stderr_to_stdout,omitempty"`
	CPUTimeLimit         *float64 `json:"cpu_time_limit,omitempty"`
	CPUExtraTime         *float64 `json:"cpu_extra_time,omitempty"`
	WallTimeLimit        *float64 `json:"wall_time_limit,omitempty"`
	MemoryLimit          *float64 `json:"memory_limit,omitempty"`
	StackLimit           *int     `json:"stack_limit,omitempty"`
	MaxProcesses         *int     `json:"max_processes_and_or_threads,omitempty"`
	MaxFileSize          *int     `json:"max_file_size,omitempty"`
	NumberOfRuns         *int     `json:"number_of_runs,omitempty"`
	EnableNetwork        *bool    `json:"enable_network,omitempty"`
}

// SubmitResponse is returned after a successful submission.
type SubmitResponse struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}

// LanguageInfo is the GET /languages wire shape, omitting the internal
// compile/run command templates.
type LanguageInfo struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	FileExtension string `json:"file_extension"`
	HasCompileStep bool  `json:"has_compile_step"`
}

// SubmissionView is the GET /submissions/:id response: the submission plus
// its result, if any, flattened for the client.
type SubmissionView struct {
	ID         string   `json:"id"`
	Status     Status   `json:"status"`
	Verdict    *Verdict `json:"verdict,omitempty"`
	CompileOutput string `json:"compile_output,omitempty"`
	Stdout     string   `json:"stdout,omitempty"`
	Stderr     string   `json:"stderr,omitempty"`
	Message    string   `json:"message,omitempty"`
	ExitCode   *int     `json:"exit_code,omitempty"`
	ExitSignal *int     `json:"exit_signal,omitempty"`
	Time       *float64 `json:"time,omitempty"`
	WallTime   *float64 `json:"wall_time,omitempty"`
	Memory     *float64 `json:"memory,omitempty"`
}

// NewSubmissionView flattens sub/result into the client-facing shape.
func NewSubmissionView(sub *Submission, result *Result) SubmissionView {
	view := SubmissionView{ID: sub.ID.String(), Status: sub.Status}
	if result != nil {
		v := result.Verdict
		view.Verdict = &v
		view.CompileOutput = result.CompileOutput
		view.Stdout = result.Stdout
		view.Stderr = result.Stderr
		view.Message = result.Message
		view.ExitCode = result.ExitCode
		view.ExitSignal = result.ExitSignal
		view.Time = result.Time
		view.WallTime = result.WallTime
		view.Memory = result.Memory
	}
	return view
}
