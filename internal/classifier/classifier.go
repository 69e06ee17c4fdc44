// Package classifier maps a completed sandbox run to a final verdict. It is
// a pure function: no I/O, no logger, no clock — the same inputs always
// produce the same Result.
package classifier

import (
	"strconv"
	"strings"

	"github.com/oj-platform/judge-executor/internal/domain"
	"github.com/oj-platform/judge-executor/internal/sandbox"
)

// Classify evaluates the decision table top-to-bottom: compile failure,
// then the jailer's status code, then output comparison against the
// submission's expected output (when present).
func Classify(sub *domain.Submission, output domain.ProgramOutput, meta sandbox.Metadata, compile sandbox.CompileOutcome) domain.Result {
	result := domain.Result{
		Time:     meta.CPUTime(),
		WallTime: meta.WallTime(),
		Memory:   meta.MemoryKB(),
	}
	if output.Stdout != nil {
		result.Stdout = *output.Stdout
	}
	if output.Stderr != nil {
		result.Stderr = *output.Stderr
	}

	if compile.Status == sandbox.CompileFailed {
		result.Verdict = domain.VerdictCompilationError
		result.CompileOutput = compile.Output
		return result
	}

	exitCode := meta.ExitCode()
	exitSig := meta.ExitSignal()
	result.ExitCode = &exitCode
	result.ExitSignal = &exitSig

	switch meta.Status() {
	case "TO":
		result.Verdict = domain.VerdictTimeLimitExceeded
		return result
	case "SG":
		result.Verdict = domain.VerdictSignalError
		result.Message = signalMessage(exitSig)
		return result
	case "RE":
		result.Verdict = domain.VerdictRuntimeError
		result.Message = string(domain.ClassifyRuntimeErrorKind(exitCode, exitSig))
		return result
	case "XX":
		result.Verdict = domain.VerdictBoxError
		return result
	}

	if sub.ExpectedOutput == "" {
		result.Verdict = domain.VerdictAccepted
		return result
	}

	if trimmed(result.Stdout) == trimmed(sub.ExpectedOutput) {
		result.Verdict = domain.VerdictAccepted
	} else {
		result.Verdict = domain.VerdictWrongAnswer
	}
	return result
}

func trimmed(s string) string {
	return strings.Trim(s, " \t\r\n")
}

func signalMessage(sig int) string {
	if sig == 0 {
		return ""
	}
	return "killed by signal " + strconv.Itoa(sig)
}
