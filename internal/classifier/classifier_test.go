package classifier

import (
	"testing"

	"github.com/oj-platform/judge-executor/internal/domain"
	"github.com/oj-platform/judge-executor/internal/sandbox"
)

func strPtr(s string) *string { return &s }

func TestClassify_AcceptedNoExpectedOutput(t *testing.T) {
	sub := &domain.Submission{}
	out := domain.ProgramOutput{Stdout: strPtr("2\n")}
	meta := sandbox.Metadata{"status": "OK", "exitcode": "0"}

	result := Classify(sub, out, meta, sandbox.CompileOutcome{Status: sandbox.CompileSkipped})

	if result.Verdict != domain.VerdictAccepted {
		t.Errorf("expected Accepted, got %s", result.Verdict)
	}
	if result.Stdout != "2\n" {
		t.Errorf("expected stdout to be carried through, got %q", result.Stdout)
	}
}

func TestClassify_AcceptedMatchingExpectedOutput(t *testing.T) {
	sub := &domain.Submission{ExpectedOutput: "hi\n"}
	out := domain.ProgramOutput{Stdout: strPtr("hi\n")}
	meta := sandbox.Metadata{"status": "OK"}

	result := Classify(sub, out, meta, sandbox.CompileOutcome{Status: sandbox.CompileSkipped})
	if result.Verdict != domain.VerdictAccepted {
		t.Errorf("expected Accepted, got %s", result.Verdict)
	}
}

func TestClassify_TrailingWhitespaceIgnored(t *testing.T) {
	sub := &domain.Submission{ExpectedOutput: "hi"}
	out := domain.ProgramOutput{Stdout: strPtr("hi\n\n  ")}
	meta := sandbox.Metadata{"status": "OK"}

	result := Classify(sub, out, meta, sandbox.CompileOutcome{Status: sandbox.CompileSkipped})
	if result.Verdict != domain.VerdictAccepted {
		t.Errorf("expected Accepted despite trailing whitespace, got %s", result.Verdict)
	}
}

func TestClassify_InteriorWhitespaceSignificant(t *testing.T) {
	sub := &domain.Submission{ExpectedOutput: "a b"}
	out := domain.ProgramOutput{Stdout: strPtr("a  b")}
	meta := sandbox.Metadata{"status": "OK"}

	result := Classify(sub, out, meta, sandbox.CompileOutcome{Status: sandbox.CompileSkipped})
	if result.Verdict != domain.VerdictWrongAnswer {
		t.Errorf("expected WrongAnswer for interior whitespace mismatch, got %s", result.Verdict)
	}
}

func TestClassify_WrongAnswer(t *testing.T) {
	sub := &domain.Submission{ExpectedOutput: "expected"}
	out := domain.ProgramOutput{Stdout: strPtr("actual")}
	meta := sandbox.Metadata{"status": "OK"}

	result := Classify(sub, out, meta, sandbox.CompileOutcome{Status: sandbox.CompileSkipped})
	if result.Verdict != domain.VerdictWrongAnswer {
		t.Errorf("expected WrongAnswer, got %s", result.Verdict)
	}
}

func TestClassify_AbsentStdoutComparesAsEmpty(t *testing.T) {
	sub := &domain.Submission{ExpectedOutput: "\n"}
	out := domain.ProgramOutput{}
	meta := sandbox.Metadata{"status": "OK"}

	result := Classify(sub, out, meta, sandbox.CompileOutcome{Status: sandbox.CompileSkipped})
	if result.Verdict != domain.VerdictAccepted {
		t.Errorf("expected Accepted, got %s", result.Verdict)
	}
}

func TestClassify_TimeLimitExceeded(t *testing.T) {
	sub := &domain.Submission{}
	meta := sandbox.Metadata{"status": "TO", "time": "1.02"}

	result := Classify(sub, domain.ProgramOutput{}, meta, sandbox.CompileOutcome{Status: sandbox.CompileSkipped})
	if result.Verdict != domain.VerdictTimeLimitExceeded {
		t.Errorf("expected TimeLimitExceeded, got %s", result.Verdict)
	}
	if result.Time == nil || *result.Time != 1.02 {
		t.Errorf("expected time 1.02, got %v", result.Time)
	}
}

func TestClassify_SignalError(t *testing.T) {
	sub := &domain.Submission{}
	meta := sandbox.Metadata{"status": "SG", "exitsig": "11"}

	result := Classify(sub, domain.ProgramOutput{}, meta, sandbox.CompileOutcome{Status: sandbox.CompileSkipped})
	if result.Verdict != domain.VerdictSignalError {
		t.Errorf("expected SignalError, got %s", result.Verdict)
	}
	if result.ExitSignal == nil || *result.ExitSignal != 11 {
		t.Errorf("expected exit signal 11, got %v", result.ExitSignal)
	}
}

func TestClassify_SignalErrorDefaultsExitsigToZero(t *testing.T) {
	sub := &domain.Submission{}
	meta := sandbox.Metadata{"status": "SG"}

	result := Classify(sub, domain.ProgramOutput{}, meta, sandbox.CompileOutcome{Status: sandbox.CompileSkipped})
	if result.ExitSignal == nil || *result.ExitSignal != 0 {
		t.Errorf("expected exit signal 0 when absent, got %v", result.ExitSignal)
	}
}

func TestClassify_RuntimeError(t *testing.T) {
	sub := &domain.Submission{}
	meta := sandbox.Metadata{"status": "RE", "exitcode": "1"}

	result := Classify(sub, domain.ProgramOutput{}, meta, sandbox.CompileOutcome{Status: sandbox.CompileSkipped})
	if result.Verdict != domain.VerdictRuntimeError {
		t.Errorf("expected RuntimeError, got %s", result.Verdict)
	}
}

func TestClassify_BoxError(t *testing.T) {
	sub := &domain.Submission{}
	meta := sandbox.Metadata{"status": "XX"}

	result := Classify(sub, domain.ProgramOutput{}, meta, sandbox.CompileOutcome{Status: sandbox.CompileSkipped})
	if result.Verdict != domain.VerdictBoxError {
		t.Errorf("expected BoxError, got %s", result.Verdict)
	}
}

func TestClassify_CompilationErrorTakesPrecedence(t *testing.T) {
	sub := &domain.Submission{}
	meta := sandbox.Metadata{"status": "OK"}
	compile := sandbox.CompileOutcome{Status: sandbox.CompileFailed, Output: "error: expected ';'"}

	result := Classify(sub, domain.ProgramOutput{}, meta, compile)
	if result.Verdict != domain.VerdictCompilationError {
		t.Errorf("expected CompilationError, got %s", result.Verdict)
	}
	if result.CompileOutput != "error: expected ';'" {
		t.Errorf("expected compile output captured, got %q", result.CompileOutput)
	}
}

func TestClassify_CgMemPreferredOverMaxRSS(t *testing.T) {
	sub := &domain.Submission{}
	meta := sandbox.Metadata{"status": "OK", "max-rss": "9999", "cg-mem": "4096"}

	result := Classify(sub, domain.ProgramOutput{}, meta, sandbox.CompileOutcome{Status: sandbox.CompileSkipped})
	if result.Memory == nil || *result.Memory != 4096 {
		t.Errorf("expected cg-mem 4096 preferred, got %v", result.Memory)
	}
}

func TestClassify_IsDeterministic(t *testing.T) {
	sub := &domain.Submission{ExpectedOutput: "x"}
	out := domain.ProgramOutput{Stdout: strPtr("x")}
	meta := sandbox.Metadata{"status": "OK"}
	compile := sandbox.CompileOutcome{Status: sandbox.CompileSkipped}

	a := Classify(sub, out, meta, compile)
	b := Classify(sub, out, meta, compile)
	if a.Verdict != b.Verdict {
		t.Errorf("classifier is not deterministic: %s vs %s", a.Verdict, b.Verdict)
	}
}
