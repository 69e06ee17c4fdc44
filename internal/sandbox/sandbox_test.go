package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/oj-platform/judge-executor/internal/domain"
)

// fakeJailer writes a shell script that mimics isolate(1) closely enough to
// exercise Sandbox's real exec.CommandContext path without the real binary:
// --init prints a workdir and creates box/ and tmp/ under it; --run executes
// the staged script directly and writes a metadata file; --cleanup removes
// the workdir.
func fakeJailer(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-isolate.sh")
	body := `#!/bin/bash
set -e
box_id=""
metadata=""
mode=""
args=()
while [[ $# -gt 0 ]]; do
  case "$1" in
    --init) mode=init; shift ;;
    --cleanup) mode=cleanup; shift ;;
    --run) mode=run; shift ;;
    -b) box_id="$2"; shift 2 ;;
    -M) metadata="$2"; shift 2 ;;
    --) shift; args=("$@"); break ;;
    *) shift ;;
  esac
done

root="` + dir + `/boxes/$box_id"

if [[ "$mode" == "init" ]]; then
  mkdir -p "$root/box" "$root/tmp"
  echo "$root"
  exit 0
fi

if [[ "$mode" == "cleanup" ]]; then
  rm -rf "$root"
  exit 0
fi

if [[ "$mode" == "run" ]]; then
  cd "$root/box"
  "${args[@]}"
  code=$?
  echo "status:OK" > "$metadata"
  echo "exitcode:$code" >> "$metadata"
  echo "time:0.01" >> "$metadata"
  echo "time-wall:0.02" >> "$metadata"
  echo "max-rss:1024" >> "$metadata"
  exit 0
fi
exit 1
`
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write fake jailer: %v", err)
	}
	return script
}

func testLang() domain.LanguageDescriptor {
	return domain.LanguageDescriptor{
		Name:       "bash",
		SourceFile: "source.sh",
		RunCmd:     "/bin/bash source.sh",
	}
}

func TestSandboxLifecycle_StageRunReadCleanup(t *testing.T) {
	jailer := fakeJailer(t)
	logger := zap.NewNop()
	ctx := context.Background()

	sb, err := New(ctx, 1, jailer, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := sb.Stage("echo hello", "", testLang()); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	sub := &domain.Submission{Language: testLang()}
	if err := sb.Run(ctx, sub); err != nil {
		t.Fatalf("Run: %v", err)
	}

	meta, err := sb.ReadMetadata()
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if meta.Status() != "OK" {
		t.Errorf("expected status OK, got %q", meta.Status())
	}
	if meta.ExitCode() != 0 {
		t.Errorf("expected exitcode 0, got %d", meta.ExitCode())
	}

	out := sb.ReadOutput()
	if out.Stdout == nil || *out.Stdout != "hello\n" {
		t.Errorf("expected stdout %q, got %v", "hello\n", out.Stdout)
	}

	if err := sb.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
}

func TestSandbox_CompileSkippedWhenNoCompileCmd(t *testing.T) {
	jailer := fakeJailer(t)
	ctx := context.Background()
	sb, err := New(ctx, 2, jailer, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sb.Cleanup(ctx)

	outcome, err := sb.Compile(ctx, &domain.Submission{Language: testLang()})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if outcome.Status != CompileSkipped {
		t.Errorf("expected CompileSkipped, got %v", outcome.Status)
	}
}

func TestSandbox_CompileRunsCompileCmd(t *testing.T) {
	jailer := fakeJailer(t)
	ctx := context.Background()
	sb, err := New(ctx, 3, jailer, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sb.Cleanup(ctx)

	lang := domain.LanguageDescriptor{
		Name:       "c",
		SourceFile: "main.c",
		CompileCmd: "echo compiling %s",
		RunCmd:     "/bin/true",
	}
	if err := sb.Stage("int main(){}", "", lang); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	sub := &domain.Submission{Language: lang, CompilerOptions: "-O2"}
	outcome, err := sb.Compile(ctx, sub)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if outcome.Status != CompileSucceeded {
		t.Errorf("expected CompileSucceeded, got %v (%s)", outcome.Status, outcome.Output)
	}
}

func TestSandbox_ReadMetadataMissingFileIsError(t *testing.T) {
	jailer := fakeJailer(t)
	ctx := context.Background()
	sb, err := New(ctx, 4, jailer, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sb.Cleanup(ctx)

	if _, err := sb.ReadMetadata(); err == nil {
		t.Fatal("expected error reading metadata before a run")
	}
}

func TestSandbox_ReadOutputAbsentWhenMissingOrBlank(t *testing.T) {
	jailer := fakeJailer(t)
	ctx := context.Background()
	sb, err := New(ctx, 5, jailer, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sb.Cleanup(ctx)

	out := sb.ReadOutput()
	if out.Stdout != nil {
		t.Errorf("expected nil stdout before any run, got %v", *out.Stdout)
	}
	if out.Stderr != nil {
		t.Errorf("expected nil stderr before any run, got %v", *out.Stderr)
	}
}

func TestSandbox_CleanupIsIdempotent(t *testing.T) {
	jailer := fakeJailer(t)
	ctx := context.Background()
	sb, err := New(ctx, 6, jailer, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sb.Cleanup(ctx); err != nil {
		t.Fatalf("first Cleanup: %v", err)
	}
	if err := sb.Cleanup(ctx); err != nil {
		t.Fatalf("second Cleanup: %v", err)
	}
}

func TestSanitize_StripsShellMetacharacters(t *testing.T) {
	in := "-O2; rm -rf / & echo $(whoami) | cat `id` < /etc/passwd > out"
	got := sanitize(in)
	for _, c := range sanitizedChars {
		if contains(got, c) {
			t.Errorf("sanitize left %q in output: %q", string(c), got)
		}
	}
}

func contains(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}
