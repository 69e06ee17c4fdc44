// Package sandbox drives one isolate(1) jail instance through its full
// lifecycle: init, file staging, compile, run, metadata/output retrieval,
// and cleanup. It targets isolate's box-id CLI contract (not a config-file
// based jailer), following isolate(1)'s exact flag shapes for --cg --init,
// --run, --cleanup and the -M metadata file.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/oj-platform/judge-executor/internal/domain"
)

// maxCapturedOutputBytes caps the compiler output Compile holds in memory.
// The run phase's stdout/stderr files are not capped here; ReadOutput reads
// them back whole.
const maxCapturedOutputBytes = 1 << 20 // 1 MiB

// sanitizedChars are stripped from user-supplied compiler options and
// command-line arguments before shell-script interpolation. The sandbox
// itself remains the real security boundary.
const sanitizedChars = "$&;<>|`"

// CompileStatus is the outcome of the compile phase.
type CompileStatus int

const (
	// CompileSkipped means the language has no compile_cmd.
	CompileSkipped CompileStatus = iota
	CompileSucceeded
	CompileFailed
)

// CompileOutcome is returned by Compile.
type CompileOutcome struct {
	Status CompileStatus
	Output string // combined stdout+stderr of the compiler, for CompileFailed
}

// Metadata is the parsed form of the jailer's key:value report.
type Metadata map[string]string

// Status returns the jailer's short status code, or "" if absent.
func (m Metadata) Status() string { return m[metaStatus] }

// ExitSignal returns metadata's exitsig as an int, 0 if absent or unparseable.
func (m Metadata) ExitSignal() int {
	n, _ := strconv.Atoi(m[metaExitSig])
	return n
}

// ExitCode returns metadata's exitcode as an int, 0 if absent or unparseable.
func (m Metadata) ExitCode() int {
	n, _ := strconv.Atoi(m[metaExitCode])
	return n
}

// CPUTime returns metadata's time (cpu-seconds), nil if absent/unparseable.
func (m Metadata) CPUTime() *float64 {
	return parseFloatPtr(m[metaTime])
}

// WallTime returns metadata's time-wall, nil if absent/unparseable.
func (m Metadata) WallTime() *float64 {
	return parseFloatPtr(m[metaTimeWall])
}

// MemoryKB returns cg-mem when present, else max-rss, nil if neither parses.
func (m Metadata) MemoryKB() *float64 {
	if v := parseFloatPtr(m[metaCgMem]); v != nil {
		return v
	}
	return parseFloatPtr(m[metaMaxRSS])
}

func parseFloatPtr(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

const (
	metaStatus   = "status"
	metaExitSig  = "exitsig"
	metaExitCode = "exitcode"
	metaTime     = "time"
	metaTimeWall = "time-wall"
	metaMaxRSS   = "max-rss"
	metaCgMem    = "cg-mem"
)

// Compile-time caps are fixed regardless of submission overrides.
const (
	compileCPUTime  = "2"
	compileWallTime = "4"
	compileExtra    = "0"
	compileStack    = "67108864"
	compileMemory   = "262144"
	compileFileSize = "1024"
)

// Sandbox owns the filesystem region and box-id of one jail instance for the
// lifetime of a single job attempt.
type Sandbox struct {
	boxID  uint32
	jailer string
	logger *zap.Logger

	workdir      string
	boxdir       string
	tmpdir       string
	metadataFile string
	stdinFile    string
	stdoutFile   string
	stderrFile   string
}

// New invokes the jailer's --init for boxID and derives the sandbox's
// filesystem layout from the workdir path it prints on stdout.
func New(ctx context.Context, boxID uint32, jailerPath string, logger *zap.Logger) (*Sandbox, error) {
	out, err := runJailerCapture(ctx, jailerPath, []string{"--cg", "-b", strconv.FormatUint(uint64(boxID), 10), "--init"})
	if err != nil {
		return nil, fmt.Errorf("sandbox: init box %d: %w", boxID, err)
	}

	workdir := strings.TrimSpace(out)
	if workdir == "" {
		return nil, fmt.Errorf("sandbox: init box %d: jailer printed no workdir", boxID)
	}

	boxdir := filepath.Join(workdir, "box")
	tmpdir := filepath.Join(workdir, "tmp")

	sb := &Sandbox{
		boxID:        boxID,
		jailer:       jailerPath,
		logger:       logger,
		workdir:      workdir,
		boxdir:       boxdir,
		tmpdir:       tmpdir,
		metadataFile: filepath.Join(workdir, "metadata.txt"),
		stdinFile:    filepath.Join(workdir, "stdin.txt"),
		stdoutFile:   filepath.Join(workdir, "stdout.txt"),
		stderrFile:   filepath.Join(workdir, "stderr.txt"),
	}
	return sb, nil
}

// BoxID returns the sandbox's numeric jail id.
func (s *Sandbox) BoxID() uint32 { return s.boxID }

// Stage writes the submission source and stdin into the jail's filesystem.
func (s *Sandbox) Stage(source, stdinText string, lang domain.LanguageDescriptor) error {
	sourcePath := filepath.Join(s.boxdir, lang.SourceFile)
	if err := os.WriteFile(sourcePath, []byte(source), 0o644); err != nil {
		return fmt.Errorf("sandbox: stage source: %w", err)
	}
	if err := os.WriteFile(s.stdinFile, []byte(stdinText), 0o644); err != nil {
		return fmt.Errorf("sandbox: stage stdin: %w", err)
	}
	return nil
}

// Compile runs the language's compile_cmd, if any, under fixed compile-time
// caps. Returns CompileSkipped when the language has no compile step.
func (s *Sandbox) Compile(ctx context.Context, sub *domain.Submission) (CompileOutcome, error) {
	if !sub.Language.HasCompileStep() {
		return CompileOutcome{Status: CompileSkipped}, nil
	}

	sanitizedOpts := sanitize(sub.CompilerOptions)
	script := strings.Replace(sub.Language.CompileCmd, "%s", sanitizedOpts, 1)
	if err := os.WriteFile(filepath.Join(s.boxdir, "compile.sh"), []byte(script+"\n"), 0o755); err != nil {
		return CompileOutcome{}, fmt.Errorf("sandbox: write compile.sh: %w", err)
	}

	args := []string{
		"--cg",
		"-b", s.boxIDStr(),
		"-M", s.metadataFile,
		"--stderr-to-stdout",
		"-i", "/dev/null",
		"-t", compileCPUTime,
		"-x", compileExtra,
		"-w", compileWallTime,
		"-k", compileStack,
		"-m", compileMemory,
		"-f", compileFileSize,
		"--run", "--",
		"/bin/bash", "compile.sh",
	}

	var combined limitedBuffer
	combined.limit = maxCapturedOutputBytes
	code, err := s.runJailer(ctx, args, s.boxdir, nil, &combined, &combined)
	if err != nil {
		return CompileOutcome{}, fmt.Errorf("sandbox: compile: %w", err)
	}

	if code == 0 {
		return CompileOutcome{Status: CompileSucceeded}, nil
	}
	return CompileOutcome{Status: CompileFailed, Output: combined.String()}, nil
}

// Run executes the compiled/interpreted artifact under the submission's
// resolved resource caps. Non-zero exit is not an error here; the classifier
// interprets the resulting metadata.
func (s *Sandbox) Run(ctx context.Context, sub *domain.Submission) error {
	sanitizedArgs := sanitize(sub.CommandLineArguments)
	script := strings.TrimRight(sub.Language.RunCmd+" "+sanitizedArgs, " ") + "\n"
	if err := os.WriteFile(filepath.Join(s.boxdir, "run.sh"), []byte(script), 0o755); err != nil {
		return fmt.Errorf("sandbox: write run.sh: %w", err)
	}

	caps := sub.ResolveRunCaps()
	args := []string{
		"--cg",
		"--silent",
		"-b", s.boxIDStr(),
		"-M", s.metadataFile,
		"-t", formatFloat(caps.CPUTime),
		"-x", formatFloat(caps.CPUExtra),
		"-w", formatFloat(caps.WallTime),
		"-k", strconv.Itoa(caps.Stack),
		fmt.Sprintf("-p%d", caps.MaxProcesses),
		"-m", formatFloat(caps.Memory),
		"-f", strconv.Itoa(caps.MaxFileSize),
	}
	if sub.Language.AllowNetwork && sub.NetworkEnabled() {
		args = append(args, "--share-net")
	}
	args = append(args, "--run", "--", "/bin/bash", "run.sh")

	stdin, err := os.Open(s.stdinFile)
	if err != nil {
		return fmt.Errorf("sandbox: open stdin: %w", err)
	}
	defer stdin.Close()

	stdout, err := os.Create(s.stdoutFile)
	if err != nil {
		return fmt.Errorf("sandbox: create stdout file: %w", err)
	}
	defer stdout.Close()

	stderr, err := os.Create(s.stderrFile)
	if err != nil {
		return fmt.Errorf("sandbox: create stderr file: %w", err)
	}
	defer stderr.Close()

	_, err = s.runJailer(ctx, args, s.boxdir, stdin, stdout, stderr)
	if err != nil {
		return fmt.Errorf("sandbox: run: %w", err)
	}
	return nil
}

// ReadMetadata parses the jailer's key:value report. A missing file is an
// error the caller should treat as BoxError.
func (s *Sandbox) ReadMetadata() (Metadata, error) {
	content, err := os.ReadFile(s.metadataFile)
	if err != nil {
		return nil, fmt.Errorf("sandbox: read metadata: %w", err)
	}

	meta := Metadata{}
	for _, line := range strings.Split(string(content), "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		meta[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	return meta, nil
}

// ReadOutput reads the captured stdout/stderr, normalizing empty or
// whitespace-only content to absent. Missing files are absent, not an error.
func (s *Sandbox) ReadOutput() domain.ProgramOutput {
	return domain.ProgramOutput{
		Stdout: readOptional(s.stdoutFile),
		Stderr: readOptional(s.stderrFile),
	}
}

func readOptional(path string) *string {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	if strings.TrimSpace(string(content)) == "" {
		return nil
	}
	s := string(content)
	return &s
}

// Cleanup removes the jail's filesystem region and tears the box-id down.
// Best-effort and idempotent: safe to call after partial init, and safe to
// call more than once.
func (s *Sandbox) Cleanup(ctx context.Context) error {
	_ = os.RemoveAll(s.boxdir)
	_ = os.RemoveAll(s.tmpdir)
	_ = os.Remove(s.metadataFile)

	_, err := s.runJailer(ctx, []string{"--cg", "-b", s.boxIDStr(), "--cleanup"}, "", nil, nil, nil)
	if err != nil {
		s.logger.Warn("sandbox cleanup: jailer --cleanup failed",
			zap.Uint32("box_id", s.boxID), zap.Error(err))
		return err
	}
	return nil
}

func (s *Sandbox) boxIDStr() string {
	return strconv.FormatUint(uint64(s.boxID), 10)
}

// runJailer runs the jailer with args, wiring stdin/stdout/stderr, and
// returns the child's exit code (0 when the jailer itself reports success;
// the jailer's own failure to launch is returned as an error). A nil stdin
// means no input is piped; nil stdout/stderr discard output.
func (s *Sandbox) runJailer(ctx context.Context, args []string, dir string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, s.jailer, args...)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if stdin != nil {
		cmd.Stdin = stdin
	}
	if stdout != nil {
		cmd.Stdout = stdout
	}
	if stderr != nil {
		cmd.Stderr = stderr
	}

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded || ctx.Err() == context.Canceled {
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
	}

	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// runJailerCapture runs the jailer and returns its combined stdout (used for
// --init, whose contract is "prints the workdir path on stdout").
func runJailerCapture(ctx context.Context, jailerPath string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, jailerPath, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s", err, out.String())
	}
	return out.String(), nil
}

// sanitize strips shell-metacharacters from user-supplied option/argument
// strings before they are interpolated into a generated shell script.
// The jail is the real security boundary; this is defense in depth.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(sanitizedChars, r) {
			return -1
		}
		return r
	}, s)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// limitedBuffer caps writes so compiler output can't exhaust worker memory.
type limitedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (lb *limitedBuffer) Write(p []byte) (int, error) {
	if lb.truncated {
		return len(p), nil
	}
	remaining := lb.limit - lb.buf.Len()
	if remaining <= 0 {
		lb.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		lb.truncated = true
		p = p[:remaining]
	}
	return lb.buf.Write(p)
}

func (lb *limitedBuffer) String() string {
	s := lb.buf.String()
	if lb.truncated {
		s += "\n... output truncated ..."
	}
	return s
}
