package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
[[languages]]
name = "python"
source_file = "script.py"
run_cmd = "/usr/bin/python3 script.py"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.SubmissionDefaults.CPUTimeLimit != 2.0 {
		t.Errorf("expected default cpu_time_limit 2.0, got %v", cfg.SubmissionDefaults.CPUTimeLimit)
	}
	if cfg.SubmissionDefaults.WallTimeLimit != 5.0 {
		t.Errorf("expected default wall_time_limit 5.0, got %v", cfg.SubmissionDefaults.WallTimeLimit)
	}
	if cfg.Sandbox.BoxIDMax != 999 {
		t.Errorf("expected default box_id_max 999, got %d", cfg.Sandbox.BoxIDMax)
	}
	if cfg.NumWorkers < 1 {
		t.Errorf("expected num_workers resolved to >=1 CPU count, got %d", cfg.NumWorkers)
	}
}

func TestLoad_MissingRunCmdIsStartupError(t *testing.T) {
	path := writeConfig(t, `
[[languages]]
name = "broken"
source_file = "code.txt"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for language missing run_cmd")
	}
}

func TestLoad_InlineWinsOverCmdFile(t *testing.T) {
	dir := t.TempDir()
	fileCmd := filepath.Join(dir, "run.sh")
	if err := os.WriteFile(fileCmd, []byte("from-file\n\n"), 0o644); err != nil {
		t.Fatalf("write run cmd file: %v", err)
	}

	path := filepath.Join(dir, "config.toml")
	body := `
[[languages]]
name = "c"
source_file = "main.c"
run_cmd = "from-inline"
run_cmd_file = "` + fileCmd + `"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Languages[0].RunCmd != "from-inline" {
		t.Errorf("expected inline run_cmd to win, got %q", cfg.Languages[0].RunCmd)
	}
}

func TestLoad_RunCmdFileIsTrimmed(t *testing.T) {
	dir := t.TempDir()
	fileCmd := filepath.Join(dir, "run.sh")
	if err := os.WriteFile(fileCmd, []byte("/usr/bin/run-me \n\t\n"), 0o644); err != nil {
		t.Fatalf("write run cmd file: %v", err)
	}

	path := filepath.Join(dir, "config.toml")
	body := `
[[languages]]
name = "rust"
source_file = "main.rs"
run_cmd_file = "` + fileCmd + `"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Languages[0].RunCmd != "/usr/bin/run-me" {
		t.Errorf("expected trimmed run_cmd, got %q", cfg.Languages[0].RunCmd)
	}
}

func TestLoad_MissingFileIsNotFatal(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("unexpected error for missing config file: %v", err)
	}
	if cfg.SubmissionDefaults.CPUTimeLimit != 2.0 {
		t.Errorf("expected defaults applied, got %v", cfg.SubmissionDefaults.CPUTimeLimit)
	}
}
