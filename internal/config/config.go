// Package config loads the executor's single TOML configuration file plus
// environment-variable overrides for connection strings, split between
// typed sub-structs populated via mapstructure and viper.SetDefault.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// SubmissionDefaults holds the submission_defaults section as loaded. These
// values are not applied to submissions: the run-phase fallbacks come from
// the domain.Default* constants (see Submission.ResolveRunCaps).
type SubmissionDefaults struct {
	CPUTimeLimit   float64 `mapstructure:"cpu_time_limit"`
	WallTimeLimit  float64 `mapstructure:"wall_time_limit"`
	MemoryLimit    float64 `mapstructure:"memory_limit"`
	NumberOfRuns   int     `mapstructure:"number_of_runs"`
	EnableNetwork  bool    `mapstructure:"enable_network"`
}

// SandboxConfig configures the Sandbox Driver's jailer invocation and the
// Box-ID Allocator's wraparound.
type SandboxConfig struct {
	JailerPath string `mapstructure:"jailer_path"`
	BoxIDMax   uint32 `mapstructure:"box_id_max"`
}

// ServerConfig configures the cmd/api HTTP intake.
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	RateLimitPerMin int `mapstructure:"rate_limit_per_minute"`
}

// LanguageConfig is the on-disk shape of one language descriptor: compile_cmd
// and run_cmd may each be given inline or via a *_cmd_file path; inline wins
// when both are present.
type LanguageConfig struct {
	Name           string `mapstructure:"name"`
	SourceFile     string `mapstructure:"source_file"`
	FileExtension  string `mapstructure:"file_extension"`
	Version        string `mapstructure:"version"`
	CompileCmd     string `mapstructure:"compile_cmd"`
	CompileCmdFile string `mapstructure:"compile_cmd_file"`
	RunCmd         string `mapstructure:"run_cmd"`
	RunCmdFile     string `mapstructure:"run_cmd_file"`
	AllowNetwork   bool   `mapstructure:"allow_network"`
}

// Config is the fully resolved executor configuration.
type Config struct {
	SubmissionDefaults SubmissionDefaults `mapstructure:"submission_defaults"`
	NumWorkers         int                `mapstructure:"num_workers"`
	Sandbox            SandboxConfig      `mapstructure:"sandbox"`
	Server             ServerConfig       `mapstructure:"server"`
	Languages          []LanguageConfig   `mapstructure:"languages"`

	DatabaseURL string
	RabbitMQURL string
	RedisURL    string
}

// Load reads the TOML file at path (an empty path means config.toml; a
// missing file leaves the defaults in place), applies defaults, resolves
// *_cmd_file indirection, and validates that every language has a run
// command. Callers pick path from the environment: cmd/worker reads
// WORKER_CONFIG_PATH, cmd/api reads API_CONFIG_PATH, and both fall back to
// EXECUTOR_CONFIG_PATH.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetDefault("submission_defaults.cpu_time_limit", 2.0)
	v.SetDefault("submission_defaults.wall_time_limit", 5.0)
	v.SetDefault("submission_defaults.memory_limit", 128000.0)
	v.SetDefault("submission_defaults.number_of_runs", 1)
	v.SetDefault("submission_defaults.enable_network", false)
	v.SetDefault("num_workers", -1)
	v.SetDefault("sandbox.jailer_path", "isolate")
	v.SetDefault("sandbox.box_id_max", 999)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_per_minute", 100)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.NumWorkers < 1 {
		cfg.NumWorkers = runtime.NumCPU()
	}

	if err := resolveCmdFiles(cfg.Languages); err != nil {
		return nil, err
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RabbitMQURL = os.Getenv("RABBITMQ_URL")
	cfg.RedisURL = os.Getenv("REDIS_URL")

	return cfg, nil
}

// resolveCmdFiles reads *_cmd_file indirection in place: inline wins when
// both inline and file forms are present, otherwise the file is read and
// trailing whitespace trimmed.
func resolveCmdFiles(langs []LanguageConfig) error {
	for i := range langs {
		l := &langs[i]

		if l.CompileCmd == "" && l.CompileCmdFile != "" {
			content, err := os.ReadFile(l.CompileCmdFile)
			if err != nil {
				return fmt.Errorf("config: language %q: read compile_cmd_file: %w", l.Name, err)
			}
			l.CompileCmd = strings.TrimRight(string(content), " \t\r\n")
		}

		if l.RunCmd == "" && l.RunCmdFile != "" {
			content, err := os.ReadFile(l.RunCmdFile)
			if err != nil {
				return fmt.Errorf("config: language %q: read run_cmd_file: %w", l.Name, err)
			}
			l.RunCmd = strings.TrimRight(string(content), " \t\r\n")
		}

		if l.RunCmd == "" {
			return fmt.Errorf("config: language %q: missing run_cmd", l.Name)
		}
	}
	return nil
}
