// Package config provides application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration loaded from environment variables.
// Command-line flags may override individual fields after Load.
type Config struct {
	LogLevel string

	// Version resolution
	RepoPath        string // checkout to inspect (e.g., ".")
	NextVersionFile string // override file, relative to RepoPath unless absolute
	MainBranch      string // branch that produces release candidates
	RunNumber       int    // GITHUB_RUN_NUMBER
	CIBranch        string // branch name when HEAD is detached

	// GitOps repository
	GitOpsRepoURL    string // e.g., "https://github.com/org/gitops.git"
	GitOpsBaseBranch string // empty means the remote's default branch
	GitOpsFolder     string // service folder under helm-values/
	GitHubToken      string // HTTPS push and API access
	GitTimeout       time.Duration
	GitAuthorName    string
	GitAuthorEmail   string
	OpenPullRequest  bool

	// GitHub App auth for the API (optional, preferred over GitHubToken)
	GitHubAppID          int64
	GitHubInstallationID int64
	GitHubPrivateKey     string // PEM file contents

	// CI output file (GITHUB_OUTPUT)
	OutputFile string

	// OpenTelemetry (optional)
	OTelEnabled bool // OTEL_ENABLED feature flag
}

// Load reads configuration from environment variables and applies defaults.
// Nothing is required at this point; each command validates what it needs.
func Load() (Config, error) {
	cfg := Config{
		LogLevel:        "info",
		RepoPath:        ".",
		NextVersionFile: "NEXT_VERSION",
		MainBranch:      "main",
		GitTimeout:      2 * time.Minute,
	}

	if err := loadVersionConfig(&cfg); err != nil {
		return Config{}, err
	}

	if err := loadGitOpsConfig(&cfg); err != nil {
		return Config{}, err
	}

	if err := loadGitHubAppConfig(&cfg); err != nil {
		return Config{}, err
	}

	cfg.OutputFile = os.Getenv("GITHUB_OUTPUT")
	loadOTelConfig(&cfg)

	return cfg, nil
}

// ValidateVersion checks the fields version resolution needs. Flags bypass
// the checks done in Load, so commands call this after parsing.
func (c Config) ValidateVersion() error {
	if c.RunNumber < 0 {
		return fmt.Errorf("run number must be a non-negative integer, got %d", c.RunNumber)
	}
	return nil
}

// ValidateGitOps checks the fields update-gitops needs.
func (c Config) ValidateGitOps() error {
	var errs []error
	if c.GitOpsRepoURL == "" {
		errs = append(errs, errors.New("GITOPS_REPO_URL is required"))
	}
	if c.GitOpsFolder == "" {
		errs = append(errs, errors.New("GITOPS_FOLDER is required"))
	}
	if c.GitTimeout <= 0 {
		errs = append(errs, fmt.Errorf("GIT_TIMEOUT must be positive, got %s", c.GitTimeout))
	}
	if c.OpenPullRequest && !c.HasGitHubApp() && c.GitHubToken == "" {
		errs = append(errs, errors.New("OPEN_PULL_REQUEST needs GITHUB_TOKEN or GitHub App credentials"))
	}
	return errors.Join(errs...)
}

// HasGitHubApp reports whether GitHub App credentials are configured.
func (c Config) HasGitHubApp() bool {
	return c.GitHubAppID != 0 && c.GitHubInstallationID != 0 && c.GitHubPrivateKey != ""
}

func loadVersionConfig(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	cfg.RepoPath = getEnvOrDefault("REPO_PATH", cfg.RepoPath)
	cfg.NextVersionFile = getEnvOrDefault("NEXT_VERSION_FILE", cfg.NextVersionFile)
	cfg.MainBranch = getEnvOrDefault("MAIN_BRANCH", cfg.MainBranch)

	// Pull request builds check out a detached merge commit; GITHUB_HEAD_REF
	// carries the source branch there, GITHUB_REF_NAME everywhere else.
	cfg.CIBranch = getEnvOrDefault("GITHUB_HEAD_REF", os.Getenv("GITHUB_REF_NAME"))

	if v := os.Getenv("GITHUB_RUN_NUMBER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid GITHUB_RUN_NUMBER %q: must be a non-negative integer", v)
		}
		cfg.RunNumber = n
	}

	return nil
}

func loadGitOpsConfig(cfg *Config) error {
	cfg.GitOpsRepoURL = os.Getenv("GITOPS_REPO_URL")
	cfg.GitOpsBaseBranch = os.Getenv("GITOPS_BASE_BRANCH")
	cfg.GitOpsFolder = os.Getenv("GITOPS_FOLDER")
	cfg.GitHubToken = os.Getenv("GITHUB_TOKEN")
	cfg.GitAuthorName = os.Getenv("GIT_AUTHOR_NAME")
	cfg.GitAuthorEmail = os.Getenv("GIT_AUTHOR_EMAIL")

	dur, err := parseDurationOrDefault("GIT_TIMEOUT", cfg.GitTimeout)
	if err != nil {
		return err
	}
	cfg.GitTimeout = dur

	if v := os.Getenv("OPEN_PULL_REQUEST"); v != "" {
		open, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OPEN_PULL_REQUEST %q: %w", v, err)
		}
		cfg.OpenPullRequest = open
	}

	return nil
}

func loadGitHubAppConfig(cfg *Config) error {
	if os.Getenv("GITHUB_APP_ID") == "" {
		return nil // App auth is optional
	}

	var err error
	cfg.GitHubAppID, err = parseRequiredInt64("GITHUB_APP_ID")
	if err != nil {
		return err
	}

	cfg.GitHubInstallationID, err = parseRequiredInt64("GITHUB_INSTALLATION_ID")
	if err != nil {
		return err
	}

	cfg.GitHubPrivateKey = os.Getenv("GITHUB_PRIVATE_KEY")
	if cfg.GitHubPrivateKey == "" {
		return errors.New("GITHUB_PRIVATE_KEY is required when GITHUB_APP_ID is set")
	}

	return nil
}

func parseRequiredInt64(envKey string) (int64, error) {
	v := os.Getenv(envKey)
	if v == "" {
		return 0, fmt.Errorf("%s is required", envKey)
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, v, err)
	}
	return id, nil
}

func getEnvOrDefault(envKey, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return defaultValue
}

func loadOTelConfig(cfg *Config) {
	cfg.OTelEnabled = os.Getenv("OTEL_ENABLED") == "true"
}

func parseDurationOrDefault(envKey string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(envKey)
	if v == "" {
		return defaultValue, nil
	}
	dur, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, v, err)
	}
	return dur, nil
}
