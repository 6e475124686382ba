package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/nathantilsley/chart-release/internal/platform/cioutput"
	"github.com/nathantilsley/chart-release/internal/platform/config"
	"github.com/nathantilsley/chart-release/internal/platform/gitrepo"
	ghclient "github.com/nathantilsley/chart-release/internal/platform/github"
	"github.com/nathantilsley/chart-release/internal/platform/telemetry"
	envdiscovery "github.com/nathantilsley/chart-release/internal/release/adapters/env_discovery"
	githubout "github.com/nathantilsley/chart-release/internal/release/adapters/github_out"
	gitopsrepo "github.com/nathantilsley/chart-release/internal/release/adapters/gitops_repo"
	linediff "github.com/nathantilsley/chart-release/internal/release/adapters/line_diff"
	localgit "github.com/nathantilsley/chart-release/internal/release/adapters/local_git"
	nextversion "github.com/nathantilsley/chart-release/internal/release/adapters/next_version"
	yamlvalues "github.com/nathantilsley/chart-release/internal/release/adapters/yaml_values"
	"github.com/nathantilsley/chart-release/internal/release/app"
	"github.com/nathantilsley/chart-release/internal/release/ports"
)

// Container holds all application dependencies.
type Container struct {
	Config         config.Config
	Logger         *slog.Logger
	Telemetry      *telemetry.Telemetry
	Output         *cioutput.Writer
	ReleaseService ports.ReleaseUseCase
}

// NewContainer builds and wires all dependencies. The GitOps side is only
// wired when a GitOps repository is configured.
func NewContainer(ctx context.Context, cfg config.Config, log *slog.Logger) (*Container, error) {
	// Platform dependencies
	tel, err := telemetry.New(ctx, cfg.OTelEnabled)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	// Adapters
	nextVersionFile := cfg.NextVersionFile
	if !filepath.IsAbs(nextVersionFile) {
		nextVersionFile = filepath.Join(cfg.RepoPath, nextVersionFile)
	}
	repoState := localgit.New(cfg.RepoPath, cfg.CIBranch, log)
	override := nextversion.New(nextVersionFile, log)

	var (
		gitops ports.GitOpsRepoPort
		pr     ports.PullRequestPort
	)
	if cfg.GitOpsRepoURL != "" {
		client := gitrepo.New(cfg.GitOpsRepoURL, gitrepo.Options{
			BaseBranch:  cfg.GitOpsBaseBranch,
			Token:       cfg.GitHubToken,
			AuthorName:  cfg.GitAuthorName,
			AuthorEmail: cfg.GitAuthorEmail,
		}, log)
		gitops = gitopsrepo.New(client, "", log)

		apiClient, err := newGitHubClient(cfg)
		if err != nil {
			_ = tel.Shutdown(ctx)
			return nil, err
		}
		reviewer, err := githubout.New(apiClient, cfg.GitOpsRepoURL, cfg.GitOpsBaseBranch, log)
		if err != nil {
			_ = tel.Shutdown(ctx)
			return nil, fmt.Errorf("configuring pull requests: %w", err)
		}
		pr = reviewer
	}

	// Application service
	releaseService, err := app.NewReleaseService(
		repoState,
		override,
		gitops, // nil unless GITOPS_REPO_URL is set
		yamlvalues.New(),
		envdiscovery.New(),
		linediff.New(),
		pr,
		app.Settings{
			MainBranch: cfg.MainBranch,
			GitTimeout: cfg.GitTimeout,
		},
		tel.Meter,
		tel.Tracer,
		log,
	)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("creating release service: %w", err)
	}

	return &Container{
		Config:         cfg,
		Logger:         log,
		Telemetry:      tel,
		Output:         cioutput.New(cfg.OutputFile),
		ReleaseService: releaseService,
	}, nil
}

// newGitHubClient prefers GitHub App credentials and falls back to a token.
// Without either, pull requests cannot be opened but compare URLs still work.
func newGitHubClient(cfg config.Config) (*gogithub.Client, error) {
	switch {
	case cfg.HasGitHubApp():
		client, err := ghclient.NewClient(cfg.GitHubAppID, cfg.GitHubInstallationID, cfg.GitHubPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("creating github client: %w", err)
		}
		return client, nil
	case cfg.GitHubToken != "":
		return ghclient.NewTokenClient(cfg.GitHubToken), nil
	default:
		return nil, nil
	}
}
