package e2e

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-github/v68/github"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/nathantilsley/chart-release/internal/platform/gitrepo"
	ghclient "github.com/nathantilsley/chart-release/internal/platform/github"
	"github.com/nathantilsley/chart-release/internal/platform/logger"
	envdiscovery "github.com/nathantilsley/chart-release/internal/release/adapters/env_discovery"
	githubout "github.com/nathantilsley/chart-release/internal/release/adapters/github_out"
	gitopsrepo "github.com/nathantilsley/chart-release/internal/release/adapters/gitops_repo"
	linediff "github.com/nathantilsley/chart-release/internal/release/adapters/line_diff"
	yamlvalues "github.com/nathantilsley/chart-release/internal/release/adapters/yaml_values"
	"github.com/nathantilsley/chart-release/internal/release/app"
	"github.com/nathantilsley/chart-release/internal/release/domain"
)

const (
	e2eTestEnvValue = "true"
	e2eFolder       = "chart-release-e2e"
)

// TestE2E_UpdateGitOpsOpensPullRequest pushes a qa values update to a real
// GitHub repository, opens the pull request, and cleans both up.
// Requires: GITHUB_TOKEN and E2E_TEST=true environment variables.
func TestE2E_UpdateGitOpsOpensPullRequest(t *testing.T) {
	if os.Getenv("E2E_TEST") != e2eTestEnvValue {
		t.Skip("Skipping E2E test. Set E2E_TEST=true to run.")
	}

	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		t.Fatal("GITHUB_TOKEN environment variable required for E2E tests")
	}

	// Test configuration
	owner := getEnvOrDefault("E2E_OWNER", "tilsley")
	repo := getEnvOrDefault("E2E_REPO", "chart-release-gitops")
	baseBranch := getEnvOrDefault("E2E_BASE_BRANCH", "main")
	repoURL := fmt.Sprintf("https://github.com/%s/%s.git", owner, repo)

	ctx := context.Background()
	client := ghclient.NewTokenClient(token)
	log := logger.New("info")

	valuesFile := domain.ValuesFilePath(domain.EnvQA, e2eFolder)
	t.Logf("Ensuring %s exists on %s/%s@%s", valuesFile, owner, repo, baseBranch)
	if err := ensureValuesFile(ctx, client, owner, repo, baseBranch, valuesFile); err != nil {
		t.Fatalf("failed to seed values file: %v", err)
	}

	pr, err := githubout.New(client, repoURL, baseBranch, log)
	if err != nil {
		t.Fatalf("creating PR adapter: %v", err)
	}
	gitops := gitopsrepo.New(gitrepo.New(repoURL, gitrepo.Options{BaseBranch: baseBranch, Token: token}, log), "", log)

	svc, err := app.NewReleaseService(
		nil, nil, gitops, yamlvalues.New(), envdiscovery.New(), linediff.New(), pr,
		app.Settings{GitTimeout: 2 * time.Minute},
		noopmetric.NewMeterProvider().Meter("e2e"),
		nooptrace.NewTracerProvider().Tracer("e2e"),
		log,
	)
	if err != nil {
		t.Fatalf("creating service: %v", err)
	}

	// Unique per run so the branch never already exists
	version := fmt.Sprintf("0.0.%d-rc-1", time.Now().Unix())
	result, err := svc.UpdateGitOps(ctx, domain.UpdateRequest{Version: version, FolderName: e2eFolder, OpenPR: true})
	if result.Branch != "" {
		defer cleanupBranch(ctx, client, owner, repo, result.Branch, t)
	}
	if err != nil {
		t.Fatalf("UpdateGitOps failed: %v", err)
	}
	t.Logf("Opened %s from %s", result.PullRequestURL, result.Branch)

	prs, _, err := client.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
		Head:  owner + ":" + result.Branch,
		State: "open",
	})
	if err != nil {
		t.Fatalf("listing PRs: %v", err)
	}
	if len(prs) != 1 {
		t.Fatalf("expected 1 open PR for %s, got %d", result.Branch, len(prs))
	}
	defer closePR(ctx, client, owner, repo, prs[0].GetNumber(), t)

	content, _, _, err := client.Repositories.GetContents(ctx, owner, repo, valuesFile,
		&github.RepositoryContentGetOptions{Ref: result.Branch})
	if err != nil {
		t.Fatalf("reading pushed values file: %v", err)
	}
	body, err := content.GetContent()
	if err != nil {
		t.Fatalf("decoding values file: %v", err)
	}
	if !strings.Contains(body, "tag: "+version) {
		t.Errorf("pushed values file does not carry %s:\n%s", version, body)
	}

	t.Logf("✓ E2E test passed: %s", result.PullRequestURL)
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func ensureValuesFile(ctx context.Context, client *github.Client, owner, repo, branch, path string) error {
	_, _, resp, err := client.Repositories.GetContents(ctx, owner, repo, path,
		&github.RepositoryContentGetOptions{Ref: branch})
	if err == nil {
		return nil
	}
	if resp == nil || resp.StatusCode != 404 {
		return err
	}
	_, _, err = client.Repositories.CreateFile(ctx, owner, repo, path, &github.RepositoryContentFileOptions{
		Message: github.Ptr("test: seed chart-release e2e values"),
		Content: []byte("image:\n  repository: ghcr.io/example/app\n  tag: 0.0.1\n"),
		Branch:  github.Ptr(branch),
	})
	return err
}

func closePR(ctx context.Context, client *github.Client, owner, repo string, prNumber int, t *testing.T) {
	t.Helper()
	t.Logf("Closing PR #%d", prNumber)
	_, _, err := client.PullRequests.Edit(ctx, owner, repo, prNumber, &github.PullRequest{
		State: github.Ptr("closed"),
	})
	if err != nil {
		t.Logf("Warning: failed to close PR: %v", err)
	}
}

func cleanupBranch(ctx context.Context, client *github.Client, owner, repo, branch string, t *testing.T) {
	t.Helper()
	t.Logf("Deleting branch %s", branch)
	_, err := client.Git.DeleteRef(ctx, owner, repo, "refs/heads/"+branch)
	if err != nil {
		t.Logf("Warning: failed to delete branch: %v", err)
	}
}
