// Package gitopsrepo implements the GitOps repository port on top of the
// platform gitrepo client, translating its failures into domain errors.
package gitopsrepo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5"

	"github.com/nathantilsley/chart-release/internal/platform/gitrepo"
	"github.com/nathantilsley/chart-release/internal/release/domain"
)

// Adapter implements ports.GitOpsRepoPort. Every Clone gets its own
// temporary directory.
type Adapter struct {
	repo   *gitrepo.GitRepo
	tmpDir string // parent for checkouts, os.TempDir() when empty
	logger *slog.Logger
}

// New creates a new GitOps repository adapter.
func New(repo *gitrepo.GitRepo, tmpDir string, logger *slog.Logger) *Adapter {
	return &Adapter{repo: repo, tmpDir: tmpDir, logger: logger}
}

// Clone clones the GitOps repository into a fresh temporary directory.
func (a *Adapter) Clone(ctx context.Context) (string, func(), error) {
	dir, err := os.MkdirTemp(a.tmpDir, "chart-release-gitops-*")
	if err != nil {
		return "", nil, fmt.Errorf("creating checkout directory: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			a.logger.Warn("failed to remove checkout", "dir", dir, "error", err)
		}
	}

	if _, err := a.repo.Clone(ctx, dir); err != nil {
		cleanup()
		return "", nil, &domain.GitNetworkError{Op: "clone", URL: a.repo.URL(), Err: err}
	}
	a.logger.Debug("gitops repository cloned", "dir", dir)
	return dir, cleanup, nil
}

// CreateBranch creates and checks out branch in the checkout at dir.
func (a *Adapter) CreateBranch(_ context.Context, dir, branch string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("opening checkout %s: %w", dir, err)
	}
	if err := a.repo.CreateBranch(repo, branch); err != nil {
		if errors.Is(err, gitrepo.ErrBranchExists) {
			return &domain.BranchAlreadyExistsError{Branch: branch}
		}
		return err
	}
	return nil
}

// CommitAndPush commits exactly paths and pushes branch with upstream tracking.
func (a *Adapter) CommitAndPush(ctx context.Context, dir, branch, message string, paths ...string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("opening checkout %s: %w", dir, err)
	}

	hash, err := a.repo.Commit(repo, message, paths...)
	if err != nil {
		return "", err
	}

	if err := a.repo.Push(ctx, repo, branch); err != nil {
		return "", &domain.GitNetworkError{Op: "push", URL: a.repo.URL(), Err: err}
	}
	return hash.String(), nil
}
