package ports

import (
	"context"

	"github.com/nathantilsley/chart-release/internal/release/domain"
)

// RepoStatePort abstracts inspecting the local checkout being built.
type RepoStatePort interface {
	State(ctx context.Context) (domain.RepoState, error)
}

// OverridePort abstracts reading the NEXT_VERSION override. Implementations
// return an empty string when no override is present.
type OverridePort interface {
	NextVersion(ctx context.Context) (string, error)
}

// GitOpsRepoPort abstracts the externally owned GitOps repository. Each
// Clone yields a private checkout; the caller must invoke cleanup() when done.
type GitOpsRepoPort interface {
	Clone(ctx context.Context) (dir string, cleanup func(), err error)
	// CreateBranch creates and checks out a new branch, failing with
	// *domain.BranchAlreadyExistsError if it exists locally or on the remote.
	CreateBranch(ctx context.Context, dir, branch string) error
	// CommitAndPush stages only the given paths, commits (empty commits
	// allowed) and pushes the branch with upstream tracking.
	CommitAndPush(ctx context.Context, dir, branch, message string, paths ...string) (sha string, err error)
}

// ValuesPort abstracts reading and writing scalar paths in a values file.
type ValuesPort interface {
	Read(ctx context.Context, file string, paths []string) ([]domain.FieldValue, error)
	// Write sets every path to value and returns the file content before and
	// after the write. Absent paths are left untouched.
	Write(ctx context.Context, file string, paths []string, value string) (before, after []byte, err error)
}

// EnvironmentListerPort abstracts listing the environments a service has
// values files for.
type EnvironmentListerPort interface {
	ListEnvironments(ctx context.Context, dir, folderName string) ([]string, error)
}

// DiffPort abstracts computing a human-readable diff between two documents.
type DiffPort interface {
	ComputeDiff(baseName, headName string, base, head []byte) string
}

// PullRequestPort abstracts handing the pushed branch over for review.
type PullRequestPort interface {
	CompareURL(branch string) string
	Open(ctx context.Context, branch, title, body string) (url string, err error)
}
