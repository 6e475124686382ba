// Package gitrepo manages a remote git repository's working copy with
// go-git: clone, branch, commit and push.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// DefaultRemoteName is the remote created by Clone.
const DefaultRemoteName = "origin"

// Default commit identity when none is configured.
const (
	DefaultAuthorName  = "chart-release"
	DefaultAuthorEmail = "chart-release@users.noreply.github.com"
)

// ErrBranchExists is returned by CreateBranch when the branch already
// exists locally or on the remote.
var ErrBranchExists = errors.New("branch already exists")

// Options configures a GitRepo. Zero values fall back to the remote's
// default branch, anonymous access and the default author.
type Options struct {
	BaseBranch  string
	Token       string
	AuthorName  string
	AuthorEmail string
}

// GitRepo owns the clone/commit/push lifecycle for a single remote repository.
type GitRepo struct {
	repoURL    string
	baseBranch string
	auth       transport.AuthMethod
	authorName string
	authorMail string
	logger     *slog.Logger
}

// New creates a GitRepo. No I/O is performed; call Clone to fetch.
func New(repoURL string, opts Options, logger *slog.Logger) *GitRepo {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	r := &GitRepo{
		repoURL:    repoURL,
		baseBranch: opts.BaseBranch,
		auth:       tokenAuth(repoURL, opts.Token),
		authorName: opts.AuthorName,
		authorMail: opts.AuthorEmail,
		logger:     logger,
	}
	if r.authorName == "" {
		r.authorName = DefaultAuthorName
	}
	if r.authorMail == "" {
		r.authorMail = DefaultAuthorEmail
	}
	return r
}

// URL returns the remote repository URL.
func (r *GitRepo) URL() string {
	return r.repoURL
}

// tokenAuth returns HTTP basic auth for https remotes when a token is set.
// GitHub accepts any non-empty username alongside a token.
func tokenAuth(repoURL, token string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	ep, err := transport.NewEndpoint(repoURL)
	if err != nil || (ep.Protocol != "https" && ep.Protocol != "http") {
		return nil
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: token}
}

// Clone clones the repository into localPath, checking out the base branch
// when one is configured.
func (r *GitRepo) Clone(ctx context.Context, localPath string) (*git.Repository, error) {
	opts := &git.CloneOptions{
		URL:        r.repoURL,
		Auth:       r.auth,
		RemoteName: DefaultRemoteName,
	}
	if r.baseBranch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(r.baseBranch)
	}

	r.logger.Info("cloning repository", "repoURL", r.repoURL, "baseBranch", r.baseBranch)
	repo, err := git.PlainCloneContext(ctx, localPath, false, opts)
	if err != nil {
		return nil, fmt.Errorf("git clone failed: %w", err)
	}
	return repo, nil
}

// CreateBranch creates branch from HEAD and checks it out. It fails with
// ErrBranchExists if the branch exists locally or as a remote-tracking ref.
func (r *GitRepo) CreateBranch(repo *git.Repository, branch string) error {
	candidates := []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(branch),
		plumbing.NewRemoteReferenceName(DefaultRemoteName, branch),
	}
	for _, name := range candidates {
		_, err := repo.Reference(name, false)
		if err == nil {
			return fmt.Errorf("%w: %s", ErrBranchExists, name)
		}
		if !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return fmt.Errorf("looking up %s: %w", name, err)
		}
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: true,
		Keep:   true,
	}); err != nil {
		return fmt.Errorf("checking out %s: %w", branch, err)
	}
	return nil
}

// Commit stages exactly the given paths and commits them. Empty commits are
// allowed so a retried run still produces a new commit.
func (r *GitRepo) Commit(repo *git.Repository, message string, paths ...string) (plumbing.Hash, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("opening worktree: %w", err)
	}
	for _, p := range paths {
		if _, err := wt.Add(p); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("staging %s: %w", p, err)
		}
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  r.authorName,
			Email: r.authorMail,
			When:  time.Now(),
		},
		AllowEmptyCommits: true,
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("committing: %w", err)
	}
	return hash, nil
}

// Push pushes branch to the remote under the same name and records the
// remote as its upstream.
func (r *GitRepo) Push(ctx context.Context, repo *git.Repository, branch string) error {
	ref := plumbing.NewBranchReferenceName(branch)
	spec := gitconfig.RefSpec(fmt.Sprintf("%s:%s", ref, ref))

	r.logger.Info("pushing branch", "repoURL", r.repoURL, "branch", branch)
	err := repo.PushContext(ctx, &git.PushOptions{
		RemoteName: DefaultRemoteName,
		RefSpecs:   []gitconfig.RefSpec{spec},
		Auth:       r.auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("git push failed: %w", err)
	}

	return setUpstream(repo, branch)
}

func setUpstream(repo *git.Repository, branch string) error {
	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("reading repository config: %w", err)
	}
	cfg.Branches[branch] = &gitconfig.Branch{
		Name:   branch,
		Remote: DefaultRemoteName,
		Merge:  plumbing.NewBranchReferenceName(branch),
	}
	if err := repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("setting upstream for %s: %w", branch, err)
	}
	return nil
}
