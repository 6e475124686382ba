// Package localgit inspects the checkout being built using go-git: its
// tags, current branch and the tag pointing at HEAD, if any.
package localgit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/nathantilsley/chart-release/internal/release/domain"
)

// Adapter implements ports.RepoStatePort on top of a go-git repository.
type Adapter struct {
	path string
	// fallbackBranch is used when HEAD is detached, as it is in CI pull
	// request checkouts.
	fallbackBranch string
	repo           *git.Repository
	logger         *slog.Logger
}

// New creates an adapter for the repository containing path. The
// repository is opened lazily on the first call to State.
func New(path, fallbackBranch string, logger *slog.Logger) *Adapter {
	return &Adapter{path: path, fallbackBranch: fallbackBranch, logger: logger}
}

// NewFromRepository creates an adapter around an already opened repository.
func NewFromRepository(repo *git.Repository, fallbackBranch string, logger *slog.Logger) *Adapter {
	return &Adapter{repo: repo, fallbackBranch: fallbackBranch, logger: logger}
}

// State returns every tag, the current branch and the exact tag at HEAD.
func (a *Adapter) State(ctx context.Context) (domain.RepoState, error) {
	repo, err := a.open()
	if err != nil {
		return domain.RepoState{}, err
	}

	head, err := repo.Head()
	if err != nil {
		return domain.RepoState{}, fmt.Errorf("resolving HEAD: %w", err)
	}

	tags, exact, err := a.tags(ctx, repo, head.Hash())
	if err != nil {
		return domain.RepoState{}, err
	}

	state := domain.RepoState{
		Tags:     tags,
		Branch:   a.branch(head),
		ExactTag: exact,
	}
	a.logger.Debug("local repository state",
		"tags", len(state.Tags),
		"branch", state.Branch,
		"exactTag", state.ExactTag,
		"head", head.Hash().String(),
	)
	return state, nil
}

func (a *Adapter) open() (*git.Repository, error) {
	if a.repo != nil {
		return a.repo, nil
	}
	repo, err := git.PlainOpenWithOptions(a.path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening git repository at %s: %w", a.path, err)
	}
	a.repo = repo
	return repo, nil
}

func (a *Adapter) branch(head *plumbing.Reference) string {
	if head.Name().IsBranch() {
		return head.Name().Short()
	}
	if a.fallbackBranch != "" {
		return a.fallbackBranch
	}
	a.logger.Warn("HEAD is detached and no branch name was provided", "fallback", domain.UnknownBranch)
	return domain.UnknownBranch
}

// tags lists tag names and picks the highest one whose commit is headHash.
// Annotated tags are peeled to the commit they point at.
func (a *Adapter) tags(ctx context.Context, repo *git.Repository, headHash plumbing.Hash) ([]string, string, error) {
	iter, err := repo.Tags()
	if err != nil {
		return nil, "", fmt.Errorf("listing tags: %w", err)
	}
	defer iter.Close()

	var (
		names []string
		exact string
	)
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := ref.Name().Short()
		names = append(names, name)

		target, err := peel(repo, ref)
		if err != nil {
			a.logger.Warn("skipping unresolvable tag", "tag", name, "error", err)
			return nil
		}
		if target == headHash && (exact == "" || domain.CompareVersions(name, exact) > 0) {
			exact = name
		}
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("iterating tags: %w", err)
	}
	return names, exact, nil
}

func peel(repo *git.Repository, ref *plumbing.Reference) (plumbing.Hash, error) {
	tag, err := repo.TagObject(ref.Hash())
	switch {
	case err == nil:
		commit, err := tag.Commit()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return commit.Hash, nil
	case errors.Is(err, plumbing.ErrObjectNotFound):
		// Lightweight tag: the ref points straight at the commit.
		return ref.Hash(), nil
	default:
		return plumbing.ZeroHash, err
	}
}
