// Package githubout hands a pushed GitOps branch over for review on GitHub:
// a compare URL always, and a pull request when asked to.
package githubout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	gogithub "github.com/google/go-github/v68/github"
)

// Adapter implements ports.PullRequestPort for a single GitHub repository.
type Adapter struct {
	client     *gogithub.Client
	webURL     string
	owner      string
	repo       string
	baseBranch string
	logger     *slog.Logger
}

// New creates a GitHub adapter for the repository at repoURL, which may be
// an https or ssh clone URL. client may be nil, in which case only
// CompareURL is available.
func New(client *gogithub.Client, repoURL, baseBranch string, logger *slog.Logger) (*Adapter, error) {
	host, owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		client:     client,
		webURL:     "https://" + host,
		owner:      owner,
		repo:       repo,
		baseBranch: baseBranch,
		logger:     logger,
	}, nil
}

// ParseRepoURL extracts host, owner and repository name from a clone URL.
func ParseRepoURL(repoURL string) (host, owner, repo string, err error) {
	ep, err := transport.NewEndpoint(repoURL)
	if err != nil {
		return "", "", "", fmt.Errorf("parsing repository URL %q: %w", repoURL, err)
	}
	parts := strings.Split(strings.Trim(ep.Path, "/"), "/")
	if ep.Host == "" || len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("repository URL %q is not of the form <host>/<owner>/<repo>", repoURL)
	}
	return ep.Host, parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

// CompareURL returns the page that opens a pull request for branch.
func (a *Adapter) CompareURL(branch string) string {
	if a.baseBranch == "" {
		return fmt.Sprintf("%s/%s/%s/pull/new/%s", a.webURL, a.owner, a.repo, branch)
	}
	return fmt.Sprintf("%s/%s/%s/compare/%s...%s?expand=1", a.webURL, a.owner, a.repo, a.baseBranch, branch)
}

// Open creates a pull request from branch into the base branch, or the
// repository's default branch when none is configured.
func (a *Adapter) Open(ctx context.Context, branch, title, body string) (string, error) {
	if a.client == nil {
		return "", errors.New("no GitHub API client configured")
	}

	base := a.baseBranch
	if base == "" {
		repo, _, err := a.client.Repositories.Get(ctx, a.owner, a.repo)
		if err != nil {
			return "", fmt.Errorf("looking up default branch of %s/%s: %w", a.owner, a.repo, err)
		}
		base = repo.GetDefaultBranch()
	}

	a.logger.Info("opening pull request", "repo", a.owner+"/"+a.repo, "head", branch, "base", base)
	pr, _, err := a.client.PullRequests.Create(ctx, a.owner, a.repo, &gogithub.NewPullRequest{
		Title: gogithub.Ptr(title),
		Head:  gogithub.Ptr(branch),
		Base:  gogithub.Ptr(base),
		Body:  gogithub.Ptr(body),
	})
	if err != nil {
		return "", fmt.Errorf("creating pull request: %w", err)
	}

	a.logger.Info("pull request opened", "number", pr.GetNumber(), "url", pr.GetHTMLURL())
	return pr.GetHTMLURL(), nil
}
