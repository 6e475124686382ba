package gitrepo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew(t *testing.T) {
	t.Parallel()

	repo := New("https://example.com/org/gitops.git", Options{BaseBranch: "main"}, nil)

	if repo.URL() != "https://example.com/org/gitops.git" {
		t.Errorf("URL() = %q", repo.URL())
	}
	if repo.baseBranch != "main" {
		t.Errorf("baseBranch = %q, want %q", repo.baseBranch, "main")
	}
	if repo.authorName != DefaultAuthorName || repo.authorMail != DefaultAuthorEmail {
		t.Errorf("author = %q <%q>, want defaults", repo.authorName, repo.authorMail)
	}
	if repo.auth != nil {
		t.Error("auth should be nil without a token")
	}
}

func TestTokenAuth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		token   string
		wantNil bool
	}{
		{name: "https with token", url: "https://github.com/org/gitops.git", token: "s3cr3t"},
		{name: "https without token", url: "https://github.com/org/gitops.git", wantNil: true},
		{name: "ssh ignores token", url: "git@github.com:org/gitops.git", token: "s3cr3t", wantNil: true},
		{name: "local path ignores token", url: "/srv/git/gitops.git", token: "s3cr3t", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			auth := tokenAuth(tt.url, tt.token)
			if tt.wantNil {
				if auth != nil {
					t.Errorf("tokenAuth() = %v, want nil", auth)
				}
				return
			}
			basic, ok := auth.(*githttp.BasicAuth)
			if !ok {
				t.Fatalf("tokenAuth() = %T, want *http.BasicAuth", auth)
			}
			if basic.Password != tt.token || basic.Username == "" {
				t.Errorf("unexpected credentials: %+v", basic)
			}
		})
	}
}

func TestCloneBranchCommitPush(t *testing.T) {
	t.Parallel()

	remoteDir := initRemote(t)
	r := New(remoteDir, Options{BaseBranch: "main", AuthorName: "Release Bot", AuthorEmail: "bot@example.com"}, discardLogger())

	ctx := context.Background()
	cloneDir := filepath.Join(t.TempDir(), "clone")
	repo, err := r.Clone(ctx, cloneDir)
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cloneDir, "README.md")); err != nil {
		t.Fatalf("expected README.md in clone: %v", err)
	}

	if err := r.CreateBranch(repo, "automated/svc-1.0.0"); err != nil {
		t.Fatalf("CreateBranch failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cloneDir, "values.yaml"), []byte("tag: 1.0.0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cloneDir, "stray.txt"), []byte("not staged\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	hash, err := r.Commit(repo, "chore: deploy", "values.yaml")
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if err := r.Push(ctx, repo, "automated/svc-1.0.0"); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	commit, err := repo.CommitObject(hash)
	if err != nil {
		t.Fatal(err)
	}
	if commit.Author.Name != "Release Bot" || commit.Author.Email != "bot@example.com" {
		t.Errorf("author = %s <%s>", commit.Author.Name, commit.Author.Email)
	}
	if _, err := commit.File("stray.txt"); err == nil {
		t.Error("unstaged file must not be committed")
	}
	if _, err := commit.File("values.yaml"); err != nil {
		t.Errorf("values.yaml missing from commit: %v", err)
	}

	remote, err := git.PlainOpen(remoteDir)
	if err != nil {
		t.Fatal(err)
	}
	ref, err := remote.Reference(plumbing.NewBranchReferenceName("automated/svc-1.0.0"), true)
	if err != nil {
		t.Fatalf("branch not on remote: %v", err)
	}
	if ref.Hash() != hash {
		t.Errorf("remote branch at %s, want %s", ref.Hash(), hash)
	}

	cfg, err := repo.Config()
	if err != nil {
		t.Fatal(err)
	}
	upstream := cfg.Branches["automated/svc-1.0.0"]
	if upstream == nil || upstream.Remote != DefaultRemoteName {
		t.Errorf("upstream not configured: %+v", upstream)
	}
}

func TestCommit_AllowsEmpty(t *testing.T) {
	t.Parallel()

	r := New(initRemote(t), Options{}, discardLogger())
	repo, err := r.Clone(context.Background(), filepath.Join(t.TempDir(), "clone"))
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}

	head, err := repo.Head()
	if err != nil {
		t.Fatal(err)
	}
	hash, err := r.Commit(repo, "chore: retry")
	if err != nil {
		t.Fatalf("empty Commit failed: %v", err)
	}
	if hash == head.Hash() {
		t.Error("expected a new commit")
	}
}

func TestCreateBranch_Exists(t *testing.T) {
	t.Parallel()

	remoteDir := initRemote(t)
	createRemoteBranch(t, remoteDir, "automated/taken")

	r := New(remoteDir, Options{}, discardLogger())
	repo, err := r.Clone(context.Background(), filepath.Join(t.TempDir(), "clone"))
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}

	if err := r.CreateBranch(repo, "automated/taken"); !errors.Is(err, ErrBranchExists) {
		t.Errorf("remote branch: err = %v, want ErrBranchExists", err)
	}

	if err := r.CreateBranch(repo, "automated/new"); err != nil {
		t.Fatalf("CreateBranch failed: %v", err)
	}
	if err := r.CreateBranch(repo, "automated/new"); !errors.Is(err, ErrBranchExists) {
		t.Errorf("local branch: err = %v, want ErrBranchExists", err)
	}
}

func TestClone_Unreachable(t *testing.T) {
	t.Parallel()

	r := New(filepath.Join(t.TempDir(), "missing.git"), Options{}, discardLogger())
	if _, err := r.Clone(context.Background(), filepath.Join(t.TempDir(), "clone")); err == nil {
		t.Fatal("expected clone of a missing repository to fail")
	}
}

// initRemote creates a bare repository with one commit on main.
func initRemote(t *testing.T) string {
	t.Helper()

	remoteDir := filepath.Join(t.TempDir(), "remote.git")
	if _, err := git.PlainInitWithOptions(remoteDir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("main")},
		Bare:        true,
	}); err != nil {
		t.Fatalf("init bare: %v", err)
	}

	seedDir := t.TempDir()
	seed, err := git.PlainInitWithOptions(seedDir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("main")},
	})
	if err != nil {
		t.Fatalf("init seed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(seedDir, "README.md"), []byte("gitops\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	commitFiles(t, seed, "init", "README.md")

	if _, err := seed.CreateRemote(&gitconfig.RemoteConfig{Name: DefaultRemoteName, URLs: []string{remoteDir}}); err != nil {
		t.Fatal(err)
	}
	if err := seed.Push(&git.PushOptions{
		RemoteName: DefaultRemoteName,
		RefSpecs:   []gitconfig.RefSpec{"refs/heads/main:refs/heads/main"},
	}); err != nil {
		t.Fatalf("seed push: %v", err)
	}
	return remoteDir
}

// createRemoteBranch points a new branch on the bare remote at its main.
func createRemoteBranch(t *testing.T, remoteDir, branch string) {
	t.Helper()

	remote, err := git.PlainOpen(remoteDir)
	if err != nil {
		t.Fatal(err)
	}
	mainRef, err := remote.Reference(plumbing.NewBranchReferenceName("main"), true)
	if err != nil {
		t.Fatal(err)
	}
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(branch), mainRef.Hash())
	if err := remote.Storer.SetReference(ref); err != nil {
		t.Fatal(err)
	}
}

func commitFiles(t *testing.T, repo *git.Repository, msg string, paths ...string) {
	t.Helper()
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range paths {
		if _, err := wt.Add(p); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	}); err != nil {
		t.Fatal(err)
	}
}
