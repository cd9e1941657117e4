// Package vcs versions the wiki store with git.
//
// Every sync lands as a commit in the store repository, which gives
// the database a history that can be inspected, reverted, and pushed
// to a remote. The bump tooling also uses this package to read the
// last committed copy of a JSON document.
//
// The implementation is pure Go (go-git), so no git binary is needed
// on the machine running the sync.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Common errors returned by repository operations. Check them with
// errors.Is.
var (
	// ErrNotRepository is returned when a directory is not inside a
	// git repository.
	ErrNotRepository = errors.New("not a git repository")

	// ErrPushRejected is returned when the remote refused the push,
	// typically because it has commits the local branch does not.
	ErrPushRejected = errors.New("push rejected by remote")

	// ErrNoHead is returned when the repository has no commits yet.
	ErrNoHead = errors.New("repository has no commits")

	// ErrFileNotCommitted is returned by FileAtHead when the path does
	// not exist in the HEAD commit.
	ErrFileNotCommitted = errors.New("file not in HEAD commit")
)

// Author identifies who is recorded on commits.
type Author struct {
	Name  string
	Email string
}

// Repo wraps a go-git repository rooted at a working directory.
type Repo struct {
	dir  string
	repo *git.Repository
}

// Open opens the repository whose root is exactly dir.
func Open(dir string) (*Repo, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNotRepository)
		}
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return &Repo{dir: dir, repo: repo}, nil
}

// Find opens the repository containing dir, walking up through parent
// directories the way git itself does. The returned repo's Root is the
// repository's working directory, which may be above dir.
func Find(dir string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNotRepository)
		}
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	return &Repo{dir: wt.Filesystem.Root(), repo: repo}, nil
}

// Init creates a new repository at dir with main as the default
// branch.
func Init(dir string) (*Repo, error) {
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.Main},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}
	return &Repo{dir: dir, repo: repo}, nil
}

// OpenOrInit opens the repository at dir, initializing one if the
// directory is not a repository yet.
func OpenOrInit(dir string) (*Repo, error) {
	repo, err := Open(dir)
	if errors.Is(err, ErrNotRepository) {
		return Init(dir)
	}
	return repo, err
}

// Root returns the repository's working directory.
func (r *Repo) Root() string {
	return r.dir
}

// CommitAll stages every change in the working directory and commits
// it. Returns false with no error when there is nothing to commit.
func (r *Repo) CommitAll(message string, author Author) (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return false, fmt.Errorf("failed to stage changes: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get status: %w", err)
	}
	if status.IsClean() {
		return false, nil
	}

	_, err = wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author.Name,
			Email: author.Email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

// Push pushes branch to the named remote. A push the remote refuses
// as non-fast-forward comes back wrapping ErrPushRejected so callers
// can pull and retry. Force pushes skip that check on the remote.
func (r *Repo) Push(ctx context.Context, remote, branch string, force bool) error {
	if branch == "" {
		var err error
		if branch, err = r.headBranch(); err != nil {
			return err
		}
	}

	spec := fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch)
	if force {
		spec = "+" + spec
	}
	err := r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{config.RefSpec(spec)},
	})
	if err == nil || errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if isNonFastForward(err) {
		return fmt.Errorf("%w: %v", ErrPushRejected, err)
	}
	return fmt.Errorf("failed to push to %s: %w", remote, err)
}

// Pull fast-forwards branch from the named remote. go-git does not
// merge, so a pull into a branch that has its own commits fails; the
// error says so rather than leaving a half-merged tree.
func (r *Repo) Pull(ctx context.Context, remote, branch string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	opts := &git.PullOptions{RemoteName: remote}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}
	err = wt.PullContext(ctx, opts)
	if err == nil || errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if isNonFastForward(err) {
		return fmt.Errorf("local and remote histories have diverged; reconcile them manually or push with --force: %w", err)
	}
	return fmt.Errorf("failed to pull from %s: %w", remote, err)
}

// FileAtHead returns the content of a file as of the HEAD commit. The
// path is slash-separated and relative to Root.
func (r *Repo) FileAtHead(path string) ([]byte, error) {
	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, ErrNoHead
		}
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD commit: %w", err)
	}
	f, err := commit.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%s: %w", path, ErrFileNotCommitted)
		}
		return nil, fmt.Errorf("failed to read %s at HEAD: %w", path, err)
	}
	reader, err := f.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s at HEAD: %w", path, err)
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// SetRemote adds or replaces a remote. An empty url removes it.
// go-git has no set-url, so an existing remote is deleted and
// recreated.
func (r *Repo) SetRemote(name, url string) error {
	if url == "" {
		err := r.repo.DeleteRemote(name)
		if errors.Is(err, git.ErrRemoteNotFound) {
			return nil
		}
		return err
	}
	if _, err := r.repo.Remote(name); err == nil {
		if err := r.repo.DeleteRemote(name); err != nil {
			return fmt.Errorf("failed to replace remote %s: %w", name, err)
		}
	}
	_, err := r.repo.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("failed to create remote %s: %w", name, err)
	}
	return nil
}

// HasRemote reports whether the named remote is configured.
func (r *Repo) HasRemote(name string) bool {
	_, err := r.repo.Remote(name)
	return err == nil
}

func (r *Repo) headBranch() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", ErrNoHead
		}
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return ref.Name().Short(), nil
}

// isNonFastForward spots the rejection go-git reports when the remote
// ref moved past the local one. The sentinel covers pulls; pushes wrap
// a per-ref error that only carries the message text.
func isNonFastForward(err error) bool {
	if errors.Is(err, git.ErrNonFastForwardUpdate) {
		return true
	}
	return strings.Contains(err.Error(), "non-fast-forward")
}
