package vcs

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var testAuthor = Author{Name: "lorevault", Email: "lorevault@localhost"}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
}

// requireFileTransport skips tests that push or pull over the local
// file transport, which go-git delegates to the git plumbing binaries.
func requireFileTransport(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git-receive-pack"); err != nil {
		t.Skip("git plumbing binaries not available")
	}
}

func initBareRemote(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		Bare:        true,
		InitOptions: git.InitOptions{DefaultBranch: plumbing.Main},
	})
	if err != nil {
		t.Fatalf("PlainInit() failed: %v", err)
	}
	return dir
}

func TestOpenOrInit_InitializesOnce(t *testing.T) {
	dir := t.TempDir()

	repo, err := OpenOrInit(dir)
	if err != nil {
		t.Fatalf("OpenOrInit() failed: %v", err)
	}
	if repo.Root() != dir {
		t.Errorf("Root() = %q, want %q", repo.Root(), dir)
	}

	if _, err := OpenOrInit(dir); err != nil {
		t.Fatalf("OpenOrInit() on existing repo failed: %v", err)
	}
	if _, err := Open(dir); err != nil {
		t.Fatalf("Open() on existing repo failed: %v", err)
	}
}

func TestOpen_NotRepository(t *testing.T) {
	_, err := Open(t.TempDir())
	if !errors.Is(err, ErrNotRepository) {
		t.Errorf("Open() error = %v, want ErrNotRepository", err)
	}
}

func TestCommitAll_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	repo, err := Init(dir)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	committed, err := repo.CommitAll("empty", testAuthor)
	if err != nil {
		t.Fatalf("CommitAll() failed: %v", err)
	}
	if committed {
		t.Error("CommitAll() on a clean tree reported a commit")
	}

	writeFile(t, dir, "data/factions.json", "[]\n")
	committed, err = repo.CommitAll("add factions", testAuthor)
	if err != nil {
		t.Fatalf("CommitAll() failed: %v", err)
	}
	if !committed {
		t.Error("CommitAll() did not commit a new file")
	}

	committed, err = repo.CommitAll("no changes", testAuthor)
	if err != nil {
		t.Fatalf("CommitAll() failed: %v", err)
	}
	if committed {
		t.Error("CommitAll() committed with nothing changed")
	}
}

func TestFileAtHead(t *testing.T) {
	dir := t.TempDir()
	repo, err := Init(dir)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	if _, err := repo.FileAtHead("data/factions.json"); !errors.Is(err, ErrNoHead) {
		t.Errorf("FileAtHead() before any commit = %v, want ErrNoHead", err)
	}

	writeFile(t, dir, "data/factions.json", `[{"name":"Emberfall"}]`)
	if _, err := repo.CommitAll("add factions", testAuthor); err != nil {
		t.Fatalf("CommitAll() failed: %v", err)
	}

	got, err := repo.FileAtHead("data/factions.json")
	if err != nil {
		t.Fatalf("FileAtHead() failed: %v", err)
	}
	if string(got) != `[{"name":"Emberfall"}]` {
		t.Errorf("FileAtHead() = %q", got)
	}

	if _, err := repo.FileAtHead("data/missing.json"); !errors.Is(err, ErrFileNotCommitted) {
		t.Errorf("FileAtHead() for missing path = %v, want ErrFileNotCommitted", err)
	}
}

func TestFind_FromNestedDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	sub := filepath.Join(dir, "data")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("MkdirAll() failed: %v", err)
	}

	repo, err := Find(sub)
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if repo.Root() != dir {
		t.Errorf("Root() = %q, want %q", repo.Root(), dir)
	}

	if _, err := Find(t.TempDir()); !errors.Is(err, ErrNotRepository) {
		t.Errorf("Find() outside a repo = %v, want ErrNotRepository", err)
	}
}

func TestSetRemote(t *testing.T) {
	repo, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	if repo.HasRemote("origin") {
		t.Error("fresh repo reports an origin remote")
	}
	if err := repo.SetRemote("origin", "/srv/wiki-store.git"); err != nil {
		t.Fatalf("SetRemote() failed: %v", err)
	}
	if !repo.HasRemote("origin") {
		t.Error("remote missing after SetRemote")
	}
	if err := repo.SetRemote("origin", "/srv/other.git"); err != nil {
		t.Fatalf("SetRemote() replace failed: %v", err)
	}
	if err := repo.SetRemote("origin", ""); err != nil {
		t.Fatalf("SetRemote() remove failed: %v", err)
	}
	if repo.HasRemote("origin") {
		t.Error("remote still present after removal")
	}
	if err := repo.SetRemote("gone", ""); err != nil {
		t.Fatalf("SetRemote() removing a missing remote failed: %v", err)
	}
}

func TestPush_ToLocalRemote(t *testing.T) {
	requireFileTransport(t)
	ctx := context.Background()
	bare := initBareRemote(t)

	dir := t.TempDir()
	repo, err := Init(dir)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if err := repo.SetRemote("origin", bare); err != nil {
		t.Fatalf("SetRemote() failed: %v", err)
	}
	writeFile(t, dir, "wiki.db", "db contents")
	if _, err := repo.CommitAll("sync", testAuthor); err != nil {
		t.Fatalf("CommitAll() failed: %v", err)
	}

	if err := repo.Push(ctx, "origin", "main", false); err != nil {
		t.Fatalf("Push() failed: %v", err)
	}
	// Pushing with nothing new is not an error.
	if err := repo.Push(ctx, "origin", "main", false); err != nil {
		t.Fatalf("second Push() failed: %v", err)
	}

	remote, err := git.PlainOpen(bare)
	if err != nil {
		t.Fatalf("PlainOpen(bare) failed: %v", err)
	}
	if _, err := remote.Reference(plumbing.Main, true); err != nil {
		t.Errorf("remote main branch missing after push: %v", err)
	}
}

func TestPush_RejectedWhenRemoteAhead(t *testing.T) {
	requireFileTransport(t)
	ctx := context.Background()
	bare := initBareRemote(t)

	dirA := t.TempDir()
	repoA, err := Init(dirA)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if err := repoA.SetRemote("origin", bare); err != nil {
		t.Fatalf("SetRemote() failed: %v", err)
	}
	writeFile(t, dirA, "wiki.db", "v1")
	if _, err := repoA.CommitAll("sync v1", testAuthor); err != nil {
		t.Fatalf("CommitAll() failed: %v", err)
	}
	if err := repoA.Push(ctx, "origin", "main", false); err != nil {
		t.Fatalf("Push() failed: %v", err)
	}

	// A second machine clones and lands a commit first.
	dirB := t.TempDir()
	if _, err := git.PlainClone(dirB, false, &git.CloneOptions{
		URL:           bare,
		ReferenceName: plumbing.Main,
	}); err != nil {
		t.Fatalf("PlainClone() failed: %v", err)
	}
	repoB, err := Open(dirB)
	if err != nil {
		t.Fatalf("Open(clone) failed: %v", err)
	}
	writeFile(t, dirB, "wiki.db", "v2 from B")
	if _, err := repoB.CommitAll("sync v2", testAuthor); err != nil {
		t.Fatalf("CommitAll() failed: %v", err)
	}
	if err := repoB.Push(ctx, "origin", "main", false); err != nil {
		t.Fatalf("Push() from clone failed: %v", err)
	}

	writeFile(t, dirA, "wiki.db", "v3 from A")
	if _, err := repoA.CommitAll("sync v3", testAuthor); err != nil {
		t.Fatalf("CommitAll() failed: %v", err)
	}
	err = repoA.Push(ctx, "origin", "main", false)
	if !errors.Is(err, ErrPushRejected) {
		t.Fatalf("Push() against a moved remote = %v, want ErrPushRejected", err)
	}

	if err := repoA.Push(ctx, "origin", "main", true); err != nil {
		t.Fatalf("forced Push() failed: %v", err)
	}
}

func TestPull_FastForward(t *testing.T) {
	requireFileTransport(t)
	ctx := context.Background()
	bare := initBareRemote(t)

	dirA := t.TempDir()
	repoA, err := Init(dirA)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if err := repoA.SetRemote("origin", bare); err != nil {
		t.Fatalf("SetRemote() failed: %v", err)
	}
	writeFile(t, dirA, "wiki.db", "v1")
	if _, err := repoA.CommitAll("sync v1", testAuthor); err != nil {
		t.Fatalf("CommitAll() failed: %v", err)
	}
	if err := repoA.Push(ctx, "origin", "main", false); err != nil {
		t.Fatalf("Push() failed: %v", err)
	}

	dirB := t.TempDir()
	if _, err := git.PlainClone(dirB, false, &git.CloneOptions{
		URL:           bare,
		ReferenceName: plumbing.Main,
	}); err != nil {
		t.Fatalf("PlainClone() failed: %v", err)
	}
	repoB, err := Open(dirB)
	if err != nil {
		t.Fatalf("Open(clone) failed: %v", err)
	}

	writeFile(t, dirA, "wiki.db", "v2")
	if _, err := repoA.CommitAll("sync v2", testAuthor); err != nil {
		t.Fatalf("CommitAll() failed: %v", err)
	}
	if err := repoA.Push(ctx, "origin", "main", false); err != nil {
		t.Fatalf("Push() failed: %v", err)
	}

	if err := repoB.Pull(ctx, "origin", "main"); err != nil {
		t.Fatalf("Pull() failed: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dirB, "wiki.db"))
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("pulled content = %q, want v2", got)
	}

	// A second pull is already up to date.
	if err := repoB.Pull(ctx, "origin", "main"); err != nil {
		t.Fatalf("second Pull() failed: %v", err)
	}
}
