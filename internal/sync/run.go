package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/davrico/lorevault/internal/catalog"
	"github.com/davrico/lorevault/internal/hashstore"
	"github.com/davrico/lorevault/internal/store"
	"github.com/davrico/lorevault/internal/vcs"
)

// DBFile is the SQLite database file name inside the store directory.
const DBFile = "wiki.db"

// HashFile is the hash store file name inside the data directory.
const HashFile = "hashes.json"

// Options configures one end-to-end sync run.
type Options struct {
	DataDir  string // JSON documents plus hashes.json
	StoreDir string // git-tracked directory holding the database
	Target   string // category name or "all"
	DryRun   bool
	Push     bool
	Force    bool

	Now    int64 // unix seconds; 0 means time.Now
	Out    io.Writer
	Logger *slog.Logger
}

// RunResult extends the sync Result with what happened to the store repo.
type RunResult struct {
	Result
	Committed bool
	Pushed    bool
}

// Run executes the whole pipeline: load the documents and hash store, sync
// into the database, then commit the store repository and optionally push.
// A dry run stops after the previews; nothing on disk changes.
func Run(ctx context.Context, opts Options) (*RunResult, error) {
	if opts.Target == "" {
		opts.Target = "all"
	}
	if opts.Now == 0 {
		opts.Now = time.Now().Unix()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	plan, err := catalog.Plan(opts.Target)
	if err != nil {
		return nil, err
	}

	hashes, err := hashstore.Load(filepath.Join(opts.DataDir, HashFile))
	if err != nil {
		return nil, fmt.Errorf("load hash store: %w", err)
	}

	db, err := store.Open(filepath.Join(opts.StoreDir, DBFile))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	syncer := New(db, hashes, Config{
		Now:    opts.Now,
		DryRun: opts.DryRun,
		Out:    opts.Out,
		Logger: logger,
	})
	if err := syncer.LoadDocuments(opts.DataDir, catalog.DocumentsFor(plan)); err != nil {
		return nil, err
	}

	result, err := syncer.Sync(ctx, opts.Target)
	if err != nil {
		return nil, err
	}
	run := &RunResult{Result: *result}
	if opts.DryRun {
		return run, nil
	}

	// Truncate the WAL so the committed database file stands alone.
	if err := db.Checkpoint(); err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}

	cfg, err := store.LoadConfig(opts.StoreDir)
	if err != nil {
		return nil, err
	}
	repo, err := vcs.Open(opts.StoreDir)
	if err != nil {
		if errors.Is(err, vcs.ErrNotRepository) {
			logger.Warn("store directory is not a git repository, skipping commit", "dir", opts.StoreDir)
			return run, nil
		}
		return nil, err
	}

	// The sidecars exist while our own connection is open; keep them out
	// of the commit.
	if err := store.EnsureGitignore(opts.StoreDir); err != nil {
		return nil, err
	}

	committed, err := repo.CommitAll(commitMessage(opts.Target, opts.Now), vcs.Author{
		Name:  cfg.Author.Name,
		Email: cfg.Author.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("commit store: %w", err)
	}
	run.Committed = committed
	if committed {
		logger.Info("committed store", "target", opts.Target)
	} else {
		logger.Info("store unchanged, nothing to commit")
	}

	if opts.Push {
		if err := pushWithRetry(ctx, repo, cfg, opts.Force, logger); err != nil {
			return nil, err
		}
		run.Pushed = true
	}
	return run, nil
}

// pushWithRetry pushes the store branch. When the remote is ahead it pulls
// once and retries, matching the manual fix an operator would apply.
func pushWithRetry(ctx context.Context, repo *vcs.Repo, cfg store.Config, force bool, logger *slog.Logger) error {
	err := repo.Push(ctx, cfg.Remote, cfg.Branch, force)
	if err == nil {
		return nil
	}
	if !errors.Is(err, vcs.ErrPushRejected) {
		return fmt.Errorf("push store: %w", err)
	}
	logger.Warn("remote is ahead, pulling and retrying push")
	if err := repo.Pull(ctx, cfg.Remote, cfg.Branch); err != nil {
		return fmt.Errorf("pull store: %w", err)
	}
	if err := repo.Push(ctx, cfg.Remote, cfg.Branch, force); err != nil {
		return fmt.Errorf("push store: %w", err)
	}
	return nil
}

func commitMessage(target string, now int64) string {
	stamp := time.Unix(now, 0).Format("2006-01-02 15:04:05")
	if target == "all" {
		return fmt.Sprintf("Sync all data from JSON (%s)", stamp)
	}
	return fmt.Sprintf("Sync %s from JSON (%s)", target, stamp)
}
