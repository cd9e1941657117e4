package datafile

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/davrico/lorevault/internal/catalog"
	"github.com/davrico/lorevault/internal/vcs"
)

// BumpResult reports what happened to one file.
type BumpResult struct {
	File    string
	Missing bool // file not on disk
	Bumped  int
	Skipped int // entries carrying last_updated that did not change
}

// Bump updates last_updated on entries of the given files (defaulting to
// TimestampedFiles) that differ from the snapshot committed at HEAD of the
// repository containing dataDir. Entries not yet committed always bump;
// committed entries without a last_updated field are left alone. Without a
// surrounding repository every entry counts as new.
func Bump(dataDir string, files []string, now int64) ([]BumpResult, error) {
	if len(files) == 0 {
		files = TimestampedFiles
	}

	repo, err := vcs.Find(dataDir)
	if err != nil && !errors.Is(err, vcs.ErrNotRepository) {
		return nil, err
	}

	results := make([]BumpResult, 0, len(files))
	for _, f := range files {
		f = normalizeFileName(f)
		res, err := bumpFile(dataDir, f, repo, now)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func bumpFile(dataDir, file string, repo *vcs.Repo, now int64) (BumpResult, error) {
	res := BumpResult{File: file}
	path := filepath.Join(dataDir, file)

	entries, err := catalog.LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			res.Missing = true
			return res, nil
		}
		return res, err
	}

	committed := committedEntries(repo, path, identityFor(file))

	identity := identityFor(file)
	for _, entry := range entries {
		old, tracked := committed[entry.Str(identity)]
		switch {
		case !tracked:
			// Not committed yet, always stamp.
		case !entry.Has("last_updated"):
			// Committed but never timestamped, not this tool's call.
			continue
		case entriesEqual(entry, old):
			res.Skipped++
			continue
		}
		entry["last_updated"] = now
		res.Bumped++
	}

	if err := Write(path, entries); err != nil {
		return res, err
	}
	return res, nil
}

// committedEntries reads the HEAD version of a data file from the repo.
// Any failure (no repo, file untracked, no commits, unparseable snapshot)
// yields an empty map, which makes every current entry look new.
func committedEntries(repo *vcs.Repo, path, identity string) map[string]catalog.Entity {
	if repo == nil {
		return nil
	}
	rel, err := filepath.Rel(repo.Root(), path)
	if err != nil {
		return nil
	}
	data, err := repo.FileAtHead(filepath.ToSlash(rel))
	if err != nil {
		return nil
	}
	entries, err := catalog.DecodeEntities(data)
	if err != nil {
		return nil
	}
	return indexByIdentity(entries, identity)
}
