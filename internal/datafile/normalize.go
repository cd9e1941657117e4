package datafile

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/davrico/lorevault/internal/catalog"
	"github.com/davrico/lorevault/internal/vcs"
)

// NormalizeOptions selects what a normalize pass does. Both flags off is a
// plain canonical rewrite.
type NormalizeOptions struct {
	Sort       bool
	Timestamps bool
	Files      []string // default: every *.json in the data dir
	Now        int64
}

// NormalizeResult reports what happened to one file.
type NormalizeResult struct {
	File    string
	Missing bool
	Sorted  bool
	Bumped  int
	Skipped int
}

// Normalize rewrites data files in canonical form: entries sorted by their
// category's key (files with a hand-curated order are left as they are) and
// last_updated stamped on entries that changed relative to HEAD. Unlike
// Bump, entries missing a last_updated field get one.
func Normalize(dataDir string, opts NormalizeOptions) ([]NormalizeResult, error) {
	files := opts.Files
	if len(files) == 0 {
		var err error
		files, err = listDataFiles(dataDir)
		if err != nil {
			return nil, err
		}
	}

	var repo *vcs.Repo
	if opts.Timestamps {
		r, err := vcs.Find(dataDir)
		if err != nil && !errors.Is(err, vcs.ErrNotRepository) {
			return nil, err
		}
		repo = r
	}

	results := make([]NormalizeResult, 0, len(files))
	for _, f := range files {
		f = normalizeFileName(f)
		res, err := normalizeFile(dataDir, f, repo, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func normalizeFile(dataDir, file string, repo *vcs.Repo, opts NormalizeOptions) (NormalizeResult, error) {
	res := NormalizeResult{File: file}
	path := filepath.Join(dataDir, file)

	entries, err := catalog.LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			res.Missing = true
			return res, nil
		}
		return res, err
	}

	if opts.Timestamps {
		identity := identityFor(file)
		committed := committedEntries(repo, path, identity)
		for _, entry := range entries {
			if old, tracked := committed[entry.Str(identity)]; tracked &&
				entry.Has("last_updated") && entriesEqual(entry, old) {
				res.Skipped++
				continue
			}
			entry["last_updated"] = opts.Now
			res.Bumped++
		}
	}

	if opts.Sort {
		if doc, ok := catalog.DocumentByFile(file); ok && doc.Key != nil {
			catalog.SortEntities(entries, doc.Key)
			res.Sorted = true
		}
	}

	if err := Write(path, entries); err != nil {
		return res, err
	}
	return res, nil
}
