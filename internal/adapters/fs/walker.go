// Package fs provides file system adapters for walking, resolving and hashing inputs.
package fs

import (
	"errors"
	iofs "io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"

	"go.trai.ch/stamp/internal/core/domain"
	"go.trai.ch/zerr"
)

// Level is one directory visited by the Walker.
type Level struct {
	// Dir is the directory path, rooted at the walk root as given by the caller.
	Dir string
	// Rel is Dir relative to the walk root in slash form; "." for the root itself.
	Rel string
	// SubDirs holds the sorted names of child directories, including symlinked ones.
	SubDirs []string
	// Files holds the sorted names of child regular files.
	Files []string
}

// Walker provides deterministic directory traversal.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkLevels yields every directory under root depth-first in pre-order.
// Child names are sorted lexicographically at every level and children are
// visited in that order, so the sequence does not depend on the order the
// file system returns entries in. Symlinked directories are listed but not
// descended. Names matching any ignore pattern are skipped.
//
// On failure the iterator yields a single error and stops.
func (w *Walker) WalkLevels(root string, ignores []string) iter.Seq2[Level, error] {
	return func(yield func(Level, error) bool) {
		w.walk(root, ".", ignores, yield)
	}
}

func (w *Walker) walk(dir, rel string, ignores []string, yield func(Level, error) bool) bool {
	level, descend, err := w.readLevel(dir, rel, ignores)
	if err != nil {
		yield(Level{}, err)
		return false
	}
	if !yield(level, nil) {
		return false
	}

	for _, name := range descend {
		if !w.walk(filepath.Join(dir, name), pathJoinRel(rel, name), ignores, yield) {
			return false
		}
	}
	return true
}

// readLevel lists dir and classifies its children. descend holds the
// sub-directories that are real directories rather than symlinks.
func (w *Walker) readLevel(dir, rel string, ignores []string) (Level, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Level{}, nil, inputError(err, "failed to read directory", dir)
	}

	level := Level{Dir: dir, Rel: rel}
	var descend []string

	for _, entry := range entries {
		name := entry.Name()
		if w.isIgnored(name, ignores) {
			continue
		}

		switch {
		case entry.IsDir():
			level.SubDirs = append(level.SubDirs, name)
			descend = append(descend, name)
		case entry.Type().IsRegular():
			level.Files = append(level.Files, name)
		case entry.Type()&iofs.ModeSymlink != 0:
			isDir, err := symlinkTargetIsDir(filepath.Join(dir, name))
			if err != nil {
				return Level{}, nil, err
			}
			if isDir {
				level.SubDirs = append(level.SubDirs, name)
			} else {
				level.Files = append(level.Files, name)
			}
		default:
			return Level{}, nil, zerr.With(
				errors.Join(domain.ErrUnreadableInput, zerr.New("not a regular file or directory")),
				"path", filepath.Join(dir, name),
			)
		}
	}

	slices.Sort(level.SubDirs)
	slices.Sort(level.Files)
	slices.Sort(descend)

	return level, descend, nil
}

func symlinkTargetIsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, inputError(err, "failed to resolve symlink", path)
	}
	if !info.IsDir() && !info.Mode().IsRegular() {
		return false, zerr.With(
			errors.Join(domain.ErrUnreadableInput, zerr.New("symlink target is not a regular file or directory")),
			"path", path,
		)
	}
	return info.IsDir(), nil
}

// isIgnored checks if a base name matches any ignore pattern.
func (w *Walker) isIgnored(name string, ignores []string) bool {
	for _, ignore := range ignores {
		if matched, _ := filepath.Match(ignore, name); matched {
			return true
		}
	}
	return false
}

func pathJoinRel(rel, name string) string {
	if rel == "." {
		return name
	}
	return rel + "/" + name
}

// inputError classifies a file system failure on a declared input.
func inputError(err error, msg, path string) error {
	sentinel := domain.ErrUnreadableInput
	if errors.Is(err, iofs.ErrNotExist) {
		sentinel = domain.ErrInputNotFound
	}
	return errors.Join(sentinel, zerr.With(zerr.Wrap(err, msg), "path", path))
}
