// Package stampstore persists stamp files: one digest per guarded action.
package stampstore

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/stamp/internal/core/domain"
	"go.trai.ch/stamp/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.StampStore = (*Store)(nil)

// Store implements ports.StampStore with one plain-text file per stamp.
//
// A stamp file holds exactly the hex digest with no trailing newline.
// Concurrent writers to one path are not coordinated; each stamp path must
// have a single owner.
type Store struct{}

// NewStore creates a new Store.
func NewStore() *Store {
	return &Store{}
}

// Read returns the stamp recorded at path.
func (s *Store) Read(path string) (domain.StampRecord, error) {
	record := domain.StampRecord{Path: path}

	//nolint:gosec // Path is declared by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return record, nil
		}
		return record, errors.Join(
			domain.ErrStampReadFailed,
			zerr.With(zerr.Wrap(err, "failed to read stamp file"), "path", path),
		)
	}

	record.Digest = domain.Digest(bytes.TrimSpace(data))
	record.Present = true
	return record, nil
}

// Write atomically replaces the stamp at path with digest.
//
// The digest is written to a temporary file in the same directory, synced,
// and renamed over path, so readers observe either the old or the new stamp.
// The parent directory must already exist. On failure the previous stamp is
// left untouched.
func (s *Store) Write(path string, digest domain.Digest) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return writeError(err, "failed to create temporary stamp", path)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(digest.String()); err != nil {
		_ = tmp.Close()
		return writeError(err, "failed to write temporary stamp", path)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return writeError(err, "failed to sync temporary stamp", path)
	}
	if err := tmp.Chmod(domain.FilePerm); err != nil {
		_ = tmp.Close()
		return writeError(err, "failed to set stamp permissions", path)
	}
	if err := tmp.Close(); err != nil {
		return writeError(err, "failed to close temporary stamp", path)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return writeError(err, "failed to rename stamp into place", path)
	}
	committed = true
	return nil
}

// Remove deletes the stamp at path.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Join(
			domain.ErrStampRemoveFailed,
			zerr.With(zerr.Wrap(err, "failed to remove stamp file"), "path", path),
		)
	}
	return nil
}

func writeError(err error, msg, path string) error {
	return errors.Join(domain.ErrStampWriteFailed, zerr.With(zerr.Wrap(err, msg), "path", path))
}
