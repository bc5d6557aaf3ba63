package fs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/stamp/internal/core/domain"
	"go.trai.ch/stamp/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// blockSize is the chunk size used to stream file contents into the digest.
const blockSize = 32 * 1024

// Hasher computes xxHash64 digests over InputSpecs.
type Hasher struct {
	walker *Walker
}

// NewHasher creates a new Hasher.
func NewHasher(walker *Walker) *Hasher {
	return &Hasher{walker: walker}
}

// ComputeDigest folds spec into a digest in a fixed order:
//
//   - the content sum of each file in Files, in declared order;
//   - for each tree in Directories, every level in sorted pre-order: its
//     relative path, sorted sub-directory names, sorted file names, then the
//     content sum of each file;
//   - each entry of ExtraStrings, length-prefixed, in declared order.
//
// Sections are separated by a zero byte. File paths are not folded in, so the
// same checkout at another location yields the same digest.
func (h *Hasher) ComputeDigest(spec domain.InputSpec) (domain.Digest, error) {
	acc := xxhash.New()
	buf := make([]byte, blockSize)

	for _, path := range spec.Files {
		if err := h.foldFile(acc, path, buf); err != nil {
			return "", err
		}
	}
	_, _ = acc.Write([]byte{0}) // Section separator

	for _, dir := range spec.Directories {
		if err := h.foldDirectory(acc, dir, spec.Ignore, buf); err != nil {
			return "", err
		}
		_, _ = acc.Write([]byte{0})
	}
	_, _ = acc.Write([]byte{0})

	for _, s := range spec.ExtraStrings {
		if err := binary.Write(acc, binary.LittleEndian, uint64(len(s))); err != nil {
			return "", zerr.Wrap(err, "failed to write length to digest")
		}
		_, _ = acc.WriteString(s)
	}

	return domain.Digest(fmt.Sprintf("%016x", acc.Sum64())), nil
}

func (h *Hasher) foldFile(acc io.Writer, path string, buf []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return inputError(err, "failed to stat input", path)
	}
	if info.IsDir() {
		return zerr.With(
			errors.Join(domain.ErrUnreadableInput, zerr.New("declared file is a directory")),
			"path", path,
		)
	}

	sum, err := h.fileSum(path, buf)
	if err != nil {
		return err
	}
	return writeSum(acc, sum)
}

func (h *Hasher) foldDirectory(acc *xxhash.Digest, dir string, ignores []string, buf []byte) error {
	info, err := os.Stat(dir)
	if err != nil {
		return inputError(err, "failed to stat input", dir)
	}
	if !info.IsDir() {
		return zerr.With(
			errors.Join(domain.ErrUnreadableInput, zerr.New("declared directory is not a directory")),
			"path", dir,
		)
	}

	for level, err := range h.walker.WalkLevels(dir, ignores) {
		if err != nil {
			return err
		}

		_, _ = acc.WriteString(level.Rel)
		_, _ = acc.Write([]byte{0})

		for _, name := range level.SubDirs {
			_, _ = acc.WriteString(name)
			_, _ = acc.Write([]byte{0})
		}
		_, _ = acc.Write([]byte{0})

		for _, name := range level.Files {
			_, _ = acc.WriteString(name)
			_, _ = acc.Write([]byte{0})
		}
		_, _ = acc.Write([]byte{0})

		for _, name := range level.Files {
			sum, err := h.fileSum(filepath.Join(level.Dir, name), buf)
			if err != nil {
				return err
			}
			if err := writeSum(acc, sum); err != nil {
				return err
			}
		}
	}
	return nil
}

// fileSum streams the file through its own xxHash in blockSize chunks.
func (h *Hasher) fileSum(path string, buf []byte) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is declared by the caller
	if err != nil {
		return 0, inputError(err, "failed to open file", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	digest := xxhash.New()
	for {
		n, err := f.Read(buf)
		if n > 0 {
			_, _ = digest.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, errors.Join(
				domain.ErrUnreadableInput,
				zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path),
			)
		}
	}

	return digest.Sum64(), nil
}

func writeSum(acc io.Writer, sum uint64) error {
	if err := binary.Write(acc, binary.LittleEndian, sum); err != nil {
		return zerr.Wrap(err, "failed to write hash to digest")
	}
	return nil
}
