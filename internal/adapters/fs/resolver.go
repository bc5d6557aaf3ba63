package fs

import (
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/stamp/internal/core/domain"
	"go.trai.ch/stamp/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.InputResolver = (*Resolver)(nil)

// Resolver implements the InputResolver interface using filepath.Glob.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// ResolveInputs expands the given patterns relative to root.
//
// Declared order is preserved: literal paths are kept where they appear and
// the matches of each glob are inserted sorted. Duplicates keep their first
// position. Literal paths are not checked for existence here; hashing reports
// missing inputs. A glob with no matches is an error.
func (r *Resolver) ResolveInputs(patterns []string, root string) ([]string, error) {
	seen := make(map[string]bool, len(patterns))
	result := make([]string, 0, len(patterns))

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			result = append(result, path)
		}
	}

	for _, pattern := range patterns {
		path := pattern
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, pattern)
		}

		if !hasMeta(pattern) {
			add(filepath.Clean(path))
			continue
		}

		matches, err := filepath.Glob(path)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to glob path"), "pattern", pattern)
		}
		if len(matches) == 0 {
			return nil, zerr.With(domain.ErrInputNotFound, "pattern", pattern)
		}

		slices.Sort(matches)
		for _, match := range matches {
			add(match)
		}
	}

	return result, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, `*?[\`)
}
