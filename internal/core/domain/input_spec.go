// Package domain contains the core domain models for digest-based staleness tracking.
package domain

import "slices"

// InputSpec declares everything that contributes to a digest.
//
// Files and ExtraStrings are folded in the order given; callers sort them
// when order should not matter. Directories are traversed recursively in
// sorted order.
type InputSpec struct {
	Files        []string
	Directories  []string
	ExtraStrings []string
	// Ignore lists base-name glob patterns skipped while walking Directories.
	Ignore []string
}

// IsEmpty reports whether the spec declares no inputs at all.
func (s InputSpec) IsEmpty() bool {
	return len(s.Files) == 0 && len(s.Directories) == 0 && len(s.ExtraStrings) == 0
}

// Clone returns a deep copy of the spec.
func (s InputSpec) Clone() InputSpec {
	return InputSpec{
		Files:        slices.Clone(s.Files),
		Directories:  slices.Clone(s.Directories),
		ExtraStrings: slices.Clone(s.ExtraStrings),
		Ignore:       slices.Clone(s.Ignore),
	}
}

// WithExtraStrings returns a copy of the spec with extra appended to ExtraStrings.
func (s InputSpec) WithExtraStrings(extra ...string) InputSpec {
	c := s.Clone()
	c.ExtraStrings = append(c.ExtraStrings, extra...)
	return c
}

// Digest is the fingerprint of an InputSpec, encoded as lowercase hex.
type Digest string

// String returns the hex form of the digest.
func (d Digest) String() string {
	return string(d)
}

// IsZero reports whether the digest is empty.
func (d Digest) IsZero() bool {
	return d == ""
}
