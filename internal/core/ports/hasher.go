package ports

import "go.trai.ch/stamp/internal/core/domain"

// Hasher computes digests over declared inputs.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// ComputeDigest folds every file, directory tree and extra string of spec
	// into a single digest. It fails if any declared path is missing or unreadable.
	ComputeDigest(spec domain.InputSpec) (domain.Digest, error)
}
