package ports

import "go.trai.ch/stamp/internal/core/domain"

// StampStore persists the digest of the last successful run of a guarded action.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type StampStore interface {
	// Read returns the stamp at path. A missing file yields a record with Present == false.
	Read(path string) (domain.StampRecord, error)

	// Write replaces the stamp at path with digest. Readers never observe a partial write.
	Write(path string, digest domain.Digest) error

	// Remove deletes the stamp at path. Removing a missing stamp is not an error.
	Remove(path string) error
}
