package fs

import (
	"errors"
	iofs "io/fs"
	"os"

	"go.trai.ch/stamp/internal/core/domain"
	"go.trai.ch/stamp/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Verifier = (*Verifier)(nil)

// Verifier provides functionality to verify the existence of files.
type Verifier struct{}

// NewVerifier creates a new Verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// VerifyOutputs checks if all output paths exist.
// It returns true if all outputs exist, false otherwise.
func (v *Verifier) VerifyOutputs(outputs []string) (bool, error) {
	for _, output := range outputs {
		if _, err := os.Stat(output); err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				return false, nil
			}
			return false, zerr.With(zerr.Wrap(err, domain.ErrOutputStatFailed.Error()), "path", output)
		}
	}
	return true, nil
}
