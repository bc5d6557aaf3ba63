package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stamp/internal/adapters/fs"
	"go.trai.ch/stamp/internal/core/domain"
)

func TestVerifier_VerifyOutputs(t *testing.T) {
	tmpDir := t.TempDir()
	verifier := fs.NewVerifier()

	out1 := filepath.Join(tmpDir, "out1.txt")
	out2 := filepath.Join(tmpDir, "out2.txt")
	require.NoError(t, os.WriteFile(out1, []byte("content"), domain.PrivateFilePerm))
	require.NoError(t, os.WriteFile(out2, []byte("content"), domain.PrivateFilePerm))

	// All outputs exist
	exists, err := verifier.VerifyOutputs([]string{out1, out2})
	require.NoError(t, err)
	assert.True(t, exists)

	// One output missing
	exists, err = verifier.VerifyOutputs([]string{out1, filepath.Join(tmpDir, "missing.txt")})
	require.NoError(t, err)
	assert.False(t, exists)

	// No outputs declared
	exists, err = verifier.VerifyOutputs(nil)
	require.NoError(t, err)
	assert.True(t, exists)
}
