package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stamp/internal/adapters/config"
	"go.trai.ch/stamp/internal/adapters/fs"
	"go.trai.ch/stamp/internal/adapters/stampstore"
	"go.trai.ch/stamp/internal/core/domain"
	"go.trai.ch/stamp/internal/core/ports/mocks"
	"go.trai.ch/stamp/internal/engine/staleness"
	"go.uber.org/mock/gomock"
)

func newLoader(t *testing.T) *config.Loader {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	// Allow any logging, as we are testing logic, not log calls
	mockLogger.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()
	return config.NewLoader(mockLogger, fs.NewResolver())
}

func createFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(t, os.WriteFile(path, []byte(content), domain.PrivateFilePerm))
	return path
}

func TestLoader_Load_Success(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, "a.txt", "hello")
	createFile(t, root, "include/b.h", "b")
	createFile(t, root, "include/a.h", "a")
	configPath := createFile(t, root, domain.ConfigFileName, `
version: "1"
actions:
  compile:
    files: ["a.txt", "include/*.h"]
    dirs: ["src"]
    extra: ["gcc -O2"]
    ignore: [".git"]
    outputs: ["out/a.o"]
    stamp: "out/compile.stamp"
    cmd: ["gcc", "-O2", "-c", "a.txt"]
    environment:
      CC: gcc
      AR: ar
    dependsOn: ["generate"]
  generate:
    extra: ["v1"]
`)

	g, err := newLoader(t).Load(configPath)
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	order := make([]string, 0, 2)
	for action := range g.Walk() {
		order = append(order, action.Name)
	}
	assert.Equal(t, []string{"generate", "compile"}, order)

	compile, ok := g.Get("compile")
	require.True(t, ok)

	rootAbs, err := filepath.Abs(root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(rootAbs, "a.txt"),
		filepath.Join(rootAbs, "include/a.h"),
		filepath.Join(rootAbs, "include/b.h"),
	}, compile.Inputs.Files)
	assert.Equal(t, []string{filepath.Join(rootAbs, "src")}, compile.Inputs.Directories)
	assert.Equal(t, []string{
		"gcc -O2",
		"\x00cmd:4", "gcc", "-O2", "-c", "a.txt",
		"\x00env:2", "AR=ar", "CC=gcc",
	}, compile.Inputs.ExtraStrings)
	assert.Equal(t, []string{".git"}, compile.Inputs.Ignore)
	assert.Equal(t, []string{filepath.Join(rootAbs, "out/a.o")}, compile.Outputs)
	assert.Equal(t, filepath.Join(rootAbs, "out/compile.stamp"), compile.Stamp)
	assert.Equal(t, []string{"gcc", "-O2", "-c", "a.txt"}, compile.Command)
	assert.Equal(t, rootAbs, compile.WorkingDir)
	assert.Equal(t, []string{"generate"}, compile.Dependencies)

	generate, ok := g.Get("generate")
	require.True(t, ok)
	assert.Equal(t, domain.DefaultStampPath(rootAbs, "generate"), generate.Stamp)
	assert.Equal(t, []string{"v1"}, generate.Inputs.ExtraStrings)
}

func TestLoader_Load_WorkingDir(t *testing.T) {
	root := t.TempDir()
	configPath := createFile(t, root, domain.ConfigFileName, `
version: "1"
actions:
  build:
    cmd: ["make"]
    workingDir: sub
`)

	g, err := newLoader(t).Load(configPath)
	require.NoError(t, err)

	action, ok := g.Get("build")
	require.True(t, ok)
	rootAbs, err := filepath.Abs(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(rootAbs, "sub"), action.WorkingDir)
}

func TestLoader_Load_MissingVersionWarns(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn(gomock.Any(), gomock.Any()).Times(1)
	mockLogger.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()

	root := t.TempDir()
	configPath := createFile(t, root, domain.ConfigFileName, `
actions:
  build:
    cmd: ["make"]
`)

	_, err := config.NewLoader(mockLogger, fs.NewResolver()).Load(configPath)
	require.NoError(t, err)
}

func TestLoader_Load_Errors(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		errContains string
	}{
		{
			name:        "malformed yaml",
			content:     "actions: [",
			errContains: domain.ErrConfigParseFailed.Error(),
		},
		{
			name: "unsupported version",
			content: `
version: "2"
actions: {}
`,
			errContains: domain.ErrUnsupportedConfigVersion.Error(),
		},
		{
			name: "reserved name",
			content: `
version: "1"
actions:
  all:
    cmd: ["true"]
`,
			errContains: domain.ErrReservedActionName.Error(),
		},
		{
			name: "missing dependency",
			content: `
version: "1"
actions:
  link:
    cmd: ["ld"]
    dependsOn: ["compile"]
`,
			errContains: domain.ErrMissingDependency.Error(),
		},
		{
			name: "cycle",
			content: `
version: "1"
actions:
  a:
    cmd: ["a"]
    dependsOn: ["b"]
  b:
    cmd: ["b"]
    dependsOn: ["a"]
`,
			errContains: domain.ErrCycleDetected.Error(),
		},
		{
			name: "duplicate stamp",
			content: `
version: "1"
actions:
  a:
    cmd: ["a"]
    stamp: shared.stamp
  b:
    cmd: ["b"]
    stamp: shared.stamp
`,
			errContains: domain.ErrDuplicateStamp.Error(),
		},
		{
			name: "no inputs",
			content: `
version: "1"
actions:
  empty: {}
`,
			errContains: domain.ErrEmptyInputSpec.Error(),
		},
		{
			name: "glob without matches",
			content: `
version: "1"
actions:
  build:
    files: ["*.nothing"]
`,
			errContains: domain.ErrInputNotFound.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := createFile(t, t.TempDir(), domain.ConfigFileName, tt.content)

			g, err := newLoader(t).Load(configPath)
			require.Error(t, err)
			require.ErrorContains(t, err, tt.errContains)
			assert.Nil(t, g)
		})
	}
}

func TestLoader_Load_MissingFile(t *testing.T) {
	_, err := newLoader(t).Load(filepath.Join(t.TempDir(), domain.ConfigFileName))
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrConfigReadFailed)
}

func TestLoader_Load_CommandChangesExtraStrings(t *testing.T) {
	load := func(cmd string) domain.InputSpec {
		root := t.TempDir()
		configPath := createFile(t, root, domain.ConfigFileName, `
version: "1"
actions:
  compile:
    extra: ["x"]
    cmd: ["gcc", "`+cmd+`"]
`)
		g, err := newLoader(t).Load(configPath)
		require.NoError(t, err)
		action, _ := g.Get("compile")
		return action.Inputs
	}

	assert.NotEqual(t, load("-O2").ExtraStrings, load("-O3").ExtraStrings)
}

func TestLoader_Load_ArgumentBoundariesChangeDigest(t *testing.T) {
	load := func(cmd string) domain.InputSpec {
		root := t.TempDir()
		configPath := createFile(t, root, domain.ConfigFileName, `
version: "1"
actions:
  touch:
    cmd: `+cmd+`
`)
		g, err := newLoader(t).Load(configPath)
		require.NoError(t, err)
		action, _ := g.Get("touch")
		return action.Inputs
	}

	joined := load(`["touch", "x y"]`)
	split := load(`["touch", "x", "y"]`)
	assert.NotEqual(t, joined.ExtraStrings, split.ExtraStrings)

	hasher := fs.NewHasher(fs.NewWalker())
	d1, err := hasher.ComputeDigest(joined)
	require.NoError(t, err)
	d2, err := hasher.ComputeDigest(split)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)

	// An empty argument still counts.
	assert.NotEqual(t, load(`["touch", "x"]`).ExtraStrings, load(`["touch", "x", ""]`).ExtraStrings)
}

func TestLoader_Load_CommandAndEnvironmentStayApart(t *testing.T) {
	load := func(body string) domain.InputSpec {
		root := t.TempDir()
		configPath := createFile(t, root, domain.ConfigFileName, "version: \"1\"\nactions:\n  a:\n"+body)
		g, err := newLoader(t).Load(configPath)
		require.NoError(t, err)
		action, _ := g.Get("a")
		return action.Inputs
	}

	withArg := load("    cmd: [\"env\", \"K=v\"]\n")
	withEnv := load("    cmd: [\"env\"]\n    environment: {K: v}\n")
	assert.NotEqual(t, withArg.ExtraStrings, withEnv.ExtraStrings)
}

func TestLoader_Load_StampIgnores(t *testing.T) {
	tests := []struct {
		name   string
		action string
		want   []string
	}{
		{
			name:   "default stamp below declared directory",
			action: `{dirs: ["."]}`,
			want:   []string{domain.StampDirName},
		},
		{
			name:   "custom stamp inside declared directory",
			action: `{dirs: ["out"], stamp: "out/build.stamp", ignore: ["*.log"]}`,
			want:   []string{"*.log", "build.stamp", "build.stamp.tmp.*"},
		},
		{
			name:   "stamp directory declared itself",
			action: `{dirs: [".stamps"]}`,
			want:   []string{"build.stamp", "build.stamp.tmp.*", "other.stamp", "other.stamp.tmp.*"},
		},
		{
			name:   "stamp outside declared directory",
			action: `{dirs: ["src"]}`,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			configPath := createFile(t, root, domain.ConfigFileName, `
version: "1"
actions:
  build: `+tt.action+`
  other:
    extra: ["x"]
`)
			g, err := newLoader(t).Load(configPath)
			require.NoError(t, err)
			build, ok := g.Get("build")
			require.True(t, ok)
			assert.Equal(t, tt.want, build.Inputs.Ignore)
		})
	}
}

func TestLoader_Load_StampInsideDeclaredDirectoryStaysFresh(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, "main.c", "int main(void) { return 0; }")
	configPath := createFile(t, root, domain.ConfigFileName, `
version: "1"
actions:
  build:
    dirs: ["."]
`)

	g, err := newLoader(t).Load(configPath)
	require.NoError(t, err)
	build, ok := g.Get("build")
	require.True(t, ok)

	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	cache := staleness.New(fs.NewHasher(fs.NewWalker()), stampstore.NewStore(), fs.NewVerifier(), mockLogger)

	require.NoError(t, os.MkdirAll(filepath.Dir(build.Stamp), domain.DirPerm))

	runs := 0
	for i := range 3 {
		verdict, err := cache.RunIfStale(context.Background(), build.Inputs, build.Stamp, staleness.CheckOptions{},
			func(context.Context) error {
				runs++
				return nil
			})
		require.NoError(t, err)
		if i == 0 {
			assert.Equal(t, domain.ReasonNoStamp, verdict.Reason)
		} else {
			assert.False(t, verdict.Stale, "run %d: %s", i, verdict.Reason)
		}
	}
	assert.Equal(t, 1, runs)

	// A temporary file left beside the stamp does not change the digest either.
	createFile(t, filepath.Dir(build.Stamp), "build.stamp.tmp.123", "partial")
	stale, err := cache.IsStale(build.Inputs, build.Stamp)
	require.NoError(t, err)
	assert.False(t, stale)

	createFile(t, root, "main.c", "int main(void) { return 1; }")
	stale, err = cache.IsStale(build.Inputs, build.Stamp)
	require.NoError(t, err)
	assert.True(t, stale)
}
