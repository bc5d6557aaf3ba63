package app_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stamp/internal/adapters/fs"
	"go.trai.ch/stamp/internal/adapters/logger"
	"go.trai.ch/stamp/internal/adapters/stampstore"
	"go.trai.ch/stamp/internal/adapters/telemetry"
	"go.trai.ch/stamp/internal/app"
	"go.trai.ch/stamp/internal/core/domain"
	"go.trai.ch/stamp/internal/core/ports/mocks"
	"go.trai.ch/stamp/internal/engine/scheduler"
	"go.trai.ch/stamp/internal/engine/staleness"
	"go.uber.org/mock/gomock"
)

type appFixture struct {
	app      *app.App
	loader   *mocks.MockConfigLoader
	executor *mocks.MockExecutor
	out      *bytes.Buffer
	graph    *domain.Graph
	dir      string
}

// newAppFixture wires the real staleness stack around mocked loader and executor.
// The graph holds "compile" (reads a.txt) depending on "generate".
func newAppFixture(t *testing.T) appFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	executor := mocks.NewMockExecutor(ctrl)

	log := logger.NewWithWriter(io.Discard)
	store := stampstore.NewStore()
	cache := staleness.New(fs.NewHasher(fs.NewWalker()), store, fs.NewVerifier(), log)
	sched := scheduler.NewScheduler(cache, executor, telemetry.NewNoOp(), log)

	dir := t.TempDir()
	input := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(input, []byte("hello"), domain.PrivateFilePerm))

	g := domain.NewGraph()
	require.NoError(t, g.AddAction(&domain.Action{
		Name:         "compile",
		Inputs:       domain.InputSpec{Files: []string{input}, ExtraStrings: []string{"gcc -O2"}},
		Stamp:        domain.DefaultStampPath(dir, "compile"),
		Command:      []string{"gcc", "-O2"},
		Dependencies: []string{"generate"},
	}))
	require.NoError(t, g.AddAction(&domain.Action{
		Name:   "generate",
		Inputs: domain.InputSpec{ExtraStrings: []string{"gen"}},
		Stamp:  domain.DefaultStampPath(dir, "generate"),
	}))
	loader.EXPECT().Load(domain.ConfigFileName).Return(g, nil).AnyTimes()

	out := &bytes.Buffer{}
	a := app.New(loader, sched, cache, store, telemetry.NewNoOp(), log).WithOutput(out)
	return appFixture{app: a, loader: loader, executor: executor, out: out, graph: g, dir: dir}
}

func TestApp_Run(t *testing.T) {
	f := newAppFixture(t)
	f.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	require.NoError(t, f.app.Run(context.Background(), []string{"compile"}, app.RunOptions{Jobs: 2}))

	// Everything is fresh now.
	require.NoError(t, f.app.Run(context.Background(), nil, app.RunOptions{}))
}

func TestApp_Run_ConfigError(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load("custom.yaml").Return(nil, errors.New("config load error"))

	log := logger.NewWithWriter(io.Discard)
	a := app.New(loader, nil, nil, nil, telemetry.NewNoOp(), log)

	err := a.Run(context.Background(), nil, app.RunOptions{ConfigPath: "custom.yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestApp_Check(t *testing.T) {
	f := newAppFixture(t)

	reports, err := f.app.Check(context.Background(), "", nil)
	require.ErrorIs(t, err, domain.ErrStaleActions)
	require.Len(t, reports, 2)
	assert.Equal(t, "generate", reports[0].Name)
	assert.Equal(t, "compile", reports[1].Name)
	assert.Equal(t, domain.ReasonNoStamp, reports[1].Verdict.Reason)
	assert.Contains(t, f.out.String(), "stale")

	// Check must not write any stamp.
	_, statErr := os.Stat(filepath.Join(f.dir, domain.StampDirName))
	assert.True(t, os.IsNotExist(statErr))

	require.NoError(t, f.app.Commit(context.Background(), "", nil))

	f.out.Reset()
	reports, err = f.app.Check(context.Background(), "", []string{"compile"})
	require.NoError(t, err)
	for _, r := range reports {
		assert.False(t, r.Verdict.Stale, r.Name)
	}
	assert.Equal(t, 2, strings.Count(f.out.String(), "fresh"))
}

func TestApp_Check_UnknownTarget(t *testing.T) {
	f := newAppFixture(t)

	_, err := f.app.Check(context.Background(), "", []string{"deploy"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrActionNotFound.Error())
}

func TestApp_Check_MissingInput(t *testing.T) {
	f := newAppFixture(t)
	require.NoError(t, os.Remove(filepath.Join(f.dir, "a.txt")))

	_, err := f.app.Check(context.Background(), "", []string{"compile"})
	require.ErrorIs(t, err, domain.ErrInputNotFound)
}

func TestApp_Clean(t *testing.T) {
	f := newAppFixture(t)
	require.NoError(t, f.app.Commit(context.Background(), "", nil))

	require.NoError(t, f.app.Clean(context.Background(), "", []string{"generate"}))

	generate, _ := f.graph.Get("generate")
	_, err := os.Stat(generate.Stamp)
	assert.True(t, os.IsNotExist(err))

	compile, _ := f.graph.Get("compile")
	_, err = os.Stat(compile.Stamp)
	require.NoError(t, err)

	// Cleaning again is not an error.
	require.NoError(t, f.app.Clean(context.Background(), "", nil))
}

func TestApp_Digest(t *testing.T) {
	f := newAppFixture(t)
	input := filepath.Join(f.dir, "a.txt")
	spec := domain.InputSpec{Files: []string{input}, ExtraStrings: []string{"gcc -O2"}}

	verdict, err := f.app.Digest(spec, "")
	require.NoError(t, err)
	assert.Equal(t, verdict.Current.String()+"\n", f.out.String())

	stamp := filepath.Join(f.dir, "adhoc.stamp")
	f.out.Reset()
	verdict, err = f.app.Digest(spec, stamp)
	require.NoError(t, err)
	assert.True(t, verdict.Stale)
	assert.Contains(t, f.out.String(), "stale")
}
