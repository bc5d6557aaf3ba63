package scheduler_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stamp/internal/adapters/fs"
	"go.trai.ch/stamp/internal/adapters/logger"
	"go.trai.ch/stamp/internal/adapters/stampstore"
	"go.trai.ch/stamp/internal/core/domain"
	"go.trai.ch/stamp/internal/core/ports"
	"go.trai.ch/stamp/internal/core/ports/mocks"
	"go.trai.ch/stamp/internal/engine/scheduler"
	"go.trai.ch/stamp/internal/engine/staleness"
	"go.uber.org/mock/gomock"
)

func newCache() *staleness.Cache {
	return staleness.New(
		fs.NewHasher(fs.NewWalker()),
		stampstore.NewStore(),
		fs.NewVerifier(),
		logger.NewWithWriter(io.Discard),
	)
}

// createGraphHelper constructs a graph from a simple map of dependencies.
// deps format: "target" -> ["dep1", "dep2"].
func createGraphHelper(t *testing.T, deps map[string][]string) *domain.Graph {
	t.Helper()
	stampDir := t.TempDir()
	g := domain.NewGraph()
	for name, d := range deps {
		require.NoError(t, g.AddAction(&domain.Action{
			Name:         name,
			Inputs:       domain.InputSpec{ExtraStrings: []string{name}},
			Stamp:        domain.DefaultStampPath(stampDir, name),
			Command:      []string{"build", name},
			Dependencies: d,
		}))
	}
	return g
}

func setupScheduler(t *testing.T) (*scheduler.Scheduler, *mocks.MockExecutor) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockExec := mocks.NewMockExecutor(ctrl)
	return scheduler.NewScheduler(newCache(), mockExec, nil, logger.NewWithWriter(io.Discard)), mockExec
}

func TestScheduler_Run_OrderAndCache(t *testing.T) {
	s, mockExec := setupScheduler(t)
	g := createGraphHelper(t, map[string][]string{
		"link":     {"compile"},
		"compile":  {"generate"},
		"generate": nil,
	})

	var (
		mu    sync.Mutex
		order []string
	)
	mockExec.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, action *domain.Action, _, _ io.Writer) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, action.Name)
			return nil
		},
	).Times(3)

	require.NoError(t, s.Run(context.Background(), g, []string{"all"}, 4, false))
	assert.Equal(t, []string{"generate", "compile", "link"}, order)
	for name, status := range s.Statuses() {
		assert.Equal(t, domain.ActionStatusCompleted, status, name)
	}

	// Second run: every stamp is fresh, nothing executes.
	require.NoError(t, s.Run(context.Background(), g, nil, 4, false))
	assert.Len(t, order, 3)
	for name, status := range s.Statuses() {
		assert.Equal(t, domain.ActionStatusCached, status, name)
	}
}

func TestScheduler_Run_Force(t *testing.T) {
	s, mockExec := setupScheduler(t)
	g := createGraphHelper(t, map[string][]string{"only": nil})

	mockExec.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	require.NoError(t, s.Run(context.Background(), g, []string{"only"}, 1, false))
	require.NoError(t, s.Run(context.Background(), g, []string{"only"}, 1, true))
	assert.Equal(t, domain.ActionStatusCompleted, s.Statuses()["only"])
}

func TestScheduler_Run_Diamond_FailureBlocksDependents(t *testing.T) {
	s, mockExec := setupScheduler(t)
	// A depends on B and C, both depend on D.
	g := createGraphHelper(t, map[string][]string{
		"A": {"B", "C"},
		"B": {"D"},
		"C": {"D"},
		"D": nil,
	})

	mockExec.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, action *domain.Action, _, _ io.Writer) error {
			switch action.Name {
			case "B":
				return errors.New("B failed")
			case "A":
				t.Error("action A should not be executed")
			}
			return nil
		},
	).Times(3)

	err := s.Run(context.Background(), g, []string{"A"}, 4, false)
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrBuildExecutionFailed)
	require.ErrorContains(t, err, "B failed")

	statuses := s.Statuses()
	assert.Equal(t, domain.ActionStatusCompleted, statuses["D"])
	assert.Equal(t, domain.ActionStatusFailed, statuses["B"])
	assert.Equal(t, domain.ActionStatusCompleted, statuses["C"])
	assert.Equal(t, domain.ActionStatusBlocked, statuses["A"])

	b, _ := g.Get("B")
	_, statErr := os.Stat(b.Stamp)
	assert.True(t, os.IsNotExist(statErr), "a failed action must not be stamped")
}

func TestScheduler_Run_TargetClosure(t *testing.T) {
	s, mockExec := setupScheduler(t)
	g := createGraphHelper(t, map[string][]string{
		"app":  {"lib"},
		"lib":  nil,
		"docs": nil,
	})

	mockExec.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, action *domain.Action, _, _ io.Writer) error {
			assert.NotEqual(t, "docs", action.Name)
			return nil
		},
	).Times(2)

	require.NoError(t, s.Run(context.Background(), g, []string{"app"}, 2, false))
	assert.Len(t, s.Statuses(), 2)
}

func TestScheduler_Run_UnknownTarget(t *testing.T) {
	s, _ := setupScheduler(t)
	g := createGraphHelper(t, map[string][]string{"a": nil})

	err := s.Run(context.Background(), g, []string{"missing"}, 1, false)
	require.Error(t, err)
	require.ErrorContains(t, err, domain.ErrActionNotFound.Error())
}

func TestScheduler_Run_MissingInputFails(t *testing.T) {
	s, _ := setupScheduler(t)
	g := domain.NewGraph()
	require.NoError(t, g.AddAction(&domain.Action{
		Name:   "broken",
		Inputs: domain.InputSpec{Files: []string{filepath.Join(t.TempDir(), "missing.c")}},
		Stamp:  filepath.Join(t.TempDir(), "broken.stamp"),
	}))

	err := s.Run(context.Background(), g, nil, 1, false)
	require.ErrorIs(t, err, domain.ErrInputNotFound)
	assert.Equal(t, domain.ActionStatusFailed, s.Statuses()["broken"])
}

func TestScheduler_Run_Canceled(t *testing.T) {
	s, _ := setupScheduler(t)
	g := createGraphHelper(t, map[string][]string{"a": nil, "b": {"a"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Run(ctx, g, nil, 1, false)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.ActionStatusPending, s.Statuses()["a"])
}

func TestScheduler_Run_Parallelism(t *testing.T) {
	s, mockExec := setupScheduler(t)
	g := createGraphHelper(t, map[string][]string{"a": nil, "b": nil, "c": nil, "d": nil})

	var active, peak atomic.Int32
	mockExec.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *domain.Action, io.Writer, io.Writer) error {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
			return nil
		},
	).Times(4)

	require.NoError(t, s.Run(context.Background(), g, nil, 2, false))
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestScheduler_Run_Telemetry(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockExec := mocks.NewMockExecutor(ctrl)
	mockTel := mocks.NewMockTelemetry(ctrl)
	mockVertex := mocks.NewMockVertex(ctrl)

	mockTel.EXPECT().Record(gomock.Any(), "only").DoAndReturn(
		func(ctx context.Context, _ string) (context.Context, ports.Vertex) {
			return ports.ContextWithVertex(ctx, mockVertex), mockVertex
		},
	).Times(2)
	mockVertex.EXPECT().Stdout().Return(io.Discard).AnyTimes()
	mockVertex.EXPECT().Stderr().Return(io.Discard).AnyTimes()
	mockVertex.EXPECT().Log(domain.LogLevelInfo, gomock.Any()).Times(1)
	mockVertex.EXPECT().Complete(nil).Times(2)
	mockVertex.EXPECT().Cached().Times(1)
	mockExec.EXPECT().Execute(gomock.Any(), gomock.Any(), io.Discard, io.Discard).Return(nil).Times(1)

	s := scheduler.NewScheduler(newCache(), mockExec, mockTel, logger.NewWithWriter(io.Discard))
	g := createGraphHelper(t, map[string][]string{"only": nil})

	require.NoError(t, s.Run(context.Background(), g, nil, 1, false))
	require.NoError(t, s.Run(context.Background(), g, nil, 1, false))
}
