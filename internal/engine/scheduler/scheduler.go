// Package scheduler runs guarded actions in dependency order, skipping the fresh ones.
package scheduler

import (
	"context"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"go.trai.ch/stamp/internal/adapters/telemetry"
	"go.trai.ch/stamp/internal/core/domain"
	"go.trai.ch/stamp/internal/core/ports"
	"go.trai.ch/stamp/internal/engine/staleness"
	"go.trai.ch/zerr"
)

// Scheduler manages the execution of actions in the dependency graph.
type Scheduler struct {
	cache     *staleness.Cache
	executor  ports.Executor
	telemetry ports.Telemetry
	logger    ports.Logger

	mu           sync.RWMutex
	actionStatus map[string]domain.ActionStatus
}

// NewScheduler creates a new Scheduler. A nil telemetry records nothing.
func NewScheduler(
	cache *staleness.Cache,
	executor ports.Executor,
	tel ports.Telemetry,
	logger ports.Logger,
) *Scheduler {
	if tel == nil {
		tel = telemetry.NewNoOp()
	}
	return &Scheduler{
		cache:        cache,
		executor:     executor,
		telemetry:    tel,
		logger:       logger,
		actionStatus: make(map[string]domain.ActionStatus),
	}
}

// Statuses returns a snapshot of the status of every action seen by the last run.
func (s *Scheduler) Statuses() map[string]domain.ActionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.actionStatus)
}

func (s *Scheduler) updateStatus(name string, status domain.ActionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actionStatus[name] = status
}

// Run executes the targets and everything they depend on with the specified parallelism.
// An empty target list or the name "all" selects every action in the graph.
// When force is true every selected action runs regardless of its stamp.
//
// A failed action blocks its dependents; independent branches keep running.
func (s *Scheduler) Run(
	ctx context.Context,
	graph *domain.Graph,
	targetNames []string,
	parallelism int,
	force bool,
) error {
	if err := graph.Validate(); err != nil {
		return err
	}
	if len(targetNames) == 0 {
		targetNames = []string{"all"}
	}

	plan, err := graph.Closure(targetNames)
	if err != nil {
		return err
	}

	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	state := s.newRunState(ctx, plan, parallelism, force)
	return state.runExecutionLoop()
}

type result struct {
	action string
	err    error
	cached bool
	reason domain.Reason
}

type runState struct {
	s           *Scheduler
	ctx         context.Context
	plan        *domain.Graph
	inDegree    map[string]int
	ready       []string
	active      int
	resultsCh   chan result
	errs        error
	parallelism int
	force       bool
}

func (s *Scheduler) newRunState(ctx context.Context, plan *domain.Graph, parallelism int, force bool) *runState {
	s.mu.Lock()
	s.actionStatus = make(map[string]domain.ActionStatus, plan.ActionCount())
	s.mu.Unlock()

	state := &runState{
		s:           s,
		ctx:         ctx,
		plan:        plan,
		inDegree:    make(map[string]int, plan.ActionCount()),
		resultsCh:   make(chan result, parallelism),
		parallelism: parallelism,
		force:       force,
	}

	// Walk order makes the initial ready queue deterministic.
	for action := range plan.Walk() {
		s.updateStatus(action.Name, domain.ActionStatusPending)
		state.inDegree[action.Name] = len(action.Dependencies)
		if len(action.Dependencies) == 0 {
			state.ready = append(state.ready, action.Name)
		}
	}
	return state
}

func (state *runState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

func (state *runState) runExecutionLoop() error {
	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil && state.active == 0 {
			break
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
			if state.active > 0 {
				state.handleResult(<-state.resultsCh)
			}
		}
	}

	if err := state.ctx.Err(); err != nil {
		state.errs = errors.Join(state.errs, err)
	}
	if state.errs != nil {
		return errors.Join(domain.ErrBuildExecutionFailed, state.errs)
	}
	return nil
}

func (state *runState) schedule() {
	for len(state.ready) > 0 && state.active < state.parallelism && state.ctx.Err() == nil {
		name := state.ready[0]
		state.ready = state.ready[1:]

		state.active++
		state.s.updateStatus(name, domain.ActionStatusRunning)

		action, _ := state.plan.Get(name)
		go state.executeAction(action)
	}
}

func (state *runState) executeAction(action domain.Action) {
	res := func() result {
		ctx, vertex := state.s.telemetry.Record(state.ctx, action.Name)

		if err := os.MkdirAll(filepath.Dir(action.Stamp), domain.DirPerm); err != nil {
			err = errors.Join(
				domain.ErrStampWriteFailed,
				zerr.With(zerr.Wrap(err, "failed to create stamp directory"), "stamp", action.Stamp),
			)
			vertex.Complete(err)
			return result{action: action.Name, err: err}
		}

		opts := staleness.CheckOptions{Force: state.force, Outputs: action.Outputs}
		verdict, err := state.s.cache.RunIfStale(ctx, action.Inputs, action.Stamp, opts,
			func(ctx context.Context) error {
				vertex.Log(domain.LogLevelInfo, "stale, running: "+strings.Join(action.Command, " "))
				return state.s.executor.Execute(ctx, &action, vertex.Stdout(), vertex.Stderr())
			})
		if err != nil {
			vertex.Complete(err)
			return result{action: action.Name, err: err}
		}

		if !verdict.Stale {
			vertex.Cached()
			vertex.Complete(nil)
			return result{action: action.Name, cached: true}
		}

		vertex.Complete(nil)
		return result{action: action.Name, reason: verdict.Reason}
	}()

	state.resultsCh <- res
}

func (state *runState) handleResult(res result) {
	state.active--

	if res.err != nil {
		// Enhance error with action name
		enhancedErr := errors.Join(zerr.With(domain.ErrActionExecutionFailed, "action", res.action), res.err)
		state.errs = errors.Join(state.errs, enhancedErr)
		state.s.updateStatus(res.action, domain.ActionStatusFailed)
		state.s.logger.Error(enhancedErr)
		state.block(res.action)
		return
	}

	if res.cached {
		state.s.updateStatus(res.action, domain.ActionStatusCached)
		state.s.logger.Info("action up to date", "action", res.action)
	} else {
		state.s.updateStatus(res.action, domain.ActionStatusCompleted)
		state.s.logger.Info("action completed", "action", res.action, "reason", string(res.reason))
	}

	for _, dep := range state.plan.Dependents(res.action) {
		state.inDegree[dep]--
		if state.inDegree[dep] == 0 && state.status(dep) != domain.ActionStatusBlocked {
			state.ready = append(state.ready, dep)
		}
	}
}

// block marks every transitive dependent of a failed action as blocked.
func (state *runState) block(name string) {
	for _, dep := range state.plan.Dependents(name) {
		if state.status(dep) == domain.ActionStatusBlocked {
			continue
		}
		state.s.updateStatus(dep, domain.ActionStatusBlocked)
		state.s.logger.Warn("action blocked by failed dependency", "action", dep, "dependency", name)
		state.block(dep)
	}
}

func (state *runState) status(name string) domain.ActionStatus {
	state.s.mu.RLock()
	defer state.s.mu.RUnlock()
	return state.s.actionStatus[name]
}
