// Package app implements the application layer for stamp.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"text/tabwriter"

	"go.trai.ch/stamp/internal/core/domain"
	"go.trai.ch/stamp/internal/core/ports"
	"go.trai.ch/stamp/internal/engine/scheduler"
	"go.trai.ch/stamp/internal/engine/staleness"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	scheduler    *scheduler.Scheduler
	cache        *staleness.Cache
	store        ports.StampStore
	telemetry    ports.Telemetry
	logger       ports.Logger
	out          io.Writer
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	sched *scheduler.Scheduler,
	cache *staleness.Cache,
	store ports.StampStore,
	telemetry ports.Telemetry,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		scheduler:    sched,
		cache:        cache,
		store:        store,
		telemetry:    telemetry,
		logger:       log,
		out:          os.Stdout,
	}
}

// WithOutput redirects reports printed by Check and Digest.
func (a *App) WithOutput(w io.Writer) *App {
	a.out = w
	return a
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	ConfigPath string
	Force      bool
	Jobs       int
}

// ActionReport is the staleness verdict of one configured action.
type ActionReport struct {
	Name    string
	Stamp   string
	Verdict domain.Verdict
}

// Run executes the stale targets and their stale dependencies.
func (a *App) Run(ctx context.Context, targetNames []string, opts RunOptions) error {
	graph, err := a.load(opts.ConfigPath)
	if err != nil {
		return err
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	runErr := a.scheduler.Run(ctx, graph, targetNames, jobs, opts.Force)
	if closeErr := a.telemetry.Close(); closeErr != nil {
		a.logger.Warn("failed to close telemetry", "error", closeErr.Error())
	}
	return runErr
}

// Check reports which targets are stale without running or stamping anything.
// It returns ErrStaleActions when at least one is stale.
func (a *App) Check(ctx context.Context, configPath string, targetNames []string) ([]ActionReport, error) {
	actions, err := a.selectActions(configPath, targetNames)
	if err != nil {
		return nil, err
	}

	reports := make([]ActionReport, len(actions))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, action := range actions {
		g.Go(func() error {
			verdict, err := a.cache.Check(action.Inputs, action.Stamp, staleness.CheckOptions{Outputs: action.Outputs})
			if err != nil {
				return zerr.With(zerr.Wrap(err, "failed to check action"), "action", action.Name)
			}
			reports[i] = ActionReport{Name: action.Name, Stamp: action.Stamp, Verdict: verdict}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := a.printReports(reports); err != nil {
		return reports, err
	}

	for _, r := range reports {
		if r.Verdict.Stale {
			return reports, domain.ErrStaleActions
		}
	}
	return reports, nil
}

// Commit records the current digest of each target without running it.
func (a *App) Commit(ctx context.Context, configPath string, targetNames []string) error {
	actions, err := a.selectActions(configPath, targetNames)
	if err != nil {
		return err
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, action := range actions {
		g.Go(func() error {
			if err := os.MkdirAll(filepath.Dir(action.Stamp), domain.DirPerm); err != nil {
				return errors.Join(
					domain.ErrStampWriteFailed,
					zerr.With(zerr.Wrap(err, "failed to create stamp directory"), "stamp", action.Stamp),
				)
			}
			if err := a.cache.CommitDigest(action.Inputs, action.Stamp); err != nil {
				return err
			}
			a.logger.Info("committed stamp", "action", action.Name, "stamp", action.Stamp)
			return nil
		})
	}
	return g.Wait()
}

// Clean removes the stamps of the targets so they run on the next invocation.
func (a *App) Clean(_ context.Context, configPath string, targetNames []string) error {
	actions, err := a.selectActions(configPath, targetNames)
	if err != nil {
		return err
	}

	var errs error
	for _, action := range actions {
		if err := a.store.Remove(action.Stamp); err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		a.logger.Info("removed stamp", "action", action.Name, "stamp", action.Stamp)
	}
	return errs
}

// Digest prints the digest of an ad-hoc input set. When stampPath is set it
// also reports whether the set is stale against that stamp.
func (a *App) Digest(spec domain.InputSpec, stampPath string) (domain.Verdict, error) {
	if stampPath == "" {
		digest, err := a.cache.ComputeDigest(spec)
		if err != nil {
			return domain.Verdict{}, err
		}
		_, err = fmt.Fprintln(a.out, digest.String())
		return domain.Verdict{Current: digest}, err
	}

	verdict, err := a.cache.Check(spec, stampPath, staleness.CheckOptions{})
	if err != nil {
		return domain.Verdict{}, err
	}
	_, err = fmt.Fprintf(a.out, "%s\t%s\t%s\n", verdict.Current, staleLabel(verdict.Stale), verdict.Reason)
	return verdict, err
}

func (a *App) load(configPath string) (*domain.Graph, error) {
	if configPath == "" {
		configPath = domain.ConfigFileName
	}
	graph, err := a.configLoader.Load(configPath)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	return graph, nil
}

// selectActions returns the targets and their dependencies in execution order.
func (a *App) selectActions(configPath string, targetNames []string) ([]domain.Action, error) {
	graph, err := a.load(configPath)
	if err != nil {
		return nil, err
	}
	if len(targetNames) == 0 {
		targetNames = []string{"all"}
	}

	plan, err := graph.Closure(targetNames)
	if err != nil {
		return nil, err
	}

	actions := make([]domain.Action, 0, plan.ActionCount())
	for action := range plan.Walk() {
		actions = append(actions, action)
	}
	return actions, nil
}

func (a *App) printReports(reports []ActionReport) error {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, r := range reports {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", staleLabel(r.Verdict.Stale), r.Name, r.Verdict.Reason); err != nil {
			return zerr.Wrap(err, "failed to write report")
		}
	}
	if err := w.Flush(); err != nil {
		return zerr.Wrap(err, "failed to write report")
	}
	return nil
}

func staleLabel(stale bool) string {
	if stale {
		return "stale"
	}
	return "fresh"
}
