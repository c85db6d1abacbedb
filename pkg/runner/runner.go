// Package runner implements the Runner status machine (spec.md §4.6): it
// drives a task's stages through the Asset Manager and Sandbox, reporting
// every transition, and guarantees exactly one terminal status is ever
// reported for a given run.
package runner

import (
	"context"
	"fmt"
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"

	"github.com/srunlabs/srun/pkg/asset"
	"github.com/srunlabs/srun/pkg/permission"
	"github.com/srunlabs/srun/pkg/reporter"
	"github.com/srunlabs/srun/pkg/sandbox"
	"github.com/srunlabs/srun/pkg/srunerr"
	"github.com/srunlabs/srun/pkg/status"
	"github.com/srunlabs/srun/pkg/task"
)

// Runner owns one task run end to end: it creates the Asset Manager's
// scratch directory, plans the task, and drives its stages through the
// Sandbox, reporting every status transition.
type Runner struct {
	Sandbox     *sandbox.Sandbox
	Reporter    reporter.Reporter
	Permissions permission.Set
	AssetOpts   asset.Options
	Log         *logrus.Entry

	mu     deadlock.Mutex
	status status.Status
	assets *asset.Manager
}

// New builds a Runner in the Start state.
func New(sb *sandbox.Sandbox, rep reporter.Reporter, perms permission.Set, assetOpts asset.Options, log *logrus.Entry) *Runner {
	return &Runner{
		Sandbox:     sb,
		Reporter:    rep,
		Permissions: perms,
		AssetOpts:   assetOpts,
		Log:         log,
		status:      status.StartStatus(),
	}
}

// Status returns the runner's current status.
func (r *Runner) Status() status.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Run drives t's stages through to completion, following the transition
// table in spec.md §4.6. It returns a srunerr.HandledError-wrapped failure
// (see srunerr.IsHandled) for any collaborator error, since by the time Run
// returns, the failure has already been reported via r.Reporter.
func (r *Runner) Run(ctx context.Context, t *task.Task) error {
	if err := r.transition(status.PrepareAssetsStatus()); err != nil {
		return r.handle(err)
	}

	am, err := asset.New(r.AssetOpts)
	if err != nil {
		return r.handle(err)
	}
	r.assets = am

	assets, stages, err := task.Plan(t)
	if err != nil {
		return r.handle(err)
	}

	if err := am.Prepare(ctx, assets); err != nil {
		return r.handle(err)
	}

	for _, stage := range stages {
		if err := r.runStage(ctx, stage); err != nil {
			return err
		}
	}

	if err := r.transition(status.SuccessStatus()); err != nil {
		return r.handle(err)
	}
	return nil
}

func (r *Runner) runStage(ctx context.Context, stage task.ResolvedStage) error {
	if err := r.transition(status.BuildStageScriptStatus(stage.Name)); err != nil {
		return r.handle(err)
	}

	imageID, err := r.Sandbox.Build(ctx, stage.Image, stage.Extend)
	if err != nil {
		return r.handle(err)
	}

	if err := r.transition(status.RunStageStatus(stage.Name)); err != nil {
		return r.handle(err)
	}

	runOpts := sandbox.RunOptions{
		Image:   imageID,
		Workdir: stage.Workdir,
		Script:  stage.Script,
		Envs:    stage.Envs,
		Mounts:  stage.Mounts,
	}
	if err := r.Sandbox.Run(ctx, runOpts, r.assets, r.Permissions, r.Reporter); err != nil {
		return r.handle(err)
	}

	return nil
}

// transition sets the status and reports it (the "ignore" side of the
// handle-or-ignore discipline: any reporter failure here is returned raw,
// never wrapped as already-handled, because it hasn't been reported).
func (r *Runner) transition(s status.Status) error {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()

	if r.Log != nil {
		r.Log.Debugf("status: %s", s)
	}
	if err := r.Reporter.ReportStatus(s, time.Now()); err != nil {
		return srunerr.Wrap(srunerr.IO, err, "report status transition")
	}
	return nil
}

// handle implements the "handle" side: transition to Error(debug_of_err)
// using ignore semantics (so a reporter failure during error reporting
// propagates raw instead of recursing), then return a HandledError wrapping
// the original cause so callers up the stack never re-report it.
func (r *Runner) handle(err error) error {
	if err == nil {
		return nil
	}

	se := asSrunError(err)
	if reportErr := r.transition(status.ErrorStatus(se.Error())); reportErr != nil {
		return reportErr
	}
	return srunerr.Handled(se)
}

func asSrunError(err error) *srunerr.Error {
	if se, ok := srunerr.As(err); ok {
		return se
	}
	return srunerr.Wrap(srunerr.Unknown, err, "%s", err.Error())
}

// Close finalizes the Runner, per spec.md §4.6: if the current status is
// already Error, do nothing (already reported); if the goroutine is
// unwinding due to a panic, do nothing and let it continue unwinding;
// otherwise transition to Success. It also releases the Asset Manager's
// scratch directory. Callers must defer Close() unconditionally, directly
// (not via a wrapping closure), for the panic check to observe an
// in-flight panic.
func (r *Runner) Close() error {
	if rec := recover(); rec != nil {
		if r.assets != nil {
			_ = r.assets.Close()
		}
		panic(rec)
	}

	r.mu.Lock()
	st := r.status
	r.mu.Unlock()

	var finalizeErr error
	if st.Kind != status.Error && st.Kind != status.Success {
		finalizeErr = r.transition(status.SuccessStatus())
	}

	if r.assets != nil {
		if err := r.assets.Close(); err != nil && finalizeErr == nil {
			finalizeErr = fmt.Errorf("close asset manager: %w", err)
		}
	}

	return finalizeErr
}
