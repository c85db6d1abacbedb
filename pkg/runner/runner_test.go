package runner

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srunlabs/srun/internal/enginetest"
	"github.com/srunlabs/srun/pkg/asset"
	"github.com/srunlabs/srun/pkg/engine"
	"github.com/srunlabs/srun/pkg/permission"
	"github.com/srunlabs/srun/pkg/sandbox"
	"github.com/srunlabs/srun/pkg/srunerr"
	"github.com/srunlabs/srun/pkg/status"
	"github.com/srunlabs/srun/pkg/task"
)

type trackingReporter struct {
	statuses []status.Status
	stdout   []string
	stderr   []string
}

func (t *trackingReporter) ReportStatus(s status.Status, at time.Time) error {
	t.statuses = append(t.statuses, s)
	return nil
}

func (t *trackingReporter) ReportStdout(line string, at time.Time) error {
	t.stdout = append(t.stdout, line)
	return nil
}

func (t *trackingReporter) ReportStderr(line string, at time.Time) error {
	t.stderr = append(t.stderr, line)
	return nil
}

func newTestRunner(eng engine.Engine, rep *trackingReporter, perms permission.Set) *Runner {
	sb := sandbox.New(eng, logrus.NewEntry(logrus.New()), sandbox.Options{})
	return New(sb, rep, perms, asset.Options{}, logrus.NewEntry(logrus.New()))
}

func TestRunSingleStageReachesSuccess(t *testing.T) {
	fe := enginetest.New()
	fe.LogStream.Chunks = []engine.Chunk{
		{Kind: engine.ChunkStdout, Data: []byte(time.Now().Format(time.RFC3339Nano) + " hi\n")},
	}

	rep := &trackingReporter{}
	r := newTestRunner(fe, rep, permission.Default())
	defer r.Close()

	tk := &task.Task{Stages: []task.Stage{{Image: "busybox", Script: []string{"echo hi"}}}}
	err := r.Run(context.Background(), tk)
	require.NoError(t, err)

	kinds := statusKinds(rep.statuses)
	assert.Equal(t, []status.Kind{
		status.PrepareAssets,
		status.BuildStageScript,
		status.RunStage,
		status.Success,
	}, kinds)

	require.Len(t, rep.stdout, 1)
	assert.Equal(t, "hi", rep.stdout[0])
}

func TestRunNonZeroExitTransitionsToErrorAndIsHandled(t *testing.T) {
	fe := enginetest.New()
	fe.ExitCode = 7

	rep := &trackingReporter{}
	r := newTestRunner(fe, rep, permission.Default())
	defer r.Close()

	tk := &task.Task{Stages: []task.Stage{{Image: "busybox", Script: []string{"exit 7"}}}}
	err := r.Run(context.Background(), tk)
	require.Error(t, err)
	assert.True(t, srunerr.IsHandled(err))

	code, ok := srunerr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, uint64(7), code)

	kinds := statusKinds(rep.statuses)
	assert.Equal(t, []status.Kind{
		status.PrepareAssets,
		status.BuildStageScript,
		status.RunStage,
		status.Error,
	}, kinds)
}

func TestRunPermissionDeniedMountAbortsBeforeContainerCreated(t *testing.T) {
	fe := enginetest.New()

	perms := permission.FromOptions(permission.Options{
		AllowRead: []string{"/tmp/a"},
	})

	rep := &trackingReporter{}
	r := newTestRunner(fe, rep, perms)
	defer r.Close()

	tk := &task.Task{
		Mounts: map[string]string{"/in": "/tmp/b"},
		Stages: []task.Stage{{Image: "busybox", Script: []string{"true"}}},
	}
	err := r.Run(context.Background(), tk)
	require.Error(t, err)

	kind, ok := srunerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, srunerr.PermissionDenied, kind)
	assert.Contains(t, err.Error(), "read")
	assert.Contains(t, err.Error(), "/tmp/b")

	assert.Empty(t, fe.Created)
}

func TestRunDefaultsMergeAcrossStages(t *testing.T) {
	fe := enginetest.New()

	rep := &trackingReporter{}
	r := newTestRunner(fe, rep, permission.Default())
	defer r.Close()

	tk := &task.Task{
		Defaults: task.Stage{Image: "X"},
		Stages: []task.Stage{
			{Script: []string{"true"}},
			{Name: "two", Script: []string{"true"}},
		},
	}
	err := r.Run(context.Background(), tk)
	require.NoError(t, err)
	require.Len(t, fe.Created, 2)
}

func TestStatusTransitionsAreMonotoneAndTerminateOnce(t *testing.T) {
	fe := enginetest.New()
	rep := &trackingReporter{}
	r := newTestRunner(fe, rep, permission.Default())
	defer r.Close()

	tk := &task.Task{Stages: []task.Stage{{Image: "busybox", Script: []string{"true"}}}}
	require.NoError(t, r.Run(context.Background(), tk))

	terminalCount := 0
	for _, s := range rep.statuses {
		if s.Kind == status.Success || s.Kind == status.Error {
			terminalCount++
		}
	}
	assert.Equal(t, 1, terminalCount, "exactly one terminal status must be reported")
}

func statusKinds(statuses []status.Status) []status.Kind {
	kinds := make([]status.Kind, len(statuses))
	for i, s := range statuses {
		kinds[i] = s.Kind
	}
	return kinds
}
