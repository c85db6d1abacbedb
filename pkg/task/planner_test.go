package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanSynthesizesSingleStageWhenAbsent(t *testing.T) {
	assets, stages, err := Plan(&Task{})
	require.NoError(t, err)
	assert.Empty(t, assets)
	require.Len(t, stages, 1)
	assert.Equal(t, "stage-0", stages[0].Name)
	assert.Equal(t, "/workspace", stages[0].Workdir)
	assert.Equal(t, "", stages[0].Image)
	assert.Empty(t, stages[0].Script)
}

func TestPlanMergesDefaults(t *testing.T) {
	tk := &Task{
		Defaults: Stage{Image: "X"},
		Stages: []Stage{
			{Script: []string{"true"}},
			{Name: "two", Script: []string{"true"}},
		},
	}

	_, stages, err := Plan(tk)
	require.NoError(t, err)
	require.Len(t, stages, 2)

	assert.Equal(t, "stage-0", stages[0].Name)
	assert.Equal(t, "X", stages[0].Image)
	assert.Equal(t, "two", stages[1].Name)
	assert.Equal(t, "X", stages[1].Image)
}

func TestPlanRoundTripsFullyPopulatedStage(t *testing.T) {
	stage := Stage{
		Name:    "full",
		Image:   "busybox",
		Extend:  []string{"apk add curl"},
		Workdir: "/srv",
		Script:  []string{"echo hi"},
		Envs:    map[string]string{"FOO": "bar"},
	}
	tk := &Task{
		Stages: []Stage{stage},
		Mounts: map[string]string{"/in": "/tmp/in"},
	}

	_, stages, err := Plan(tk)
	require.NoError(t, err)
	require.Len(t, stages, 1)

	got := stages[0]
	assert.Equal(t, stage.Name, got.Name)
	assert.Equal(t, stage.Image, got.Image)
	assert.Equal(t, stage.Extend, got.Extend)
	assert.Equal(t, stage.Workdir, got.Workdir)
	assert.Equal(t, stage.Script, got.Script)
	assert.Equal(t, stage.Envs, got.Envs)
	assert.Equal(t, tk.Mounts, got.Mounts)
}

func TestPlanIsDeterministic(t *testing.T) {
	tk := &Task{
		Defaults: Stage{Image: "X"},
		Stages:   []Stage{{Script: []string{"true"}}},
	}

	_, first, err := Plan(tk)
	require.NoError(t, err)
	_, second, err := Plan(tk)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPlanCopiesMountsToEveryStage(t *testing.T) {
	tk := &Task{
		Mounts: map[string]string{"/in": "/tmp/in"},
		Stages: []Stage{{}, {}},
	}
	_, stages, err := Plan(tk)
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, tk.Mounts, stages[0].Mounts)
	assert.Equal(t, tk.Mounts, stages[1].Mounts)
}
