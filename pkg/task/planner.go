package task

import (
	"fmt"

	"github.com/imdario/mergo"
)

const defaultWorkdir = "/workspace"

// Plan turns a Task into an asset map and an ordered list of resolved
// stage specs. It performs no I/O and no validation beyond field merging
// — an empty resolved Image is left for the Container Engine to reject,
// per spec.md §4.5.
func Plan(t *Task) (AssetMap, []ResolvedStage, error) {
	stages := t.Stages
	if stages == nil {
		stages = []Stage{{}}
	}

	resolved := make([]ResolvedStage, len(stages))
	for i, stage := range stages {
		r, err := mergeWithDefaults(stage, t.Defaults, i)
		if err != nil {
			return nil, nil, err
		}
		r.Mounts = t.Mounts
		resolved[i] = r
	}

	assets := AssetMap(t.Assets)
	if assets == nil {
		assets = AssetMap{}
	}

	return assets, resolved, nil
}

// mergeWithDefaults fills stage's absent fields from defaults, then
// applies the hardcoded fallback for anything still absent. mergo.Merge
// only fills zero-valued exported fields on the destination by default,
// which is exactly the "stage, else defaults, else fallback" rule spec.md
// §4.5 describes. Maps are the exception: mergo merges them key by key,
// so Envs is taken whole from the stage when the stage sets it.
func mergeWithDefaults(stage, defaults Stage, index int) (ResolvedStage, error) {
	merged := stage
	merged.Envs = nil
	if err := mergo.Merge(&merged, defaults); err != nil {
		return ResolvedStage{}, err
	}
	if stage.Envs != nil {
		merged.Envs = stage.Envs
	}

	r := ResolvedStage{
		Name:    merged.Name,
		Image:   merged.Image,
		Extend:  merged.Extend,
		Workdir: merged.Workdir,
		Script:  merged.Script,
		Envs:    merged.Envs,
	}

	if r.Name == "" {
		r.Name = fmt.Sprintf("stage-%d", index)
	}
	if r.Workdir == "" {
		r.Workdir = defaultWorkdir
	}
	if r.Extend == nil {
		r.Extend = []string{}
	}
	if r.Script == nil {
		r.Script = []string{}
	}
	if r.Envs == nil {
		r.Envs = map[string]string{}
	}

	return r, nil
}
