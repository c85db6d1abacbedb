// Package task holds the Task Planner: the pure, I/O-free transformation
// from a task document into an ordered list of resolved stage specs plus
// the asset map, per spec.md §4.5.
package task

import (
	"io"

	"gopkg.in/yaml.v3"
)

// Stage is one unresolved entry in a task document. Every field is
// optional; absent fields fall back to the task's Defaults during
// planning, and finally to a hardcoded fallback.
type Stage struct {
	Name    string            `yaml:"name,omitempty"`
	Image   string            `yaml:"image,omitempty"`
	Extend  []string          `yaml:"extend,omitempty"`
	Workdir string            `yaml:"workdir,omitempty"`
	Script  []string          `yaml:"script,omitempty"`
	Envs    map[string]string `yaml:"envs,omitempty"`
}

// Task is the top-level document the Planner consumes.
type Task struct {
	Stages   []Stage           `yaml:"stages,omitempty"`
	Assets   map[string]string `yaml:"assets,omitempty"`
	Mounts   map[string]string `yaml:"mounts,omitempty"`
	Defaults Stage             `yaml:",inline"`
}

// ResolvedStage is a stage spec with every field given a concrete value,
// produced by Plan. It is what the Sandbox and Runner operate on.
type ResolvedStage struct {
	Name    string
	Image   string
	Extend  []string
	Workdir string
	Script  []string
	Envs    map[string]string
	Mounts  map[string]string
}

// AssetMap maps the relative path an asset will appear under in the
// container's asset directory to its source URI.
type AssetMap map[string]string

// Parse decodes a task document. This is the CLI-boundary parser
// referenced by spec.md §6.1 — it is not itself a core component, but the
// core needs a concrete Task to operate on, and unknown fields are
// tolerated the way yaml.v3's default decoding already does.
func Parse(r io.Reader) (*Task, error) {
	var t Task
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}
