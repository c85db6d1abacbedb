// Package sandbox implements the Sandbox component (spec.md §4.4): image
// builds and container runs against a Container Engine, logged through a
// Reporter and bounded by a Permission Set.
package sandbox

import (
	"github.com/sirupsen/logrus"

	"github.com/srunlabs/srun/pkg/engine"
)

// defaultStopTimeoutSeconds, defaultNanoCPUs and defaultMemoryBytes are the
// fixed resource limits spec.md §4.4.2 step 3 names: 180s stop timeout, 1
// CPU, 1 GiB.
const (
	defaultStopTimeoutSeconds = 180
	defaultNanoCPUs           = 1_000_000_000
	defaultMemoryBytes        = 1 << 30

	// DefaultLogChunkLimit is the configurable cap this implementation
	// gives the "500-chunk log cap" open question (spec.md §9): a default
	// that preserves the original behavior, but that can be raised,
	// lowered, or disabled (0) by configuration.
	DefaultLogChunkLimit = 500
)

// Options configures a Sandbox's resource limits and log cap, overriding
// the spec.md defaults when set.
type Options struct {
	StopTimeoutSeconds int
	NanoCPUs           int64
	MemoryBytes        int64
	// LogChunkLimit caps how many log chunks the run pump forwards before
	// truncating with a marker line. Zero means unlimited — callers that
	// want spec.md's original 500-chunk default set it explicitly
	// (config.UserConfig does this); Sandbox itself does not silently
	// impose one.
	LogChunkLimit int
}

func (o Options) withDefaults() Options {
	if o.StopTimeoutSeconds == 0 {
		o.StopTimeoutSeconds = defaultStopTimeoutSeconds
	}
	if o.NanoCPUs == 0 {
		o.NanoCPUs = defaultNanoCPUs
	}
	if o.MemoryBytes == 0 {
		o.MemoryBytes = defaultMemoryBytes
	}
	return o
}

// Sandbox wraps a Container Engine with the build/run algorithms spec.md
// §4.4 describes. It holds no per-task state; Build and Run each take
// whatever they need as arguments, matching the original's Sandbox<'docker>
// (a thin borrow over the daemon handle, nothing else).
type Sandbox struct {
	Engine engine.Engine
	Log    *logrus.Entry
	opts   Options
}

// New builds a Sandbox over eng. A zero Options uses spec.md's fixed
// defaults.
func New(eng engine.Engine, log *logrus.Entry, opts Options) *Sandbox {
	return &Sandbox{Engine: eng, Log: log, opts: opts.withDefaults()}
}
