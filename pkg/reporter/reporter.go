// Package reporter defines the Reporter Interface (spec.md §4.3): the
// capability the Sandbox and Runner use to surface status transitions and
// container log output to whatever is watching a task run.
package reporter

import (
	"strings"
	"time"

	"github.com/srunlabs/srun/pkg/status"
)

// Reporter is consumed by the Sandbox and Runner. It is kept small and
// interface-shaped the way the Design Notes ask ("use an
// interface/trait abstraction; the Runner is parameterized by a concrete
// implementation").
type Reporter interface {
	ReportStatus(s status.Status, at time.Time) error
	ReportStdout(line string, at time.Time) error
	ReportStderr(line string, at time.Time) error
}

// EmitStdout parses a raw "<RFC3339> <line>\n" record and delegates to
// ReportStdout, per spec.md §4.3's emit_stdout convenience entrypoint.
func EmitStdout(r Reporter, raw string) error {
	at, line := splitTimestampedLine(raw)
	return r.ReportStdout(line, at)
}

// EmitStderr is EmitStdout's stderr counterpart.
func EmitStderr(r Reporter, raw string) error {
	at, line := splitTimestampedLine(raw)
	return r.ReportStderr(line, at)
}

// splitTimestampedLine splits "<RFC3339> <line>\n", stripping trailing
// whitespace from the line. Lines the engine never timestamped (no space
// found, or the prefix doesn't parse as RFC3339) are passed through
// verbatim with the current wall-clock time, rather than dropped.
func splitTimestampedLine(raw string) (time.Time, string) {
	trimmed := strings.TrimRight(raw, "\r\n")

	sp := strings.IndexByte(trimmed, ' ')
	if sp < 0 {
		return time.Now(), trimmed
	}

	ts, line := trimmed[:sp], trimmed[sp+1:]
	at, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Now(), trimmed
	}
	return at, strings.TrimRight(line, " \t")
}
