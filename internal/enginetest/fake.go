// Package enginetest provides a scriptable fake of engine.Engine for
// pkg/sandbox and pkg/runner tests, the way the teacher's
// pkg/commands/dummies.go stands in for a real Docker daemon in its own
// tests.
package enginetest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/srunlabs/srun/pkg/engine"
)

// BuildScript is what a fake build replays: a sequence of records,
// optionally followed by a stream-level error.
type BuildScript struct {
	Records []engine.BuildRecord
	Err     error
}

// LogScript is what a fake log stream replays.
type LogScript struct {
	Chunks []engine.Chunk
	Err    error
}

// Fake is an in-memory, single-threaded-safe Engine double. Tests arrange
// it through its exported fields; the same Build and LogStream scripts are
// replayed for every call, whatever image or container ID is requested.
type Fake struct {
	mu sync.Mutex

	// Build is replayed for every BuildImage call.
	Build BuildScript

	// LogStream is replayed for every Logs call.
	LogStream LogScript

	// ExitCode is what WaitContainer reports.
	ExitCode int64
	WaitErr  error

	// CreateErr, StartErr let a test force a failure at that step.
	CreateErr error
	StartErr  error

	// nextContainerID is handed out by CreateContainer, incrementing so
	// multi-stage tasks can distinguish their containers.
	nextContainerID int

	// Created records every ContainerConfig passed to CreateContainer, in
	// call order, so tests can assert on binds/env/workdir.
	Created []engine.ContainerConfig
	Started []string
}

var _ engine.Engine = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		Build: BuildScript{
			Records: []engine.BuildRecord{{ImageID: "sha256:" + fmt.Sprintf("%064d", 1)}},
		},
	}
}

func (f *Fake) BuildImage(ctx context.Context, contextArchive io.Reader, opts engine.BuildOptions) (<-chan engine.BuildRecord, <-chan error) {
	// Drain the archive the way a real daemon would, so callers that
	// stream a tar writer concurrently don't deadlock against an unread
	// pipe.
	_, _ = io.Copy(io.Discard, contextArchive)

	records := make(chan engine.BuildRecord, len(f.Build.Records))
	errc := make(chan error, 1)

	for _, r := range f.Build.Records {
		records <- r
	}
	close(records)

	if f.Build.Err != nil {
		errc <- f.Build.Err
	}
	close(errc)

	return records, errc
}

func (f *Fake) CreateContainer(ctx context.Context, cfg engine.ContainerConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.Created = append(f.Created, cfg)
	f.nextContainerID++
	return fmt.Sprintf("fake-container-%d", f.nextContainerID), nil
}

func (f *Fake) StartContainer(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.StartErr != nil {
		return f.StartErr
	}
	f.Started = append(f.Started, id)
	return nil
}

func (f *Fake) Logs(ctx context.Context, id string, opts engine.LogOptions) (<-chan engine.Chunk, <-chan error) {
	chunks := make(chan engine.Chunk, len(f.LogStream.Chunks))
	errc := make(chan error, 1)

	for _, c := range f.LogStream.Chunks {
		chunks <- c
	}
	close(chunks)

	if f.LogStream.Err != nil {
		errc <- f.LogStream.Err
	}
	close(errc)

	return chunks, errc
}

// WaitContainer reports exactly one of the two channels, leaving the other
// unwritten and unclosed — a caller selecting on both must see only the
// channel that actually fired become ready, the same contract the Docker
// engine implementation honors.
func (f *Fake) WaitContainer(ctx context.Context, id string) (<-chan engine.WaitResult, <-chan error) {
	out := make(chan engine.WaitResult, 1)
	errc := make(chan error, 1)

	if f.WaitErr != nil {
		errc <- f.WaitErr
		close(errc)
	} else {
		out <- engine.WaitResult{ExitCode: f.ExitCode}
		close(out)
	}

	return out, errc
}
