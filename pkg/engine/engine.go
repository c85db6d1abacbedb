// Package engine defines the Container Engine Interface the Sandbox
// consumes (spec.md §6.3): an opaque daemon that builds images, creates
// and runs containers, streams their logs, and reports their exit codes.
// The core never talks to a container daemon directly — only through this
// interface — so it can be driven by a fake in tests.
package engine

import (
	"context"
	"io"
)

// BuildOptions configures an image build.
type BuildOptions struct {
	// Tags, if non-empty, are applied to the built image. The core never
	// sets this; it identifies images by the digest the Engine returns.
	Tags []string
}

// BuildRecord is one record from the build output stream. Exactly one of
// ImageID or Error is meaningful per spec.md §4.4.1 step 5.
type BuildRecord struct {
	// ImageID is set on the record that announces the built image, in the
	// form "sha256:<hex>" with or without surrounding quotes — engines
	// vary, and callers must tolerate both (spec.md §9).
	ImageID string
	// Error is set on a record reporting a build-side failure.
	Error string
}

// ContainerConfig configures a container creation, mirroring spec.md
// §4.4.2 step 3.
type ContainerConfig struct {
	Image           string
	Cmd             []string
	Workdir         string
	Env             []string
	Binds           []Bind
	StopTimeout     int // seconds
	NanoCPUs        int64
	MemoryBytes     int64
	NetworkDisabled bool
	AutoRemove      bool
}

// Bind is a host-path <-> container-path mapping.
type Bind struct {
	HostPath      string
	ContainerPath string
	ReadOnly      bool
}

// ChunkKind tags a log Chunk as stdout, stderr, or the combined console
// stream some engines emit instead of demultiplexed stdout/stderr
// (spec.md §6.3, §9 open question).
type ChunkKind int

const (
	ChunkStdout ChunkKind = iota
	ChunkStderr
	ChunkConsole
)

// Chunk is one piece of container log output.
type Chunk struct {
	Kind ChunkKind
	Data []byte
}

// LogOptions configures a log stream request.
type LogOptions struct {
	Follow     bool
	Timestamps bool
	Stdout     bool
	Stderr     bool
}

// WaitResult is what a container's exit notification carries.
type WaitResult struct {
	ExitCode int64
}

// Engine is the abstract Container Engine Interface (spec.md §6.3). The
// core depends only on this interface, never on a concrete daemon client.
type Engine interface {
	// BuildImage submits a build context archive and streams back build
	// records until the engine either announces the built image ID or a
	// build-side error.
	BuildImage(ctx context.Context, contextArchive io.Reader, opts BuildOptions) (<-chan BuildRecord, <-chan error)

	// CreateContainer creates (but does not start) a container, returning
	// its ID.
	CreateContainer(ctx context.Context, cfg ContainerConfig) (string, error)

	// StartContainer starts a previously created container.
	StartContainer(ctx context.Context, id string) error

	// Logs opens a log stream for id, emitting Chunks on the returned
	// channel until the stream ends or ctx is canceled.
	Logs(ctx context.Context, id string, opts LogOptions) (<-chan Chunk, <-chan error)

	// WaitContainer blocks until the container exits and reports its exit
	// code.
	WaitContainer(ctx context.Context, id string) (<-chan WaitResult, <-chan error)
}
