package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	dockerclient "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/sirupsen/logrus"
)

// apiVersion pins the Docker Engine API version srun talks, mirroring the
// teacher's own pinned APIVersion constant rather than negotiating.
const apiVersion = "1.41"

// Docker is the Docker-Engine-backed implementation of Engine. It is a
// thin, literal translation of spec.md §6.3 onto
// github.com/docker/docker/client — no caching, no retries, no GUI state,
// unlike the teacher's DockerCommand which this is grounded on.
type Docker struct {
	Client *dockerclient.Client
	Log    *logrus.Entry
}

var _ Engine = (*Docker)(nil)

// NewDocker builds a Docker engine from the environment (DOCKER_HOST,
// DOCKER_CERT_PATH, etc), the same resolution the teacher's
// NewDockerCommand uses.
func NewDocker(log *logrus.Entry) (*Docker, error) {
	cli, err := dockerclient.NewClientWithOpts(
		dockerclient.FromEnv,
		dockerclient.WithVersion(apiVersion),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to container engine: %w", err)
	}
	return &Docker{Client: cli, Log: log}, nil
}

func (d *Docker) Close() error {
	return d.Client.Close()
}

// BuildImage submits the build context and translates the engine's
// newline-delimited JSON message stream into BuildRecords, per spec.md
// §4.4.1 step 5: each record carries either the announced image ID or a
// build-side error, never both.
func (d *Docker) BuildImage(ctx context.Context, contextArchive io.Reader, opts BuildOptions) (<-chan BuildRecord, <-chan error) {
	records := make(chan BuildRecord)
	errc := make(chan error, 1)

	go func() {
		defer close(records)
		defer close(errc)

		resp, err := d.Client.ImageBuild(ctx, contextArchive, types.ImageBuildOptions{
			Tags:       opts.Tags,
			Dockerfile: "Dockerfile",
			Remove:     true,
		})
		if err != nil {
			errc <- fmt.Errorf("submit build: %w", err)
			return
		}
		defer resp.Body.Close()

		dec := json.NewDecoder(resp.Body)
		for {
			var msg jsonmessage.JSONMessage
			if err := dec.Decode(&msg); err != nil {
				if err == io.EOF {
					return
				}
				errc <- fmt.Errorf("decode build stream: %w", err)
				return
			}

			if msg.Error != nil {
				records <- BuildRecord{Error: msg.Error.Message}
				continue
			}
			if msg.ErrorMessage != "" {
				records <- BuildRecord{Error: msg.ErrorMessage}
				continue
			}

			if msg.Aux != nil {
				var aux struct {
					ID string `json:"ID"`
				}
				if err := json.Unmarshal(*msg.Aux, &aux); err == nil && aux.ID != "" {
					records <- BuildRecord{ImageID: normalizeImageID(aux.ID)}
				}
			}
		}
	}()

	return records, errc
}

// normalizeImageID strips the surrounding quotes some engine versions wrap
// the aux.ID value in, per spec.md §9's "tolerate both forms" note.
func normalizeImageID(id string) string {
	return strings.Trim(id, `"`)
}

func (d *Docker) CreateContainer(ctx context.Context, cfg ContainerConfig) (string, error) {
	binds := make([]string, 0, len(cfg.Binds))
	for _, b := range cfg.Binds {
		spec := b.HostPath + ":" + b.ContainerPath
		if b.ReadOnly {
			spec += ":ro"
		}
		binds = append(binds, spec)
	}

	stopTimeout := cfg.StopTimeout
	containerCfg := &container.Config{
		Image:      cfg.Image,
		Cmd:        cfg.Cmd,
		WorkingDir: cfg.Workdir,
		Env:        cfg.Env,
		Tty:        false,
		StopTimeout: func() *int {
			if stopTimeout == 0 {
				return nil
			}
			return &stopTimeout
		}(),
	}

	hostCfg := &container.HostConfig{
		Binds:           binds,
		AutoRemove:      cfg.AutoRemove,
		NetworkMode:     networkModeFor(cfg.NetworkDisabled),
		Resources: container.Resources{
			NanoCPUs: cfg.NanoCPUs,
			Memory:   cfg.MemoryBytes,
		},
	}

	resp, err := d.Client.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}
	return resp.ID, nil
}

func networkModeFor(disabled bool) container.NetworkMode {
	if disabled {
		return container.NetworkMode("none")
	}
	return container.NetworkMode("bridge")
}

func (d *Docker) StartContainer(ctx context.Context, id string) error {
	if err := d.Client.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return fmt.Errorf("start container: %w", err)
	}
	return nil
}

// Logs opens the container's combined log stream and demultiplexes it with
// stdcopy, the same primitive the teacher's writeContainerLogs uses for
// non-TTY containers. srun always runs containers with Tty:false (spec.md
// §9), so the Console chunk kind is never actually produced here — it
// exists only so other Engine implementations have somewhere to put an
// undemultiplexed stream.
func (d *Docker) Logs(ctx context.Context, id string, opts LogOptions) (<-chan Chunk, <-chan error) {
	chunks := make(chan Chunk)
	errc := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errc)

		readCloser, err := d.Client.ContainerLogs(ctx, id, container.LogsOptions{
			ShowStdout: opts.Stdout,
			ShowStderr: opts.Stderr,
			Timestamps: opts.Timestamps,
			Follow:     opts.Follow,
		})
		if err != nil {
			errc <- fmt.Errorf("open log stream: %w", err)
			return
		}
		defer readCloser.Close()

		stdoutR, stdoutW := io.Pipe()
		stderrR, stderrW := io.Pipe()

		copyDone := make(chan error, 1)
		go func() {
			_, err := stdcopy.StdCopy(stdoutW, stderrW, readCloser)
			stdoutW.CloseWithError(err)
			stderrW.CloseWithError(err)
			copyDone <- err
		}()

		pumpDone := make(chan struct{}, 2)
		pump := func(r io.Reader, kind ChunkKind) {
			defer func() { pumpDone <- struct{}{} }()
			buf := make([]byte, 32*1024)
			for {
				n, err := r.Read(buf)
				if n > 0 {
					data := make([]byte, n)
					copy(data, buf[:n])
					select {
					case chunks <- Chunk{Kind: kind, Data: data}:
					case <-ctx.Done():
						return
					}
				}
				if err != nil {
					return
				}
			}
		}

		go pump(stdoutR, ChunkStdout)
		go pump(stderrR, ChunkStderr)
		<-pumpDone
		<-pumpDone

		if err := <-copyDone; err != nil && err != io.EOF {
			errc <- fmt.Errorf("demultiplex log stream: %w", err)
		}
	}()

	return chunks, errc
}

func (d *Docker) WaitContainer(ctx context.Context, id string) (<-chan WaitResult, <-chan error) {
	out := make(chan WaitResult, 1)
	errc := make(chan error, 1)

	statusCh, dockerErrc := d.Client.ContainerWait(ctx, id, container.WaitConditionNotRunning)

	// Only the channel that actually receives a value is closed. A select
	// in the caller races both channels being ready at once if the other
	// is closed without ever sending — closing an empty buffered channel
	// makes it immediately receivable with the zero value, which a select
	// can't distinguish from "no error". Leaving it open and unwritten
	// means it simply never becomes ready.
	go func() {
		select {
		case err := <-dockerErrc:
			if err != nil {
				errc <- fmt.Errorf("wait for container: %w", err)
			} else {
				errc <- nil
			}
			close(errc)
		case status := <-statusCh:
			out <- WaitResult{ExitCode: status.StatusCode}
			close(out)
		case <-ctx.Done():
			errc <- ctx.Err()
			close(errc)
		}
	}()

	return out, errc
}
