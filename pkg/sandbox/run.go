package sandbox

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/srunlabs/srun/pkg/asset"
	"github.com/srunlabs/srun/pkg/engine"
	"github.com/srunlabs/srun/pkg/permission"
	"github.com/srunlabs/srun/pkg/reporter"
	"github.com/srunlabs/srun/pkg/srunerr"
)

// RunOptions is what the Runner hands the Sandbox for one stage, per
// spec.md §4.4.2.
type RunOptions struct {
	Image   string
	Workdir string
	Script  []string
	Envs    map[string]string
	Mounts  map[string]string // container path -> host path
}

// Run implements spec.md §4.4.2: write the stage script, build binds under
// the permission model, create and start a container, then concurrently
// pump its logs to reporter and wait for its exit.
func (s *Sandbox) Run(ctx context.Context, opts RunOptions, am *asset.Manager, perms permission.Set, rep reporter.Reporter) error {
	if s.Log != nil {
		s.Log.Infof("create container using %s with envs %v", opts.Image, opts.Envs)
	}

	if err := writeRunScript(am.Path(), opts.Script); err != nil {
		return err
	}

	binds, err := s.buildBinds(am.Path(), opts.Mounts, perms)
	if err != nil {
		return err
	}

	env := make([]string, 0, len(opts.Envs))
	for k, v := range opts.Envs {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	cfg := engine.ContainerConfig{
		Image:           opts.Image,
		Cmd:             []string{"sh", "-e", "/assets/.run.sh"},
		Workdir:         opts.Workdir,
		Env:             env,
		Binds:           binds,
		StopTimeout:     s.opts.StopTimeoutSeconds,
		NanoCPUs:        s.opts.NanoCPUs,
		MemoryBytes:     s.opts.MemoryBytes,
		NetworkDisabled: perms.CheckNet() != nil,
		AutoRemove:      true,
	}

	id, err := s.Engine.CreateContainer(ctx, cfg)
	if err != nil {
		return srunerr.Wrap(srunerr.Docker, err, "create container")
	}
	if s.Log != nil {
		s.Log.Infof("created container with id: %s", id)
	}

	if err := s.Engine.StartContainer(ctx, id); err != nil {
		return srunerr.Wrap(srunerr.Docker, err, "start container")
	}
	if s.Log != nil {
		s.Log.Info("container started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logErrc := make(chan error, 1)
	go func() {
		logErrc <- s.pumpLogs(runCtx, id, rep)
	}()

	waitCh, waitErrc := s.Engine.WaitContainer(runCtx, id)

	var waitResult engine.WaitResult
	var waitErr error
	select {
	case waitResult = <-waitCh:
	case waitErr = <-waitErrc:
	}
	cancel()

	logErr := <-logErrc

	if logErr != nil {
		return logErr
	}
	if waitErr != nil {
		return srunerr.Wrap(srunerr.Docker, waitErr, "wait for container")
	}

	if s.Log != nil {
		s.Log.Infof("container exited with code %d", waitResult.ExitCode)
	}

	if waitResult.ExitCode > 0 {
		if err := rep.ReportStderr(fmt.Sprintf("[program exited with code %d]", waitResult.ExitCode), time.Now()); err != nil {
			return srunerr.Wrap(srunerr.IO, err, "report exit code")
		}
		return srunerr.WithCode(uint64(waitResult.ExitCode))
	}

	return nil
}

// writeRunScript writes the stage script, one line per entry, to
// <assetRoot>/.run.sh (spec.md §4.4.2 step 1).
func writeRunScript(assetRoot string, script []string) error {
	path := filepath.Join(assetRoot, ".run.sh")
	f, err := os.Create(path)
	if err != nil {
		return srunerr.Wrap(srunerr.IO, err, "create stage script")
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, line := range script {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return srunerr.Wrap(srunerr.IO, err, "write stage script line")
		}
	}
	return w.Flush()
}

// buildBinds mounts the asset root at /assets and, for each declared
// mount, resolves read-write or read-only access per the permission set,
// failing closed before any container is created (spec.md §4.4.2 step 2).
func (s *Sandbox) buildBinds(assetRoot string, mounts map[string]string, perms permission.Set) ([]engine.Bind, error) {
	binds := []engine.Bind{
		{HostPath: assetRoot, ContainerPath: "/assets"},
	}

	for containerPath, hostPath := range mounts {
		abs, err := filepath.Abs(hostPath)
		if err != nil {
			return nil, srunerr.Wrap(srunerr.IO, err, "resolve mount host path %q", hostPath)
		}

		readOnly := false
		if perms.CheckWrite(abs) != nil {
			if err := perms.CheckRead(abs); err != nil {
				return nil, err
			}
			readOnly = true
		}

		binds = append(binds, engine.Bind{
			HostPath:      abs,
			ContainerPath: containerPath,
			ReadOnly:      readOnly,
		})
	}

	return binds, nil
}

// pumpLogs opens a follow-mode log stream and forwards chunks to rep,
// truncating after LogChunkLimit chunks with a visible marker line instead
// of silently dropping the rest (spec.md §9 open question, resolved in
// SPEC_FULL.md).
func (s *Sandbox) pumpLogs(ctx context.Context, containerID string, rep reporter.Reporter) error {
	chunks, errc := s.Engine.Logs(ctx, containerID, engine.LogOptions{
		Follow:     true,
		Timestamps: true,
		Stdout:     true,
		Stderr:     true,
	})

	count := 0
	truncated := false
	for chunk := range chunks {
		if s.opts.LogChunkLimit > 0 && count >= s.opts.LogChunkLimit {
			if !truncated {
				truncated = true
				marker := fmt.Sprintf("[log output truncated after %d chunks]", s.opts.LogChunkLimit)
				if err := rep.ReportStderr(marker, time.Now()); err != nil {
					return srunerr.Wrap(srunerr.IO, err, "report truncation marker")
				}
			}
			continue
		}
		count++

		if !isValidUTF8(chunk.Data) {
			return srunerr.New(srunerr.Encoding, "container log chunk was not valid UTF-8")
		}
		line := string(chunk.Data)

		var err error
		switch chunk.Kind {
		case engine.ChunkStdout, engine.ChunkConsole:
			err = reporter.EmitStdout(rep, line)
		case engine.ChunkStderr:
			err = reporter.EmitStderr(rep, line)
		}
		if err != nil {
			return srunerr.Wrap(srunerr.IO, err, "report log line")
		}
	}

	if err := <-errc; err != nil {
		return srunerr.Wrap(srunerr.Docker, err, "stream container logs")
	}
	return nil
}

func isValidUTF8(b []byte) bool {
	return utf8.Valid(b)
}
