package sandbox

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/srunlabs/srun/pkg/engine"
	"github.com/srunlabs/srun/pkg/srunerr"
)

// Build implements spec.md §4.4.1: write a throwaway containerfile
// deriving from baseImage with extend folded into a single RUN step,
// submit it to the Engine as a tar+gzip build context, and return the
// built image's hex digest.
func (s *Sandbox) Build(ctx context.Context, baseImage string, extend []string) (string, error) {
	dir, err := os.MkdirTemp(os.TempDir(), "srun-build-"+uuid.NewString()+"-")
	if err != nil {
		return "", srunerr.Wrap(srunerr.IO, err, "create build scratch directory")
	}
	defer os.RemoveAll(dir)

	if err := writeDockerfile(dir, baseImage, extend); err != nil {
		return "", err
	}

	archive, err := tarGzDir(dir)
	if err != nil {
		return "", srunerr.Wrap(srunerr.IO, err, "build context archive")
	}

	if s.Log != nil {
		s.Log.Infof("building image for task from %q with %d lines of extend script", baseImage, len(extend))
	}

	records, errc := s.Engine.BuildImage(ctx, bytes.NewReader(archive), engine.BuildOptions{})

	for record := range records {
		if s.Log != nil {
			s.Log.Debugf("builder output: %+v", record)
		}
		if record.Error != "" {
			return "", srunerr.New(srunerr.Build, "%s", record.Error)
		}
		if record.ImageID != "" {
			id, err := extractDigest(record.ImageID)
			if err != nil {
				return "", err
			}
			if s.Log != nil {
				s.Log.Infof("successfully built: %s", id)
			}
			return id, nil
		}
	}

	if err := <-errc; err != nil {
		return "", srunerr.Wrap(srunerr.Connection, err, "submit build to container engine")
	}

	return "", srunerr.New(srunerr.Unknown, "image not successfully built")
}

// writeDockerfile writes "FROM <baseImage>" and, when extend is non-empty,
// a single "RUN <a> && <b> && ..." step with embedded newlines stripped
// (spec.md §4.4.1 step 2).
func writeDockerfile(dir, baseImage string, extend []string) error {
	path := filepath.Join(dir, "Dockerfile")

	var b strings.Builder
	fmt.Fprintf(&b, "FROM %s\n", baseImage)
	if len(extend) > 0 {
		cleaned := make([]string, len(extend))
		for i, step := range extend {
			cleaned[i] = strings.ReplaceAll(step, "\n", "")
		}
		fmt.Fprintf(&b, "RUN %s\n", strings.Join(cleaned, " && "))
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return srunerr.Wrap(srunerr.IO, err, "write Dockerfile")
	}
	return nil
}

// tarGzDir archives dir's contents (relative to dir itself) into a
// tar+gzip build context. No third-party tar-building library appears
// anywhere in the retrieved corpus, so this is a justified stdlib
// exception (see DESIGN.md); the walk mirrors the original's tarball::dir
// helper one-for-one.
func tarGzDir(dir string) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// extractDigest strips surrounding quotes and the "sha256:" prefix from an
// engine-reported image ID, tolerating both quoted and unquoted forms
// (spec.md §9).
func extractDigest(imageID string) (string, error) {
	trimmed := strings.Trim(imageID, `"`)
	parts := strings.SplitN(trimmed, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", srunerr.New(srunerr.Build, "image id %q not in form \"sha256:<hex>\"", imageID)
	}
	return parts[1], nil
}
