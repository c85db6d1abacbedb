package permission

import (
	"fmt"
	"path/filepath"

	"github.com/srunlabs/srun/pkg/srunerr"
)

// OptionsFromCLI reassembles flaggy's two-flag-per-permission scheme (a
// repeatable root-list flag plus a separate "grant everything" bool flag —
// flaggy has no native "flag present with zero-or-more values" concept, so
// the CLI splits what spec.md §4.1's PermissionsOptions treats as a single
// nil/empty/non-empty slice into two flags) back into one Options value,
// canonicalizing every root along the way since Check only does component-
// wise prefix comparison on whatever strings it's given.
func OptionsFromCLI(readPaths []string, readAll bool, writePaths []string, writeAll bool, allowNet bool) (Options, error) {
	read, err := rootsFromCLI(readPaths, readAll)
	if err != nil {
		return Options{}, srunerr.Wrap(srunerr.Spec, err, "canonicalize --allow-read root")
	}

	write, err := rootsFromCLI(writePaths, writeAll)
	if err != nil {
		return Options{}, srunerr.Wrap(srunerr.Spec, err, "canonicalize --allow-write root")
	}

	return Options{
		AllowRead:  read,
		AllowWrite: write,
		AllowNet:   allowNet,
	}, nil
}

// rootsFromCLI reproduces the nil/empty/non-empty three-way distinction
// Options.AllowRead and Options.AllowWrite rely on: all is the bare
// "--allow-X-all" flag, paths is whatever roots "--allow-X" collected.
func rootsFromCLI(paths []string, all bool) ([]string, error) {
	if all {
		return []string{}, nil
	}
	if len(paths) == 0 {
		return nil, nil
	}

	canonical := make([]string, len(paths))
	for i, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", p, err)
		}
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", p, err)
		}
		canonical[i] = resolved
	}
	return canonical, nil
}
