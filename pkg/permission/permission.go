// Package permission implements the path-prefix allow/deny model the
// Sandbox consults before binding a host path into a container, and the
// network grant the container config is built from.
package permission

import (
	"path/filepath"
	"strings"

	"github.com/srunlabs/srun/pkg/srunerr"
)

// State is whether a permission is granted or denied.
type State int

const (
	// Denied is the zero value, matching the original's "deny by default".
	Denied State = iota
	Granted
)

// Unit is a single yes/no permission, used for network access.
type Unit struct {
	Name  string
	State State
}

// Check succeeds iff the permission is Granted.
func (u Unit) Check() error {
	if u.State == Granted {
		return nil
	}
	return srunerr.New(srunerr.PermissionDenied,
		"requires %s access, run again with --allow-%s", u.Name, u.Name)
}

// Unary is a path-scoped permission: read or write.
type Unary struct {
	Name        string
	GlobalState State
	// GrantedList and DeniedList hold canonicalized paths. Canonicalization
	// is the caller's responsibility (see package doc); Check only does
	// component-wise prefix comparison.
	GrantedList []string
	DeniedList  []string
}

// Check succeeds iff path is permitted, following spec.md §4.1:
//   - GlobalState == Granted and no denied path is at or below path; or
//   - GlobalState == Denied and some granted path is at or above path.
func (u Unary) Check(path string) error {
	path = filepath.Clean(path)
	if u.GlobalState == Granted {
		for _, denied := range u.DeniedList {
			if hasPathPrefix(denied, path) {
				return srunerr.New(srunerr.PermissionDenied,
					"%s access to %s", u.Name, path)
			}
		}
		return nil
	}
	for _, granted := range u.GrantedList {
		if hasPathPrefix(path, granted) {
			return nil
		}
	}
	return srunerr.New(srunerr.PermissionDenied,
		"%s access to %s", u.Name, path)
}

// hasPathPrefix reports whether prefix is path or an ancestor directory of
// path, compared component-wise on the cleaned paths so that "/foo" does
// not match "/foobar".
func hasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)
	if path == prefix {
		return true
	}
	sep := string(filepath.Separator)
	if !strings.HasSuffix(prefix, sep) {
		prefix += sep
	}
	return strings.HasPrefix(path+sep, prefix)
}

// Set bundles the three sub-permissions the Sandbox consults.
type Set struct {
	Read  Unary
	Write Unary
	Net   Unit
}

// CheckRead succeeds iff path is permitted for reading.
func (s Set) CheckRead(path string) error {
	return s.Read.Check(path)
}

// CheckWrite succeeds iff path is permitted for writing.
func (s Set) CheckWrite(path string) error {
	return s.Write.Check(path)
}

// CheckNet succeeds iff network access is granted.
func (s Set) CheckNet() error {
	return s.Net.Check()
}

// Default returns the spec's default permission set: read granted
// globally, write denied globally, net granted.
func Default() Set {
	return Set{
		Read:  Unary{Name: "read", GlobalState: Granted},
		Write: Unary{Name: "write", GlobalState: Denied},
		Net:   Unit{Name: "net", State: Granted},
	}
}

// Options is the CLI-facing description of a Set before path
// canonicalization, mirroring the original's PermissionsOptions: nil means
// the flag was absent (deny by default); an empty, non-nil slice means the
// flag was present with no arguments (global grant); a non-empty slice
// means the flag was present with specific roots (granted list, global
// deny).
type Options struct {
	AllowRead  []string
	AllowWrite []string
	AllowNet   bool
}

// FromOptions builds a Set from CLI-resolved Options. Paths in AllowRead
// and AllowWrite must already be canonicalized by the caller (spec.md §4.1:
// "callers are responsible for canonicalization").
func FromOptions(opts Options) Set {
	return Set{
		Read: Unary{
			Name:        "read",
			GlobalState: globalStateFrom(opts.AllowRead),
			GrantedList: opts.AllowRead,
		},
		Write: Unary{
			Name:        "write",
			GlobalState: globalStateFrom(opts.AllowWrite),
			GrantedList: opts.AllowWrite,
		},
		Net: Unit{
			Name: "net",
			State: func() State {
				if opts.AllowNet {
					return Granted
				}
				return Denied
			}(),
		},
	}
}

func globalStateFrom(paths []string) State {
	if paths != nil && len(paths) == 0 {
		return Granted
	}
	return Denied
}
