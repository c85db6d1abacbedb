package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/srunlabs/srun/pkg/srunerr"
)

func TestCheckPaths(t *testing.T) {
	allowlist := []string{
		"/a/specific/dir/name",
		"/a/specific",
		"/b/c",
	}

	perms := FromOptions(Options{
		AllowRead:  allowlist,
		AllowWrite: allowlist,
	})

	ok := []string{
		"/a/specific/dir/name",
		"/a/specific/dir",
		"/a/specific/dir/name/inner",
		"/a/specific/other/dir",
		"/b/c",
		"/b/c/sub/path",
		"/b/c/sub/path/../path/.",
	}
	for _, p := range ok {
		assert.NoError(t, perms.CheckRead(p), p)
		assert.NoError(t, perms.CheckWrite(p), p)
	}

	bad := []string{
		"/b/e",
		"/a/b",
	}
	for _, p := range bad {
		assert.Error(t, perms.CheckRead(p), p)
		assert.Error(t, perms.CheckWrite(p), p)
	}
}

func TestDefaultPermissions(t *testing.T) {
	perms := Default()
	assert.NoError(t, perms.CheckRead("/anywhere"))
	assert.Error(t, perms.CheckWrite("/anywhere"))
	assert.NoError(t, perms.CheckNet())
}

func TestGlobalGrantWithEmptyAllowlist(t *testing.T) {
	perms := FromOptions(Options{AllowRead: []string{}, AllowWrite: []string{}})
	assert.NoError(t, perms.CheckRead("/any/path"))
	assert.NoError(t, perms.CheckWrite("/any/path"))
}

func TestAbsentFlagDeniesEverything(t *testing.T) {
	perms := FromOptions(Options{})
	assert.Error(t, perms.CheckRead("/any/path"))
	assert.Error(t, perms.CheckWrite("/any/path"))
}

func TestConservativeExtension(t *testing.T) {
	before := FromOptions(Options{AllowRead: []string{"/tmp/a"}})
	assert.NoError(t, before.CheckRead("/tmp/a/file"))

	after := FromOptions(Options{AllowRead: []string{"/tmp/a", "/tmp/b"}})
	assert.NoError(t, after.CheckRead("/tmp/a/file"))
	assert.NoError(t, after.CheckRead("/tmp/b/file"))
}

func TestDeniedMountReportsPermissionDeniedKind(t *testing.T) {
	perms := FromOptions(Options{AllowRead: []string{"/tmp/a"}})
	err := perms.CheckRead("/tmp/b")
	assert.Error(t, err)
	kind, ok := srunerr.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, srunerr.PermissionDenied, kind)
}
