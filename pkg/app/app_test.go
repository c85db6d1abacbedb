package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srunlabs/srun/pkg/config"
	"github.com/srunlabs/srun/pkg/i18n"
	"github.com/srunlabs/srun/pkg/permission"
)

func newTestAppConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	t.Setenv("CONFIG_DIR", t.TempDir())

	cfg, err := config.NewAppConfig("srun", "test-version", "test-commit", "test-date", false)
	require.NoError(t, err)
	return cfg
}

func TestNewAppWiresCoreComponents(t *testing.T) {
	cfg := newTestAppConfig(t)

	app, err := NewApp(cfg, permission.Default())
	if err != nil {
		// No Docker daemon reachable in this environment; that's the only
		// expected failure mode of NewApp, since everything else it wires
		// is pure construction.
		t.Skipf("container engine unavailable: %v", err)
	}
	defer app.Close()

	assert.NotNil(t, app.Config)
	assert.NotNil(t, app.Log)
	assert.NotNil(t, app.Engine)
	assert.NotNil(t, app.Sandbox)
	assert.NotNil(t, app.Runner)
	assert.NotNil(t, app.Reporter)
}

func TestKnownErrorMapsDockerSocketPermission(t *testing.T) {
	cfg := newTestAppConfig(t)
	app := &App{Config: cfg, Tr: testTranslationSet()}

	text, known := app.KnownError(&mockError{message: "Got permission denied while trying to connect to the Docker daemon socket"})
	assert.True(t, known)
	assert.Equal(t, app.Tr.ConnectionFailed, text)
}

func TestKnownErrorReturnsFalseForUnrecognizedError(t *testing.T) {
	app := &App{Tr: testTranslationSet()}

	text, known := app.KnownError(&mockError{message: "some unrelated failure"})
	assert.False(t, known)
	assert.Empty(t, text)
}

func testTranslationSet() i18n.TranslationSet {
	return i18n.TranslationSet{
		ConnectionFailed: "connection to the container engine failed",
	}
}

type mockError struct {
	message string
}

func (e *mockError) Error() string {
	return e.message
}
