package config

import (
	"os"
	"testing"

	"github.com/jesseduffield/yaml"

	"github.com/srunlabs/srun/pkg/sandbox"
)

func newTestAppConfig(t *testing.T) *AppConfig {
	t.Helper()
	t.Setenv("CONFIG_DIR", t.TempDir())

	conf, err := NewAppConfig("srun", "version", "commit", "date", false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	return conf
}

func TestNewAppConfigAppliesDefaults(t *testing.T) {
	conf := newTestAppConfig(t)

	if conf.UserConfig.Sandbox.LogChunkLimit != sandbox.DefaultLogChunkLimit {
		t.Fatalf("expected default log chunk limit %d, got %d", sandbox.DefaultLogChunkLimit, conf.UserConfig.Sandbox.LogChunkLimit)
	}
	if conf.UserConfig.Asset.Concurrency != 4 {
		t.Fatalf("expected default asset concurrency 4, got %d", conf.UserConfig.Asset.Concurrency)
	}
}

func TestNewAppConfigDebugFromEnv(t *testing.T) {
	t.Setenv("CONFIG_DIR", t.TempDir())
	t.Setenv("DEBUG", "TRUE")

	conf, err := NewAppConfig("srun", "version", "commit", "date", false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !conf.Debug {
		t.Fatalf("expected DEBUG=TRUE to enable debug mode")
	}
}

func TestWritingToConfigFile(t *testing.T) {
	conf := newTestAppConfig(t)

	testFn := func(t *testing.T, ac *AppConfig, newValue int) {
		t.Helper()
		updateFn := func(uc *UserConfig) error {
			uc.Sandbox.LogChunkLimit = newValue
			return nil
		}

		if err := ac.WriteToUserConfig(updateFn); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		file, err := os.OpenFile(ac.ConfigFilename(), os.O_RDONLY, 0o660)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		defer file.Close()

		sampleUC := UserConfig{}
		if err := yaml.NewDecoder(file).Decode(&sampleUC); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		if sampleUC.Sandbox.LogChunkLimit != newValue {
			t.Fatalf("got %v, expected %v", sampleUC.Sandbox.LogChunkLimit, newValue)
		}
	}

	// insert value into an empty file
	testFn(t, conf, 42)

	// modifying an existing file that already has sandbox.logChunkLimit set
	testFn(t, conf, 0)
}

func TestValidateRejectsNegativeValues(t *testing.T) {
	uc := GetDefaultConfig()
	uc.Sandbox.StopTimeoutSeconds = -1
	if err := uc.Validate(); err == nil {
		t.Fatalf("expected an error for a negative stop timeout")
	}
}
