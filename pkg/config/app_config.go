// Package config handles srun's application and user configuration: the
// fields here are all in PascalCase but in your actual config.yml they'll
// be in camelCase. You can print the default config with
// `srun --print-default-config`.
package config

import (
	"os"
	"path/filepath"

	"github.com/OpenPeeDeeP/xdg"
	yaml "github.com/jesseduffield/yaml"

	"github.com/srunlabs/srun/pkg/sandbox"
)

// GetDefaultConfig returns srun's default UserConfig. NOTE (to
// contributors, not users): do not default a boolean to true, because
// false is the boolean zero value and this will be ignored when parsing
// the user's config due to the omitempty yaml directive.
func GetDefaultConfig() UserConfig {
	return UserConfig{
		Sandbox: SandboxConfig{
			LogChunkLimit: sandbox.DefaultLogChunkLimit,
		},
		Asset: AssetConfig{
			Concurrency: 4,
		},
	}
}

// AppConfig contains the base configuration fields required for srun.
type AppConfig struct {
	Debug      bool   `long:"debug" env:"DEBUG" default:"false"`
	Version    string `long:"version" env:"VERSION" default:"unversioned"`
	Commit     string `long:"commit" env:"COMMIT"`
	BuildDate  string `long:"build-date" env:"BUILD_DATE"`
	Name       string `long:"name" env:"NAME" default:"srun"`
	UserConfig *UserConfig
	ConfigDir  string
	CacheDir   string
}

// NewAppConfig makes a new app config, loading (and creating, if absent)
// config.yml in the XDG config directory, the same resolution order
// lazydocker's NewAppConfig uses.
func NewAppConfig(name, version, commit, date string, debuggingFlag bool) (*AppConfig, error) {
	configDir, err := findOrCreateConfigDir(name)
	if err != nil {
		return nil, err
	}

	userConfig, err := loadUserConfigWithDefaults(configDir)
	if err != nil {
		return nil, err
	}
	if err := userConfig.Validate(); err != nil {
		return nil, err
	}

	return &AppConfig{
		Name:       name,
		Version:    version,
		Commit:     commit,
		BuildDate:  date,
		Debug:      debuggingFlag || os.Getenv("DEBUG") == "TRUE",
		UserConfig: userConfig,
		ConfigDir:  configDir,
		CacheDir:   conventionalCacheDir(name),
	}, nil
}

func configDirForVendor(vendor string, projectName string) string {
	envConfigDir := os.Getenv("CONFIG_DIR")
	if envConfigDir != "" {
		return envConfigDir
	}
	configDirs := xdg.New(vendor, projectName)
	return configDirs.ConfigHome()
}

func conventionalCacheDir(projectName string) string {
	if envCacheDir := os.Getenv("CACHE_DIR"); envCacheDir != "" {
		return envCacheDir
	}
	return xdg.New("", projectName).CacheHome()
}

func findOrCreateConfigDir(projectName string) (string, error) {
	folder := configDirForVendor("", projectName)

	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", err
	}

	return folder, nil
}

func loadUserConfigWithDefaults(configDir string) (*UserConfig, error) {
	config := GetDefaultConfig()

	return loadUserConfig(configDir, &config)
}

func loadUserConfig(configDir string, base *UserConfig) (*UserConfig, error) {
	fileName := filepath.Join(configDir, "config.yml")

	if _, err := os.Stat(fileName); err != nil {
		if os.IsNotExist(err) {
			file, err := os.Create(fileName)
			if err != nil {
				return nil, err
			}
			file.Close()
		} else {
			return nil, err
		}
	}

	content, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(content, base); err != nil {
		return nil, err
	}

	return base, nil
}

// WriteToUserConfig allows you to set a value on the user config to be
// saved. Note that if you set a zero-value, it may be ignored (e.g. a
// false, 0, or empty string) because of the omitempty yaml directive,
// which keeps us from writing a heap of zero values to config.yml.
func (c *AppConfig) WriteToUserConfig(updateConfig func(*UserConfig) error) error {
	userConfig, err := loadUserConfig(c.ConfigDir, &UserConfig{})
	if err != nil {
		return err
	}

	if err := updateConfig(userConfig); err != nil {
		return err
	}

	file, err := os.OpenFile(c.ConfigFilename(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return err
	}
	defer file.Close()

	return yaml.NewEncoder(file).Encode(userConfig)
}

// ConfigFilename returns the filename of the current config file.
func (c *AppConfig) ConfigFilename() string {
	return filepath.Join(c.ConfigDir, "config.yml")
}
