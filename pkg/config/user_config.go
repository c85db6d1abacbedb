package config

import "time"

// SandboxConfig holds the resource limits and log-forwarding cap the
// Sandbox applies to every stage, overriding the fixed defaults named in
// spec.md §4.4.2 step 3.
type SandboxConfig struct {
	// StopTimeoutSeconds bounds how long the container engine waits after
	// asking a container to stop before killing it. Zero uses the
	// Sandbox's built-in default (180s).
	StopTimeoutSeconds int `yaml:"stopTimeoutSeconds,omitempty"`

	// NanoCPUs caps CPU allotment in the container engine's native units.
	// Zero uses the Sandbox's built-in default (1 CPU).
	NanoCPUs int64 `yaml:"nanoCPUs,omitempty"`

	// MemoryBytes caps memory. Zero uses the Sandbox's built-in default
	// (1 GiB).
	MemoryBytes int64 `yaml:"memoryBytes,omitempty"`

	// LogChunkLimit caps how many log chunks a stage's run forwards
	// before truncating with a marker line (spec.md §9's open question).
	// Zero disables the cap entirely; this is a distinct choice from
	// "unset", which is why UserConfig seeds it explicitly from
	// sandbox.DefaultLogChunkLimit rather than leaving it at the
	// language zero value.
	LogChunkLimit int `yaml:"logChunkLimit,omitempty"`
}

// AssetConfig holds the tunables for the Asset Manager's HTTP fetch layer.
type AssetConfig struct {
	// CacheDir roots the content-addressed HTTP cache (spec.md §6.4).
	// Empty uses an "assets" directory under AppConfig.CacheDir.
	CacheDir string `yaml:"cacheDir,omitempty"`

	// Concurrency bounds simultaneous HTTP asset fetches.
	Concurrency int `yaml:"concurrency,omitempty"`

	// CacheTTL forces a cached asset to be refetched once it's older than
	// this, independent of whatever Cache-Control headers a server sent —
	// the floor operators need when fetching from servers that send no
	// caching headers at all. Zero disables TTL enforcement.
	CacheTTL time.Duration `yaml:"cacheTTL,omitempty"`
}

// UserConfig holds all of the user-configurable options for srun, the way
// lazydocker's UserConfig holds GuiConfig/CommandTemplatesConfig/etc: one
// struct per concern, YAML-tagged with omitempty so a sparse config.yml
// only overrides what it mentions.
type UserConfig struct {
	Sandbox SandboxConfig `yaml:"sandbox,omitempty"`
	Asset   AssetConfig   `yaml:"asset,omitempty"`
}
