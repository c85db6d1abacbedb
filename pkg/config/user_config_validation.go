package config

import "fmt"

// Validate checks the user-facing tunables for values that would otherwise
// surface as a confusing failure deep inside the Sandbox or Asset Manager.
func (c *UserConfig) Validate() error {
	if c.Sandbox.StopTimeoutSeconds < 0 {
		return fmt.Errorf("sandbox.stopTimeoutSeconds must not be negative, got %d", c.Sandbox.StopTimeoutSeconds)
	}
	if c.Sandbox.LogChunkLimit < 0 {
		return fmt.Errorf("sandbox.logChunkLimit must not be negative, got %d", c.Sandbox.LogChunkLimit)
	}
	if c.Asset.Concurrency < 0 {
		return fmt.Errorf("asset.concurrency must not be negative, got %d", c.Asset.Concurrency)
	}
	return nil
}
