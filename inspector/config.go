package inspector

import (
	"github.com/hazyhaar/fontpeek/inspector/internal/config"
)

// Config is the top-level fontpeek configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// ProxyConfig controls remote retrieval.
type ProxyConfig = config.ProxyConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}
