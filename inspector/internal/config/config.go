// Package config handles fontpeek configuration from YAML files and the
// environment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level fontpeek configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Primary PrimaryConfig `yaml:"primary"`
	Proxy   ProxyConfig   `yaml:"proxy"`
	Session SessionConfig `yaml:"session"`
	Export  ExportConfig  `yaml:"export"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
	Watch   WatchConfig   `yaml:"watch"`
	Sinks   []SinkConfig  `yaml:"sinks"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"` // DevTools websocket URL; empty launches Chrome
	Bin              string   `yaml:"bin"`
	Headful          bool     `yaml:"headful"`
	Stealth          bool     `yaml:"stealth"`
	ResourceBlocking []string `yaml:"resource_blocking"` // image | media
}

// PrimaryConfig is the page shown on the primary surface.
type PrimaryConfig struct {
	URL string `yaml:"url"`
}

// ProxyConfig controls remote retrieval.
type ProxyConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SessionConfig controls event handling.
type SessionConfig struct {
	EventTimeout time.Duration `yaml:"event_timeout"`
	ClickWait    time.Duration `yaml:"click_wait"` // how long a programmatic click waits for its result
}

// ExportConfig controls file exports.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	MaxUpload int64  `yaml:"max_upload"`
}

// WatchConfig controls local file watching.
type WatchConfig struct {
	Interval time.Duration `yaml:"interval"`
	Debounce time.Duration `yaml:"debounce"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook | history
	URL  string `yaml:"url"`  // for webhook
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	for i, s := range cfg.Sinks {
		switch s.Type {
		case "stdout", "history":
		case "webhook":
			if s.URL == "" {
				return nil, fmt.Errorf("config: sinks[%d]: webhook needs a url", i)
			}
		default:
			return nil, fmt.Errorf("config: sinks[%d]: unknown type %q", i, s.Type)
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("FONTPEEK_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("FONTPEEK_PROXY"); v != "" {
		c.Proxy.Endpoint = v
	}
	if v := os.Getenv("FONTPEEK_DB"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("CHROME_WS"); v != "" {
		c.Browser.Remote = v
	}
}

func (c *Config) applyDefaults() {
	if c.Proxy.Endpoint == "" {
		c.Proxy.Endpoint = "https://api.allorigins.win/get"
	}
	if c.Proxy.Timeout <= 0 {
		c.Proxy.Timeout = 30 * time.Second
	}
	if c.Session.EventTimeout <= 0 {
		c.Session.EventTimeout = 5 * time.Second
	}
	if c.Session.ClickWait <= 0 {
		c.Session.ClickWait = 10 * time.Second
	}
	if c.Export.Dir == "" {
		c.Export.Dir = "."
	}
	if c.Store.Path == "" {
		c.Store.Path = "fontpeek.db"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8086"
	}
	if c.Server.MaxUpload <= 0 {
		c.Server.MaxUpload = 10 << 20
	}
	if c.Watch.Interval <= 0 {
		c.Watch.Interval = 500 * time.Millisecond
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = 200 * time.Millisecond
	}
}
