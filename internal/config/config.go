// Package config loads the settings daemon configuration from an optional
// YAML file and CELERIX_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/celerix-dev/celerix-settings/pkg/schema"
	"github.com/celerix-dev/celerix-settings/pkg/settings"
)

// Environment variables read by Load.
const (
	EnvConfigFile = "CELERIX_SETTINGS_CONFIG"
	EnvLocalRoot  = "CELERIX_LOCAL_ROOT"
	EnvSharedRoot = "CELERIX_SHARED_ROOT"
	EnvPort       = "CELERIX_PORT"
	EnvHTTPPort   = "CELERIX_HTTP_PORT"
	EnvDisableTLS = "CELERIX_DISABLE_TLS"
	EnvLogLevel   = "CELERIX_LOG_LEVEL"
	EnvAutoWrite  = "CELERIX_AUTO_WRITE"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the daemon configuration.
type Config struct {
	// LocalRoot and SharedRoot override the per-user and all-users settings roots.
	LocalRoot  string `yaml:"local_root"`
	SharedRoot string `yaml:"shared_root"`

	Port       string `yaml:"port"`
	HTTPPort   string `yaml:"http_port"`
	DisableTLS bool   `yaml:"disable_tls"`
	LogLevel   string `yaml:"log_level"`

	// AutoWrite persists a plugin after every change made through the daemon.
	AutoWrite bool `yaml:"auto_write"`
	// Watch reloads settings files saved by other processes.
	Watch bool `yaml:"watch"`

	Plugins []PluginConfig `yaml:"plugins"`
}

// PluginConfig names a plugin the daemon hosts.
type PluginConfig struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id"`
	// Rules maps "key" or "command/key" to an expression every new value must satisfy.
	Rules map[string]string `yaml:"rules,omitempty"`
}

// Default returns the configuration used when nothing is configured.
func Default() Config {
	return Config{
		Port:     "7001",
		HTTPPort: "7002",
		LogLevel: "info",
		Watch:    true,
	}
}

// Load reads the file named by CELERIX_SETTINGS_CONFIG, if set, and then
// applies environment overrides.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// LoadFile reads a YAML configuration on top of the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLocalRoot); v != "" {
		c.LocalRoot = v
	}
	if v := os.Getenv(EnvSharedRoot); v != "" {
		c.SharedRoot = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		c.Port = v
	}
	if v := os.Getenv(EnvHTTPPort); v != "" {
		c.HTTPPort = v
	}
	if v := os.Getenv(EnvDisableTLS); v != "" {
		c.DisableTLS = v == "true"
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v, err := strconv.ParseBool(os.Getenv(EnvAutoWrite)); err == nil {
		c.AutoWrite = v
	}
}

// Validate checks ports, log level and plugin identities.
func (c Config) Validate() error {
	for name, port := range map[string]string{"port": c.Port, "http_port": c.HTTPPort} {
		n, err := strconv.Atoi(port)
		if err != nil || n < 0 || n > 65535 {
			return fmt.Errorf("%w: %s %q is not a port number", ErrInvalidConfig, name, port)
		}
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.PluginIdentities(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for _, p := range c.Plugins {
		for target, rule := range p.Rules {
			if _, err := settings.CompileRule(rule); err != nil {
				return fmt.Errorf("%w: plugin %s rule %s: %v", ErrInvalidConfig, p.Name, target, err)
			}
		}
	}
	return nil
}

// PluginIdentities parses every configured plugin.
func (c Config) PluginIdentities() ([]schema.Plugin, error) {
	seen := make(map[string]bool, len(c.Plugins))
	out := make([]schema.Plugin, 0, len(c.Plugins))
	for _, pc := range c.Plugins {
		p, err := schema.ParsePlugin(pc.Name, pc.ID)
		if err != nil {
			return nil, err
		}
		if !p.Ready() {
			return nil, fmt.Errorf("plugin %q: name and id are required", pc.Name)
		}
		if seen[p.ID.String()] {
			return nil, fmt.Errorf("plugin %q: duplicate id %s", pc.Name, p.ID)
		}
		seen[p.ID.String()] = true
		out = append(out, p)
	}
	return out, nil
}

// Resolver returns a resolver for the configured roots, filling unset roots
// from the platform defaults.
func (c Config) Resolver() (settings.DirResolver, error) {
	r := settings.DirResolver{LocalRoot: c.LocalRoot, SharedRoot: c.SharedRoot}
	if r.LocalRoot != "" && r.SharedRoot != "" {
		return r, nil
	}
	def, err := settings.DefaultResolver()
	if err != nil {
		return settings.DirResolver{}, err
	}
	if r.LocalRoot == "" {
		r.LocalRoot = def.LocalRoot
	}
	if r.SharedRoot == "" {
		r.SharedRoot = def.SharedRoot
	}
	return r, nil
}

// SlogLevel returns the configured log level.
func (c Config) SlogLevel() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// SplitRuleTarget splits a rule target into command and key. A target with no
// slash names a plugin-level key.
func SplitRuleTarget(target string) (command, key string) {
	if i := strings.LastIndex(target, "/"); i >= 0 {
		return target[:i], target[i+1:]
	}
	return "", target
}
