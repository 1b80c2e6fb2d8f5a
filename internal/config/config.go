// Package config loads arbor configuration from defaults, an optional YAML
// file and ARBOR_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. ARBOR_SERVER_ADDR.
const EnvPrefix = "ARBOR"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverFile   = "file"
)

// Answerer kinds.
const (
	AnswererEcho    = "echo"
	AnswererProcess = "process"
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Answerer AnswererConfig `mapstructure:"answerer" yaml:"answerer"`
	Client   ClientConfig   `mapstructure:"client" yaml:"client"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// ServerConfig configures the HTTP collaborator.
type ServerConfig struct {
	Addr        string   `mapstructure:"addr" yaml:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// StoreConfig selects and configures the tree store.
type StoreConfig struct {
	Driver   string        `mapstructure:"driver" yaml:"driver"`
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
	LockTTL  time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
	Path     string        `mapstructure:"path" yaml:"path"`

	// EncryptionKey, if set, is a base64 AES-256 key; trees are then
	// stored sealed. FallbackKeys are older keys still accepted on read.
	EncryptionKey string   `mapstructure:"encryption_key" yaml:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys" yaml:"fallback_keys"`
}

// AnswererConfig selects what produces answers.
// For kind "process", either Command is set inline or Name picks an entry
// from the answerers file at File.
type AnswererConfig struct {
	Kind    string            `mapstructure:"kind" yaml:"kind"`
	Name    string            `mapstructure:"name" yaml:"name"`
	File    string            `mapstructure:"file" yaml:"file"`
	Command string            `mapstructure:"command" yaml:"command"`
	Args    []string          `mapstructure:"args" yaml:"args"`
	Env     map[string]string `mapstructure:"env" yaml:"env"`
	Timeout time.Duration     `mapstructure:"timeout" yaml:"timeout"`
}

// ClientConfig configures commands that talk to a running server.
type ClientConfig struct {
	BaseURL      string `mapstructure:"base_url" yaml:"base_url"`
	Conversation string `mapstructure:"conversation" yaml:"conversation"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() map[string]any {
	return map[string]any{
		"server": map[string]any{
			"addr":         ":5001",
			"cors_origins": []any{"*"},
		},
		"store": map[string]any{
			"driver":   DriverMemory,
			"addr":     "localhost:6379",
			"password": "",
			"db":       0,
			"prefix":   "arbor:tree:",
			"ttl":      "0s",
			"lock_ttl": "30s",
			"path":     ".arbor/conversations",

			"encryption_key": "",
			"fallback_keys":  []any{},
		},
		"answerer": map[string]any{
			"kind":    AnswererEcho,
			"name":    "",
			"file":    "answerers.yaml",
			"command": "",
			"args":    []any{},
			"env":     map[string]any{},
			"timeout": "2m",
		},
		"client": map[string]any{
			"base_url":     "http://localhost:5001",
			"conversation": "default",
		},
		"log": map[string]any{
			"level":  "info",
			"format": "text",
		},
		"metrics": map[string]any{
			"enabled": true,
			"path":    "/metrics",
		},
	}
}

// Load builds the configuration. path may be empty; a missing file at a
// non-empty path is an error.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	raw := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		var file map[string]any
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		merge(raw, file)
	}

	overlayEnv(raw, nil, lookup)

	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerations and required combinations.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverMemory, DriverRedis, DriverFile:
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q (want memory, redis or file)", c.Store.Driver))
	}
	switch c.Answerer.Kind {
	case AnswererEcho:
	case AnswererProcess:
		if c.Answerer.Command == "" && c.Answerer.Name == "" {
			errs = append(errs, errors.New("answerer: kind process needs command or name"))
		}
	default:
		errs = append(errs, fmt.Errorf("answerer.kind: unknown kind %q (want echo or process)", c.Answerer.Kind))
	}
	if c.Store.TTL < 0 || c.Answerer.Timeout < 0 || c.Store.LockTTL < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path: %q must start with /", c.Metrics.Path))
	}
	return errors.Join(errs...)
}

// merge copies src into dst, recursing into nested maps.
func merge(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				merge(existing, sub)
				continue
			}
		}
		dst[k] = v
	}
}

// overlayEnv replaces every known leaf with ARBOR_<PATH> when set, e.g.
// store.lock_ttl is ARBOR_STORE_LOCK_TTL. Lists are comma separated.
func overlayEnv(m map[string]any, path []string, lookup func(string) (string, bool)) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		p := append(append([]string{}, path...), k)
		if isFreeForm(p) {
			continue
		}
		if sub, ok := m[k].(map[string]any); ok {
			overlayEnv(sub, p, lookup)
			continue
		}
		name := EnvPrefix + "_" + strings.ToUpper(strings.Join(p, "_"))
		if v, ok := lookup(name); ok {
			m[k] = v
		}
	}
}

// isFreeForm reports maps whose keys are data, not schema.
func isFreeForm(path []string) bool {
	return len(path) == 2 && path[0] == "answerer" && path[1] == "env"
}
