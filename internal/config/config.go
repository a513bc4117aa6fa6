// Package config loads the daemon configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML can say "5s" or "1m30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level daemon configuration.
type Config struct {
	// CheckEvery is the sweep interval. Defaults to 1s.
	CheckEvery Duration `yaml:"check_every"`
	// Recovery is the command run when a watchdog starves; the starved
	// dog's name is passed in DOGHOUSE_DOG. Optional.
	Recovery string `yaml:"recovery"`
	// History is the path of the SQLite bark journal. Empty disables it.
	History string `yaml:"history"`
	// Status is the listen address of the HTTP status endpoint. Empty
	// disables it.
	Status string      `yaml:"status"`
	Dogs   []DogConfig `yaml:"dogs"`
}

// DogConfig declares one watchdog. Exactly one of TimeoutS or MaxEvents
// must be set, matching the adoption rules.
type DogConfig struct {
	Name      string      `yaml:"name"`
	TimeoutS  *float64    `yaml:"timeout_s"`
	MaxEvents *int        `yaml:"max_events"`
	Probe     ProbeConfig `yaml:"probe"`
	Every     Duration    `yaml:"every"` // probe interval, defaults to CheckEvery
}

// ProbeConfig selects how activity is observed for a dog.
type ProbeConfig struct {
	// Kind is "file" (heartbeat file mtime) or "exec" (command exit
	// status).
	Kind    string `yaml:"kind"`
	Path    string `yaml:"path"`
	Command string `yaml:"command"`
}

// Timeout returns the configured timeout as a duration.
func (d DogConfig) Timeout() time.Duration {
	if d.TimeoutS == nil {
		return 0
	}
	return time.Duration(*d.TimeoutS * float64(time.Second))
}

// Load reads YAML configuration from a path. If path is empty, it
// resolves $XDG_CONFIG_HOME/doghouse/config.yaml or
// ~/.config/doghouse/config.yaml.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".config")
		}
		path = filepath.Join(base, "doghouse", "config.yaml")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.CheckEvery <= 0 {
		cfg.CheckEvery = Duration(time.Second)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot act on.
func (c Config) Validate() error {
	seen := make(map[string]bool, len(c.Dogs))
	for i, d := range c.Dogs {
		if d.Name == "" {
			return fmt.Errorf("dog %d: name is required", i)
		}
		if seen[d.Name] {
			return fmt.Errorf("dog %q: declared twice", d.Name)
		}
		seen[d.Name] = true
		if (d.TimeoutS == nil) == (d.MaxEvents == nil) {
			return fmt.Errorf("dog %q: exactly one of timeout_s or max_events must be set", d.Name)
		}
		if d.TimeoutS != nil && *d.TimeoutS <= 0 {
			return fmt.Errorf("dog %q: timeout_s must be positive", d.Name)
		}
		if d.MaxEvents != nil && *d.MaxEvents < 0 {
			return fmt.Errorf("dog %q: max_events must not be negative", d.Name)
		}
		switch d.Probe.Kind {
		case "file":
			if d.Probe.Path == "" {
				return fmt.Errorf("dog %q: file probe needs a path", d.Name)
			}
		case "exec":
			if d.Probe.Command == "" {
				return fmt.Errorf("dog %q: exec probe needs a command", d.Name)
			}
		case "":
			// No probe: the dog is fed externally, e.g. over the status API.
		default:
			return fmt.Errorf("dog %q: unknown probe kind %q", d.Name, d.Probe.Kind)
		}
	}
	return nil
}
