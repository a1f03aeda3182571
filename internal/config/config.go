// Package config handles humanlang.toml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the project configuration file searched for next to scripts.
const FileName = "humanlang.toml"

// Config represents a humanlang.toml file.
type Config struct {
	Run      Run      `toml:"run"`
	Imports  Imports  `toml:"imports"`
	Timeouts Timeouts `toml:"timeouts"`
	REPL     REPL     `toml:"repl"`

	// Dir is the directory containing the file (set at load time).
	Dir string `toml:"-"`
}

// Run configures script execution.
type Run struct {
	LogLevel  string `toml:"log_level"`
	CheckOnly bool   `toml:"check_only"`
}

// Imports configures library resolution.
type Imports struct {
	Paths []string `toml:"paths"`
}

// REPL configures the interactive shell.
type REPL struct {
	HistoryFile string `toml:"history_file"`
}

// Timeouts holds the per-operation limits for capability calls.
type Timeouts struct {
	Default    Duration `toml:"default"`
	HTTP       Duration `toml:"http"`
	Ping       Duration `toml:"ping"`
	Traceroute Duration `toml:"traceroute"`
	PortScan   Duration `toml:"portscan"`
	Discover   Duration `toml:"discover"`
	Send       Duration `toml:"send"`
}

// Duration is a time.Duration written as a Go duration string ("15s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// For returns the timeout configured for a [timeouts] key, falling back to
// the default.
func (t Timeouts) For(key string) time.Duration {
	var d Duration
	switch key {
	case "":
		return 0
	case "http":
		d = t.HTTP
	case "ping":
		d = t.Ping
	case "traceroute":
		d = t.Traceroute
	case "portscan":
		d = t.PortScan
	case "discover":
		d = t.Discover
	case "send":
		d = t.Send
	}
	if d.Duration > 0 {
		return d.Duration
	}
	return t.Default.Duration
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Run:  Run{LogLevel: "none"},
		REPL: REPL{HistoryFile: "~/.humanlang_history"},
		Timeouts: Timeouts{
			Default:    Duration{10 * time.Second},
			HTTP:       Duration{15 * time.Second},
			Ping:       Duration{4 * time.Second},
			Traceroute: Duration{30 * time.Second},
			PortScan:   Duration{5 * time.Second},
			Discover:   Duration{3 * time.Second},
			Send:       Duration{3 * time.Second},
		},
	}
}

// Load parses the humanlang.toml file in dir on top of the defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a humanlang.toml file. When
// none exists the defaults are returned with Dir set to startDir.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	start := dir

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			c := Default()
			c.Dir = start
			return c, nil
		}
		dir = parent
	}
}

// ImportPaths returns absolute paths for the configured library directories.
func (c *Config) ImportPaths() []string {
	var paths []string
	for _, p := range c.Imports.Paths {
		if filepath.IsAbs(p) {
			paths = append(paths, p)
			continue
		}
		paths = append(paths, filepath.Join(c.Dir, p))
	}
	return paths
}

// HistoryPath returns the REPL history file with a leading ~ expanded. It is
// empty when history is disabled or the home directory is unknown.
func (c *Config) HistoryPath() string {
	p := c.REPL.HistoryFile
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
	}
	return p
}
