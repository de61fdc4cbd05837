// Package rules loads the optional rules file controlling run behavior:
// concurrency limits, connection timeouts, and log file handling.
package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/routewatch-net/routewatch/pkg/util"
)

// Rules holds the parsed rules document. Zero values mean "not set" and
// callers fall back to their own defaults.
type Rules struct {
	Performance Performance `yaml:"performance"`
	Logging     Logging     `yaml:"logging"`
}

// Performance tunes fleet-wide execution.
type Performance struct {
	// MaxConcurrentDevices caps how many devices are processed at once.
	MaxConcurrentDevices int `yaml:"max_concurrent_devices"`

	// ConnectionTimeout, in seconds, overrides every device's connect
	// timeout for the run when set.
	ConnectionTimeout int `yaml:"connection_timeout"`
}

// Logging configures rotating file logging for the run.
type Logging struct {
	Enabled     bool   `yaml:"enabled"`
	Level       string `yaml:"level"`
	File        string `yaml:"file"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
	BackupCount int    `yaml:"backup_count"`
	Console     *bool  `yaml:"console"`
}

// Load reads and validates the rules file at path. Unset values are left
// at zero; values that are set must be in range.
func Load(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("rules file %s: %w", path, util.ErrNotFound)
		}
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing rules file %s: %w", path, err)
	}

	v := &util.ValidationBuilder{}
	if r.Performance.MaxConcurrentDevices < 0 {
		v.AddErrorf("max_concurrent_devices %d is negative", r.Performance.MaxConcurrentDevices)
	}
	if r.Performance.ConnectionTimeout < 0 {
		v.AddErrorf("connection_timeout %d is negative", r.Performance.ConnectionTimeout)
	}
	if r.Logging.MaxSizeMB < 0 {
		v.AddErrorf("max_size_mb %d is negative", r.Logging.MaxSizeMB)
	}
	if r.Logging.BackupCount < 0 {
		v.AddErrorf("backup_count %d is negative", r.Logging.BackupCount)
	}
	if err := v.Build(); err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return &r, nil
}

// ApplyLogging reconfigures the global logger from the logging block.
// A {timestamp} placeholder in the file name is replaced with now in
// 20060102-150405 form. Does nothing unless logging is enabled.
func (r *Rules) ApplyLogging(now time.Time) error {
	cfg := r.Logging
	if !cfg.Enabled {
		return nil
	}

	file := cfg.File
	if file == "" {
		file = "data/logs.txt"
	}
	file = strings.ReplaceAll(file, "{timestamp}", now.Format("20060102-150405"))

	if dir := filepath.Dir(file); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
	}

	rotation := util.RotationConfig{MaxSizeMB: 10, BackupCount: 5}
	if cfg.MaxSizeMB > 0 {
		rotation.MaxSizeMB = cfg.MaxSizeMB
	}
	if cfg.BackupCount > 0 {
		rotation.BackupCount = cfg.BackupCount
	}

	console := true
	if cfg.Console != nil {
		console = *cfg.Console
	}
	util.SetRotatingFile(file, rotation, console)

	if cfg.Level != "" {
		if err := util.SetLogLevel(cfg.Level); err != nil {
			return fmt.Errorf("log level %q: %w", cfg.Level, util.ErrInvalidConfig)
		}
	}

	util.Infof("Logging to %s (rotate at %dMB, keep %d)", file, rotation.MaxSizeMB, rotation.BackupCount)
	return nil
}
