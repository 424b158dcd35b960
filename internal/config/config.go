// Package config loads monctl configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Environment variables (MONCTL_*)
//  2. Config file
//  3. Built-in defaults
//
// Config file search order:
//  1. .monctl.yaml in current directory
//  2. ~/.config/monctl/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all monctl configuration.
type Config struct {
	// DdcutilPath overrides the PATH lookup for the ddcutil binary.
	DdcutilPath string `yaml:"ddcutil_path"`

	// Timeouts as Go duration strings, e.g. "10s".
	CommandTimeout string `yaml:"command_timeout"` // single feature read/write
	DetectTimeout  string `yaml:"detect_timeout"`  // detection and capability scans
	AuthTimeout    string `yaml:"auth_timeout"`    // wait for the pkexec prompt

	// PermissionIndicators are the stderr substrings (case-insensitive)
	// that classify a non-zero exit as a permission failure. The defaults
	// are "permission" and "access"; locales with translated error text
	// may need their own list.
	PermissionIndicators []string `yaml:"permission_indicators"`

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs

	// Parsed durations (not from YAML, set after loading)
	CommandTimeoutDuration time.Duration `yaml:"-"`
	DetectTimeoutDuration  time.Duration `yaml:"-"`
	AuthTimeoutDuration    time.Duration `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		CommandTimeout: "10s",
		DetectTimeout:  "30s",
		AuthTimeout:    "120s",
	}
}

// Load reads configuration from file and environment variables.
// Environment variables always override file values.
func Load() (*Config, error) {
	cfg := Defaults()

	// Try to load config file
	if path, data, err := findConfigFile(); err == nil {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	// Environment variables override everything
	mergeEnv(cfg)

	// Parse durations
	var err error
	cfg.CommandTimeoutDuration, err = time.ParseDuration(cfg.CommandTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid command_timeout %q: %w", cfg.CommandTimeout, err)
	}
	cfg.DetectTimeoutDuration, err = time.ParseDuration(cfg.DetectTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid detect_timeout %q: %w", cfg.DetectTimeout, err)
	}
	cfg.AuthTimeoutDuration, err = time.ParseDuration(cfg.AuthTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid auth_timeout %q: %w", cfg.AuthTimeout, err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	// 1. Current directory
	if data, err := os.ReadFile(".monctl.yaml"); err == nil {
		return ".monctl.yaml", data, nil
	}

	// 2. XDG config dir / ~/.config
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "monctl", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.DdcutilPath != "" {
		cfg.DdcutilPath = file.DdcutilPath
	}
	if file.CommandTimeout != "" {
		cfg.CommandTimeout = file.CommandTimeout
	}
	if file.DetectTimeout != "" {
		cfg.DetectTimeout = file.DetectTimeout
	}
	if file.AuthTimeout != "" {
		cfg.AuthTimeout = file.AuthTimeout
	}
	if len(file.PermissionIndicators) > 0 {
		cfg.PermissionIndicators = file.PermissionIndicators
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) {
	if v := os.Getenv("MONCTL_DDCUTIL_PATH"); v != "" {
		cfg.DdcutilPath = v
	}
	if v := os.Getenv("MONCTL_COMMAND_TIMEOUT"); v != "" {
		cfg.CommandTimeout = v
	}
	if v := os.Getenv("MONCTL_DETECT_TIMEOUT"); v != "" {
		cfg.DetectTimeout = v
	}
	if v := os.Getenv("MONCTL_AUTH_TIMEOUT"); v != "" {
		cfg.AuthTimeout = v
	}
	if v := os.Getenv("MONCTL_PERMISSION_INDICATORS"); v != "" {
		var indicators []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				indicators = append(indicators, s)
			}
		}
		cfg.PermissionIndicators = indicators
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}
}
