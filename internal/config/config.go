// Package config loads the YAML configuration of git-line-patch.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"gopkg.in/yaml.v3"
)

const defaultConfigRelPath = "git-line-patch/config.yaml"

const (
	keyApplyTimeout          = "apply_timeout"
	keyEncoding              = "encoding"
	keyStripFileModeWarnings = "strip_file_mode_warnings"
)

// StripMode decides when file mode warnings are removed from git apply output
type StripMode string

const (
	StripAuto   StripMode = "auto"
	StripAlways StripMode = "always"
	StripNever  StripMode = "never"
)

// Enabled reports whether warnings are stripped on goos. auto strips on
// Windows only, where the executable bit is not tracked.
func (m StripMode) Enabled(goos string) bool {
	switch m {
	case StripAlways:
		return true
	case StripNever:
		return false
	default:
		return goos == "windows"
	}
}

func parseStripMode(s string) (StripMode, error) {
	switch m := StripMode(strings.ToLower(s)); m {
	case StripAuto, StripAlways, StripNever:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q (want auto, always or never)", s)
}

type fileConfig struct {
	Git                   *string `yaml:"git"`
	ApplyTimeout          *string `yaml:"apply_timeout"`
	BlockUntilReload      *bool   `yaml:"block_until_reload"`
	WholeFileFallback     *bool   `yaml:"whole_file_fallback"`
	ValidatePatches       *bool   `yaml:"validate_patches"`
	Encoding              *string `yaml:"encoding"`
	StripFileModeWarnings *string `yaml:"strip_file_mode_warnings"`
}

// Config is the effective configuration
type Config struct {
	Git               string
	ApplyTimeout      time.Duration
	BlockUntilReload  bool
	WholeFileFallback bool
	ValidatePatches   bool
	// Encoding of file content; nil means UTF-8
	Encoding              encoding.Encoding
	EncodingName          string
	StripFileModeWarnings StripMode
}

// Default returns the configuration used when no file sets a key
func Default() Config {
	return Config{
		Git:                   "git",
		ApplyTimeout:          30 * time.Second,
		BlockUntilReload:      true,
		WholeFileFallback:     true,
		ValidatePatches:       true,
		EncodingName:          "utf-8",
		StripFileModeWarnings: StripAuto,
	}
}

// StripWarnings reports whether file mode warnings are stripped on this platform
func (c Config) StripWarnings() bool {
	return c.StripFileModeWarnings.Enabled(runtime.GOOS)
}

// SetEncoding sets the content encoding by its IANA or WHATWG name
func (c *Config) SetEncoding(name string) error {
	enc, canonical, err := ParseEncoding(name)
	if err != nil {
		return err
	}
	c.Encoding = enc
	c.EncodingName = canonical
	return nil
}

// ParseEncoding looks up an encoding by name. UTF-8 is returned as nil so
// content passes through unchanged.
func ParseEncoding(name string) (encoding.Encoding, string, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, "", fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	canonical, err := htmlindex.Name(enc)
	if err != nil {
		return nil, "", fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if canonical == "utf-8" {
		return nil, canonical, nil
	}
	return enc, canonical, nil
}

// Path is a resolved configuration file location
type Path struct {
	Path string
	// Required is set for an explicit path, which must exist
	Required bool
}

// ResolvePath returns explicitPath, or the default location under configHome
func ResolvePath(configHome, explicitPath string) Path {
	if explicitPath != "" {
		return Path{Path: explicitPath, Required: true}
	}
	return Path{Path: filepath.Join(configHome, defaultConfigRelPath)}
}

// Load reads the configuration file and applies it over Default
func Load(configHome, explicitPath string) (Config, error) {
	path := ResolvePath(configHome, explicitPath)
	return read(path.Path, path.Required)
}

func read(path string, required bool) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var fc fileConfig
	if err := decoder.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("parse config %q: %w", path, err)
	}

	if err := apply(&cfg, fc); err != nil {
		return Config{}, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return cfg, nil
}

func apply(cfg *Config, fc fileConfig) error {
	if fc.Git != nil && *fc.Git != "" {
		cfg.Git = *fc.Git
	}
	if fc.ApplyTimeout != nil {
		d, err := time.ParseDuration(*fc.ApplyTimeout)
		if err != nil {
			return fmt.Errorf("key %q: %w", keyApplyTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("key %q: must be positive", keyApplyTimeout)
		}
		cfg.ApplyTimeout = d
	}
	if fc.BlockUntilReload != nil {
		cfg.BlockUntilReload = *fc.BlockUntilReload
	}
	if fc.WholeFileFallback != nil {
		cfg.WholeFileFallback = *fc.WholeFileFallback
	}
	if fc.ValidatePatches != nil {
		cfg.ValidatePatches = *fc.ValidatePatches
	}
	if fc.Encoding != nil {
		if err := cfg.SetEncoding(*fc.Encoding); err != nil {
			return fmt.Errorf("key %q: %w", keyEncoding, err)
		}
	}
	if fc.StripFileModeWarnings != nil {
		mode, err := parseStripMode(*fc.StripFileModeWarnings)
		if err != nil {
			return fmt.Errorf("key %q: %w", keyStripFileModeWarnings, err)
		}
		cfg.StripFileModeWarnings = mode
	}
	return nil
}
