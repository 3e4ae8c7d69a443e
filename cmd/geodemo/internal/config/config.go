// Package config loads the optional geodemo.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/geolocation/pkg/geolocation"
)

// FileName is the config file looked up in the working directory.
const FileName = "geodemo.yaml"

// SupportedMajor is the config schema major version this build reads.
const SupportedMajor = "v1"

// Sources a demo can read positions from.
const (
	SourceReplay  = "replay"
	SourceBrowser = "browser"
)

// DefaultAddr is where the browser bridge listens when none is configured.
const DefaultAddr = "localhost:8765"

// APIKeyEnv is consulted when geocode.apiKey is empty.
const APIKeyEnv = "GOOGLE_MAPS_API_KEY"

// Config represents geodemo.yaml.
type Config struct {
	Version  string         `yaml:"version,omitempty"`
	Source   string         `yaml:"source,omitempty"`
	Replay   ReplayConfig   `yaml:"replay"`
	Browser  BrowserConfig  `yaml:"browser"`
	Position PositionConfig `yaml:"position"`
	Geocode  GeocodeConfig  `yaml:"geocode"`
	Log      LogConfig      `yaml:"log"`
}

// ReplayConfig selects the track played by the replay source.
type ReplayConfig struct {
	// Track is a path to a track file. Empty means the built-in track.
	Track string `yaml:"track,omitempty"`
}

// BrowserConfig configures the browser bridge.
type BrowserConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// PositionConfig overrides the request options. Unset fields keep the
// geolocation defaults.
type PositionConfig struct {
	HighAccuracy *bool   `yaml:"highAccuracy,omitempty"`
	TimeoutMs    *uint32 `yaml:"timeoutMs,omitempty"`
	MaximumAgeMs *uint32 `yaml:"maximumAgeMs,omitempty"`
}

// GeocodeConfig configures reverse geocoding for the address demo.
type GeocodeConfig struct {
	APIKey string `yaml:"apiKey,omitempty"`
}

// LogConfig configures the session log.
type LogConfig struct {
	Dir     string `yaml:"dir,omitempty"`
	Verbose bool   `yaml:"verbose,omitempty"`
}

// Overrides are command-line values that win over the file.
type Overrides struct {
	Source string
	Track  string
	Addr   string
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Path    string
	Source  string
	Track   string
	Addr    string
	Options geolocation.PositionOptions
	APIKey  string
	LogDir  string
	Verbose bool
}

// LoadOptional reads the config at path if present. A missing file is an
// empty Config.
func LoadOptional(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := checkVersion(cfg.Version); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Resolve loads the config at path (if present), applies overrides and
// fills in defaults.
func Resolve(path string, o Overrides) (*Resolved, error) {
	if path == "" {
		path = FileName
	}
	cfg, err := LoadOptional(path)
	if err != nil {
		return nil, err
	}

	source := firstNonEmpty(o.Source, cfg.Source, SourceReplay)
	source = strings.ToLower(strings.TrimSpace(source))
	if source != SourceReplay && source != SourceBrowser {
		return nil, fmt.Errorf("unknown source %q (use %s or %s)", source, SourceReplay, SourceBrowser)
	}

	opts := geolocation.DefaultPositionOptions()
	if cfg.Position.HighAccuracy != nil {
		opts.EnableHighAccuracy = *cfg.Position.HighAccuracy
	}
	if cfg.Position.TimeoutMs != nil {
		opts.TimeoutMs = *cfg.Position.TimeoutMs
	}
	if cfg.Position.MaximumAgeMs != nil {
		opts.MaximumAge = *cfg.Position.MaximumAgeMs
	}

	return &Resolved{
		Path:    path,
		Source:  source,
		Track:   firstNonEmpty(o.Track, cfg.Replay.Track),
		Addr:    firstNonEmpty(o.Addr, cfg.Browser.Addr, DefaultAddr),
		Options: opts,
		APIKey:  firstNonEmpty(cfg.Geocode.APIKey, os.Getenv(APIKeyEnv)),
		LogDir:  cfg.Log.Dir,
		Verbose: cfg.Log.Verbose,
	}, nil
}

func checkVersion(version string) error {
	version = strings.TrimSpace(version)
	if version == "" {
		return nil
	}
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	if !semver.IsValid(version) {
		return fmt.Errorf("version %q is not a semantic version", version)
	}
	if major := semver.Major(version); major != SupportedMajor {
		return fmt.Errorf("config version %s is not supported (want %s.x)", version, SupportedMajor)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
