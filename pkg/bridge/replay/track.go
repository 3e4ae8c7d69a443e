// Package replay implements platform.NativeBridge from a recorded track.
//
// A track is a YAML list of readings and failures. The bridge answers the
// geolocation method channel the way a browser host would and plays the
// track back as events, so programs and tests can run without a device.
//
//	name: thames
//	loop: false
//	steps:
//	  - position: {latitude: 51.5007, longitude: -0.1246, accuracy: 12}
//	  - delay: 1s
//	    position: {latitude: 51.5010, longitude: -0.1220, accuracy: 8, speed: 1.4}
//	  - delay: 500ms
//	    error: {code: 2, message: "signal lost"}
package replay

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Track is a sequence of steps played back in order.
type Track struct {
	Name string `yaml:"name"`
	// Loop restarts a watch at the first step after the last one.
	Loop  bool   `yaml:"loop"`
	Steps []Step `yaml:"steps"`
}

// Step is one reading or one failure. Delay is waited before it is emitted.
type Step struct {
	Delay    time.Duration `yaml:"delay"`
	Position *Reading      `yaml:"position"`
	Error    *Failure      `yaml:"error"`
}

// Reading mirrors the coordinates object a browser reports.
type Reading struct {
	Latitude         float64  `yaml:"latitude"`
	Longitude        float64  `yaml:"longitude"`
	Accuracy         float64  `yaml:"accuracy"`
	Altitude         *float64 `yaml:"altitude"`
	AltitudeAccuracy *float64 `yaml:"altitudeAccuracy"`
	Heading          *float64 `yaml:"heading"`
	Speed            *float64 `yaml:"speed"`
	// Timestamp is milliseconds since the epoch. When absent the reading
	// is stamped with the time it is emitted; an explicit 0 is kept.
	Timestamp *uint64 `yaml:"timestamp"`
}

// Failure mirrors a browser GeolocationPositionError. Code is not checked
// here so tracks can carry codes a host should never send.
type Failure struct {
	Code    int    `yaml:"code"`
	Message string `yaml:"message"`
}

// LoadTrack reads and parses a track file.
func LoadTrack(path string) (*Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read track: %w", err)
	}
	track, err := ParseTrack(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return track, nil
}

// ParseTrack parses a YAML track and validates its steps.
func ParseTrack(data []byte) (*Track, error) {
	var track Track
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&track); err != nil {
		return nil, fmt.Errorf("parse track: %w", err)
	}
	if err := track.Validate(); err != nil {
		return nil, err
	}
	return &track, nil
}

// Validate checks that the track has steps and that each step is exactly
// one of a position or an error.
func (t *Track) Validate() error {
	if len(t.Steps) == 0 {
		return fmt.Errorf("track %q has no steps", t.Name)
	}
	for i, step := range t.Steps {
		if (step.Position == nil) == (step.Error == nil) {
			return fmt.Errorf("step %d: exactly one of position or error is required", i)
		}
		if step.Delay < 0 {
			return fmt.Errorf("step %d: negative delay %s", i, step.Delay)
		}
	}
	return nil
}
