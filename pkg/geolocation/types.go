package geolocation

import (
	"fmt"
	"math"
	"time"
)

// NoTimeout is the timeout value meaning "wait as long as it takes".
const NoTimeout uint32 = math.MaxUint32

// Coordinates is a single geographic reading.
// Optional fields are nil when the host did not provide them.
type Coordinates struct {
	// Latitude is in decimal degrees.
	Latitude float64
	// Longitude is in decimal degrees.
	Longitude float64
	// Altitude is meters above the WGS84 ellipsoid.
	Altitude *float64
	// Accuracy is the 95% confidence radius of the lat/long in meters.
	Accuracy float64
	// AltitudeAccuracy is the 95% confidence of Altitude in meters.
	AltitudeAccuracy *float64
	// Heading is the direction of travel in degrees clockwise from true north.
	Heading *float64
	// Speed is the horizontal ground speed in meters per second.
	Speed *float64
}

// Position is a reading plus the time it was acquired.
type Position struct {
	Coords Coordinates
	// Timestamp is milliseconds since the Unix epoch.
	Timestamp uint64
}

// Time returns Timestamp as a time.Time.
func (p Position) Time() time.Time {
	return time.UnixMilli(int64(p.Timestamp))
}

func (p Position) String() string {
	return fmt.Sprintf("%.6f,%.6f ±%.0fm @%d", p.Coords.Latitude, p.Coords.Longitude, p.Coords.Accuracy, p.Timestamp)
}

// PositionOptions configures a single request. The JSON form is the one
// navigator.geolocation and the channel protocol expect.
type PositionOptions struct {
	// EnableHighAccuracy asks for the best possible reading at a cost in
	// power and latency.
	EnableHighAccuracy bool `json:"enableHighAccuracy" yaml:"highAccuracy"`
	// TimeoutMs bounds how long the host may take to produce a reading.
	TimeoutMs uint32 `json:"timeout" yaml:"timeoutMs"`
	// MaximumAge accepts a cached reading no older than this many milliseconds.
	MaximumAge uint32 `json:"maximumAge" yaml:"maximumAgeMs"`
}

// DefaultPositionOptions returns low accuracy, no timeout and no cached readings.
func DefaultPositionOptions() PositionOptions {
	return PositionOptions{TimeoutMs: NoTimeout}
}

func resolveOptions(opts *PositionOptions) PositionOptions {
	if opts == nil {
		return DefaultPositionOptions()
	}
	return *opts
}

// PositionErrorCode identifies why the host could not produce a reading.
type PositionErrorCode uint16

const (
	// PermissionDenied means the user or host policy refused access.
	PermissionDenied PositionErrorCode = 1
	// PositionUnavailable means no provider could determine the position.
	PositionUnavailable PositionErrorCode = 2
	// Timeout means TimeoutMs elapsed before a reading was available.
	Timeout PositionErrorCode = 3
)

func (c PositionErrorCode) String() string {
	switch c {
	case PermissionDenied:
		return "permission denied"
	case PositionUnavailable:
		return "position unavailable"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("PositionErrorCode(%d)", uint16(c))
	}
}

func (c PositionErrorCode) valid() bool {
	return c >= PermissionDenied && c <= Timeout
}

// PositionError is a failure reported by the host.
type PositionError struct {
	Code    PositionErrorCode
	Message string
}

func (e PositionError) Error() string {
	if e.Message == "" {
		return "geolocation: " + e.Code.String()
	}
	return "geolocation: " + e.Code.String() + ": " + e.Message
}
