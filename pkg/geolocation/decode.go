package geolocation

import (
	"fmt"
	"math"

	"github.com/go-drift/geolocation/pkg/platform"
)

// maxSafeTimestamp is the largest millisecond count a float64 carries exactly.
const maxSafeTimestamp = 1 << 53

// DecodeError reports a native payload that does not have the expected shape.
type DecodeError struct {
	// Type is the value being decoded ("Position" or "PositionError").
	Type string
	// Field is the offending field, empty when the payload itself is wrong.
	Field string
	// Got is the value found.
	Got any
	// Reason describes the mismatch.
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode %s: %s (got %T)", e.Type, e.Reason, e.Got)
	}
	return fmt.Sprintf("decode %s.%s: %s (got %T %v)", e.Type, e.Field, e.Reason, e.Got, e.Got)
}

// DecodePosition converts a raw native reading into a Position.
//
// The payload is an object with a "coords" object and a "timestamp" number
// of milliseconds. latitude, longitude and accuracy are required;
// altitude, altitudeAccuracy, heading and speed may be absent or null.
// A fractional timestamp is truncated toward zero.
func DecodePosition(raw any) (Position, error) {
	m, ok := platform.AsMap(raw)
	if !ok {
		return Position{}, &DecodeError{Type: "Position", Got: raw, Reason: "expected object"}
	}
	coordsRaw, ok := platform.AsMap(m["coords"])
	if !ok {
		return Position{}, &DecodeError{Type: "Position", Field: "coords", Got: m["coords"], Reason: "expected object"}
	}

	d := fieldDecoder{typ: "Position", m: coordsRaw}
	coords := Coordinates{
		Latitude:         d.required("latitude"),
		Longitude:        d.required("longitude"),
		Accuracy:         d.required("accuracy"),
		Altitude:         d.optional("altitude"),
		AltitudeAccuracy: d.optional("altitudeAccuracy"),
		Heading:          d.optional("heading"),
		Speed:            d.optional("speed"),
	}
	if d.err != nil {
		return Position{}, d.err
	}

	ts, err := decodeTimestamp(m["timestamp"])
	if err != nil {
		return Position{}, err
	}
	return Position{Coords: coords, Timestamp: ts}, nil
}

// DecodePositionError converts a raw native error record into a PositionError.
// Codes outside 1..3 are rejected.
func DecodePositionError(raw any) (PositionError, error) {
	m, ok := platform.AsMap(raw)
	if !ok {
		return PositionError{}, &DecodeError{Type: "PositionError", Got: raw, Reason: "expected object"}
	}
	n, ok := platform.AsInt64(m["code"])
	if !ok || n < 0 || n > math.MaxUint16 || !PositionErrorCode(n).valid() {
		return PositionError{}, &DecodeError{Type: "PositionError", Field: "code", Got: m["code"], Reason: "expected 1, 2 or 3"}
	}
	msg, ok := platform.AsString(m["message"])
	if !ok && m["message"] != nil {
		return PositionError{}, &DecodeError{Type: "PositionError", Field: "message", Got: m["message"], Reason: "expected string"}
	}
	return PositionError{Code: PositionErrorCode(n), Message: msg}, nil
}

func decodeTimestamp(v any) (uint64, error) {
	f, ok := platform.AsFloat64(v)
	if !ok || math.IsNaN(f) || f < 0 || f > maxSafeTimestamp {
		return 0, &DecodeError{Type: "Position", Field: "timestamp", Got: v, Reason: "expected non-negative millisecond count"}
	}
	return uint64(f), nil
}

// fieldDecoder keeps the first error so a record decodes in one pass.
type fieldDecoder struct {
	typ string
	m   map[string]any
	err error
}

func (d *fieldDecoder) required(field string) float64 {
	if d.err != nil {
		return 0
	}
	v := d.m[field]
	f, ok := platform.AsFloat64(v)
	if !ok || math.IsNaN(f) {
		d.err = &DecodeError{Type: d.typ, Field: field, Got: v, Reason: "expected number"}
		return 0
	}
	return f
}

func (d *fieldDecoder) optional(field string) *float64 {
	if d.err != nil {
		return nil
	}
	v, present := d.m[field]
	if !present || v == nil {
		return nil
	}
	f, ok := platform.AsFloat64(v)
	if !ok {
		d.err = &DecodeError{Type: d.typ, Field: field, Got: v, Reason: "expected number or null"}
		return nil
	}
	return &f
}
