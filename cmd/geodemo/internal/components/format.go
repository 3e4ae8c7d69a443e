package components

import (
	"fmt"
	"strings"

	"github.com/go-drift/geolocation/pkg/geolocation"
)

// formatCoords renders every field of a reading, "-" for absent ones.
func formatCoords(p geolocation.Position) string {
	c := p.Coords
	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-18s", label)), valueStyle.Render(value))
	}
	row("latitude", fmt.Sprintf("%.6f", c.Latitude))
	row("longitude", fmt.Sprintf("%.6f", c.Longitude))
	row("accuracy", fmt.Sprintf("%.1f m", c.Accuracy))
	row("altitude", optional(c.Altitude, "%.1f m"))
	row("altitude accuracy", optional(c.AltitudeAccuracy, "%.1f m"))
	row("heading", optional(c.Heading, "%.0f°"))
	row("speed", optional(c.Speed, "%.1f m/s"))
	row("timestamp", p.Time().UTC().Format("2006-01-02 15:04:05.000Z"))
	return strings.TrimRight(b.String(), "\n")
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func formatError(e geolocation.PositionError) string {
	return errorStyle.Render(fmt.Sprintf("error %d (%s): %s", e.Code, e.Code, e.Message))
}
