package components

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/go-drift/geolocation/pkg/geolocation"
)

const (
	snapshotWidth  = 640
	snapshotHeight = 480
	snapshotMargin = 32
)

var (
	snapshotBackground = color.RGBA{0x11, 0x18, 0x27, 0xff}
	snapshotLine       = color.RGBA{0x7d, 0xd3, 0xfc, 0xff}
	snapshotPoint      = color.RGBA{0xa8, 0xe6, 0xcf, 0xff}
	snapshotText       = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
)

// RenderTrack draws the readings as a polyline scaled to fit the image,
// with the reading count and the bounding box printed at the top.
func RenderTrack(history []geolocation.Position) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, snapshotWidth, snapshotHeight))
	for y := 0; y < snapshotHeight; y++ {
		for x := 0; x < snapshotWidth; x++ {
			img.SetRGBA(x, y, snapshotBackground)
		}
	}

	if len(history) == 0 {
		drawLabel(img, 8, 16, "no readings")
		return img
	}

	minLat, maxLat := math.Inf(1), math.Inf(-1)
	minLng, maxLng := math.Inf(1), math.Inf(-1)
	for _, p := range history {
		minLat = math.Min(minLat, p.Coords.Latitude)
		maxLat = math.Max(maxLat, p.Coords.Latitude)
		minLng = math.Min(minLng, p.Coords.Longitude)
		maxLng = math.Max(maxLng, p.Coords.Longitude)
	}
	spanLat := math.Max(maxLat-minLat, 1e-9)
	spanLng := math.Max(maxLng-minLng, 1e-9)
	innerW := float64(snapshotWidth - 2*snapshotMargin)
	innerH := float64(snapshotHeight - 2*snapshotMargin)
	project := func(p geolocation.Position) image.Point {
		x := snapshotMargin + (p.Coords.Longitude-minLng)/spanLng*innerW
		y := snapshotMargin + (maxLat-p.Coords.Latitude)/spanLat*innerH
		return image.Pt(int(math.Round(x)), int(math.Round(y)))
	}

	prev := project(history[0])
	for _, p := range history[1:] {
		next := project(p)
		drawLine(img, prev, next, snapshotLine)
		prev = next
	}
	for _, p := range history {
		pt := project(p)
		for dy := -2; dy <= 2; dy++ {
			for dx := -2; dx <= 2; dx++ {
				img.SetRGBA(pt.X+dx, pt.Y+dy, snapshotPoint)
			}
		}
	}

	drawLabel(img, 8, 16, fmt.Sprintf("%d readings", len(history)))
	drawLabel(img, 8, 30, fmt.Sprintf("lat %.5f..%.5f  lng %.5f..%.5f", minLat, maxLat, minLng, maxLng))
	return img
}

// WriteSnapshot renders history and writes it to path as a PNG.
func WriteSnapshot(path string, history []geolocation.Position) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, RenderTrack(history)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func drawLabel(img *image.RGBA, x, y int, text string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(snapshotText),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func drawLine(img *image.RGBA, a, b image.Point, c color.RGBA) {
	dx, dy := b.X-a.X, b.Y-a.Y
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		img.SetRGBA(a.X, a.Y, c)
		return
	}
	for i := 0; i <= steps; i++ {
		x := a.X + dx*i/steps
		y := a.Y + dy*i/steps
		img.SetRGBA(x, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
