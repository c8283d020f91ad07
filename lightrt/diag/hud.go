package diag

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const hudPadding = 4

// RenderStats rasterizes text, one line per row, white on black.
func RenderStats(text string) *image.RGBA {
	face := basicfont.Face7x13
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")

	width := 0
	for _, line := range lines {
		if w := font.MeasureString(face, line).Ceil(); w > width {
			width = w
		}
	}
	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()

	img := image.NewRGBA(image.Rect(0, 0, width+2*hudPadding, len(lines)*lineHeight+2*hudPadding))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
	}
	for i, line := range lines {
		d.Dot = fixed.P(hudPadding, hudPadding+i*lineHeight+metrics.Ascent.Ceil())
		d.DrawString(line)
	}
	return img
}
