// Package render produces the 64x64 JPEG bitmaps the k1-pro expects on
// its button displays. The driver itself never imports this package;
// images reach it as opaque encoded bytes.
package render

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"github.com/disintegration/gift"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Size is the square pixel size of one button display.
const Size = 64

const jpegQuality = 90

// Button renders a label and optional sublabel on a solid background
// and encodes the result as JPEG. The device shows images rotated 90
// degrees counter-clockwise, so the bitmap is rotated 270 degrees
// before encoding.
func Button(label, sublabel string, bg color.Color) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, Size, Size))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	if label != "" {
		baseline := 36
		if sublabel != "" {
			baseline = 28
		}
		drawCentered(img, label, baseline)
	}
	if sublabel != "" {
		drawCentered(img, sublabel, 48)
	}

	g := gift.New(gift.Rotate270())
	rotated := image.NewRGBA(g.Bounds(img.Bounds()))
	g.Draw(rotated, img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rotated, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawCentered(dst draw.Image, text string, baseline int) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	x := (Size - width) / 2
	if x < 0 {
		x = 0
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(text)
}
