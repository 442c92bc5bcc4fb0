package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"
)

// Brushes paint one sprite each. They are called from table cell renderers,
// never from the per-frame path, so they favour gg's convenience over speed.

// Circle paints a filled disc of radius r. r <= 0 yields a single pixel.
func Circle(r int, c color.NRGBA) *Sprite {
	if r <= 0 {
		dc := gg.NewContext(1, 1)
		dc.SetColor(c)
		dc.SetPixel(0, 0)
		return fromContext(dc)
	}
	d := 2*r + 1
	dc := gg.NewContext(d, d)
	dc.DrawCircle(float64(r)+0.5, float64(r)+0.5, float64(r)+0.5)
	dc.SetColor(c)
	dc.Fill()
	return fromContext(dc)
}

// Ring paints a circle outline of radius r and the given stroke width.
func Ring(r, width float64, c color.NRGBA) *Sprite {
	half := int(math.Ceil(r + width/2))
	d := 2*half + 1
	dc := gg.NewContext(d, d)
	dc.DrawCircle(float64(half)+0.5, float64(half)+0.5, r)
	dc.SetLineWidth(width)
	dc.SetColor(c)
	dc.Stroke()
	return fromContext(dc)
}

// Polygon paints a filled regular polygon of circumradius r rotated by
// rotation degrees.
func Polygon(r float64, sides int, rotation float64, c color.NRGBA) *Sprite {
	if sides < 3 {
		sides = 3
	}
	half := int(math.Ceil(r))
	d := 2*half + 1
	dc := gg.NewContext(d, d)
	dc.DrawRegularPolygon(sides, float64(half)+0.5, float64(half)+0.5, r, gg.Radians(rotation))
	dc.SetColor(c)
	dc.Fill()
	return fromContext(dc)
}

// Scaled paints src scaled by factor with its opacity multiplied by alpha.
func Scaled(src image.Image, factor float64, alpha uint8) *Sprite {
	b := src.Bounds()
	w := max(1, int(math.Round(float64(b.Dx())*factor)))
	h := max(1, int(math.Round(float64(b.Dy())*factor)))

	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Rect, src, b, xdraw.Src, nil)
	if alpha == 255 {
		return NewSprite(scaled)
	}

	out := image.NewRGBA(scaled.Rect)
	draw.DrawMask(out, out.Rect, scaled, image.Point{}, image.NewUniform(color.Alpha{A: alpha}), image.Point{}, draw.Over)
	return NewSprite(out)
}

func fromContext(dc *gg.Context) *Sprite {
	return NewSprite(dc.Image())
}
