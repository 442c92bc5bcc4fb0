// Package colors parses colour specifications and builds gradients.
package colors

import (
	"image/color"
	"math"
	"strconv"
	"strings"

	"sparkfx/internal/fxerr"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// Transparent is fully transparent black.
var Transparent = color.NRGBA{}

// Parse converts a colour name ("white", "orange") or a hex literal
// ("#fff", "#ffa500", "#ffa50040") into a non-premultiplied colour.
func Parse(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(s, "#") {
		return parseHex(s)
	}
	if c, ok := colornames.Map[s]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}, nil
	}
	return Transparent, fxerr.Invalid("unknown colour %q", s)
}

// MustParse is Parse for package-level colour tables; it panics on error.
func MustParse(s string) color.NRGBA {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseAll parses every spec, failing on the first bad one.
func ParseAll(specs ...string) ([]color.NRGBA, error) {
	out := make([]color.NRGBA, 0, len(specs))
	for _, s := range specs {
		c, err := Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// MustParseAll is ParseAll for package-level colour tables.
func MustParseAll(specs ...string) []color.NRGBA {
	out, err := ParseAll(specs...)
	if err != nil {
		panic(err)
	}
	return out
}

func parseHex(s string) (color.NRGBA, error) {
	alpha := uint8(255)
	switch len(s) {
	case 4, 7:
	case 5: // #rgba
		a, err := strconv.ParseUint(s[4:]+s[4:], 16, 8)
		if err != nil {
			return Transparent, fxerr.Invalid("bad alpha in %q", s)
		}
		alpha = uint8(a)
		s = s[:4]
	case 9: // #rrggbbaa
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return Transparent, fxerr.Invalid("bad alpha in %q", s)
		}
		alpha = uint8(a)
		s = s[:7]
	default:
		return Transparent, fxerr.Invalid("bad hex colour %q", s)
	}

	c, err := colorful.Hex(s)
	if err != nil {
		return Transparent, fxerr.Invalid("bad hex colour %q", s)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

// HSVA builds a colour from hue in degrees, saturation and value in [0,1].
func HSVA(h, s, v float64, a uint8) color.NRGBA {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	r, g, b := colorful.Hsv(h, s, v).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: a}
}

// WithAlpha returns c with its alpha replaced.
func WithAlpha(c color.NRGBA, a uint8) color.NRGBA {
	c.A = a
	return c
}

// Lerp interpolates channel-wise between a and b, rounding each channel.
func Lerp(a, b color.NRGBA, t float64) color.NRGBA {
	ca := colorful.Color{R: float64(a.R) / 255, G: float64(a.G) / 255, B: float64(a.B) / 255}
	cb := colorful.Color{R: float64(b.R) / 255, G: float64(b.G) / 255, B: float64(b.B) / 255}
	r, g, bl := ca.BlendRgb(cb, t).RGB255()
	alpha := math.Round(float64(a.A) + (float64(b.A)-float64(a.A))*t)
	return color.NRGBA{R: r, G: g, B: bl, A: uint8(alpha)}
}
