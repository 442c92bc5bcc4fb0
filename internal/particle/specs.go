package particle

import (
	"image/color"
	"math"

	"github.com/pkg/errors"

	"sparkfx/internal/colors"
	"sparkfx/internal/fxerr"
	"sparkfx/internal/render"
)

// HueSteps is the hue resolution of VelocityCircle tables.
const HueSteps = 360

// VelocityPalette is the looped palette of VelocityCircle when none is set.
var VelocityPalette = []color.NRGBA{
	{0xE8, 0x55, 0x4E, 0xFF},
	{0xF1, 0x9C, 0x65, 0xFF},
	{0xFF, 0xD2, 0x65, 0xFF},
	{0x2A, 0xA8, 0x76, 0xFF},
	{0x0A, 0x7B, 0x83, 0xFF},
}

// ageT returns age / maxAge in [0, 1).
func ageT(age, maxAge int) float64 {
	return float64(age) / float64(maxAge)
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func quantizeAge(g *Group, maxAge int, out []int) {
	for i, a := range g.age {
		out[i] = Clamp(a, maxAge)
	}
}

// Circle paints a disc whose colour follows Gradient over the lifetime and
// whose radius goes linearly from Radius to EndRadius.
// Table shape: (max age).
type Circle struct {
	Gradient  []color.NRGBA
	Radius    float64
	EndRadius float64

	maxAge int
	colors []color.NRGBA
}

func (c *Circle) Bind(k *Kind) (CellSpec, error) {
	grad, err := colors.Gradient(c.Gradient, k.MaxAge(), false)
	if err != nil {
		return nil, errors.Wrapf(err, "kind %s", k.Name())
	}
	b := *c
	b.maxAge, b.colors = k.MaxAge(), grad
	return &b, nil
}

func (c *Circle) Ranges() []int { return []int{c.maxAge} }

func (c *Circle) Quantize(g *Group, _ Env, out [][]int) {
	quantizeAge(g, c.maxAge, out[0])
}

func (c *Circle) RenderCell(idx []int) (*render.Sprite, error) {
	age := idx[0]
	r := lerp(c.Radius, c.EndRadius, ageT(age, c.maxAge))
	return render.Circle(int(math.Round(r)), c.colors[age]), nil
}

// PaletteCircle paints a disc in the palette colour picked by the color
// attribute, shrinking from Radius to EndRadius and fading out with age.
// Table shape: (max age, len(Palette)).
type PaletteCircle struct {
	Palette   []color.NRGBA
	Radius    float64
	EndRadius float64

	maxAge int
}

func (p *PaletteCircle) Bind(k *Kind) (CellSpec, error) {
	if len(p.Palette) == 0 {
		return nil, fxerr.Invalid("kind %s: palette circle needs a palette", k.Name())
	}
	if err := k.RequireAttr(AttrColor, Int); err != nil {
		return nil, err
	}
	b := *p
	b.maxAge = k.MaxAge()
	return &b, nil
}

func (p *PaletteCircle) Ranges() []int { return []int{p.maxAge, len(p.Palette)} }

func (p *PaletteCircle) Quantize(g *Group, _ Env, out [][]int) {
	quantizeAge(g, p.maxAge, out[0])
	for i, c := range g.ints[AttrColor] {
		out[1][i] = Clamp(c, len(p.Palette))
	}
}

func (p *PaletteCircle) RenderCell(idx []int) (*render.Sprite, error) {
	t := ageT(idx[0], p.maxAge)
	r := lerp(p.Radius, p.EndRadius, t)
	alpha := uint8(math.Round(float64(p.Palette[idx[1]].A) * (1 - t)))
	return render.Circle(int(math.Round(r)), colors.WithAlpha(p.Palette[idx[1]], alpha)), nil
}

// VelocityCircle paints a small disc fading out with age, coloured by a
// looped gradient indexed by a phase of |pos| plus the frame clock.
// Table shape: (max age, 360).
type VelocityCircle struct {
	Palette []color.NRGBA // defaults to VelocityPalette
	Radius  int           // defaults to 3
	// Hue degrees added per frame. Zero uses 50 degrees per second at 60 fps.
	PhasePerFrame float64

	maxAge int
	colors []color.NRGBA
}

func (v *VelocityCircle) Bind(k *Kind) (CellSpec, error) {
	b := *v
	if len(b.Palette) == 0 {
		b.Palette = VelocityPalette
	}
	if b.Radius <= 0 {
		b.Radius = 3
	}
	if b.PhasePerFrame == 0 {
		b.PhasePerFrame = 50.0 / 60
	}
	grad, err := colors.Gradient(b.Palette, HueSteps, true)
	if err != nil {
		return nil, errors.Wrapf(err, "kind %s", k.Name())
	}
	b.maxAge, b.colors = k.MaxAge(), grad
	return &b, nil
}

func (v *VelocityCircle) Ranges() []int { return []int{v.maxAge, HueSteps} }

func (v *VelocityCircle) Quantize(g *Group, env Env, out [][]int) {
	quantizeAge(g, v.maxAge, out[0])
	phase := v.PhasePerFrame * float64(env.Clock.Frame())
	for i, p := range g.pos {
		h := math.Mod(p.Len()+phase, HueSteps)
		if h < 0 {
			h += HueSteps
		}
		out[1][i] = ClampFloat(h, HueSteps)
	}
}

func (v *VelocityCircle) RenderCell(idx []int) (*render.Sprite, error) {
	t := ageT(idx[0], v.maxAge)
	alpha := uint8(255 - int(255*t*t))
	return render.Circle(v.Radius, colors.WithAlpha(v.colors[idx[1]], alpha)), nil
}

// Polygon paints a rotating regular polygon shrinking and fading with age.
// The seed attribute picks the number of sides and the spin rate. Colours
// come from Palette indexed by the color attribute, or when Palette is empty
// from a hue wheel of Colors steps cycling with the clock.
// Table shape: (max age, Seeds, colours).
type Polygon struct {
	Seeds      int
	Colors     int
	Palette    []color.NRGBA
	MinRadius  float64
	MaxRadius  float64
	MaxAlpha   uint8
	CycleEvery int // frames per hue step, defaults to 5

	maxAge int
}

func (p *Polygon) Bind(k *Kind) (CellSpec, error) {
	if p.Seeds <= 0 {
		return nil, fxerr.Invalid("kind %s: polygon needs at least one seed", k.Name())
	}
	if err := k.RequireAttr(AttrSeed, Int); err != nil {
		return nil, err
	}
	b := *p
	if len(b.Palette) > 0 {
		if err := k.RequireAttr(AttrColor, Int); err != nil {
			return nil, err
		}
		b.Colors = len(b.Palette)
	} else if b.Colors <= 0 {
		return nil, fxerr.Invalid("kind %s: polygon needs a palette or a colour count", k.Name())
	}
	if b.CycleEvery <= 0 {
		b.CycleEvery = 5
	}
	b.maxAge = k.MaxAge()
	return &b, nil
}

func (p *Polygon) Ranges() []int { return []int{p.maxAge, p.Seeds, p.Colors} }

func (p *Polygon) Quantize(g *Group, env Env, out [][]int) {
	quantizeAge(g, p.maxAge, out[0])
	for i, s := range g.ints[AttrSeed] {
		out[1][i] = Clamp(s, p.Seeds)
	}
	if len(p.Palette) > 0 {
		for i, c := range g.ints[AttrColor] {
			out[2][i] = Clamp(c, p.Colors)
		}
		return
	}
	frame := env.Clock.Frame()
	for i, a := range g.age {
		c := ((frame - int64(a)) / int64(p.CycleEvery)) % int64(p.Colors)
		if c < 0 {
			c += int64(p.Colors)
		}
		out[2][i] = Clamp(int(c), p.Colors)
	}
}

func (p *Polygon) RenderCell(idx []int) (*render.Sprite, error) {
	age, seed, ci := idx[0], idx[1], idx[2]
	t := ageT(age, p.maxAge)
	r := lerp(p.MaxRadius, p.MinRadius, t)
	alpha := uint8(math.Round(float64(p.MaxAlpha) * (1 - t) * (1 - t)))

	var c color.NRGBA
	if len(p.Palette) > 0 {
		c = colors.WithAlpha(p.Palette[ci], alpha)
	} else {
		c = colors.HSVA(float64(ci)/float64(p.Colors)*360, 1, 1, alpha)
	}

	sides := 3 + seed%4
	rotation := float64(age) * (1 + float64(seed)/5)
	return render.Polygon(r, sides, rotation, c), nil
}

// Ring paints an expanding circle outline coloured along Gradient.
// Table shape: (max age).
type Ring struct {
	Gradient    []color.NRGBA
	StartRadius float64
	EndRadius   float64
	Width       float64

	maxAge int
	colors []color.NRGBA
}

func (r *Ring) Bind(k *Kind) (CellSpec, error) {
	grad, err := colors.Gradient(r.Gradient, k.MaxAge(), false)
	if err != nil {
		return nil, errors.Wrapf(err, "kind %s", k.Name())
	}
	b := *r
	if b.Width <= 0 {
		b.Width = 1
	}
	b.maxAge, b.colors = k.MaxAge(), grad
	return &b, nil
}

func (r *Ring) Ranges() []int { return []int{r.maxAge} }

func (r *Ring) Quantize(g *Group, _ Env, out [][]int) {
	quantizeAge(g, r.maxAge, out[0])
}

func (r *Ring) RenderCell(idx []int) (*render.Sprite, error) {
	age := idx[0]
	radius := lerp(r.StartRadius, r.EndRadius, ageT(age, r.maxAge))
	return render.Ring(radius, r.Width, r.colors[age]), nil
}

// Image paints an asset scaled from StartScale to EndScale over the
// lifetime, optionally fading out. Table shape: (max age).
type Image struct {
	Loader     *render.AssetLoader
	Asset      string
	StartScale float64
	EndScale   float64
	Fade       bool

	maxAge int
}

func (im *Image) Bind(k *Kind) (CellSpec, error) {
	if im.Loader == nil || im.Asset == "" {
		return nil, fxerr.Invalid("kind %s: image renderer needs a loader and an asset", k.Name())
	}
	b := *im
	if b.StartScale <= 0 {
		b.StartScale = 1
	}
	if b.EndScale <= 0 {
		b.EndScale = b.StartScale
	}
	b.maxAge = k.MaxAge()
	return &b, nil
}

func (im *Image) Ranges() []int { return []int{im.maxAge} }

func (im *Image) Quantize(g *Group, _ Env, out [][]int) {
	quantizeAge(g, im.maxAge, out[0])
}

func (im *Image) RenderCell(idx []int) (*render.Sprite, error) {
	src, err := im.Loader.Load(im.Asset)
	if err != nil {
		return nil, err
	}
	t := ageT(idx[0], im.maxAge)
	alpha := uint8(255)
	if im.Fade {
		alpha = uint8(math.Round(255 * (1 - t)))
	}
	return render.Scaled(src, lerp(im.StartScale, im.EndScale, t), alpha), nil
}
