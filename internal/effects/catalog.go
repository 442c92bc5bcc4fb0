package effects

import (
	"image/color"

	"sparkfx/internal/colors"
	"sparkfx/internal/particle"
	"sparkfx/internal/render"
)

// Effect names of the default catalog.
const (
	Explosion     = "explosion"
	MiniExplosion = "mini_explosion"
	Fireworks     = "fireworks"
	Debris        = "debris"
	Shockwave     = "shockwave"
	Fountain      = "fountain"
	Snow          = "snow"
	Smoke         = "smoke"
)

// SmokeAsset is the sprite used by the smoke effect.
const SmokeAsset = "smoke.png"

var (
	// ExplosionPalette colours the sparks of an explosion.
	ExplosionPalette = []color.NRGBA{
		{99, 166, 159, 255},
		{242, 225, 172, 255},
		{242, 131, 107, 255},
		{242, 89, 75, 255},
		{205, 44, 36, 255},
	}

	// MiniExplosionPalette colours the embers of a mini explosion.
	MiniExplosionPalette = []color.NRGBA{
		{252, 108, 76, 255},
		{244, 132, 148, 255},
		{30, 70, 132, 255},
		{84, 108, 156, 255},
		{170, 184, 207, 255},
		{64, 96, 148, 255},
	}
)

// debrisPalette spreads n saturated hues around the wheel.
func debrisPalette(n int) []color.NRGBA {
	out := make([]color.NRGBA, n)
	for i := range out {
		out[i] = colors.HSVA(float64(i)*360/float64(n), 0.8, 0.8, 255)
	}
	return out
}

// DefaultCatalog returns the stock kinds and effects. The smoke kind is only
// included when assets is non-nil.
func DefaultCatalog(assets *render.AssetLoader) Catalog {
	spark := particle.MustKind(particle.KindConfig{
		Name:   "spark",
		MaxAge: 60,
		Components: []particle.Component{
			particle.MovePolar{},
			particle.Friction{Factor: 0.96, OnSpeed: true},
			particle.Tint{N: len(ExplosionPalette)},
		},
		Renderer: particle.NewTableRenderer(&particle.PaletteCircle{
			Palette:   ExplosionPalette,
			Radius:    4,
			EndRadius: 1,
		}),
	})

	ember := particle.MustKind(particle.KindConfig{
		Name:   "ember",
		MaxAge: 30,
		Components: []particle.Component{
			particle.MovePolar{},
			particle.Friction{Factor: 0.92, OnSpeed: true},
			particle.Tint{N: len(MiniExplosionPalette)},
		},
		Renderer: particle.NewTableRenderer(&particle.PaletteCircle{
			Palette:   MiniExplosionPalette,
			Radius:    3,
			EndRadius: 0,
		}),
	})

	firework := particle.MustKind(particle.KindConfig{
		Name:   "firework",
		MaxAge: 100,
		Components: []particle.Component{
			particle.MovePolar{},
			particle.Acceleration{A: -0.06},
		},
		Renderer: particle.NewTableRenderer(&particle.Circle{
			Gradient:  colors.MustParseAll("#FFF75D", "#FE650DA0", "#A1010000"),
			Radius:    3,
			EndRadius: 2,
		}),
	})

	debris := particle.MustKind(particle.KindConfig{
		Name:   "debris",
		MaxAge: 64,
		Components: []particle.Component{
			particle.MovePolar{},
			particle.AngularVelocity{Rate: particle.Uniform{Lo: -1, Hi: 1}},
			particle.WrapTorus{},
			particle.Seed{N: 16},
			particle.Tint{N: 30},
		},
		Renderer: particle.NewTableRenderer(&particle.Polygon{
			Seeds:     16,
			Palette:   debrisPalette(30),
			MinRadius: 4,
			MaxRadius: 10,
			MaxAlpha:  255,
		}),
	})

	shockwave := particle.MustKind(particle.KindConfig{
		Name:   "shockwave",
		MaxAge: 24,
		Renderer: particle.NewTableRenderer(&particle.Ring{
			Gradient:    colors.MustParseAll("white", "#ffa500c0", "#ffa50000"),
			StartRadius: 2,
			EndRadius:   48,
			Width:       3,
		}),
	})

	fountain := particle.MustKind(particle.KindConfig{
		Name:   "fountain",
		MaxAge: 300,
		Components: []particle.Component{
			particle.Move{},
			particle.Gravity{G: particle.Vec2{Y: 0.1}},
			particle.WrapTorus{},
		},
		Renderer: particle.NewTableRenderer(&particle.VelocityCircle{}),
	})

	snow := particle.MustKind(particle.KindConfig{
		Name:   "snow",
		MaxAge: 100,
		Components: []particle.Component{
			particle.Gravity{G: particle.Vec2{Y: 0.02}},
			particle.Move{},
		},
		Renderer: particle.NewTableRenderer(&particle.Circle{
			Gradient:  colors.MustParseAll("white", "#ddccee", "#0a283228"),
			Radius:    2,
			EndRadius: 2,
		}),
	})

	cat := Catalog{
		Kinds: []*particle.Kind{fountain, snow, shockwave, debris, firework, spark, ember},
		Effects: []Effect{
			{Name: Explosion, Kind: "spark", Count: 100,
				Speed: particle.Uniform{Lo: 1, Hi: 5}, Angle: particle.Uniform{Lo: 0, Hi: 360}},
			{Name: MiniExplosion, Kind: "ember", Count: 40,
				Speed: particle.Uniform{Lo: 1, Hi: 3}, Angle: particle.Uniform{Lo: 0, Hi: 360}},
			{Name: Fireworks, Kind: "firework", Count: 150,
				Speed: particle.Gauss{Mean: 6, Std: 1}, Angle: particle.Uniform{Lo: 0, Hi: 360}},
			{Name: Debris, Kind: "debris", Count: 24,
				Speed: particle.Gauss{Mean: 3, Std: 1}, Angle: particle.Uniform{Lo: 0, Hi: 360}},
			{Name: Shockwave, Kind: "shockwave", Count: 1},
			{Name: Fountain, Kind: "fountain", Count: 5, Continuous: true,
				Speed: particle.Gauss{Mean: 8, Std: 0.3}, Angle: particle.Gauss{Mean: -90, Std: 2}},
			{Name: Snow, Kind: "snow", Count: 2, Continuous: true, Jitter: particle.Vec2{X: 400},
				Speed: particle.Gauss{Mean: 1, Std: 0.3}, Angle: particle.Gauss{Mean: 90, Std: 20}},
		},
	}

	if assets != nil {
		smoke := particle.MustKind(particle.KindConfig{
			Name:   "smoke",
			MaxAge: 90,
			Components: []particle.Component{
				particle.Move{},
				particle.Friction{Factor: 0.97},
			},
			Renderer: particle.NewTableRenderer(&particle.Image{
				Loader:     assets,
				Asset:      SmokeAsset,
				StartScale: 0.5,
				EndScale:   1.5,
				Fade:       true,
			}),
		})
		// Smoke goes under everything else.
		cat.Kinds = append([]*particle.Kind{smoke}, cat.Kinds...)
		cat.Effects = append(cat.Effects, Effect{
			Name: Smoke, Kind: "smoke", Count: 12,
			Speed: particle.Uniform{Lo: 0.2, Hi: 1}, Angle: particle.Gauss{Mean: -90, Std: 25},
		})
	}
	return cat
}
