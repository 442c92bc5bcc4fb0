package particle

import (
	"math/rand/v2"
	"sync/atomic"

	"sparkfx/internal/render"
)

// Surface receives one batch of sprites per table draw. Implementations must
// not retain the slice after Blits returns.
type Surface interface {
	Blits(batch []render.Blit)
}

// Random is the stochastic source used by spawns and components.
type Random interface {
	Uniform(lo, hi float64) float64
	Gauss(mean, std float64) float64
}

// Clock exposes the frame counter for kinds animated by wall phase.
type Clock interface {
	Frame() int64
}

// Env carries the collaborators shared by every system of a manager.
type Env struct {
	Rand   Random
	Clock  Clock
	Tables *TableCache

	// World size used by WrapTorus. Zero disables wrapping.
	Width, Height float64
}

// WithDefaults fills nil collaborators: a seed 1 random source, a fresh
// frame clock and DefaultTables.
func (e Env) WithDefaults() Env {
	if e.Rand == nil {
		e.Rand = NewRand(1)
	}
	if e.Clock == nil {
		e.Clock = &FrameClock{}
	}
	if e.Tables == nil {
		e.Tables = DefaultTables
	}
	return e
}

type pcgRand struct {
	r *rand.Rand
}

// NewRand returns a deterministic Random seeded with seed.
func NewRand(seed uint64) Random {
	return &pcgRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *pcgRand) Uniform(lo, hi float64) float64 {
	return lo + p.r.Float64()*(hi-lo)
}

func (p *pcgRand) Gauss(mean, std float64) float64 {
	return mean + std*p.r.NormFloat64()
}

// FrameClock is a Clock advanced by the game loop driver.
type FrameClock struct {
	n atomic.Int64
}

// Tick advances the clock and returns the new frame number.
func (c *FrameClock) Tick() int64 { return c.n.Add(1) }

// Frame returns the current frame number.
func (c *FrameClock) Frame() int64 { return c.n.Load() }

// Distribution samples initial attribute values.
type Distribution interface {
	Sample(r Random) float64
}

// Const always yields the same value.
type Const float64

func (c Const) Sample(Random) float64 { return float64(c) }

// Uniform samples uniformly in [Lo, Hi).
type Uniform struct {
	Lo, Hi float64
}

func (u Uniform) Sample(r Random) float64 { return r.Uniform(u.Lo, u.Hi) }

// Gauss samples a normal distribution.
type Gauss struct {
	Mean, Std float64
}

func (g Gauss) Sample(r Random) float64 { return r.Gauss(g.Mean, g.Std) }

func sample(d Distribution, r Random, fallback float64) float64 {
	if d == nil {
		return fallback
	}
	return d.Sample(r)
}

func sampleIndex(r Random, n int) int {
	if n <= 1 {
		return 0
	}
	return Clamp(int(r.Uniform(0, float64(n))), n)
}
