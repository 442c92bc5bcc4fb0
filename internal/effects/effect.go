// Package effects turns named effects ("explosion", "mini_explosion", ...)
// into particle spawns and drives every particle system of a scene.
package effects

import (
	"sparkfx/internal/particle"
)

// Effect is a named spawn pattern over one kind.
type Effect struct {
	Name  string
	Kind  string
	Count int // particles per burst

	// Polar velocity distribution, angle in degrees.
	Speed particle.Distribution
	Angle particle.Distribution

	// Half extents of the uniform position jitter around the spawn point.
	Jitter particle.Vec2

	// Continuous effects are driven by emitters; Rate is the number of
	// particles spawned per tick (Count when zero).
	Continuous bool
	Rate       int
}

func (e Effect) perTick() int {
	if e.Rate > 0 {
		return e.Rate
	}
	return e.Count
}

// Catalog lists the kinds of a scene, in update and draw order, and the
// effects spawning them.
type Catalog struct {
	Kinds   []*particle.Kind
	Effects []Effect
}

// Option tweaks one spawn request.
type Option func(*request)

type request struct {
	count    int
	hasCount bool
	color    int
	hasColor bool
	speed    particle.Distribution
	angle    particle.Distribution
}

// WithCount overrides the number of particles.
func WithCount(n int) Option {
	return func(r *request) { r.count, r.hasCount = n, true }
}

// WithColor pins the palette index of every particle. The effect kind must
// have a color attribute.
func WithColor(index int) Option {
	return func(r *request) { r.color, r.hasColor = index, true }
}

// WithVelocity overrides the polar velocity distribution. Nil keeps the
// effect's own.
func WithVelocity(speed, angle particle.Distribution) Option {
	return func(r *request) { r.speed, r.angle = speed, angle }
}
