package particle

import "math"

// Spawn describes one particle to append. Extra overrides the initial value
// of component attributes by name.
type Spawn struct {
	Pos   Vec2
	Vel   Vec2
	Extra map[string]float64
}

// Component contributes attributes to a kind. Init fills row i of the
// attributes it provides; it may read any attribute it requires.
type Component interface {
	Name() string
	Requires() []string
	Provides() []Attr
	Init(g *Group, i int, sp Spawn, env Env)
}

// Updater is implemented by components that mutate the group every tick.
type Updater interface {
	Update(g *Group, env Env)
}

// Attribute names provided by the shipped components.
const (
	AttrAngle         = "angle"
	AttrSpeed         = "speed"
	AttrRotationSpeed = "rotation_speed"
	AttrSeed          = "seed"
	AttrColor         = "color"
)

// Move integrates cartesian velocity: pos += vel.
type Move struct{}

func (Move) Name() string { return "move" }
func (Move) Requires() []string { return []string{AttrPos, AttrVel} }
func (Move) Provides() []Attr { return nil }
func (Move) Init(*Group, int, Spawn, Env) {}
func (Move) Update(g *Group, _ Env) {
	pos, vel := g.pos, g.vel
	for i := range pos {
		pos[i] = pos[i].Add(vel[i])
	}
}

// MovePolar drives motion from angle (degrees) and speed. A nil
// distribution takes the value from the spawn velocity.
type MovePolar struct {
	Angle Distribution
	Speed Distribution
}

func (MovePolar) Name() string { return "move_polar" }
func (MovePolar) Requires() []string { return []string{AttrPos} }
func (MovePolar) Provides() []Attr {
	return []Attr{{AttrAngle, Float}, {AttrSpeed, Float}}
}

func (m MovePolar) Init(g *Group, i int, sp Spawn, env Env) {
	g.floats[AttrAngle][i] = sample(m.Angle, env.Rand, sp.Vel.Angle())
	g.floats[AttrSpeed][i] = sample(m.Speed, env.Rand, sp.Vel.Len())
	g.vel[i] = FromPolar(g.floats[AttrSpeed][i], g.floats[AttrAngle][i])
}

func (MovePolar) Update(g *Group, _ Env) {
	angle, speed := g.floats[AttrAngle], g.floats[AttrSpeed]
	for i := range g.pos {
		g.vel[i] = FromPolar(speed[i], angle[i])
		g.pos[i] = g.pos[i].Add(g.vel[i])
	}
}

// Gravity adds a constant vector to the velocity every tick.
type Gravity struct {
	G Vec2
}

func (Gravity) Name() string { return "gravity" }
func (Gravity) Requires() []string { return []string{AttrVel} }
func (Gravity) Provides() []Attr { return nil }
func (Gravity) Init(*Group, int, Spawn, Env) {}
func (gr Gravity) Update(g *Group, _ Env) {
	for i := range g.vel {
		g.vel[i] = g.vel[i].Add(gr.G)
	}
}

// Friction multiplies the velocity by Factor every tick, or the speed
// attribute when OnSpeed is set (polar kinds recompute vel from speed).
type Friction struct {
	Factor  float64
	OnSpeed bool
}

func (Friction) Name() string { return "friction" }
func (f Friction) Requires() []string {
	if f.OnSpeed {
		return []string{AttrSpeed}
	}
	return []string{AttrVel}
}
func (Friction) Provides() []Attr { return nil }
func (Friction) Init(*Group, int, Spawn, Env) {}
func (f Friction) Update(g *Group, _ Env) {
	if f.OnSpeed {
		speed := g.floats[AttrSpeed]
		for i := range speed {
			speed[i] *= f.Factor
		}
		return
	}
	for i := range g.vel {
		g.vel[i] = g.vel[i].Scale(f.Factor)
	}
}

// Acceleration adds A to the speed every tick, never below zero.
type Acceleration struct {
	A float64
}

func (Acceleration) Name() string { return "acceleration" }
func (Acceleration) Requires() []string { return []string{AttrSpeed} }
func (Acceleration) Provides() []Attr { return nil }
func (Acceleration) Init(*Group, int, Spawn, Env) {}
func (a Acceleration) Update(g *Group, _ Env) {
	speed := g.floats[AttrSpeed]
	for i := range speed {
		speed[i] = math.Max(0, speed[i]+a.A)
	}
}

// AngularVelocity turns the angle by a per-particle rotation speed.
type AngularVelocity struct {
	Rate Distribution
}

func (AngularVelocity) Name() string { return "angular_velocity" }
func (AngularVelocity) Requires() []string { return []string{AttrAngle} }
func (AngularVelocity) Provides() []Attr {
	return []Attr{{AttrRotationSpeed, Float}}
}
func (a AngularVelocity) Init(g *Group, i int, _ Spawn, env Env) {
	g.floats[AttrRotationSpeed][i] = sample(a.Rate, env.Rand, 0)
}
func (AngularVelocity) Update(g *Group, _ Env) {
	angle, rate := g.floats[AttrAngle], g.floats[AttrRotationSpeed]
	for i := range angle {
		angle[i] += rate[i]
	}
}

// WrapTorus wraps positions into the world rectangle of the Env.
type WrapTorus struct{}

func (WrapTorus) Name() string { return "wrap_torus" }
func (WrapTorus) Requires() []string { return []string{AttrPos} }
func (WrapTorus) Provides() []Attr { return nil }
func (WrapTorus) Init(*Group, int, Spawn, Env) {}
func (WrapTorus) Update(g *Group, env Env) {
	if env.Width <= 0 || env.Height <= 0 {
		return
	}
	for i, p := range g.pos {
		g.pos[i] = Vec2{wrap(p.X, env.Width), wrap(p.Y, env.Height)}
	}
}

func wrap(v, size float64) float64 {
	v = math.Mod(v, size)
	if v < 0 {
		v += size
	}
	return v
}

// Aim points the spawn velocity at Target with a sampled speed.
type Aim struct {
	Target Vec2
	Speed  Distribution
}

func (Aim) Name() string { return "aim" }
func (Aim) Requires() []string { return []string{AttrPos, AttrVel} }
func (Aim) Provides() []Attr { return nil }
func (a Aim) Init(g *Group, i int, sp Spawn, env Env) {
	d := a.Target.Sub(g.pos[i])
	l := d.Len()
	if l == 0 {
		g.vel[i] = Vec2{}
		return
	}
	g.vel[i] = d.Scale(sample(a.Speed, env.Rand, sp.Vel.Len()) / l)
}

// Seed gives every particle a random int seed in [0, N).
type Seed struct {
	N int
}

func (Seed) Name() string { return "seed" }
func (Seed) Requires() []string { return nil }
func (Seed) Provides() []Attr { return []Attr{{AttrSeed, Int}} }
func (s Seed) Init(g *Group, i int, _ Spawn, env Env) {
	g.ints[AttrSeed][i] = sampleIndex(env.Rand, s.N)
}

// Tint gives every particle a random palette index in [0, N).
type Tint struct {
	N int
}

func (Tint) Name() string { return "tint" }
func (Tint) Requires() []string { return nil }
func (Tint) Provides() []Attr { return []Attr{{AttrColor, Int}} }
func (t Tint) Init(g *Group, i int, _ Spawn, env Env) {
	g.ints[AttrColor][i] = sampleIndex(env.Rand, t.N)
}
