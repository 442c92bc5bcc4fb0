package particle

import (
	"errors"
	"testing"

	"sparkfx/internal/fxerr"
)

func richKind(t *testing.T, maxAge int) *Kind {
	t.Helper()
	k, err := NewKind(KindConfig{
		Name:   "rich",
		MaxAge: maxAge,
		Components: []Component{
			Gravity{G: Vec2{0, 0.1}},
			MovePolar{Angle: Uniform{0, 360}, Speed: Gauss{3, 1}},
			AngularVelocity{Rate: Uniform{-1, 1}},
			Seed{N: 4},
			Tint{N: 3},
		},
	})
	if err != nil {
		t.Fatalf("NewKind: %v", err)
	}
	return k
}

func assertAligned(t *testing.T, g *Group, want int) {
	t.Helper()
	if g.Len() != want {
		t.Fatalf("Expected %d particles, got %d", want, g.Len())
	}
	for c, n := range g.lengths() {
		if n != want {
			t.Errorf("Column %d has length %d, expected %d", c, n, want)
		}
	}
}

// TestSpawnKeepsColumnsAligned tests that N spawns give N rows in every column
func TestSpawnKeepsColumnsAligned(t *testing.T) {
	for _, n := range []int{0, 1, 37, 500} {
		sys := NewSystem(richKind(t, 30), testEnv())
		for i := 0; i < n; i++ {
			idx, err := sys.Spawn(Spawn{Pos: Vec2{400, 300}, Vel: Vec2{1, 0}})
			if err != nil {
				t.Fatalf("Spawn: %v", err)
			}
			if idx != i {
				t.Errorf("Expected index %d, got %d", i, idx)
			}
		}

		assertAligned(t, sys.Group(), n)
		if sys.Group().Columns() != 8 {
			t.Errorf("Expected 8 columns, got %d", sys.Group().Columns())
		}
	}
}

// TestLifetimeWindow tests presence at ticks T..T+M-1 and absence at T+M
func TestLifetimeWindow(t *testing.T) {
	const maxAge = 5
	env := testEnv()
	k := MustKind(KindConfig{
		Name:       "blip",
		MaxAge:     maxAge,
		Components: []Component{Move{}},
		Renderer:   NewTableRenderer(newCountingSpec(maxAge)),
	})
	sys := NewSystem(k, env)
	surface := &recordingSurface{}

	if _, err := sys.Spawn(Spawn{Pos: Vec2{10, 10}}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	for tick := 0; tick < maxAge; tick++ {
		if tick > 0 {
			sys.Update()
		}
		if err := sys.Draw(surface); err != nil {
			t.Fatalf("Draw at tick %d: %v", tick, err)
		}
		if len(surface.batches) != tick+1 || len(surface.batches[tick]) != 1 {
			t.Fatalf("Expected the particle in the draw of tick %d", tick)
		}
		if got := sys.Group().Age()[0]; got != tick {
			t.Errorf("Expected age %d, got %d", tick, got)
		}
	}

	sys.Update()
	if sys.Len() != 0 {
		t.Errorf("Expected the particle gone at tick %d, got %d alive", maxAge, sys.Len())
	}
	if err := sys.Draw(surface); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if len(surface.batches) != maxAge {
		t.Errorf("Expected no draw call for an empty system, got %d calls", len(surface.batches))
	}
	if sys.Expired() != 1 {
		t.Errorf("Expected 1 expired particle, got %d", sys.Expired())
	}
}

// TestNoDeadParticleSurvivesUpdate tests staggered spawns against max age
func TestNoDeadParticleSurvivesUpdate(t *testing.T) {
	const maxAge = 7
	sys := NewSystem(richKind(t, maxAge), testEnv())

	for tick := 0; tick < 40; tick++ {
		for i := 0; i < tick%4; i++ {
			if _, err := sys.Spawn(Spawn{Vel: Vec2{0, -1}}); err != nil {
				t.Fatalf("Spawn: %v", err)
			}
		}
		sys.Update()

		for _, a := range sys.Group().Age() {
			if a >= maxAge {
				t.Fatalf("Tick %d: dead particle with age %d survived", tick, a)
			}
		}
		assertAligned(t, sys.Group(), sys.Len())
	}
}

// TestCompactionIsStable tests that survivors keep their relative order
func TestCompactionIsStable(t *testing.T) {
	k := MustKind(KindConfig{
		Name:       "stable",
		MaxAge:     10,
		Components: []Component{Seed{N: 100}, Tint{N: 100}},
	})
	sys := NewSystem(k, testEnv())

	for i := 0; i < 6; i++ {
		_, err := sys.Spawn(Spawn{
			Pos:   Vec2{float64(i), 0},
			Vel:   Vec2{0, float64(i)},
			Extra: map[string]float64{AttrSeed: float64(i), AttrColor: float64(i)},
		})
		if err != nil {
			t.Fatalf("Spawn: %v", err)
		}
	}

	g := sys.Group()
	copy(g.age, []int{9, 0, 9, 3, 9, 5})
	sys.Update()

	want := []int{1, 3, 5}
	assertAligned(t, g, len(want))
	for i, w := range want {
		if int(g.Pos()[i].X) != w || int(g.Vel()[i].Y) != w {
			t.Errorf("Row %d: expected particle %d, got pos %v vel %v", i, w, g.Pos()[i], g.Vel()[i])
		}
		if g.Ints(AttrSeed)[i] != w || g.Ints(AttrColor)[i] != w {
			t.Errorf("Row %d: expected seed/color %d, got %d/%d", i, w, g.Ints(AttrSeed)[i], g.Ints(AttrColor)[i])
		}
	}
	if got := g.Age(); got[0] != 1 || got[1] != 4 || got[2] != 6 {
		t.Errorf("Expected ages [1 4 6], got %v", got)
	}
}

// TestSpawnRejectsUnknownExtra tests that a bad spawn leaves the group untouched
func TestSpawnRejectsUnknownExtra(t *testing.T) {
	sys := NewSystem(richKind(t, 30), testEnv())
	for i := 0; i < 3; i++ {
		if _, err := sys.Spawn(Spawn{}); err != nil {
			t.Fatalf("Spawn: %v", err)
		}
	}

	tests := []map[string]float64{
		{"nope": 1},
		{AttrSeed: 1, "bogus": 2},
		{AttrPos: 3},
	}
	for _, extra := range tests {
		idx, err := sys.Spawn(Spawn{Extra: extra})
		if !errors.Is(err, fxerr.ErrInvalidArgument) {
			t.Errorf("Expected ErrInvalidArgument for %v, got %v", extra, err)
		}
		if idx != -1 {
			t.Errorf("Expected index -1, got %d", idx)
		}
		assertAligned(t, sys.Group(), 3)
	}
}

// TestSpawnExtraOverridesInit tests per-attribute spawn overrides
func TestSpawnExtraOverridesInit(t *testing.T) {
	k := MustKind(KindConfig{
		Name:   "override",
		MaxAge: 10,
		Components: []Component{
			MovePolar{Angle: Uniform{0, 360}, Speed: Uniform{5, 6}},
			Seed{N: 4},
		},
	})
	sys := NewSystem(k, testEnv())

	i, err := sys.Spawn(Spawn{
		Pos:   Vec2{100, 100},
		Extra: map[string]float64{AttrAngle: 90, AttrSpeed: 2, AttrSeed: 3},
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	g := sys.Group()
	if g.Ints(AttrSeed)[i] != 3 {
		t.Errorf("Expected seed 3, got %d", g.Ints(AttrSeed)[i])
	}

	sys.Update()
	p := g.Pos()[0]
	if p.X < 99.999 || p.X > 100.001 || p.Y < 101.999 || p.Y > 102.001 {
		t.Errorf("Expected (100, 102) after one tick, got %v", p)
	}
}

// TestPolarInitFromSpawnVelocity tests nil distributions reading the spawn velocity
func TestPolarInitFromSpawnVelocity(t *testing.T) {
	k := MustKind(KindConfig{Name: "polar", MaxAge: 10, Components: []Component{MovePolar{}}})
	sys := NewSystem(k, testEnv())

	if _, err := sys.Spawn(Spawn{Vel: Vec2{0, 4}}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	g := sys.Group()
	if a := g.Floats(AttrAngle)[0]; a < 89.999 || a > 90.001 {
		t.Errorf("Expected angle 90, got %f", a)
	}
	if s := g.Floats(AttrSpeed)[0]; s < 3.999 || s > 4.001 {
		t.Errorf("Expected speed 4, got %f", s)
	}
}

// TestSpawnLimit tests the population cap
func TestSpawnLimit(t *testing.T) {
	sys := NewSystem(richKind(t, 30), testEnv())
	sys.SetLimit(3)

	for i := 0; i < 5; i++ {
		idx, err := sys.Spawn(Spawn{})
		if err != nil {
			t.Fatalf("Spawn: %v", err)
		}
		if i >= 3 && idx != -1 {
			t.Errorf("Expected spawn %d to be dropped, got index %d", i, idx)
		}
	}

	if sys.Len() != 3 {
		t.Errorf("Expected 3 particles, got %d", sys.Len())
	}
	if sys.Dropped() != 2 {
		t.Errorf("Expected 2 dropped spawns, got %d", sys.Dropped())
	}
}

// TestComponentUpdates tests the per-tick behaviour of the shipped components
func TestComponentUpdates(t *testing.T) {
	env := testEnv()

	tests := []struct {
		name  string
		comps []Component
		spawn Spawn
		check func(t *testing.T, g *Group)
	}{
		{
			name:  "gravity then move",
			comps: []Component{Gravity{G: Vec2{0, 1}}, Move{}},
			spawn: Spawn{Pos: Vec2{0, 0}, Vel: Vec2{2, 0}},
			check: func(t *testing.T, g *Group) {
				if g.Pos()[0] != (Vec2{2, 1}) {
					t.Errorf("Expected (2, 1), got %v", g.Pos()[0])
				}
			},
		},
		{
			name:  "friction on velocity",
			comps: []Component{Friction{Factor: 0.5}},
			spawn: Spawn{Vel: Vec2{4, -2}},
			check: func(t *testing.T, g *Group) {
				if g.Vel()[0] != (Vec2{2, -1}) {
					t.Errorf("Expected (2, -1), got %v", g.Vel()[0])
				}
			},
		},
		{
			name:  "friction on speed",
			comps: []Component{MovePolar{}, Friction{Factor: 0.5, OnSpeed: true}},
			spawn: Spawn{Vel: Vec2{4, 0}},
			check: func(t *testing.T, g *Group) {
				if s := g.Floats(AttrSpeed)[0]; s != 2 {
					t.Errorf("Expected speed 2, got %f", s)
				}
			},
		},
		{
			name:  "acceleration floors at zero",
			comps: []Component{MovePolar{}, Acceleration{A: -3}},
			spawn: Spawn{Vel: Vec2{1, 0}},
			check: func(t *testing.T, g *Group) {
				if s := g.Floats(AttrSpeed)[0]; s != 0 {
					t.Errorf("Expected speed 0, got %f", s)
				}
			},
		},
		{
			name:  "angular velocity",
			comps: []Component{MovePolar{}, AngularVelocity{Rate: Const(15)}},
			spawn: Spawn{Vel: Vec2{1, 0}},
			check: func(t *testing.T, g *Group) {
				if a := g.Floats(AttrAngle)[0]; a != 15 {
					t.Errorf("Expected angle 15, got %f", a)
				}
			},
		},
		{
			name:  "wrap torus",
			comps: []Component{Move{}, WrapTorus{}},
			spawn: Spawn{Pos: Vec2{799, 1}, Vel: Vec2{3, -2}},
			check: func(t *testing.T, g *Group) {
				if g.Pos()[0] != (Vec2{2, 599}) {
					t.Errorf("Expected (2, 599), got %v", g.Pos()[0])
				}
			},
		},
		{
			name:  "aim",
			comps: []Component{Aim{Target: Vec2{10, 0}, Speed: Const(2)}},
			spawn: Spawn{Pos: Vec2{0, 0}},
			check: func(t *testing.T, g *Group) {
				if g.Vel()[0] != (Vec2{2, 0}) {
					t.Errorf("Expected (2, 0), got %v", g.Vel()[0])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := MustKind(KindConfig{Name: tt.name, MaxAge: 10, Components: tt.comps})
			sys := NewSystem(k, env)
			if _, err := sys.Spawn(tt.spawn); err != nil {
				t.Fatalf("Spawn: %v", err)
			}
			sys.Update()
			tt.check(t, sys.Group())
		})
	}
}
