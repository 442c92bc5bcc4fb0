package particle

import (
	"image"
	"sync/atomic"

	"sparkfx/internal/render"
)

// recordingSurface keeps a copy of every batch it receives.
type recordingSurface struct {
	batches [][]render.Blit
}

func (s *recordingSurface) Blits(batch []render.Blit) {
	s.batches = append(s.batches, append([]render.Blit(nil), batch...))
}

// countingSpec is a CellSpec over (age, clamp(pos.X)) that counts cells.
type countingSpec struct {
	ranges []int
	calls  *atomic.Int64
	fail   error
	sprite *render.Sprite
}

func newCountingSpec(ranges ...int) *countingSpec {
	return &countingSpec{
		ranges: ranges,
		calls:  &atomic.Int64{},
		sprite: render.NewSprite(image.NewRGBA(image.Rect(0, 0, 1, 1))),
	}
}

func (c *countingSpec) Bind(*Kind) (CellSpec, error) {
	b := *c
	return &b, nil
}

func (c *countingSpec) Ranges() []int { return c.ranges }

func (c *countingSpec) Quantize(g *Group, _ Env, out [][]int) {
	for i, a := range g.Age() {
		out[0][i] = Clamp(a, c.ranges[0])
		if len(c.ranges) > 1 {
			out[1][i] = ClampFloat(g.Pos()[i].X, c.ranges[1])
		}
	}
}

func (c *countingSpec) RenderCell([]int) (*render.Sprite, error) {
	c.calls.Add(1)
	if c.fail != nil {
		return nil, c.fail
	}
	return c.sprite, nil
}

// brokenSpec quantizes every particle one past the end of its table.
type brokenSpec struct {
	countingSpec
}

func (b *brokenSpec) Bind(*Kind) (CellSpec, error) { return b, nil }

func (b *brokenSpec) Quantize(g *Group, _ Env, out [][]int) {
	for i := range g.Age() {
		out[0][i] = b.ranges[0]
	}
}

// fakeComponent declares arbitrary attribute contracts.
type fakeComponent struct {
	name string
	req  []string
	prov []Attr
}

func (f fakeComponent) Name() string { return f.name }
func (f fakeComponent) Requires() []string { return f.req }
func (f fakeComponent) Provides() []Attr { return f.prov }
func (f fakeComponent) Init(*Group, int, Spawn, Env) {}

type fixedClock int64

func (c fixedClock) Frame() int64 { return int64(c) }

func testEnv() Env {
	return Env{
		Rand:   NewRand(42),
		Clock:  &FrameClock{},
		Tables: NewTableCache(nil),
		Width:  800,
		Height: 600,
	}
}
