package particle

import (
	"sort"

	"sparkfx/internal/fxerr"
)

// System is the live population of one kind.
type System struct {
	kind  *Kind
	env   Env
	group *Group
	limit int

	dropped uint64
	expired uint64
}

// NewSystem creates an empty system. Nil collaborators in env are filled
// with Env.WithDefaults.
func NewSystem(k *Kind, env Env) *System {
	return &System{
		kind:  k,
		env:   env.WithDefaults(),
		group: newGroup(k.attrs),
	}
}

// SetLimit caps the population. Spawns beyond the cap are dropped.
// Zero disables the cap.
func (s *System) SetLimit(n int) {
	s.limit = max(0, n)
}

// Spawn appends one particle and runs every component Init in resolved
// order. It returns the new row index, valid until the next Update, or -1
// when the system is full. Unknown extras fail before anything is appended.
func (s *System) Spawn(sp Spawn) (int, error) {
	if len(sp.Extra) > 0 {
		if err := s.checkExtra(sp.Extra); err != nil {
			return -1, err
		}
	}

	if s.limit > 0 && s.group.Len() >= s.limit {
		s.dropped++
		return -1, nil
	}

	g := s.group
	i := g.appendRow(sp.Pos, sp.Vel)
	for _, c := range s.kind.order {
		c.Init(g, i, sp, s.env)
		if len(sp.Extra) == 0 {
			continue
		}
		for _, a := range c.Provides() {
			if v, ok := sp.Extra[a.Name]; ok {
				g.set(a, i, v)
			}
		}
	}
	return i, nil
}

func (s *System) checkExtra(extra map[string]float64) error {
	var unknown []string
	for name := range extra {
		if _, ok := s.kind.attrIdx[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fxerr.Invalid("kind %s: unknown spawn attributes %q", s.kind.name, unknown)
}

// Update ages every particle, runs the updaters in resolved order and
// removes the particles that reached the kind's max age.
func (s *System) Update() {
	g := s.group
	for i := range g.age {
		g.age[i]++
	}
	for _, u := range s.kind.updaters {
		u.Update(g, s.env)
	}
	s.expired += uint64(g.compact(s.kind.maxAge))
}

// Draw hands the population to the kind's renderer.
func (s *System) Draw(target Surface) error {
	if s.kind.renderer == nil || s.group.Len() == 0 {
		return nil
	}
	return s.kind.renderer.Draw(s.group, s.env, target)
}

// Len returns the live population.
func (s *System) Len() int { return s.group.Len() }

// Kind returns the system's kind.
func (s *System) Kind() *Kind { return s.kind }

// Group exposes the columns for read access and tests.
func (s *System) Group() *Group { return s.group }

// Env returns the collaborators used by the system.
func (s *System) Env() Env { return s.env }

// Dropped returns the number of spawns refused by the population cap.
func (s *System) Dropped() uint64 { return s.dropped }

// Expired returns the number of particles removed by age.
func (s *System) Expired() uint64 { return s.expired }
