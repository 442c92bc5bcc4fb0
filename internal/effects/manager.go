package effects

import (
	"log"
	"sort"

	"sparkfx/internal/fxerr"
	"sparkfx/internal/particle"
)

// Limits caps what callers can ask of a manager. Zero disables a cap.
type Limits struct {
	MaxParticlesPerKind int
	MaxCountPerEffect   int
	MaxEmitters         int
}

// Emitter spawns a continuous effect at a point every tick.
type Emitter struct {
	ID     int           `json:"id"`
	Effect string        `json:"effect"`
	Pos    particle.Vec2 `json:"pos"`
	Rate   int           `json:"rate"`

	req request
}

// Manager owns one system per catalog kind and the running emitters. It is
// not safe for concurrent use; the engine goroutine drives it.
type Manager struct {
	env     particle.Env
	limits  Limits
	systems []*particle.System
	byKind  map[string]*particle.System
	effects map[string]Effect

	emitters []*Emitter
	nextID   int
	spawned  uint64
}

// NewManager validates the catalog and creates an empty system per kind.
func NewManager(cat Catalog, env particle.Env, limits Limits) (*Manager, error) {
	env = env.WithDefaults()
	m := &Manager{
		env:     env,
		limits:  limits,
		byKind:  make(map[string]*particle.System),
		effects: make(map[string]Effect),
		nextID:  1,
	}

	for _, k := range cat.Kinds {
		if k == nil {
			return nil, fxerr.Invalid("catalog contains a nil kind")
		}
		if _, dup := m.byKind[k.Name()]; dup {
			return nil, fxerr.Invalid("kind %s listed twice", k.Name())
		}
		sys := particle.NewSystem(k, env)
		sys.SetLimit(limits.MaxParticlesPerKind)
		m.systems = append(m.systems, sys)
		m.byKind[k.Name()] = sys
	}

	for _, e := range cat.Effects {
		if e.Name == "" {
			return nil, fxerr.Invalid("effect without a name")
		}
		if _, dup := m.effects[e.Name]; dup {
			return nil, fxerr.Invalid("effect %s listed twice", e.Name)
		}
		if _, ok := m.byKind[e.Kind]; !ok {
			return nil, fxerr.Invalid("effect %s uses unknown kind %q", e.Name, e.Kind)
		}
		if e.Count < 0 || e.Rate < 0 {
			return nil, fxerr.Invalid("effect %s has a negative count", e.Name)
		}
		m.effects[e.Name] = e
	}

	return m, nil
}

// SpawnEffect spawns one burst of effect name at pos and returns the number
// of particles added. Invalid requests fail before any particle is added.
func (m *Manager) SpawnEffect(name string, pos particle.Vec2, opts ...Option) (int, error) {
	e, req, err := m.prepare(name, opts)
	if err != nil {
		return 0, err
	}
	return m.burst(e, pos, req, req.count)
}

func (m *Manager) prepare(name string, opts []Option) (Effect, request, error) {
	e, ok := m.effects[name]
	if !ok {
		return Effect{}, request{}, fxerr.Invalid("unknown effect %q", name)
	}

	req := request{count: e.Count}
	for _, opt := range opts {
		opt(&req)
	}
	if req.count < 0 {
		return Effect{}, request{}, fxerr.Invalid("effect %s: negative count %d", name, req.count)
	}
	if m.limits.MaxCountPerEffect > 0 && req.count > m.limits.MaxCountPerEffect {
		return Effect{}, request{}, fxerr.Invalid("effect %s: count %d above limit %d", name, req.count, m.limits.MaxCountPerEffect)
	}
	if req.hasColor {
		if err := m.byKind[e.Kind].Kind().RequireAttr(particle.AttrColor, particle.Int); err != nil {
			return Effect{}, request{}, err
		}
	}
	if req.speed == nil {
		req.speed = e.Speed
	}
	if req.angle == nil {
		req.angle = e.Angle
	}
	return e, req, nil
}

func (m *Manager) burst(e Effect, pos particle.Vec2, req request, count int) (int, error) {
	sys := m.byKind[e.Kind]
	rnd := m.env.Rand

	var extra map[string]float64
	if req.hasColor {
		extra = map[string]float64{particle.AttrColor: float64(req.color)}
	}

	added := 0
	for i := 0; i < count; i++ {
		p := pos
		if e.Jitter.X != 0 || e.Jitter.Y != 0 {
			p = p.Add(particle.Vec2{
				X: rnd.Uniform(-e.Jitter.X, e.Jitter.X),
				Y: rnd.Uniform(-e.Jitter.Y, e.Jitter.Y),
			})
		}
		vel := particle.FromPolar(sampleOr(req.speed, rnd, 0), sampleOr(req.angle, rnd, 0))

		idx, err := sys.Spawn(particle.Spawn{Pos: p, Vel: vel, Extra: extra})
		if err != nil {
			return added, err
		}
		if idx >= 0 {
			added++
		}
	}
	m.spawned += uint64(added)
	return added, nil
}

func sampleOr(d particle.Distribution, r particle.Random, fallback float64) float64 {
	if d == nil {
		return fallback
	}
	return d.Sample(r)
}

// StartEmitter starts spawning effect name at pos every tick and returns the
// emitter id.
func (m *Manager) StartEmitter(name string, pos particle.Vec2, opts ...Option) (int, error) {
	e, req, err := m.prepare(name, opts)
	if err != nil {
		return 0, err
	}
	if m.limits.MaxEmitters > 0 && len(m.emitters) >= m.limits.MaxEmitters {
		return 0, fxerr.Invalid("emitter limit %d reached", m.limits.MaxEmitters)
	}

	rate := e.perTick()
	if req.hasCount {
		rate = req.count
	}
	em := &Emitter{ID: m.nextID, Effect: name, Pos: pos, Rate: rate, req: req}
	m.nextID++
	m.emitters = append(m.emitters, em)

	log.Printf("⛲ Emitter %d started: %s at (%.0f, %.0f), %d/tick", em.ID, name, pos.X, pos.Y, rate)
	return em.ID, nil
}

// StopEmitter stops emitter id. It reports whether the emitter existed.
func (m *Manager) StopEmitter(id int) bool {
	n := 0
	found := false
	for _, em := range m.emitters {
		if em.ID == id {
			found = true
			continue
		}
		m.emitters[n] = em
		n++
	}
	m.emitters = m.emitters[:n]
	if found {
		log.Printf("⛲ Emitter %d stopped", id)
	}
	return found
}

// Emitters returns the running emitters ordered by id.
func (m *Manager) Emitters() []Emitter {
	out := make([]Emitter, 0, len(m.emitters))
	for _, em := range m.emitters {
		out = append(out, *em)
	}
	return out
}

// Update runs the emitters, then updates every system in catalog order.
func (m *Manager) Update() {
	for _, em := range m.emitters {
		// Spawn errors were ruled out when the emitter started.
		_, _ = m.burst(m.effects[em.Effect], em.Pos, em.req, em.Rate)
	}
	for _, sys := range m.systems {
		sys.Update()
	}
}

// Draw draws every system in catalog order. The first error aborts the frame.
func (m *Manager) Draw(target particle.Surface) error {
	for _, sys := range m.systems {
		if err := sys.Draw(target); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the live particles across all kinds.
func (m *Manager) Count() int {
	n := 0
	for _, sys := range m.systems {
		n += sys.Len()
	}
	return n
}

// System returns the system of kind name, or nil.
func (m *Manager) System(kind string) *particle.System {
	return m.byKind[kind]
}

// EffectNames returns the effect names sorted.
func (m *Manager) EffectNames() []string {
	names := make([]string, 0, len(m.effects))
	for n := range m.effects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Effect returns the configuration of effect name.
func (m *Manager) Effect(name string) (Effect, bool) {
	e, ok := m.effects[name]
	return e, ok
}

// KindStats is the population of one kind.
type KindStats struct {
	Kind    string `json:"kind"`
	Live    int    `json:"live"`
	Dropped uint64 `json:"dropped"`
	Expired uint64 `json:"expired"`
}

// Stats is a point-in-time summary of a manager.
type Stats struct {
	Particles int                 `json:"particles"`
	Spawned   uint64              `json:"spawned"`
	Dropped   uint64              `json:"dropped"`
	Emitters  int                 `json:"emitters"`
	Kinds     []KindStats         `json:"kinds"`
	Tables    particle.TableStats `json:"tables"`
}

// Stats returns counters for every kind in catalog order.
func (m *Manager) Stats() Stats {
	st := Stats{
		Spawned:  m.spawned,
		Emitters: len(m.emitters),
		Kinds:    make([]KindStats, 0, len(m.systems)),
	}
	for _, sys := range m.systems {
		ks := KindStats{
			Kind:    sys.Kind().Name(),
			Live:    sys.Len(),
			Dropped: sys.Dropped(),
			Expired: sys.Expired(),
		}
		st.Particles += ks.Live
		st.Dropped += ks.Dropped
		st.Kinds = append(st.Kinds, ks)
	}
	st.Tables = m.env.Tables.Stats()
	return st
}
