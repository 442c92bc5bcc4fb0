package particle

import (
	"sparkfx/internal/fxerr"
)

// Renderer draws the population of one kind. Bind returns a copy attached to
// k, so one renderer value can serve as the template of many kinds.
type Renderer interface {
	Bind(k *Kind) (Renderer, error)
	Draw(g *Group, env Env, target Surface) error
}

// KindConfig declares a particle kind.
type KindConfig struct {
	Name       string
	MaxAge     int
	Components []Component
	Renderer   Renderer
}

// Kind is an immutable particle definition. Its pointer identity keys the
// render table cache, so every Kind (derived ones included) owns its table.
type Kind struct {
	name     string
	maxAge   int
	declared []Component
	order    []Component
	updaters []Updater
	attrs    []Attr
	attrIdx  map[string]Attr
	template Renderer
	renderer Renderer
}

// NewKind validates cfg and resolves the component order: a component that
// provides an attribute runs before the ones requiring it, ties keep the
// declaration order.
func NewKind(cfg KindConfig) (*Kind, error) {
	if cfg.Name == "" {
		return nil, fxerr.Invalid("kind name is empty")
	}
	if cfg.MaxAge <= 0 {
		return nil, fxerr.Invalid("kind %s: max age must be positive, got %d", cfg.Name, cfg.MaxAge)
	}

	order, attrs, err := resolveOrder(cfg.Name, cfg.Components)
	if err != nil {
		return nil, err
	}

	k := &Kind{
		name:     cfg.Name,
		maxAge:   cfg.MaxAge,
		declared: append([]Component(nil), cfg.Components...),
		order:    order,
		attrs:    attrs,
		attrIdx:  make(map[string]Attr, len(attrs)),
		template: cfg.Renderer,
	}
	for _, a := range attrs {
		k.attrIdx[a.Name] = a
	}
	for _, c := range order {
		if u, ok := c.(Updater); ok {
			k.updaters = append(k.updaters, u)
		}
	}

	if cfg.Renderer != nil {
		r, err := cfg.Renderer.Bind(k)
		if err != nil {
			return nil, err
		}
		k.renderer = r
	}
	return k, nil
}

// MustKind is NewKind for static catalogs. It panics on error.
func MustKind(cfg KindConfig) *Kind {
	k, err := NewKind(cfg)
	if err != nil {
		panic(err)
	}
	return k
}

// DeriveOption overrides part of a derived kind.
type DeriveOption func(*KindConfig)

// WithMaxAge overrides the lifetime.
func WithMaxAge(n int) DeriveOption {
	return func(c *KindConfig) { c.MaxAge = n }
}

// WithRenderer overrides the renderer.
func WithRenderer(r Renderer) DeriveOption {
	return func(c *KindConfig) { c.Renderer = r }
}

// WithComponents appends components to the derived composition.
func WithComponents(cs ...Component) DeriveOption {
	return func(c *KindConfig) { c.Components = append(c.Components, cs...) }
}

// Derive creates a new kind from k. The result is a distinct identity and
// never shares k's render table.
func (k *Kind) Derive(name string, opts ...DeriveOption) (*Kind, error) {
	cfg := KindConfig{
		Name:       name,
		MaxAge:     k.maxAge,
		Components: append([]Component(nil), k.declared...),
		Renderer:   k.template,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewKind(cfg)
}

// Name returns the kind name.
func (k *Kind) Name() string { return k.name }

// MaxAge returns the lifetime in ticks.
func (k *Kind) MaxAge() int { return k.maxAge }

// Renderer returns the bound renderer, or nil.
func (k *Kind) Renderer() Renderer { return k.renderer }

// Components returns the components in resolved order.
func (k *Kind) Components() []Component {
	return append([]Component(nil), k.order...)
}

// Attrs returns the component attributes in declaration order.
func (k *Kind) Attrs() []Attr {
	return append([]Attr(nil), k.attrs...)
}

// Attr looks up a component attribute by name.
func (k *Kind) Attr(name string) (Attr, bool) {
	a, ok := k.attrIdx[name]
	return a, ok
}

// RequireAttr returns ErrInvalidArgument unless k has attribute name of the
// given storage kind. Renderers call it from Bind.
func (k *Kind) RequireAttr(name string, kind AttrKind) error {
	a, ok := k.attrIdx[name]
	if !ok {
		return fxerr.Invalid("kind %s: renderer needs attribute %q", k.name, name)
	}
	if a.Kind != kind {
		return fxerr.Invalid("kind %s: attribute %q is %s, renderer needs %s", k.name, name, a.Kind, kind)
	}
	return nil
}

func isBuiltin(name string) bool {
	return name == AttrPos || name == AttrVel || name == AttrAge
}

func resolveOrder(kind string, comps []Component) ([]Component, []Attr, error) {
	provider := make(map[string]int)
	var attrs []Attr
	for i, c := range comps {
		if c == nil {
			return nil, nil, fxerr.Invalid("kind %s: component %d is nil", kind, i)
		}
		for _, a := range c.Provides() {
			if isBuiltin(a.Name) {
				return nil, nil, fxerr.Invalid("kind %s: %s redeclares built-in attribute %q", kind, c.Name(), a.Name)
			}
			if p, ok := provider[a.Name]; ok {
				return nil, nil, fxerr.Invalid("kind %s: attribute %q provided by both %s and %s",
					kind, a.Name, comps[p].Name(), c.Name())
			}
			provider[a.Name] = i
			attrs = append(attrs, a)
		}
	}

	indeg := make([]int, len(comps))
	edges := make([][]int, len(comps))
	for i, c := range comps {
		for _, req := range c.Requires() {
			if isBuiltin(req) {
				continue
			}
			p, ok := provider[req]
			if !ok {
				return nil, nil, fxerr.Invalid("kind %s: %s requires %q which no component provides", kind, c.Name(), req)
			}
			if p == i {
				continue
			}
			edges[p] = append(edges[p], i)
			indeg[i]++
		}
	}

	// Kahn's algorithm, always taking the earliest declared ready component.
	order := make([]Component, 0, len(comps))
	done := make([]bool, len(comps))
	for len(order) < len(comps) {
		next := -1
		for i := range comps {
			if !done[i] && indeg[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			return nil, nil, fxerr.Invalid("kind %s: component dependencies form a cycle", kind)
		}
		done[next] = true
		order = append(order, comps[next])
		for _, j := range edges[next] {
			indeg[j]--
		}
	}
	return order, attrs, nil
}
