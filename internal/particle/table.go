package particle

import (
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"sparkfx/internal/fxerr"
	"sparkfx/internal/render"
)

// CellSpec describes a table-rendered appearance. Bind returns a copy
// specialised for k. RenderCell must be pure: the table calls it once per
// cell, possibly from several goroutines.
type CellSpec interface {
	Bind(k *Kind) (CellSpec, error)
	Ranges() []int
	Quantize(g *Group, env Env, out [][]int)
	RenderCell(idx []int) (*render.Sprite, error)
}

// Clamp maps v into [0, n).
func Clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

// ClampFloat floors f into [0, n). NaN maps to 0.
func ClampFloat(f float64, n int) int {
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= float64(n-1):
		return n - 1
	}
	return int(f)
}

// Table is a dense N-dimensional array of sprites stored row-major.
type Table struct {
	shape   []int
	strides []int
	cells   []*render.Sprite
}

func newTable(shape []int) *Table {
	strides := make([]int, len(shape))
	n := 1
	for d := len(shape) - 1; d >= 0; d-- {
		strides[d] = n
		n *= shape[d]
	}
	return &Table{
		shape:   append([]int(nil), shape...),
		strides: strides,
		cells:   make([]*render.Sprite, n),
	}
}

// Shape returns the size of every dimension.
func (t *Table) Shape() []int { return append([]int(nil), t.shape...) }

// Len returns the number of cells.
func (t *Table) Len() int { return len(t.cells) }

// Bytes returns the pixel memory held by the cells.
func (t *Table) Bytes() int {
	n := 0
	for _, c := range t.cells {
		n += c.Bytes()
	}
	return n
}

// At returns the cell at idx.
func (t *Table) At(idx ...int) (*render.Sprite, error) {
	if len(idx) != len(t.shape) {
		return nil, fxerr.OutOfRange("table has %d dimensions, got %d indices", len(t.shape), len(idx))
	}
	off := 0
	for d, v := range idx {
		if v < 0 || v >= t.shape[d] {
			return nil, fxerr.OutOfRange("dimension %d: index %d outside [0, %d)", d, v, t.shape[d])
		}
		off += v * t.strides[d]
	}
	return t.cells[off], nil
}

// unflatten writes the index tuple of cell off into idx.
func (t *Table) unflatten(off int, idx []int) {
	for d, s := range t.strides {
		idx[d] = off / s
		off %= s
	}
}

// BuildFunc observes table builds.
type BuildFunc func(kind string, cells int, took time.Duration, err error)

type tableEntry struct {
	once  sync.Once
	done  atomic.Bool
	table *Table
	err   error
}

// TableCache memoises one render table per *Kind. The first Get for a kind
// builds the table; concurrent callers wait for that build. Tables are kept
// for the cache lifetime, and a failed build is cached as its error.
type TableCache struct {
	mu      sync.Mutex
	entries map[*Kind]*tableEntry
	pool    *render.Pool
	onBuild BuildFunc

	builds   atomic.Uint64
	failures atomic.Uint64
	buildNs  atomic.Int64
}

// DefaultTables is the process-wide cache used when an Env has none.
var DefaultTables = NewTableCache(nil)

// NewTableCache creates a cache rendering cells through pool. A nil pool
// builds on the calling goroutine.
func NewTableCache(pool *render.Pool) *TableCache {
	if pool == nil {
		pool = render.NewPool(1)
	}
	return &TableCache{
		entries: make(map[*Kind]*tableEntry),
		pool:    pool,
	}
}

// OnBuild registers a hook called after every build.
func (c *TableCache) OnBuild(fn BuildFunc) {
	c.mu.Lock()
	c.onBuild = fn
	c.mu.Unlock()
}

// Get returns the table of k, building it from spec on first use. spec must
// be the cell spec bound to k.
func (c *TableCache) Get(k *Kind, spec CellSpec) (*Table, error) {
	c.mu.Lock()
	e, ok := c.entries[k]
	if !ok {
		e = &tableEntry{}
		c.entries[k] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.table, e.err = c.build(k, spec)
		e.done.Store(true)
	})
	return e.table, e.err
}

// Lookup returns the table of k if it was built successfully.
func (c *TableCache) Lookup(k *Kind) (*Table, bool) {
	c.mu.Lock()
	e, ok := c.entries[k]
	c.mu.Unlock()
	if !ok || !e.done.Load() || e.err != nil {
		return nil, false
	}
	return e.table, true
}

func (c *TableCache) build(k *Kind, spec CellSpec) (*Table, error) {
	start := time.Now()
	t, err := c.render(k, spec)
	took := time.Since(start)

	c.builds.Add(1)
	c.buildNs.Add(int64(took))
	cells := 0
	if err != nil {
		c.failures.Add(1)
		log.Printf("❌ Render table for %s failed: %v", k.name, err)
	} else {
		cells = t.Len()
		log.Printf("🎨 Render table for %s built: shape %v, %d cells in %v", k.name, t.shape, cells, took.Round(time.Millisecond))
	}

	c.mu.Lock()
	hook := c.onBuild
	c.mu.Unlock()
	if hook != nil {
		hook(k.name, cells, took, err)
	}
	return t, err
}

func (c *TableCache) render(k *Kind, spec CellSpec) (*Table, error) {
	if spec == nil {
		return nil, fxerr.Invalid("kind %s: no cell spec", k.name)
	}
	shape := spec.Ranges()
	if len(shape) == 0 {
		return nil, fxerr.Invalid("kind %s: cell spec declares no dimension", k.name)
	}
	for d, n := range shape {
		if n <= 0 {
			return nil, fxerr.Invalid("kind %s: dimension %d has range %d", k.name, d, n)
		}
	}

	t := newTable(shape)
	err := c.pool.Run(len(t.cells), func(off int) error {
		idx := make([]int, len(shape))
		t.unflatten(off, idx)
		s, err := spec.RenderCell(idx)
		if err != nil {
			return err
		}
		t.cells[off] = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// TableStats summarises the cache footprint.
type TableStats struct {
	Tables    int           `json:"tables"`
	Cells     int           `json:"cells"`
	Bytes     int           `json:"bytes"`
	Builds    uint64        `json:"builds"`
	Failures  uint64        `json:"failures"`
	BuildTime time.Duration `json:"buildTimeNs"`
}

// Stats returns the footprint of the successfully built tables.
func (c *TableCache) Stats() TableStats {
	st := TableStats{
		Builds:    c.builds.Load(),
		Failures:  c.failures.Load(),
		BuildTime: time.Duration(c.buildNs.Load()),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if !e.done.Load() || e.err != nil {
			continue
		}
		st.Tables++
		st.Cells += e.table.Len()
		st.Bytes += e.table.Bytes()
	}
	return st
}

// Len returns the number of built tables.
func (c *TableCache) Len() int {
	return c.Stats().Tables
}

// TableRenderer draws a kind through its cached render table: quantize the
// population, look every particle up and issue a single Blits call. A bound
// renderer keeps scratch buffers and must not draw from two goroutines.
type TableRenderer struct {
	spec  CellSpec
	kind  *Kind
	idx   [][]int
	batch []render.Blit
}

// NewTableRenderer creates an unbound renderer for spec.
func NewTableRenderer(spec CellSpec) *TableRenderer {
	return &TableRenderer{spec: spec}
}

// Bind binds the cell spec to k.
func (r *TableRenderer) Bind(k *Kind) (Renderer, error) {
	if r.spec == nil {
		return nil, fxerr.Invalid("kind %s: table renderer without cell spec", k.name)
	}
	spec, err := r.spec.Bind(k)
	if err != nil {
		return nil, err
	}
	return &TableRenderer{spec: spec, kind: k}, nil
}

// Spec returns the (bound) cell spec.
func (r *TableRenderer) Spec() CellSpec { return r.spec }

// Table returns the kind's table, building it if needed.
func (r *TableRenderer) Table(env Env) (*Table, error) {
	if r.kind == nil {
		return nil, fxerr.Invalid("table renderer is not bound to a kind")
	}
	tables := env.Tables
	if tables == nil {
		tables = DefaultTables
	}
	return tables.Get(r.kind, r.spec)
}

// Draw implements Renderer.
func (r *TableRenderer) Draw(g *Group, env Env, target Surface) error {
	n := g.Len()
	if n == 0 {
		return nil
	}
	t, err := r.Table(env)
	if err != nil {
		return err
	}

	dims := len(t.shape)
	if len(r.idx) != dims {
		r.idx = make([][]int, dims)
	}
	for d := range r.idx {
		if cap(r.idx[d]) < n {
			r.idx[d] = make([]int, n)
		}
		r.idx[d] = r.idx[d][:n]
	}
	r.spec.Quantize(g, env, r.idx)

	r.batch = r.batch[:0]
	pos := g.pos
	for i := 0; i < n; i++ {
		off := 0
		for d := 0; d < dims; d++ {
			v := r.idx[d][i]
			if v < 0 || v >= t.shape[d] {
				return fxerr.OutOfRange("kind %s: particle %d dimension %d index %d outside [0, %d)",
					r.kind.name, i, d, v, t.shape[d])
			}
			off += v * t.strides[d]
		}
		r.batch = append(r.batch, render.Blit{Sprite: t.cells[off], X: pos[i].X, Y: pos[i].Y})
	}

	target.Blits(r.batch)
	return nil
}
