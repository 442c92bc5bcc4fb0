package particle

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"sparkfx/internal/fxerr"
	"sparkfx/internal/render"
)

func spawnSpread(t *testing.T, sys *System, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := sys.Spawn(Spawn{Pos: Vec2{float64(i * 7), float64(i)}}); err != nil {
			t.Fatalf("Spawn: %v", err)
		}
	}
}

// TestTableBuiltOncePerKind tests the 60x360 build and its reuse
func TestTableBuiltOncePerKind(t *testing.T) {
	pool := render.NewPool(4)
	pool.Start()
	defer pool.Stop()

	env := testEnv()
	env.Tables = NewTableCache(pool)

	spec := newCountingSpec(60, 360)
	k := MustKind(KindConfig{Name: "hue", MaxAge: 60, Components: []Component{Move{}}, Renderer: NewTableRenderer(spec)})
	sys := NewSystem(k, env)
	spawnSpread(t, sys, 50)

	surface := &recordingSurface{}
	if err := sys.Draw(surface); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if got := spec.calls.Load(); got != 21600 {
		t.Fatalf("Expected 21600 cells rendered, got %d", got)
	}
	first, ok := env.Tables.Lookup(k)
	if !ok {
		t.Fatal("Expected a built table after the first draw")
	}
	if first.Len() != 21600 {
		t.Errorf("Expected 21600 cells, got %d", first.Len())
	}

	sys.Update()
	if err := sys.Draw(surface); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if got := spec.calls.Load(); got != 21600 {
		t.Errorf("Expected no extra RenderCell call, got %d total", got)
	}
	second, _ := env.Tables.Lookup(k)
	if first != second {
		t.Error("Expected the same table on the second draw")
	}

	// A second system of the same kind shares the table.
	other := NewSystem(k, env)
	spawnSpread(t, other, 3)
	if err := other.Draw(surface); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if got := spec.calls.Load(); got != 21600 {
		t.Errorf("Expected the table shared across systems, got %d renders", got)
	}

	st := env.Tables.Stats()
	if st.Tables != 1 || st.Cells != 21600 || st.Builds != 1 {
		t.Errorf("Expected 1 table of 21600 cells from 1 build, got %+v", st)
	}
}

// TestDerivedKindGetsOwnTable tests that derivation never shares the table
func TestDerivedKindGetsOwnTable(t *testing.T) {
	env := testEnv()
	base := MustKind(KindConfig{
		Name:     "base",
		MaxAge:   60,
		Renderer: NewTableRenderer(newCountingSpec(60, 12)),
	})
	same, err := base.Derive("same")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	shorter, err := base.Derive("shorter", WithRenderer(NewTableRenderer(newCountingSpec(30, 12))), WithMaxAge(30))
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	surface := &recordingSurface{}
	tables := map[*Table]string{}
	for _, k := range []*Kind{base, same, shorter} {
		sys := NewSystem(k, env)
		spawnSpread(t, sys, 4)
		if err := sys.Draw(surface); err != nil {
			t.Fatalf("Draw %s: %v", k.Name(), err)
		}
		table, ok := env.Tables.Lookup(k)
		if !ok {
			t.Fatalf("No table for %s", k.Name())
		}
		if prev, dup := tables[table]; dup {
			t.Errorf("Kinds %s and %s share a table", prev, k.Name())
		}
		tables[table] = k.Name()
	}

	shape, _ := env.Tables.Lookup(shorter)
	if s := shape.Shape(); s[0] != 30 || s[1] != 12 {
		t.Errorf("Expected shape [30 12], got %v", s)
	}
	if env.Tables.Len() != 3 {
		t.Errorf("Expected 3 tables, got %d", env.Tables.Len())
	}
}

// TestTableConcurrentFirstAccess tests one build under concurrent Get
func TestTableConcurrentFirstAccess(t *testing.T) {
	cache := NewTableCache(nil)
	spec := newCountingSpec(10, 10)
	k := MustKind(KindConfig{Name: "race", MaxAge: 10})

	var wg sync.WaitGroup
	results := make([]*Table, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			table, err := cache.Get(k, spec)
			if err != nil {
				t.Errorf("Get: %v", err)
			}
			results[i] = table
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if r != results[0] {
			t.Errorf("Goroutine %d saw a different table", i)
		}
	}
	if got := spec.calls.Load(); got != 100 {
		t.Errorf("Expected 100 cells rendered once, got %d", got)
	}
}

// TestDrawIssuesOneBatch tests that a draw is a single Blits call
func TestDrawIssuesOneBatch(t *testing.T) {
	env := testEnv()
	k := MustKind(KindConfig{Name: "batch", MaxAge: 20, Renderer: NewTableRenderer(newCountingSpec(20, 100))})
	sys := NewSystem(k, env)
	spawnSpread(t, sys, 64)

	surface := &recordingSurface{}
	if err := sys.Draw(surface); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	if len(surface.batches) != 1 {
		t.Fatalf("Expected 1 Blits call, got %d", len(surface.batches))
	}
	batch := surface.batches[0]
	if len(batch) != 64 {
		t.Fatalf("Expected 64 blits, got %d", len(batch))
	}
	for i, b := range batch {
		p := sys.Group().Pos()[i]
		if b.X != p.X || b.Y != p.Y {
			t.Errorf("Blit %d at (%f, %f), expected %v", i, b.X, b.Y, p)
		}
		if b.Sprite == nil {
			t.Errorf("Blit %d has no sprite", i)
		}
	}
}

// TestDrawOutOfRange tests the lookup bounds check
func TestDrawOutOfRange(t *testing.T) {
	env := testEnv()
	spec := &brokenSpec{countingSpec: *newCountingSpec(5)}
	k := MustKind(KindConfig{Name: "broken", MaxAge: 5, Renderer: NewTableRenderer(spec)})
	sys := NewSystem(k, env)
	spawnSpread(t, sys, 2)

	surface := &recordingSurface{}
	err := sys.Draw(surface)
	if !errors.Is(err, fxerr.ErrIndexOutOfRange) {
		t.Errorf("Expected ErrIndexOutOfRange, got %v", err)
	}
	if len(surface.batches) != 0 {
		t.Error("Expected no Blits call on a failed draw")
	}
}

// TestFailedBuildIsCached tests that a failing table is not rebuilt
func TestFailedBuildIsCached(t *testing.T) {
	env := testEnv()
	var hooked []error
	env.Tables.OnBuild(func(kind string, cells int, took time.Duration, err error) {
		hooked = append(hooked, err)
	})

	spec := newCountingSpec(8)
	spec.fail = fxerr.Unavailable(nil, "sprite sheet missing")
	k := MustKind(KindConfig{Name: "missing", MaxAge: 8, Renderer: NewTableRenderer(spec)})
	sys := NewSystem(k, env)
	spawnSpread(t, sys, 1)

	for i := 0; i < 2; i++ {
		err := sys.Draw(&recordingSurface{})
		if !errors.Is(err, fxerr.ErrResourceUnavailable) {
			t.Errorf("Draw %d: expected ErrResourceUnavailable, got %v", i, err)
		}
	}
	if got := spec.calls.Load(); got != 1 {
		t.Errorf("Expected 1 RenderCell call, got %d", got)
	}
	if len(hooked) != 1 || hooked[0] == nil {
		t.Errorf("Expected one failed build reported, got %v", hooked)
	}
	if _, ok := env.Tables.Lookup(k); ok {
		t.Error("Expected no table for a failed build")
	}
	if st := env.Tables.Stats(); st.Failures != 1 || st.Tables != 0 {
		t.Errorf("Expected 1 failure and no table, got %+v", st)
	}
}

// TestTableAt tests direct cell access
func TestTableAt(t *testing.T) {
	table := newTable([]int{3, 4, 5})
	for i := range table.cells {
		table.cells[i] = &render.Sprite{W: i}
	}

	s, err := table.At(2, 1, 3)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if want := 2*20 + 1*5 + 3; s.W != want {
		t.Errorf("Expected cell %d, got %d", want, s.W)
	}

	idx := make([]int, 3)
	table.unflatten(48, idx)
	if idx[0] != 2 || idx[1] != 1 || idx[2] != 3 {
		t.Errorf("Expected [2 1 3], got %v", idx)
	}

	for _, bad := range [][]int{{3, 0, 0}, {0, -1, 0}, {0, 0, 5}, {0, 0}} {
		if _, err := table.At(bad...); !errors.Is(err, fxerr.ErrIndexOutOfRange) {
			t.Errorf("At%v: expected ErrIndexOutOfRange, got %v", bad, err)
		}
	}
}

// TestClamp tests the quantization helpers
func TestClamp(t *testing.T) {
	tests := []struct {
		v, n, want int
	}{
		{-5, 10, 0},
		{0, 10, 0},
		{9, 10, 9},
		{10, 10, 9},
		{1 << 40, 360, 359},
	}
	for _, tt := range tests {
		if got := Clamp(tt.v, tt.n); got != tt.want {
			t.Errorf("Clamp(%d, %d): expected %d, got %d", tt.v, tt.n, tt.want, got)
		}
	}

	floats := []struct {
		f    float64
		n    int
		want int
	}{
		{math.NaN(), 10, 0},
		{math.Inf(1), 10, 9},
		{math.Inf(-1), 10, 0},
		{-0.5, 10, 0},
		{3.99, 10, 3},
		{359.9, 360, 359},
	}
	for _, tt := range floats {
		if got := ClampFloat(tt.f, tt.n); got != tt.want {
			t.Errorf("ClampFloat(%f, %d): expected %d, got %d", tt.f, tt.n, tt.want, got)
		}
	}
}
