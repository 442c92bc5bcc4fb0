package particle

// Built-in attributes present in every group.
const (
	AttrPos = "pos"
	AttrVel = "vel"
	AttrAge = "age"
)

// AttrKind is the storage type of a component attribute column.
type AttrKind int

const (
	Float AttrKind = iota
	Int
)

func (k AttrKind) String() string {
	if k == Int {
		return "int"
	}
	return "float"
}

// Attr names a column allocated by a component.
type Attr struct {
	Name string
	Kind AttrKind
}

// Group is the struct-of-arrays population of one system. Every column has
// Len() rows and row i of every column is the same particle.
type Group struct {
	pos    []Vec2
	vel    []Vec2
	age    []int
	floats map[string][]float64
	ints   map[string][]int
}

func newGroup(attrs []Attr) *Group {
	g := &Group{
		floats: make(map[string][]float64),
		ints:   make(map[string][]int),
	}
	for _, a := range attrs {
		if a.Kind == Int {
			g.ints[a.Name] = nil
		} else {
			g.floats[a.Name] = nil
		}
	}
	return g
}

// Len returns the population size.
func (g *Group) Len() int { return len(g.age) }

// Pos returns the position column. Callers may mutate elements in place.
func (g *Group) Pos() []Vec2 { return g.pos }

// Vel returns the velocity column.
func (g *Group) Vel() []Vec2 { return g.vel }

// Age returns the age column.
func (g *Group) Age() []int { return g.age }

// Floats returns the float column name, or nil if the group has none.
func (g *Group) Floats(name string) []float64 { return g.floats[name] }

// Ints returns the int column name, or nil if the group has none.
func (g *Group) Ints(name string) []int { return g.ints[name] }

// Columns returns the number of columns including the built-ins.
func (g *Group) Columns() int { return 3 + len(g.floats) + len(g.ints) }

// lengths reports every column length, built-ins first.
func (g *Group) lengths() []int {
	out := []int{len(g.pos), len(g.vel), len(g.age)}
	for _, c := range g.floats {
		out = append(out, len(c))
	}
	for _, c := range g.ints {
		out = append(out, len(c))
	}
	return out
}

// appendRow grows every column by one zeroed row and returns its index.
func (g *Group) appendRow(pos, vel Vec2) int {
	g.pos = append(g.pos, pos)
	g.vel = append(g.vel, vel)
	g.age = append(g.age, 0)
	for k, c := range g.floats {
		g.floats[k] = append(c, 0)
	}
	for k, c := range g.ints {
		g.ints[k] = append(c, 0)
	}
	return len(g.age) - 1
}

func (g *Group) set(a Attr, i int, v float64) {
	if a.Kind == Int {
		g.ints[a.Name][i] = int(v)
		return
	}
	g.floats[a.Name][i] = v
}

// compact drops every row with age >= maxAge in one stable pass per column
// and returns the number of rows removed.
func (g *Group) compact(maxAge int) int {
	dead := 0
	for _, a := range g.age {
		if a >= maxAge {
			dead++
		}
	}
	if dead == 0 {
		return 0
	}

	age := g.age
	g.pos = keepLive(g.pos, age, maxAge)
	g.vel = keepLive(g.vel, age, maxAge)
	for k, c := range g.floats {
		g.floats[k] = keepLive(c, age, maxAge)
	}
	for k, c := range g.ints {
		g.ints[k] = keepLive(c, age, maxAge)
	}
	// age last: it is the mask of the passes above
	g.age = keepLive(g.age, age, maxAge)
	return dead
}

func keepLive[T any](col []T, age []int, maxAge int) []T {
	n := 0
	for i, a := range age {
		if a < maxAge {
			col[n] = col[i]
			n++
		}
	}
	return col[:n]
}
