package game

// MissileKind selects a damage footprint.
type MissileKind int

const (
	Cross MissileKind = iota
	Square
)

// MissileKinds lists every kind in ammo-slot order.
var MissileKinds = [...]MissileKind{Cross, Square}

func (k MissileKind) String() string {
	switch k {
	case Cross:
		return "cross"
	case Square:
		return "square"
	default:
		return "unknown"
	}
}

var footprintOffsets = [...][]Point{
	Cross: {{0, 0}, {1, 0}, {0, 1}, {-1, 0}, {0, -1}},
	Square: {
		{-1, -1}, {-1, 0}, {-1, 1},
		{0, -1}, {0, 0}, {0, 1},
		{1, -1}, {1, 0}, {1, 1},
	},
}

// DamageArea returns the cells a missile of kind damages when aimed at
// target, clipped to the grid.
func DamageArea(kind MissileKind, target Point, size int) []Point {
	if kind < Cross || kind > Square {
		return nil
	}
	offsets := footprintOffsets[kind]
	area := make([]Point, 0, len(offsets))
	for _, o := range offsets {
		p := target.Add(o)
		if p.In(size) {
			area = append(area, p)
		}
	}
	return area
}

// Catalog memoizes DamageArea for every on-grid target. It is built once per
// grid size and is read-only afterwards, so one Catalog can be shared by any
// number of concurrent matches.
type Catalog struct {
	size  int
	areas [len(footprintOffsets)][][]Point
}

func NewCatalog(size int) *Catalog {
	c := &Catalog{size: size}
	for _, kind := range MissileKinds {
		c.areas[kind] = make([][]Point, size*size)
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				c.areas[kind][y*size+x] = DamageArea(kind, Point{X: x, Y: y}, size)
			}
		}
	}
	return c
}

func (c *Catalog) Size() int { return c.size }

// Footprint returns the clipped damage area. Callers must not modify the
// returned slice.
func (c *Catalog) Footprint(kind MissileKind, target Point) []Point {
	if kind < Cross || kind > Square {
		return nil
	}
	if !target.In(c.size) {
		return DamageArea(kind, target, c.size)
	}
	return c.areas[kind][target.Y*c.size+target.X]
}

// Covers reports whether the footprint of kind aimed at target includes p.
func (c *Catalog) Covers(kind MissileKind, target, p Point) bool {
	for _, q := range c.Footprint(kind, target) {
		if q == p {
			return true
		}
	}
	return false
}
