package game

import "github.com/brensch/broadside/config"

// Side identifies one of the two fleets.
type Side int

const (
	SideA Side = iota
	SideB
)

func (s Side) Enemy() Side { return 1 - s }

func (s Side) String() string {
	if s == SideA {
		return "A"
	}
	return "B"
}

// Ship is one unit's battle state. Ships are never removed from their fleet;
// a ship with zero health is dead and inert.
type Ship struct {
	ID        int
	Side      Side
	Class     string
	MaxHealth int
	Health    int
	MoveRange int
	Ammo      [len(MissileKinds)]int

	gridSize int
	pos      Point
	// moves is rebuilt by SetPosition and shared read-only between clones.
	moves []Point
}

func NewShip(side Side, id int, class config.ShipClass, gridSize int) *Ship {
	s := &Ship{
		ID:        id,
		Side:      side,
		Class:     class.Name,
		MaxHealth: class.MaxHealth,
		Health:    class.MaxHealth,
		MoveRange: class.MoveRange,
		gridSize:  gridSize,
	}
	s.Ammo[Cross] = class.CrossAmmo
	s.Ammo[Square] = class.SquareAmmo
	s.SetPosition(Point{})
	return s
}

func (s *Ship) Pos() Point  { return s.pos }
func (s *Ship) Dead() bool  { return s.Health <= 0 }
func (s *Ship) Alive() bool { return s.Health > 0 }

// SetPosition moves the ship and recomputes its reachable set.
func (s *Ship) SetPosition(p Point) {
	s.pos = p
	s.moves = reachable(p, s.MoveRange, s.gridSize)
}

// ReachableMoves returns every on-grid cell within Manhattan MoveRange of the
// ship, including its own cell. Callers must not modify the slice.
func (s *Ship) ReachableMoves() []Point { return s.moves }

func reachable(from Point, r, size int) []Point {
	moves := make([]Point, 0, 2*r*r+2*r+1)
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			if abs(dx)+abs(dy) > r {
				continue
			}
			p := Point{X: from.X + dx, Y: from.Y + dy}
			if p.In(size) {
				moves = append(moves, p)
			}
		}
	}
	return moves
}

// CanReach reports whether p is in the reachable set.
func (s *Ship) CanReach(p Point) bool {
	return p.In(s.gridSize) && abs(p.X-s.pos.X)+abs(p.Y-s.pos.Y) <= s.MoveRange
}

func (s *Ship) ApplyDamage(n int) {
	s.Health -= n
	if s.Health < 0 {
		s.Health = 0
	}
}

// ConsumeAmmo spends one missile of kind. It fails without side effects when
// that counter is empty.
func (s *Ship) ConsumeAmmo(kind MissileKind) bool {
	if kind < Cross || kind > Square || s.Ammo[kind] <= 0 {
		return false
	}
	s.Ammo[kind]--
	return true
}

func (s *Ship) AmmoLeft() int { return s.Ammo[Cross] + s.Ammo[Square] }

// HasAmmo reports whether a live ship can still fire.
func (s *Ship) HasAmmo() bool { return s.Alive() && s.AmmoLeft() > 0 }

// Value is the ship's worth under p.
func (s *Ship) Value(p Params) float64 {
	return float64(s.Health)*p.Health + float64(s.AmmoLeft())*p.Missile
}

func (s *Ship) Clone() *Ship {
	c := *s
	return &c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
