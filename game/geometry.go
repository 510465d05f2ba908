package game

import "math"

// Point is a grid cell. (0,0) is the top-left corner; side A starts at low X.
type Point struct {
	X int
	Y int
}

func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// In reports whether p lies on a size x size grid.
func (p Point) In(size int) bool {
	return p.X >= 0 && p.X < size && p.Y >= 0 && p.Y < size
}

// Ray is a line of fire from Origin in the direction of (DX, DY).
// t=0 is the origin and t=1 the point the ray was aimed at.
type Ray struct {
	Origin Point
	DX     float64
	DY     float64
}

func NewRay(from, to Point) Ray {
	d := to.Sub(from)
	return Ray{Origin: from, DX: float64(d.X), DY: float64(d.Y)}
}

// Project returns the perpendicular distance from p to the ray's line and
// p's parametric position along it. A degenerate ray (from == to) reports
// the plain Euclidean distance from the origin and t=0.
func (r Ray) Project(p Point) (dist, t float64) {
	vx := float64(p.X - r.Origin.X)
	vy := float64(p.Y - r.Origin.Y)
	l2 := r.DX*r.DX + r.DY*r.DY
	if l2 == 0 {
		return math.Hypot(vx, vy), 0
	}
	t = (vx*r.DX + vy*r.DY) / l2
	dist = math.Abs(vx*r.DY-vy*r.DX) / math.Sqrt(l2)
	return dist, t
}

// Between reports whether p sits strictly between the origin and the aim
// point on the line of fire.
func (r Ray) Between(p Point, eps float64) bool {
	d, t := r.Project(p)
	return d < eps && t > eps && t < 1-eps
}

// Ahead reports whether p is on the line of fire past the origin, at any
// distance (including beyond the aim point).
func (r Ray) Ahead(p Point, eps float64) bool {
	d, t := r.Project(p)
	return d < eps && t > eps
}
