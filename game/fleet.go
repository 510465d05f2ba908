package game

import (
	"fmt"

	"github.com/brensch/broadside/config"
)

// Fleet is one player: an ordered, fixed list of ships plus the strategy
// weights it plays with.
type Fleet struct {
	Side   Side
	Ships  []*Ship
	Params Params
}

// NewFleet builds the configured composition for side. Ships are created at
// (0,0) and must be placed before play.
func NewFleet(cfg config.Config, side Side, params Params) (*Fleet, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	f := &Fleet{Side: side, Params: params}
	for _, e := range cfg.Fleets[side] {
		class, ok := cfg.Class(e.Class)
		if !ok {
			return nil, fmt.Errorf("fleet %s: unknown ship class %q", side, e.Class)
		}
		for i := 0; i < e.Count; i++ {
			f.Ships = append(f.Ships, NewShip(side, len(f.Ships), class, cfg.GridSize))
		}
	}
	return f, nil
}

func (f *Fleet) Live() []*Ship {
	out := make([]*Ship, 0, len(f.Ships))
	for _, s := range f.Ships {
		if s.Alive() {
			out = append(out, s)
		}
	}
	return out
}

func (f *Fleet) LiveCount() int {
	n := 0
	for _, s := range f.Ships {
		if s.Alive() {
			n++
		}
	}
	return n
}

func (f *Fleet) TotalHealth() int {
	n := 0
	for _, s := range f.Ships {
		if s.Alive() {
			n += s.Health
		}
	}
	return n
}

func (f *Fleet) Defeated() bool { return f.LiveCount() == 0 }

// HasAmmo reports whether any live ship still carries a missile.
func (f *Fleet) HasAmmo() bool {
	for _, s := range f.Ships {
		if s.HasAmmo() {
			return true
		}
	}
	return false
}

// ShipAt returns the live ship occupying p, if any.
func (f *Fleet) ShipAt(p Point) *Ship {
	for _, s := range f.Ships {
		if s.Alive() && s.Pos() == p {
			return s
		}
	}
	return nil
}

// CanOccupy is the shared placement and movement rule: p must be on the grid,
// free of live allies, and at least MinSeparation from every live ally other
// than mover.
func (f *Fleet) CanOccupy(cfg config.Config, mover *Ship, p Point) bool {
	return canOccupy(cfg, f.Ships, mover, p)
}

func canOccupy(cfg config.Config, ships []*Ship, mover *Ship, p Point) bool {
	if !p.In(cfg.GridSize) {
		return false
	}
	for _, s := range ships {
		if s == mover || s.Dead() {
			continue
		}
		q := s.Pos()
		if q == p || cfg.Distance(p.X, p.Y, q.X, q.Y) < cfg.MinSeparation {
			return false
		}
	}
	return true
}

func (f *Fleet) Clone() *Fleet {
	c := &Fleet{Side: f.Side, Params: f.Params, Ships: make([]*Ship, len(f.Ships))}
	for i, s := range f.Ships {
		c.Ships[i] = s.Clone()
	}
	return c
}
