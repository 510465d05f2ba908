// Package game defines the battle state: grid geometry, missiles, ships and
// fleets.
//
// The state is owned by a single match. Decision making works on clones so
// the owner keeps exclusive mutable access while a turn resolves.
package game

import "github.com/brensch/broadside/config"

// State is the complete battle state.
type State struct {
	GridSize int
	Round    int
	Fleets   [2]*Fleet
}

// NewState creates both fleets, unplaced.
func NewState(cfg config.Config, a, b Params) (*State, error) {
	fa, err := NewFleet(cfg, SideA, a)
	if err != nil {
		return nil, err
	}
	fb, err := NewFleet(cfg, SideB, b)
	if err != nil {
		return nil, err
	}
	return &State{GridSize: cfg.GridSize, Fleets: [2]*Fleet{fa, fb}}, nil
}

func (s *State) Fleet(side Side) *Fleet { return s.Fleets[side] }

// Clone performs a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := &State{GridSize: s.GridSize, Round: s.Round}
	for i, f := range s.Fleets {
		if f != nil {
			out.Fleets[i] = f.Clone()
		}
	}
	return out
}
