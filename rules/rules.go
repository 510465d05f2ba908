// Package rules applies decided actions to the battle state and judges when
// and how a match ends.
package rules

import (
	"github.com/brensch/broadside/config"
	"github.com/brensch/broadside/game"
	"github.com/brensch/broadside/tactics"
)

// Winner is the outcome of a finished match.
type Winner int

const (
	WinnerA Winner = iota
	WinnerB
	Draw
)

func (w Winner) String() string {
	switch w {
	case WinnerA:
		return "A"
	case WinnerB:
		return "B"
	default:
		return "draw"
	}
}

func (w Winner) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

// WinnerFor maps a side to its winning outcome.
func WinnerFor(side game.Side) Winner {
	if side == game.SideA {
		return WinnerA
	}
	return WinnerB
}

// Reason says why a match stopped.
type Reason int

const (
	Running Reason = iota
	RoundLimit
	FleetDestroyed
	AmmoExhausted
)

func (r Reason) String() string {
	switch r {
	case RoundLimit:
		return "round_limit"
	case FleetDestroyed:
		return "fleet_destroyed"
	case AmmoExhausted:
		return "ammo_exhausted"
	default:
		return "running"
	}
}

func (r Reason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Shot is the outcome of one committed attack at resolution time.
type Shot struct {
	Attack tactics.AttackDecision
	// Fired is false when the shooter died, ran dry or the shot was vetoed.
	Fired   bool
	Vetoed  bool
	Victims []int
}

// ResolveAttacks fires side's committed attacks against the current enemy
// positions. Each fired attack consumes exactly one missile. An attack whose
// footprint would cover a live ally is vetoed before any ammo is spent.
func ResolveAttacks(st *game.State, side game.Side, attacks []tactics.AttackDecision, catalog *game.Catalog, damage int) []Shot {
	own := st.Fleet(side)
	enemy := st.Fleet(side.Enemy())
	shots := make([]Shot, 0, len(attacks))
	for _, a := range attacks {
		shot := Shot{Attack: a}
		if a.Ship < 0 || a.Ship >= len(own.Ships) || !a.OK() {
			shots = append(shots, shot)
			continue
		}
		shooter := own.Ships[a.Ship]
		if shooter.Dead() {
			shots = append(shots, shot)
			continue
		}
		area := catalog.Footprint(a.Kind, a.Target)
		if tactics.CoversAlly(area, own) {
			shot.Vetoed = true
			shots = append(shots, shot)
			continue
		}
		if !shooter.ConsumeAmmo(a.Kind) {
			shots = append(shots, shot)
			continue
		}
		shot.Fired = true
		for _, e := range enemy.Ships {
			if e.Alive() && contains(area, e.Pos()) {
				e.ApplyDamage(damage)
				shot.Victims = append(shot.Victims, e.ID)
			}
		}
		shots = append(shots, shot)
	}
	return shots
}

// ApplyMoves moves side's ships to their decided destinations and returns how
// many ships moved. Decisions for dead ships, unreachable cells or cells that
// break separation are ignored.
func ApplyMoves(st *game.State, cfg config.Config, side game.Side, moves []tactics.MoveDecision) int {
	own := st.Fleet(side)
	moved := 0
	for _, m := range moves {
		if m.Ship < 0 || m.Ship >= len(own.Ships) {
			continue
		}
		s := own.Ships[m.Ship]
		if s.Dead() || m.To == s.Pos() || !s.CanReach(m.To) {
			continue
		}
		if !own.CanOccupy(cfg, s, m.To) {
			continue
		}
		s.SetPosition(m.To)
		moved++
	}
	return moved
}

// Check reports whether the match is over after a resolve phase. round is
// the number of fully completed rounds.
func Check(st *game.State, round, maxRounds int) Reason {
	a, b := st.Fleet(game.SideA), st.Fleet(game.SideB)
	switch {
	case a.Defeated() || b.Defeated():
		return FleetDestroyed
	case !a.HasAmmo() && !b.HasAmmo():
		return AmmoExhausted
	case round >= maxRounds:
		return RoundLimit
	}
	return Running
}

// Judge picks the winner: more live ships wins, then more summed health.
func Judge(st *game.State) Winner {
	a, b := st.Fleet(game.SideA), st.Fleet(game.SideB)
	as, bs := a.LiveCount(), b.LiveCount()
	switch {
	case as > bs:
		return WinnerA
	case bs > as:
		return WinnerB
	}
	ah, bh := a.TotalHealth(), b.TotalHealth()
	switch {
	case ah > bh:
		return WinnerA
	case bh > ah:
		return WinnerB
	}
	return Draw
}

func contains(ps []game.Point, p game.Point) bool {
	for _, q := range ps {
		if q == p {
			return true
		}
	}
	return false
}
