// Package tactics scores candidate moves and attacks for one side.
//
// Every function here is pure over the *game.State it is handed. The match
// passes a private clone, so the engine may read (and, for move planning,
// update its own copy of) ship positions without touching the real battle.
package tactics

import (
	"github.com/brensch/broadside/config"
	"github.com/brensch/broadside/game"
)

// Score is a candidate's rating. An invalid Score marks a forbidden or
// missing option (friendly-fire veto, no legal move, no attack) and never
// compares as better than a valid one, whatever its Value.
type Score struct {
	Value float64
	Valid bool
}

func valid(v float64) Score { return Score{Value: v, Valid: true} }

// Beats reports whether s should replace best.
func (s Score) Beats(best Score) bool {
	if !s.Valid {
		return false
	}
	return !best.Valid || s.Value > best.Value
}

// MoveDecision is where a ship will move. With an invalid Score the ship has
// no legal destination and stays put.
type MoveDecision struct {
	Ship  int
	From  game.Point
	To    game.Point
	Score Score
}

// AttackDecision is a committed target. OK is false when the ship holds fire.
type AttackDecision struct {
	Ship   int
	Target game.Point
	Kind   game.MissileKind
	Score  Score
}

func (d AttackDecision) OK() bool { return d.Score.Valid }

// Planner holds the immutable inputs shared by every decision of a match.
type Planner struct {
	cfg     config.Config
	catalog *game.Catalog
}

func NewPlanner(cfg config.Config, catalog *game.Catalog) *Planner {
	if catalog == nil || catalog.Size() != cfg.GridSize {
		catalog = game.NewCatalog(cfg.GridSize)
	}
	return &Planner{cfg: cfg, catalog: catalog}
}

func (p *Planner) Catalog() *game.Catalog { return p.catalog }

func (p *Planner) distance(a, b game.Point) float64 {
	d := p.cfg.Distance(a.X, a.Y, b.X, b.Y)
	if d < p.cfg.DistanceFloor {
		return p.cfg.DistanceFloor
	}
	return d
}

func sameShip(a, b *game.Ship) bool { return a.Side == b.Side && a.ID == b.ID }
