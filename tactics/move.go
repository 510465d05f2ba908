package tactics

import "github.com/brensch/broadside/game"

// EvaluateMove rates moving self to move against the enemy and ally
// positions in view.
func (p *Planner) EvaluateMove(view *game.State, self *game.Ship, move game.Point) float64 {
	own := view.Fleet(self.Side)
	enemy := view.Fleet(self.Side.Enemy())
	w := own.Params
	eps := p.cfg.Epsilon

	score := 0.0
	for _, e := range enemy.Ships {
		if e.Alive() {
			score += w.EnemyDistance / p.distance(move, e.Pos())
		}
	}
	for _, a := range own.Ships {
		if a.Alive() && !sameShip(a, self) {
			score += w.AllyDistance / p.distance(move, a.Pos())
		}
	}

	blocks := 0
	targeted := 0
	for _, e := range enemy.Ships {
		if e.Dead() {
			continue
		}
		for _, a := range own.Ships {
			if a.Alive() && !sameShip(a, self) && game.NewRay(e.Pos(), a.Pos()).Between(move, eps) {
				blocks++
			}
		}
		if targeted == 0 && p.exposed(view, self, e, move) {
			targeted = 1
		}
	}

	value := self.Value(w)
	score += float64(blocks) * w.Block * value
	score += float64(targeted) * w.Target * value
	return score
}

// exposed reports whether move is the first thing on shooter's line of fire
// through it: no other live ship of either side sits between them.
func (p *Planner) exposed(view *game.State, self, shooter *game.Ship, move game.Point) bool {
	r := game.NewRay(shooter.Pos(), move)
	for _, f := range view.Fleets {
		for _, s := range f.Ships {
			if s.Dead() || sameShip(s, self) || sameShip(s, shooter) {
				continue
			}
			if r.Between(s.Pos(), p.cfg.Epsilon) {
				return false
			}
		}
	}
	return true
}

// ChooseMove picks the best legal destination for self. A candidate must
// beat both the running best and the side's attack threshold.
func (p *Planner) ChooseMove(view *game.State, self *game.Ship) MoveDecision {
	d := MoveDecision{Ship: self.ID, From: self.Pos(), To: self.Pos()}
	if self.Dead() {
		return d
	}
	own := view.Fleet(self.Side)
	threshold := own.Params.AttackThreshold
	for _, m := range self.ReachableMoves() {
		if !own.CanOccupy(p.cfg, self, m) {
			continue
		}
		s := p.EvaluateMove(view, self, m)
		if s > threshold && valid(s).Beats(d.Score) {
			d.To = m
			d.Score = valid(s)
		}
	}
	return d
}

// PlanMoves chooses moves for every live ship of side in fleet order. Each
// choice is applied to view before the next ship decides, so later ships see
// where earlier allies went. The enemy fleet is left untouched.
func (p *Planner) PlanMoves(view *game.State, side game.Side) []MoveDecision {
	own := view.Fleet(side)
	out := make([]MoveDecision, 0, len(own.Ships))
	for _, s := range own.Ships {
		if s.Dead() {
			continue
		}
		d := p.ChooseMove(view, s)
		if d.To != s.Pos() {
			s.SetPosition(d.To)
		}
		out = append(out, d)
	}
	return out
}
