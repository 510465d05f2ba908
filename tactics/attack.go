package tactics

import "github.com/brensch/broadside/game"

// AttackTargets returns the plausible target set: every cell some live enemy
// of side could move to next, in fleet order without duplicates.
func AttackTargets(view *game.State, side game.Side) []game.Point {
	enemy := view.Fleet(side.Enemy())
	seen := make(map[game.Point]bool, 64)
	var out []game.Point
	for _, e := range enemy.Ships {
		if e.Dead() {
			continue
		}
		for _, m := range e.ReachableMoves() {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}

// lineScore sums the per-cell worth of every enemy cell on the line of fire
// from shooter through target. ok is false when a live ally blocks the path.
func (p *Planner) lineScore(view *game.State, shooter *game.Ship, target game.Point) (total float64, ok bool) {
	own := view.Fleet(shooter.Side)
	enemy := view.Fleet(shooter.Side.Enemy())
	eps := p.cfg.Epsilon
	r := game.NewRay(shooter.Pos(), target)

	for _, a := range own.Ships {
		if a.Alive() && !sameShip(a, shooter) && r.Between(a.Pos(), eps) {
			return 0, false
		}
	}
	for _, e := range enemy.Ships {
		if e.Dead() {
			continue
		}
		moves := e.ReachableMoves()
		if len(moves) == 0 {
			continue
		}
		per := e.Value(own.Params) / float64(len(moves))
		for _, m := range moves {
			if r.Ahead(m, eps) {
				total += per
			}
		}
	}
	return total, true
}

// footprintScore is the expected damage value of a kind missile landing on
// target, spread over each enemy's reachable cells. ok is false when the
// footprint covers a live ally, the shooter included.
func (p *Planner) footprintScore(view *game.State, side game.Side, target game.Point, kind game.MissileKind) (potential float64, ok bool) {
	own := view.Fleet(side)
	enemy := view.Fleet(side.Enemy())
	area := p.catalog.Footprint(kind, target)

	if CoversAlly(area, own) {
		return 0, false
	}
	for _, e := range enemy.Ships {
		if e.Dead() {
			continue
		}
		moves := e.ReachableMoves()
		if len(moves) == 0 {
			continue
		}
		per := e.Value(own.Params) / float64(len(moves))
		for _, c := range area {
			if e.CanReach(c) {
				potential += per
			}
		}
	}
	return potential, true
}

// EvaluateAttack rates shooter firing a kind missile at target. The score is
// invalid when the shooter has no such missile, an ally blocks the line of
// fire, or the footprint would hit an ally.
func (p *Planner) EvaluateAttack(view *game.State, shooter *game.Ship, target game.Point, kind game.MissileKind) Score {
	if shooter.Dead() || shooter.Ammo[kind] <= 0 {
		return Score{}
	}
	total, ok := p.lineScore(view, shooter, target)
	if !ok {
		return Score{}
	}
	potential, ok := p.footprintScore(view, shooter.Side, target, kind)
	if !ok {
		return Score{}
	}
	return valid(potential + total)
}

// ChooseAttack picks the best (target, kind) for shooter. The ship holds
// fire unless the best score is positive and above the attack threshold.
func (p *Planner) ChooseAttack(view *game.State, shooter *game.Ship) AttackDecision {
	d := AttackDecision{Ship: shooter.ID, Target: shooter.Pos()}
	if !shooter.HasAmmo() {
		return d
	}
	own := view.Fleet(shooter.Side)
	threshold := own.Params.AttackThreshold

	for _, target := range AttackTargets(view, shooter.Side) {
		total, ok := p.lineScore(view, shooter, target)
		if !ok {
			continue
		}
		for _, kind := range game.MissileKinds {
			if shooter.Ammo[kind] <= 0 {
				continue
			}
			potential, ok := p.footprintScore(view, shooter.Side, target, kind)
			if !ok {
				continue
			}
			s := valid(potential + total)
			if s.Value > threshold && s.Beats(d.Score) {
				d.Target = target
				d.Kind = kind
				d.Score = s
			}
		}
	}
	if d.Score.Valid && d.Score.Value <= 0 {
		return AttackDecision{Ship: shooter.ID, Target: shooter.Pos()}
	}
	return d
}

// PlanAttacks decides an attack for every armed live ship of side. Ships
// decide independently against the same view; nothing is consumed here.
func (p *Planner) PlanAttacks(view *game.State, side game.Side) []AttackDecision {
	var out []AttackDecision
	for _, s := range view.Fleet(side).Ships {
		if !s.HasAmmo() {
			continue
		}
		if d := p.ChooseAttack(view, s); d.OK() {
			out = append(out, d)
		}
	}
	return out
}

// WouldHitAlly reports whether a kind missile on target covers any live ship
// of side.
func (p *Planner) WouldHitAlly(view *game.State, side game.Side, target game.Point, kind game.MissileKind) bool {
	return CoversAlly(p.catalog.Footprint(kind, target), view.Fleet(side))
}

// CoversAlly reports whether area includes the position of a live ship of f.
// Planning and resolution both use it to veto friendly fire.
func CoversAlly(area []game.Point, f *game.Fleet) bool {
	for _, a := range f.Ships {
		if a.Alive() && contains(area, a.Pos()) {
			return true
		}
	}
	return false
}

func contains(ps []game.Point, p game.Point) bool {
	for _, q := range ps {
		if q == p {
			return true
		}
	}
	return false
}
