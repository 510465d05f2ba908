// Package selfplay runs a single match between two fleets.
package selfplay

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/brensch/broadside/config"
	"github.com/brensch/broadside/game"
	"github.com/brensch/broadside/rules"
	"github.com/brensch/broadside/tactics"
)

// Phase is a step of the turn state machine.
type Phase int

const (
	PlaceA Phase = iota
	PlaceB
	AttackA
	MoveB
	ResolveA
	AttackB
	MoveA
	ResolveB
	Finished
)

var phaseNames = [...]string{
	PlaceA:   "place_a",
	PlaceB:   "place_b",
	AttackA:  "attack_a",
	MoveB:    "move_b",
	ResolveA: "resolve_a",
	AttackB:  "attack_b",
	MoveA:    "move_a",
	ResolveB: "resolve_b",
	Finished: "finished",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// PhaseEvent is published after every phase. State is a snapshot the
// observer may keep.
type PhaseEvent struct {
	Phase   Phase
	Round   int
	State   *game.State
	Attacks []tactics.AttackDecision
	Moves   []tactics.MoveDecision
	Shots   []rules.Shot
	Reason  rules.Reason
}

type Observer interface {
	OnPhase(PhaseEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(PhaseEvent)

func (f ObserverFunc) OnPhase(e PhaseEvent) { f(e) }

// Result summarises a finished match.
type Result struct {
	Rounds   int           `json:"rounds"`
	Ships    [2]int        `json:"ships"`
	Health   [2]int        `json:"health"`
	Winner   rules.Winner  `json:"winner"`
	Reason   rules.Reason  `json:"reason"`
	Duration time.Duration `json:"duration_ns"`
}

// Match owns the battle state. Decision code only ever sees clones.
type Match struct {
	cfg       config.Config
	planner   *tactics.Planner
	state     *game.State
	rng       *rand.Rand
	observers []Observer
	placed    bool
}

// NewMatch builds an unplaced match. Malformed params fail with
// game.ErrInvalidParams before anything is created.
func NewMatch(cfg config.Config, catalog *game.Catalog, a, b game.Params, seed int64, observers ...Observer) (*Match, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("side A: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("side B: %w", err)
	}
	st, err := game.NewState(cfg, a, b)
	if err != nil {
		return nil, err
	}
	return &Match{
		cfg:       cfg,
		planner:   tactics.NewPlanner(cfg, catalog),
		state:     st,
		rng:       game.NewRand(seed),
		observers: observers,
	}, nil
}

// NewMatchFromState starts from an already deployed state, skipping the
// placement phases. The match takes ownership of st.
func NewMatchFromState(cfg config.Config, catalog *game.Catalog, st *game.State, observers ...Observer) (*Match, error) {
	for _, f := range st.Fleets {
		if f == nil {
			return nil, fmt.Errorf("state is missing a fleet")
		}
		if err := f.Params.Validate(); err != nil {
			return nil, fmt.Errorf("side %s: %w", f.Side, err)
		}
	}
	return &Match{
		cfg:       cfg,
		planner:   tactics.NewPlanner(cfg, catalog),
		state:     st,
		rng:       game.NewRand(1),
		observers: observers,
		placed:    true,
	}, nil
}

// State returns a snapshot of the current battle.
func (m *Match) State() *game.State { return m.state.Clone() }

// Run plays the match to completion. It stops early only if ctx is done or
// placement fails.
func (m *Match) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	if !m.placed {
		for _, side := range []game.Side{game.SideA, game.SideB} {
			if err := game.Place(m.state.Fleet(side), m.cfg, m.rng); err != nil {
				return Result{}, err
			}
			m.emit(PhaseEvent{Phase: PlaceA + Phase(side)})
		}
		m.placed = true
	}

	reason := rules.Running
	for reason == rules.Running {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		reason = m.halfTurn(game.SideA)
		if reason != rules.Running {
			break
		}
		reason = m.halfTurn(game.SideB)
	}

	res := Result{
		Rounds:   m.state.Round,
		Winner:   rules.Judge(m.state),
		Reason:   reason,
		Duration: time.Since(start),
	}
	for i, f := range m.state.Fleets {
		res.Ships[i] = f.LiveCount()
		res.Health[i] = f.TotalHealth()
	}
	m.emit(PhaseEvent{Phase: Finished, Reason: reason})
	slog.Debug("match finished",
		"rounds", res.Rounds,
		"winner", res.Winner,
		"reason", reason,
		"ships", res.Ships,
		"health", res.Health,
	)
	return res, nil
}

// halfTurn runs attacker's decide phase, the defender's move phase and the
// resolution of attacker's committed shots. Attacks are aimed at where the
// defender was when they were decided.
func (m *Match) halfTurn(attacker game.Side) rules.Reason {
	defender := attacker.Enemy()
	attackPhase, movePhase, resolvePhase := AttackA, MoveB, ResolveA
	if attacker == game.SideB {
		attackPhase, movePhase, resolvePhase = AttackB, MoveA, ResolveB
	}

	attacks := m.planner.PlanAttacks(m.state.Clone(), attacker)
	m.emit(PhaseEvent{Phase: attackPhase, Attacks: attacks})

	moves := m.planner.PlanMoves(m.state.Clone(), defender)
	rules.ApplyMoves(m.state, m.cfg, defender, moves)
	m.emit(PhaseEvent{Phase: movePhase, Moves: moves})

	shots := rules.ResolveAttacks(m.state, attacker, attacks, m.planner.Catalog(), m.cfg.MissileDamage)
	completed := m.state.Round
	if attacker == game.SideB {
		completed++
	}
	reason := rules.Check(m.state, completed, m.cfg.MaxRounds)
	m.emit(PhaseEvent{Phase: resolvePhase, Attacks: attacks, Shots: shots, Reason: reason})
	m.state.Round = completed
	return reason
}

func (m *Match) emit(e PhaseEvent) {
	if len(m.observers) == 0 {
		return
	}
	e.Round = m.state.Round
	e.State = m.state.Clone()
	for _, o := range m.observers {
		o.OnPhase(e)
	}
}
