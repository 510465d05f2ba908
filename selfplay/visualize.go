// visualize.go - board rendering and narration for watching a match.
package selfplay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/brensch/broadside/game"
	"github.com/brensch/broadside/rules"
)

// RenderBoard draws the grid with side A ships as upper-case letters and
// side B ships as lower-case, one letter per ship in fleet order. Cells
// covered by shots are marked with '*' when not occupied.
func RenderBoard(st *game.State, hits []game.Point) string {
	grid := make([][]byte, st.GridSize)
	for y := range grid {
		grid[y] = []byte(strings.Repeat(".", st.GridSize))
	}
	for _, p := range hits {
		if p.In(st.GridSize) {
			grid[p.Y][p.X] = '*'
		}
	}
	for _, f := range st.Fleets {
		base := byte('A')
		if f.Side == game.SideB {
			base = 'a'
		}
		for _, s := range f.Ships {
			p := s.Pos()
			if s.Dead() || !p.In(st.GridSize) {
				continue
			}
			grid[p.Y][p.X] = base + byte(s.ID%26)
		}
	}

	var sb strings.Builder
	for y := 0; y < st.GridSize; y++ {
		for x := 0; x < st.GridSize; x++ {
			sb.WriteByte(grid[y][x])
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ShotCells is every on-grid cell covered by a fired shot.
func ShotCells(size int, shots []rules.Shot) []game.Point {
	var cells []game.Point
	for _, s := range shots {
		if s.Fired {
			cells = append(cells, game.DamageArea(s.Attack.Kind, s.Attack.Target, size)...)
		}
	}
	return cells
}

// RenderFleets is a status table of every ship.
func RenderFleets(st *game.State) string {
	var sb strings.Builder
	sb.WriteString("side id class     pos      hp   cross square\n")
	for _, f := range st.Fleets {
		for _, s := range f.Ships {
			fmt.Fprintf(&sb, "%-4s %-2d %-9s (%2d,%2d) %2d/%-2d %5d %6d\n",
				s.Side, s.ID, s.Class, s.Pos().X, s.Pos().Y, s.Health, s.MaxHealth,
				s.Ammo[game.Cross], s.Ammo[game.Square])
		}
	}
	return sb.String()
}

// Narrator logs a running commentary of a match.
type Narrator struct {
	Logger *slog.Logger
	// Boards renders the grid after every resolve phase when set.
	Boards bool
}

func (n *Narrator) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}

func (n *Narrator) OnPhase(e PhaseEvent) {
	l := n.logger().With("round", e.Round, "phase", e.Phase.String())
	switch e.Phase {
	case PlaceA, PlaceB:
		l.Info("fleet deployed")
	case AttackA, AttackB:
		for _, a := range e.Attacks {
			l.Debug("attack committed", "ship", a.Ship, "target", a.Target, "kind", a.Kind.String(), "score", a.Score.Value)
		}
	case MoveA, MoveB:
		for _, m := range e.Moves {
			if m.To != m.From {
				l.Debug("ship moved", "ship", m.Ship, "from", m.From, "to", m.To, "score", m.Score.Value)
			}
		}
	case ResolveA, ResolveB:
		for _, s := range e.Shots {
			switch {
			case s.Vetoed:
				l.Info("shot vetoed", "ship", s.Attack.Ship, "target", s.Attack.Target)
			case s.Fired:
				l.Info("shot fired", "ship", s.Attack.Ship, "target", s.Attack.Target,
					"kind", s.Attack.Kind.String(), "victims", s.Victims)
			}
		}
		if n.Boards && l.Enabled(context.Background(), slog.LevelInfo) {
			l.Info("board\n" + RenderBoard(e.State, ShotCells(e.State.GridSize, e.Shots)) + RenderFleets(e.State))
		}
	case Finished:
		l.Info("match over", "reason", e.Reason.String(),
			"ships_a", e.State.Fleet(game.SideA).LiveCount(),
			"ships_b", e.State.Fleet(game.SideB).LiveCount())
	}
}

// Recorder keeps every event it sees.
type Recorder struct {
	mu     sync.Mutex
	Events []PhaseEvent
}

func (r *Recorder) OnPhase(e PhaseEvent) {
	r.mu.Lock()
	r.Events = append(r.Events, e)
	r.mu.Unlock()
}

// Phases lists the recorded phases in order.
func (r *Recorder) Phases() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Phase, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Phase
	}
	return out
}
