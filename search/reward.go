package search

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/brensch/broadside/config"
	"github.com/brensch/broadside/game"
	"github.com/brensch/broadside/rules"
	"github.com/brensch/broadside/selfplay"
)

// RewardEnv is what a reward expression can see, from one side's point of
// view.
type RewardEnv struct {
	OwnShips    int  `expr:"own_ships"`
	EnemyShips  int  `expr:"enemy_ships"`
	OwnHealth   int  `expr:"own_health"`
	EnemyHealth int  `expr:"enemy_health"`
	Won         bool `expr:"won"`
	Lost        bool `expr:"lost"`
	Draw        bool `expr:"draw"`
	Rounds      int  `expr:"rounds"`
}

// EnvFor views res from side.
func EnvFor(res selfplay.Result, side game.Side) RewardEnv {
	own, enemy := int(side), int(side.Enemy())
	win := rules.WinnerFor(side)
	return RewardEnv{
		OwnShips:    res.Ships[own],
		EnemyShips:  res.Ships[enemy],
		OwnHealth:   res.Health[own],
		EnemyHealth: res.Health[enemy],
		Won:         res.Winner == win,
		Lost:        res.Winner != win && res.Winner != rules.Draw,
		Draw:        res.Winner == rules.Draw,
		Rounds:      res.Rounds,
	}
}

// Rewarder scores an episode for one side.
type Rewarder struct {
	cfg     config.Reward
	program *vm.Program
}

// NewRewarder compiles the configured expression, if any.
func NewRewarder(cfg config.Reward) (*Rewarder, error) {
	r := &Rewarder{cfg: cfg}
	if cfg.Expression == "" {
		return r, nil
	}
	prog, err := expr.Compile(cfg.Expression, expr.Env(RewardEnv{}), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("compile reward expression: %w", err)
	}
	r.program = prog
	return r, nil
}

func (r *Rewarder) Reward(res selfplay.Result, side game.Side) (float64, error) {
	env := EnvFor(res, side)
	if r.program != nil {
		out, err := vm.Run(r.program, env)
		if err != nil {
			return 0, fmt.Errorf("run reward expression: %w", err)
		}
		v, ok := out.(float64)
		if !ok {
			return 0, fmt.Errorf("reward expression returned %T", out)
		}
		return v, nil
	}
	c := r.cfg
	v := c.OwnShip*float64(env.OwnShips) +
		c.EnemyShip*float64(env.EnemyShips) +
		c.OwnHealth*float64(env.OwnHealth) +
		c.EnemyHealth*float64(env.EnemyHealth)
	switch {
	case env.Won:
		v += c.Win
	case env.Lost:
		v += c.Lose
	default:
		v += c.Draw
	}
	return v, nil
}
