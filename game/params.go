package game

import (
	"errors"
	"fmt"
	"math"

	"github.com/brensch/broadside/config"
)

// ErrInvalidParams is returned when a strategy vector holds NaN or Inf.
var ErrInvalidParams = errors.New("invalid strategy params")

// NumParams is the dimension of a strategy vector.
const NumParams = 7

// ParamNames labels the strategy vector dimensions in Vector order.
var ParamNames = [NumParams]string{
	"health", "missile", "block", "target", "enemy_distance", "ally_distance", "attack_threshold",
}

// Params is one side's scoring weights. It is fixed for the duration of a
// match.
type Params struct {
	Health          float64
	Missile         float64
	Block           float64
	Target          float64
	EnemyDistance   float64
	AllyDistance    float64
	AttackThreshold float64
}

func ParamsFromWeights(w config.Weights) Params {
	return Params{
		Health:          w.Health,
		Missile:         w.Missile,
		Block:           w.Block,
		Target:          w.Target,
		EnemyDistance:   w.EnemyDistance,
		AllyDistance:    w.AllyDistance,
		AttackThreshold: w.AttackThresh,
	}
}

func (p Params) Vector() [NumParams]float64 {
	return [NumParams]float64{
		p.Health, p.Missile, p.Block, p.Target, p.EnemyDistance, p.AllyDistance, p.AttackThreshold,
	}
}

func ParamsFromVector(v [NumParams]float64) Params {
	return Params{
		Health:          v[0],
		Missile:         v[1],
		Block:           v[2],
		Target:          v[3],
		EnemyDistance:   v[4],
		AllyDistance:    v[5],
		AttackThreshold: v[6],
	}
}

func (p Params) Validate() error {
	for i, w := range p.Vector() {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: %s=%v", ErrInvalidParams, ParamNames[i], w)
		}
	}
	return nil
}

// Clamp limits every dimension to its bound. NaN dimensions collapse to the
// bound midpoint. Missing bounds leave the dimension untouched.
func (p Params) Clamp(bounds []config.Bound) Params {
	v := p.Vector()
	for i := range v {
		if i >= len(bounds) {
			break
		}
		b := bounds[i]
		switch {
		case math.IsNaN(v[i]):
			v[i] = (b.Min + b.Max) / 2
		case v[i] < b.Min:
			v[i] = b.Min
		case v[i] > b.Max:
			v[i] = b.Max
		}
	}
	return ParamsFromVector(v)
}

func (p Params) String() string {
	v := p.Vector()
	s := ""
	for i, w := range v {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%.3f", ParamNames[i], w)
	}
	return s
}
