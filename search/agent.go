// Package search tunes strategy weights by self-play.
//
// Each side owns an Agent that proposes a weight vector per episode
// (epsilon-greedy around its best known vector), observes the reward, and
// folds it into a value table keyed by the quantized vector.
package search

import (
	"math"
	"math/rand"

	"github.com/brensch/broadside/config"
	"github.com/brensch/broadside/game"
)

// Key is a strategy vector quantized to BucketWidth-sized cells.
type Key [game.NumParams]int64

// KeyOf buckets every dimension of p as floor(w / width).
func KeyOf(p game.Params, width float64) Key {
	var k Key
	for i, w := range p.Vector() {
		k[i] = int64(math.Floor(w / width))
	}
	return k
}

type Agent struct {
	Side game.Side

	cfg   config.Search
	rng   *rand.Rand
	table map[Key]float64

	best      game.Params
	bestValue float64
	known     bool
	rate      float64
}

// NewAgent starts from start (clamped to the search bounds) with an empty
// table and the initial exploration rate.
func NewAgent(side game.Side, cfg config.Search, start game.Params, seed int64) *Agent {
	return &Agent{
		Side:  side,
		cfg:   cfg,
		rng:   game.NewRand(seed),
		table: make(map[Key]float64),
		best:  start.Clamp(cfg.Bounds),
		rate:  cfg.Exploration.Initial,
	}
}

// Propose returns the vector to play next episode. With probability Rate it
// explores: a perturbation of the best vector, or a uniform draw inside the
// bounds while nothing has been observed yet. Otherwise it exploits.
func (a *Agent) Propose() game.Params {
	if a.rate <= 0 || a.rng.Float64() >= a.rate {
		return a.best
	}
	v := a.best.Vector()
	for i := range v {
		b := a.bound(i)
		span := b.Max - b.Min
		if len(a.table) == 0 {
			v[i] = b.Min + a.rng.Float64()*span
			continue
		}
		v[i] += (a.rng.Float64()*2 - 1) * a.cfg.Perturbation * span
	}
	return game.ParamsFromVector(v).Clamp(a.cfg.Bounds)
}

// Observe blends reward into the table entry of p and adopts p as the new
// best when its value beats the best known one. It reports whether p was
// adopted.
func (a *Agent) Observe(p game.Params, reward float64) bool {
	p = p.Clamp(a.cfg.Bounds)
	if math.IsNaN(reward) || math.IsInf(reward, 0) {
		return false
	}
	k := KeyOf(p, a.cfg.BucketWidth)
	v := a.table[k]
	future := 0.0
	if a.known {
		future = a.bestValue
	}
	v += a.cfg.LearningRate * (reward + a.cfg.Discount*future - v)
	a.table[k] = v

	if a.known && k == KeyOf(a.best, a.cfg.BucketWidth) {
		// The best bucket was re-estimated; keep its value current.
		a.bestValue = v
		return false
	}
	if !a.known || v > a.bestValue {
		a.best = p
		a.bestValue = v
		a.known = true
		return true
	}
	return false
}

// Decay shrinks the exploration rate toward its floor.
func (a *Agent) Decay() {
	a.rate *= a.cfg.Exploration.Decay
	if a.rate < a.cfg.Exploration.Floor {
		a.rate = a.cfg.Exploration.Floor
	}
}

func (a *Agent) Rate() float64 { return a.rate }

// Best returns the best vector, its value, and whether anything has been
// observed yet.
func (a *Agent) Best() (game.Params, float64, bool) {
	return a.best, a.bestValue, a.known
}

// Value looks up the table estimate for p's bucket.
func (a *Agent) Value(p game.Params) (float64, bool) {
	v, ok := a.table[KeyOf(p, a.cfg.BucketWidth)]
	return v, ok
}

func (a *Agent) TableSize() int { return len(a.table) }

func (a *Agent) bound(i int) config.Bound {
	if i < len(a.cfg.Bounds) {
		return a.cfg.Bounds[i]
	}
	return config.Bound{}
}
