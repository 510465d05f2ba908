// Package config holds the immutable simulation and search configuration.
//
// A Config is built once (Default or Load), validated, and then passed by
// value into every constructor. Nothing in the simulation reads globals, so
// episodes with different configurations can run side by side.
package config

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is returned (wrapped) by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Metric selects how distances between grid cells are measured for
// separation checks and scoring. Movement range is always Manhattan.
type Metric string

const (
	Manhattan Metric = "manhattan"
	Euclidean Metric = "euclidean"
)

// Distance returns the metric distance between (x1,y1) and (x2,y2).
func (m Metric) Distance(x1, y1, x2, y2 int) float64 {
	dx := float64(x1 - x2)
	dy := float64(y1 - y2)
	if m == Euclidean {
		return math.Hypot(dx, dy)
	}
	return math.Abs(dx) + math.Abs(dy)
}

// ShipClass is the fixed stat block a ship is created with.
type ShipClass struct {
	Name       string `yaml:"name"`
	MaxHealth  int    `yaml:"max_health"`
	MoveRange  int    `yaml:"move_range"`
	CrossAmmo  int    `yaml:"cross_ammo"`
	SquareAmmo int    `yaml:"square_ammo"`
}

// FleetEntry asks for Count ships of the named class.
type FleetEntry struct {
	Class string `yaml:"class"`
	Count int    `yaml:"count"`
}

// Bound is the closed search interval for one strategy weight.
type Bound struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Exploration controls the epsilon-greedy schedule of a search agent.
type Exploration struct {
	Initial float64 `yaml:"initial"`
	Decay   float64 `yaml:"decay"`
	Floor   float64 `yaml:"floor"`
}

// Reward holds the coefficients of the per-side episode reward. When
// Expression is non-empty it replaces the linear combination.
type Reward struct {
	OwnShip     float64 `yaml:"own_ship"`
	EnemyShip   float64 `yaml:"enemy_ship"`
	OwnHealth   float64 `yaml:"own_health"`
	EnemyHealth float64 `yaml:"enemy_health"`
	Win         float64 `yaml:"win"`
	Lose        float64 `yaml:"lose"`
	Draw        float64 `yaml:"draw"`
	Expression  string  `yaml:"expression"`
}

// Search configures the self-play parameter search loop.
type Search struct {
	Episodes     int         `yaml:"episodes"`
	Workers      int         `yaml:"workers"`
	Seed         int64       `yaml:"seed"`
	Exploration  Exploration `yaml:"exploration"`
	Perturbation float64     `yaml:"perturbation"`
	LearningRate float64     `yaml:"learning_rate"`
	Discount     float64     `yaml:"discount"`
	BucketWidth  float64     `yaml:"bucket_width"`
	// Bounds are indexed in strategy-vector order (see game.ParamNames).
	Bounds []Bound `yaml:"bounds"`
	Reward Reward  `yaml:"reward"`
}

// Weights mirrors game.Params so the config package stays a leaf.
type Weights struct {
	Health        float64 `yaml:"health"`
	Missile       float64 `yaml:"missile"`
	Block         float64 `yaml:"block"`
	Target        float64 `yaml:"target"`
	EnemyDistance float64 `yaml:"enemy_distance"`
	AllyDistance  float64 `yaml:"ally_distance"`
	AttackThresh  float64 `yaml:"attack_threshold"`
}

type Config struct {
	GridSize         int     `yaml:"grid_size"`
	MaxRounds        int     `yaml:"max_rounds"`
	Metric           Metric  `yaml:"metric"`
	Epsilon          float64 `yaml:"epsilon"`
	DistanceFloor    float64 `yaml:"distance_floor"`
	MinSeparation    float64 `yaml:"min_separation"`
	PlacementRetries int     `yaml:"placement_retries"`
	MissileDamage    int     `yaml:"missile_damage"`

	Classes []ShipClass     `yaml:"classes"`
	Fleets  [2][]FleetEntry `yaml:"fleets"`

	// Weights is the starting strategy vector for both sides.
	Weights Weights `yaml:"weights"`
	Search  Search  `yaml:"search"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		GridSize:         40,
		MaxRounds:        100,
		Metric:           Manhattan,
		Epsilon:          1e-6,
		DistanceFloor:    1.0,
		MinSeparation:    2,
		PlacementRetries: 10000,
		MissileDamage:    1,
		Classes: []ShipClass{
			{Name: "fast", MaxHealth: 3, MoveRange: 2, CrossAmmo: 0, SquareAmmo: 3},
			{Name: "medium", MaxHealth: 4, MoveRange: 1, CrossAmmo: 2, SquareAmmo: 2},
			{Name: "heavy", MaxHealth: 5, MoveRange: 1, CrossAmmo: 2, SquareAmmo: 1},
		},
		Fleets: [2][]FleetEntry{
			{{Class: "fast", Count: 2}, {Class: "medium", Count: 2}, {Class: "heavy", Count: 4}},
			{{Class: "fast", Count: 3}, {Class: "medium", Count: 3}, {Class: "heavy", Count: 3}},
		},
		Weights: Weights{
			Health:        1.0,
			Missile:       0.8,
			Block:         1.2,
			Target:        -1.0,
			EnemyDistance: 0.5,
			AllyDistance:  0.3,
			AttackThresh:  0,
		},
		Search: Search{
			Episodes:     1000,
			Workers:      8,
			Seed:         12345,
			Exploration:  Exploration{Initial: 0.3, Decay: 0.995, Floor: 0.05},
			Perturbation: 0.1,
			LearningRate: 0.1,
			Discount:     0.0,
			BucketWidth:  0.05,
			Bounds: []Bound{
				{Min: -2, Max: 2},
				{Min: -2, Max: 2},
				{Min: -2, Max: 2},
				{Min: -2, Max: 2},
				{Min: -2, Max: 2},
				{Min: -2, Max: 2},
				{Min: -1, Max: 1},
			},
			Reward: Reward{
				OwnShip:     10,
				EnemyShip:   -15,
				OwnHealth:   1,
				EnemyHealth: -1,
				Win:         100,
				Lose:        -100,
				Draw:        0,
			},
		},
	}
}

// Class returns the ship class with the given name.
func (c Config) Class(name string) (ShipClass, bool) {
	for _, sc := range c.Classes {
		if sc.Name == name {
			return sc, true
		}
	}
	return ShipClass{}, false
}

// FleetSize is the number of ships side fields.
func (c Config) FleetSize(side int) int {
	n := 0
	for _, e := range c.Fleets[side] {
		n += e.Count
	}
	return n
}

// Distance measures (x1,y1)-(x2,y2) with the configured metric.
func (c Config) Distance(x1, y1, x2, y2 int) float64 {
	return c.Metric.Distance(x1, y1, x2, y2)
}

func (c Config) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	if c.GridSize < 3 {
		return fail("grid_size %d < 3", c.GridSize)
	}
	if c.MaxRounds < 1 {
		return fail("max_rounds %d < 1", c.MaxRounds)
	}
	if c.Metric != Manhattan && c.Metric != Euclidean {
		return fail("unknown metric %q", c.Metric)
	}
	if !(c.Epsilon > 0) {
		return fail("epsilon must be > 0")
	}
	if !(c.DistanceFloor > 0) {
		return fail("distance_floor must be > 0")
	}
	if c.MinSeparation < 0 {
		return fail("min_separation must be >= 0")
	}
	if c.PlacementRetries < 1 {
		return fail("placement_retries must be >= 1")
	}
	if c.MissileDamage < 0 {
		return fail("missile_damage must be >= 0")
	}
	seen := map[string]bool{}
	for _, sc := range c.Classes {
		if sc.Name == "" {
			return fail("ship class without name")
		}
		if seen[sc.Name] {
			return fail("duplicate ship class %q", sc.Name)
		}
		seen[sc.Name] = true
		if sc.MaxHealth < 1 || sc.MoveRange < 0 || sc.CrossAmmo < 0 || sc.SquareAmmo < 0 {
			return fail("ship class %q has invalid stats", sc.Name)
		}
	}
	for side, entries := range c.Fleets {
		if c.FleetSize(side) == 0 {
			return fail("fleet %d is empty", side)
		}
		for _, e := range entries {
			if !seen[e.Class] {
				return fail("fleet %d references unknown class %q", side, e.Class)
			}
			if e.Count < 0 {
				return fail("fleet %d has negative count for %q", side, e.Class)
			}
		}
	}
	s := c.Search
	if s.Workers < 1 {
		return fail("search.workers must be >= 1")
	}
	if s.Episodes < 0 {
		return fail("search.episodes must be >= 0")
	}
	e := s.Exploration
	if e.Initial < 0 || e.Initial > 1 || e.Floor < 0 || e.Floor > 1 {
		return fail("exploration rates must be in [0,1]")
	}
	if !(e.Decay > 0 && e.Decay <= 1) {
		return fail("exploration.decay must be in (0,1]")
	}
	if !(s.BucketWidth > 0) {
		return fail("search.bucket_width must be > 0")
	}
	if s.LearningRate < 0 || s.LearningRate > 1 {
		return fail("search.learning_rate must be in [0,1]")
	}
	if s.Perturbation < 0 {
		return fail("search.perturbation must be >= 0")
	}
	if len(s.Bounds) != 7 {
		return fail("search.bounds needs 7 entries, got %d", len(s.Bounds))
	}
	for i, b := range s.Bounds {
		if math.IsNaN(b.Min) || math.IsNaN(b.Max) || b.Min > b.Max {
			return fail("search.bounds[%d] is invalid", i)
		}
	}
	return nil
}
