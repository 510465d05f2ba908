package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/brensch/broadside/config"
	"github.com/brensch/broadside/game"
	"github.com/brensch/broadside/rules"
	"github.com/brensch/broadside/selfplay"
)

func smallConfig() config.Config {
	cfg := config.Default()
	cfg.GridSize = 12
	cfg.MaxRounds = 6
	cfg.Fleets = [2][]config.FleetEntry{
		{{Class: "medium", Count: 1}, {Class: "heavy", Count: 1}},
		{{Class: "fast", Count: 1}, {Class: "heavy", Count: 1}},
	}
	cfg.Search.Workers = 2
	cfg.Search.Seed = 42
	return cfg
}

func TestKeyOf(t *testing.T) {
	p := game.Params{Health: 0.12, Missile: -0.01, Block: 0.05, Target: -0.05, EnemyDistance: 1.999}
	k := KeyOf(p, 0.05)
	want := Key{2, -1, 1, -1, 39, 0, 0}
	if k != want {
		t.Fatalf("key=%v want=%v", k, want)
	}
	q := p
	q.Health = 0.149
	if KeyOf(q, 0.05) != k {
		t.Fatal("vectors in the same bucket must share a key")
	}
}

func TestAgent_ExplorationZeroExploits(t *testing.T) {
	cfg := config.Default().Search
	cfg.Exploration = config.Exploration{Initial: 0, Decay: 1, Floor: 0}
	start := game.ParamsFromWeights(config.Default().Weights)
	a := NewAgent(game.SideA, cfg, start, 1)
	for i := 0; i < 20; i++ {
		if got := a.Propose(); got != start {
			t.Fatalf("proposal %d = %v want %v", i, got, start)
		}
	}
}

func TestAgent_ExploreStaysInBounds(t *testing.T) {
	cfg := config.Default().Search
	cfg.Exploration = config.Exploration{Initial: 1, Decay: 1, Floor: 1}
	cfg.Perturbation = 0.5
	a := NewAgent(game.SideB, cfg, game.Params{Health: 2, Missile: -2}, 9)
	check := func(p game.Params) {
		t.Helper()
		for i, w := range p.Vector() {
			b := cfg.Bounds[i]
			if w < b.Min || w > b.Max {
				t.Fatalf("%s=%v outside [%v,%v]", game.ParamNames[i], w, b.Min, b.Max)
			}
		}
	}
	// Empty table: uniform draws.
	for i := 0; i < 50; i++ {
		check(a.Propose())
	}
	a.Observe(a.Propose(), 1)
	// Populated table: perturbations of the best vector.
	for i := 0; i < 200; i++ {
		check(a.Propose())
	}
}

func TestAgent_ObserveAdoptsBetterBuckets(t *testing.T) {
	cfg := config.Default().Search
	cfg.LearningRate = 0.5
	cfg.Discount = 0
	start := game.Params{}
	a := NewAgent(game.SideA, cfg, start, 1)

	p1 := game.Params{Health: 1}
	if !a.Observe(p1, 10) {
		t.Fatal("first observation must be adopted")
	}
	if best, v, ok := a.Best(); !ok || best != p1 || v != 5 {
		t.Fatalf("best=%v value=%v ok=%v", best, v, ok)
	}

	p2 := game.Params{Health: -1}
	if a.Observe(p2, 4) {
		t.Fatal("worse bucket adopted")
	}
	if v, ok := a.Value(p2); !ok || v != 2 {
		t.Fatalf("p2 value=%v ok=%v want 2", v, ok)
	}

	p3 := game.Params{Missile: 1}
	if !a.Observe(p3, 20) {
		t.Fatal("better bucket not adopted")
	}
	if best, v, _ := a.Best(); best != p3 || v != 10 {
		t.Fatalf("best=%v value=%v", best, v)
	}
	if a.TableSize() != 3 {
		t.Fatalf("table size=%d want=3", a.TableSize())
	}
}

func TestAgent_ObserveRejectsNaN(t *testing.T) {
	cfg := config.Default().Search
	a := NewAgent(game.SideA, cfg, game.Params{}, 1)
	if a.Observe(game.Params{}, math.NaN()) {
		t.Fatal("NaN reward adopted")
	}
	p := game.Params{Block: math.NaN()}
	if !a.Observe(p, 1) {
		t.Fatal("clamped params not adopted")
	}
	best, _, _ := a.Best()
	if err := best.Validate(); err != nil {
		t.Fatalf("best vector invalid after clamp: %v", err)
	}
}

func TestAgent_DecayFloor(t *testing.T) {
	cfg := config.Default().Search
	cfg.Exploration = config.Exploration{Initial: 0.5, Decay: 0.5, Floor: 0.1}
	a := NewAgent(game.SideA, cfg, game.Params{}, 1)
	a.Decay()
	if a.Rate() != 0.25 {
		t.Fatalf("rate=%v want=0.25", a.Rate())
	}
	for i := 0; i < 10; i++ {
		a.Decay()
	}
	if a.Rate() != 0.1 {
		t.Fatalf("rate=%v want floor 0.1", a.Rate())
	}
}

func TestRewarder_Linear(t *testing.T) {
	rw, err := NewRewarder(config.Default().Search.Reward)
	if err != nil {
		t.Fatal(err)
	}
	res := selfplay.Result{Ships: [2]int{2, 1}, Health: [2]int{5, 2}, Winner: rules.WinnerA}
	ra, _ := rw.Reward(res, game.SideA)
	rb, _ := rw.Reward(res, game.SideB)
	if ra != 108 || rb != -123 {
		t.Fatalf("rewards a=%v b=%v want 108, -123", ra, rb)
	}
	res.Winner = rules.Draw
	if ra, _ := rw.Reward(res, game.SideA); ra != 8 {
		t.Fatalf("draw reward=%v want=8", ra)
	}
}

func TestRewarder_Expression(t *testing.T) {
	cfg := config.Default().Search.Reward
	cfg.Expression = "float(own_health - enemy_health) + (won ? 10.0 : 0.0) - 0.5 * float(rounds)"
	rw, err := NewRewarder(cfg)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	res := selfplay.Result{Rounds: 4, Ships: [2]int{1, 1}, Health: [2]int{5, 2}, Winner: rules.WinnerA}
	got, err := rw.Reward(res, game.SideA)
	if err != nil {
		t.Fatal(err)
	}
	if got != 11 {
		t.Fatalf("reward=%v want=11", got)
	}
	got, _ = rw.Reward(res, game.SideB)
	if got != -5 {
		t.Fatalf("reward=%v want=-5", got)
	}
}

func TestRewarder_BadExpression(t *testing.T) {
	cfg := config.Default().Search.Reward
	cfg.Expression = "no_such_field * 2"
	if _, err := NewRewarder(cfg); err == nil {
		t.Fatal("expected compile error")
	}
}

type runRecord struct {
	params [2]game.Params
	result selfplay.Result
	reward [2]float64
}

func collect(t *testing.T, cfg config.Config, episodes int) []runRecord {
	t.Helper()
	tr, err := NewTrainer(cfg)
	if err != nil {
		t.Fatalf("NewTrainer: %v", err)
	}
	var out []runRecord
	err = tr.Run(context.Background(), episodes, func(ep Episode) error {
		if ep.Index != len(out) {
			t.Fatalf("episode index=%d want=%d", ep.Index, len(out))
		}
		ep.Result.Duration = 0
		out = append(out, runRecord{ep.Params, ep.Result, ep.Reward})
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out
}

func TestTrainer_ExplorationZeroReplays(t *testing.T) {
	cfg := smallConfig()
	cfg.Search.Exploration = config.Exploration{Initial: 0, Decay: 1, Floor: 0}
	start := game.ParamsFromWeights(cfg.Weights).Clamp(cfg.Search.Bounds)

	first := collect(t, cfg, 5)
	second := collect(t, cfg, 5)
	if len(first) != 5 {
		t.Fatalf("episodes=%d want=5", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("episode %d differs: %+v vs %+v", i, first[i], second[i])
		}
		if first[i].params != [2]game.Params{start, start} {
			t.Fatalf("episode %d explored: %v", i, first[i].params)
		}
	}
}

func TestTrainer_ExploringRunIsReproducible(t *testing.T) {
	cfg := smallConfig()
	cfg.Search.Exploration = config.Exploration{Initial: 0.8, Decay: 0.9, Floor: 0.1}
	cfg.Search.Workers = 3
	first := collect(t, cfg, 7)
	second := collect(t, cfg, 7)
	explored := false
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("episode %d differs between identical runs", i)
		}
		if first[i].params[0] != first[0].params[0] {
			explored = true
		}
	}
	if !explored {
		t.Fatal("side A never explored at rate 0.8")
	}
}

func TestTrainer_SinkErrorStops(t *testing.T) {
	tr, err := NewTrainer(smallConfig())
	if err != nil {
		t.Fatal(err)
	}
	stop := errors.New("stop")
	seen := 0
	err = tr.Run(context.Background(), 10, func(Episode) error {
		seen++
		return stop
	})
	if !errors.Is(err, stop) || seen != 1 {
		t.Fatalf("err=%v seen=%d", err, seen)
	}
}

func TestTrainer_Cancelled(t *testing.T) {
	tr, err := NewTrainer(smallConfig())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tr.Run(ctx, 3, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
}

func TestNewTrainer_RejectsInvalidConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.Search.Workers = 0
	if _, err := NewTrainer(cfg); !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("err=%v want ErrInvalidConfig", err)
	}
}

func TestSampleConfigLoads(t *testing.T) {
	cfg, err := config.Load("../configs/small.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rw, err := NewRewarder(cfg.Search.Reward)
	if err != nil {
		t.Fatalf("reward expression: %v", err)
	}
	res := selfplay.Result{Rounds: 20, Ships: [2]int{4, 0}, Health: [2]int{10, 0}, Winner: rules.WinnerA}
	got, err := rw.Reward(res, game.SideA)
	if err != nil {
		t.Fatal(err)
	}
	// 4*10 - 0 + 100 - 20*0.25
	if got != 135 {
		t.Fatalf("reward=%v want=135", got)
	}
}
