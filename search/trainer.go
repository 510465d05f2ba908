package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/brensch/broadside/config"
	"github.com/brensch/broadside/game"
	"github.com/brensch/broadside/selfplay"
)

// SeedStride separates the seeds of consecutive episodes.
const SeedStride = 7919

// Episode is one finished self-play match together with what each agent
// learned from it.
type Episode struct {
	ID          uuid.UUID
	Index       int
	Seed        int64
	Params      [2]game.Params
	Result      selfplay.Result
	Reward      [2]float64
	Exploration [2]float64
	Adopted     [2]bool
	BestValue   [2]float64
}

// Sink receives episodes in index order. Returning an error stops the run.
type Sink func(Episode) error

// Trainer pits two agents against each other for many episodes.
type Trainer struct {
	Logger *slog.Logger

	cfg      config.Config
	catalog  *game.Catalog
	agents   [2]*Agent
	rewarder *Rewarder
	next     int
}

func NewTrainer(cfg config.Config) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rw, err := NewRewarder(cfg.Search.Reward)
	if err != nil {
		return nil, err
	}
	start := game.ParamsFromWeights(cfg.Weights)
	if err := start.Validate(); err != nil {
		return nil, err
	}
	t := &Trainer{
		Logger:   slog.Default(),
		cfg:      cfg,
		catalog:  game.NewCatalog(cfg.GridSize),
		rewarder: rw,
	}
	for side := range t.agents {
		t.agents[side] = NewAgent(game.Side(side), cfg.Search, start, cfg.Search.Seed+int64(side)+1)
	}
	return t, nil
}

func (t *Trainer) Agent(side game.Side) *Agent { return t.agents[side] }

// Run plays episodes in batches of Workers. Proposals are drawn and rewards
// applied in episode order, so a run is reproducible for a given seed and
// worker count. Cancellation is honoured between batches.
func (t *Trainer) Run(ctx context.Context, episodes int, sink Sink) error {
	workers := t.cfg.Search.Workers
	if workers < 1 {
		workers = 1
	}
	end := t.next + episodes
	for t.next < end {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := min(workers, end-t.next)
		batch := make([]Episode, n)
		for i := range batch {
			idx := t.next + i
			batch[i] = Episode{
				Index:  idx,
				Seed:   t.cfg.Search.Seed + int64(idx)*SeedStride,
				Params: [2]game.Params{t.agents[0].Propose(), t.agents[1].Propose()},
			}
		}

		start := time.Now()
		g, gctx := errgroup.WithContext(ctx)
		for i := range batch {
			ep := &batch[i]
			g.Go(func() error {
				m, err := selfplay.NewMatch(t.cfg, t.catalog, ep.Params[0], ep.Params[1], ep.Seed)
				if err != nil {
					return fmt.Errorf("episode %d: %w", ep.Index, err)
				}
				res, err := m.Run(gctx)
				if err != nil {
					return fmt.Errorf("episode %d: %w", ep.Index, err)
				}
				ep.Result = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i := range batch {
			ep := &batch[i]
			if err := t.learn(ep); err != nil {
				return err
			}
			if sink != nil {
				if err := sink(*ep); err != nil {
					return fmt.Errorf("sink episode %d: %w", ep.Index, err)
				}
			}
		}
		t.next += n

		last := batch[n-1]
		t.Logger.Info("batch complete",
			"episodes", t.next,
			"batch", n,
			"elapsed", time.Since(start).Round(time.Millisecond),
			"winner", last.Result.Winner,
			"best_a", last.BestValue[0],
			"best_b", last.BestValue[1],
			"explore_a", last.Exploration[0],
			"explore_b", last.Exploration[1],
		)
	}
	return nil
}

func (t *Trainer) learn(ep *Episode) error {
	ep.ID = uuid.New()
	for side, a := range t.agents {
		r, err := t.rewarder.Reward(ep.Result, game.Side(side))
		if err != nil {
			return fmt.Errorf("episode %d side %s: %w", ep.Index, game.Side(side), err)
		}
		ep.Reward[side] = r
		ep.Adopted[side] = a.Observe(ep.Params[side], r)
		a.Decay()
		ep.Exploration[side] = a.Rate()
		_, ep.BestValue[side], _ = a.Best()
		if ep.Adopted[side] {
			t.Logger.Debug("new best strategy",
				"side", game.Side(side).String(),
				"episode", ep.Index,
				"value", ep.BestValue[side],
				"params", ep.Params[side].String(),
			)
		}
	}
	return nil
}
