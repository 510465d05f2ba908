// placement.go implements the opening deployment of a fleet.

package game

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/brensch/broadside/config"
)

// ErrPlacement means a ship could not be deployed within the retry budget:
// the grid is too small or the fleet too dense.
var ErrPlacement = errors.New("no legal placement")

// NewRand returns a seeded generator. Seed 0 is remapped so that an unset
// seed is still reproducible.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = 1
	}
	return rand.New(rand.NewSource(seed))
}

// HomeColumns returns the x range [lo, hi) of side's home third.
func HomeColumns(side Side, size int) (lo, hi int) {
	w := size / 3
	if w < 1 {
		w = 1
	}
	if side == SideA {
		return 0, w
	}
	return size - w, size
}

// Place deploys every ship of f at a uniformly random cell in its home third,
// re-rolling until the cell satisfies the separation rule against the ships
// already placed.
func Place(f *Fleet, cfg config.Config, rng *rand.Rand) error {
	lo, hi := HomeColumns(f.Side, cfg.GridSize)
	for i, ship := range f.Ships {
		placed := false
		for try := 0; try < cfg.PlacementRetries; try++ {
			p := Point{X: lo + rng.Intn(hi-lo), Y: rng.Intn(cfg.GridSize)}
			if canOccupy(cfg, f.Ships[:i], ship, p) {
				ship.SetPosition(p)
				placed = true
				break
			}
		}
		if !placed {
			return fmt.Errorf("fleet %s ship %d (%s) after %d tries: %w",
				f.Side, ship.ID, ship.Class, cfg.PlacementRetries, ErrPlacement)
		}
	}
	return nil
}
