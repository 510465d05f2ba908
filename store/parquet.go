// Package store persists self-play episodes as zstd-compressed Parquet and
// keeps an append-only log of every strategy a search agent adopted.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/broadside/game"
	"github.com/brensch/broadside/search"
)

const episodeSchema = "episode_v1"

// EpisodeRow is one self-play episode flattened for columnar storage.
// Params columns hold the strategy vector in game.ParamNames order.
type EpisodeRow struct {
	EpisodeID string    `parquet:"episode_id"`
	Index     int64     `parquet:"index"`
	Seed      int64     `parquet:"seed"`
	ParamsA   []float64 `parquet:"params_a"`
	ParamsB   []float64 `parquet:"params_b"`

	Rounds  int32  `parquet:"rounds"`
	ShipsA  int32  `parquet:"ships_a"`
	ShipsB  int32  `parquet:"ships_b"`
	HealthA int32  `parquet:"health_a"`
	HealthB int32  `parquet:"health_b"`
	Winner  string `parquet:"winner,dict"`
	Reason  string `parquet:"reason,dict"`

	RewardA    float64 `parquet:"reward_a"`
	RewardB    float64 `parquet:"reward_b"`
	ExploreA   float64 `parquet:"explore_a"`
	ExploreB   float64 `parquet:"explore_b"`
	AdoptedA   bool    `parquet:"adopted_a"`
	AdoptedB   bool    `parquet:"adopted_b"`
	DurationMS int64   `parquet:"duration_ms"`
}

// RowFromEpisode flattens ep.
func RowFromEpisode(ep search.Episode) EpisodeRow {
	va, vb := ep.Params[0].Vector(), ep.Params[1].Vector()
	r := ep.Result
	return EpisodeRow{
		EpisodeID:  ep.ID.String(),
		Index:      int64(ep.Index),
		Seed:       ep.Seed,
		ParamsA:    append([]float64(nil), va[:]...),
		ParamsB:    append([]float64(nil), vb[:]...),
		Rounds:     int32(r.Rounds),
		ShipsA:     int32(r.Ships[0]),
		ShipsB:     int32(r.Ships[1]),
		HealthA:    int32(r.Health[0]),
		HealthB:    int32(r.Health[1]),
		Winner:     r.Winner.String(),
		Reason:     r.Reason.String(),
		RewardA:    ep.Reward[0],
		RewardB:    ep.Reward[1],
		ExploreA:   ep.Exploration[0],
		ExploreB:   ep.Exploration[1],
		AdoptedA:   ep.Adopted[0],
		AdoptedB:   ep.Adopted[1],
		DurationMS: r.Duration.Milliseconds(),
	}
}

// Params rebuilds the strategy vector stored for side.
func (r EpisodeRow) Params(side game.Side) game.Params {
	src := r.ParamsA
	if side == game.SideB {
		src = r.ParamsB
	}
	var v [game.NumParams]float64
	copy(v[:], src)
	return game.ParamsFromVector(v)
}

func writerOptions() []parquet.WriterOption {
	return []parquet.WriterOption{
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", episodeSchema),
	}
}

// ReadEpisodes loads every row of an episode file.
func ReadEpisodes(path string) ([]EpisodeRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}
	if v, ok := pf.Lookup("schema"); ok && v != episodeSchema {
		return nil, fmt.Errorf("%s: unexpected schema %q", path, v)
	}

	reader := parquet.NewGenericReader[EpisodeRow](pf)
	defer reader.Close()

	out := make([]EpisodeRow, 0, reader.NumRows())
	buf := make([]EpisodeRow, 256)
	for {
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet %s: %w", path, err)
		}
		if n == 0 {
			break
		}
	}
	return out, nil
}
