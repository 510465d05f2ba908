package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/broadside/game"
	"github.com/brensch/broadside/rules"
	"github.com/brensch/broadside/search"
	"github.com/brensch/broadside/selfplay"
)

func sampleEpisode(i int) search.Episode {
	return search.Episode{
		ID:    uuid.New(),
		Index: i,
		Seed:  12345 + int64(i)*search.SeedStride,
		Params: [2]game.Params{
			{Health: 1, Missile: 0.8, Block: 1.2, Target: -1, EnemyDistance: 0.5, AllyDistance: 0.3},
			{Health: 0.5, AttackThreshold: 0.25},
		},
		Result: selfplay.Result{
			Rounds:   17,
			Ships:    [2]int{3, 1},
			Health:   [2]int{9, 2},
			Winner:   rules.WinnerA,
			Reason:   rules.FleetDestroyed,
			Duration: 1500 * time.Millisecond,
		},
		Reward:      [2]float64{133, -140},
		Exploration: [2]float64{0.29, 0.3},
		Adopted:     [2]bool{true, false},
	}
}

func TestEpisodeRow_RoundTripsParams(t *testing.T) {
	ep := sampleEpisode(0)
	row := RowFromEpisode(ep)
	if row.Params(game.SideA) != ep.Params[0] || row.Params(game.SideB) != ep.Params[1] {
		t.Fatalf("params lost: %v %v", row.ParamsA, row.ParamsB)
	}
	if row.Winner != "A" || row.Reason != "fleet_destroyed" || row.DurationMS != 1500 {
		t.Fatalf("unexpected row %+v", row)
	}
}

func TestWriteEpisodesParquetAtomic(t *testing.T) {
	dir := t.TempDir()
	rows := []EpisodeRow{RowFromEpisode(sampleEpisode(0)), RowFromEpisode(sampleEpisode(1))}

	path, err := WriteEpisodesParquetAtomic(dir, rows)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("file %s not published into %s", path, dir)
	}
	tmp, _ := os.ReadDir(filepath.Join(dir, "tmp"))
	if len(tmp) != 0 {
		t.Fatalf("tmp dir not empty: %d entries", len(tmp))
	}

	got, err := ReadEpisodes(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows=%d want=2", len(got))
	}
	if got[1].Index != 1 || got[1].EpisodeID != rows[1].EpisodeID {
		t.Fatalf("row 1 = %+v", got[1])
	}
	if got[0].Params(game.SideA) != rows[0].Params(game.SideA) {
		t.Fatalf("params_a=%v want %v", got[0].ParamsA, rows[0].ParamsA)
	}
}

func TestBatchWriter_RotatesEveryNRows(t *testing.T) {
	dir := t.TempDir()
	w, err := NewBatchWriter(dir, 2)
	if err != nil {
		t.Fatalf("NewBatchWriter: %v", err)
	}
	var published []*Batch
	for i := 0; i < 5; i++ {
		b, err := w.Write(RowFromEpisode(sampleEpisode(i)))
		if err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		if b != nil {
			published = append(published, b)
		}
	}
	if len(published) != 2 || w.Pending() != 1 {
		t.Fatalf("published=%d pending=%d, want 2 and 1", len(published), w.Pending())
	}
	visible, _ := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if len(visible) != 2 {
		t.Fatalf("%d files visible before Close, want 2", len(visible))
	}

	last, err := w.Close()
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if last == nil || last.Rows != 1 {
		t.Fatalf("close published %+v, want 1 row", last)
	}
	published = append(published, last)

	var idx []int64
	for _, b := range published {
		got, err := ReadEpisodes(b.Path)
		if err != nil {
			t.Fatalf("read %s: %v", b.Path, err)
		}
		if len(got) != b.Rows {
			t.Fatalf("%s: rows=%d want=%d", b.Path, len(got), b.Rows)
		}
		for _, r := range got {
			idx = append(idx, r.Index)
		}
	}
	for i, v := range idx {
		if v != int64(i) {
			t.Fatalf("row order %v", idx)
		}
	}
	tmp, _ := os.ReadDir(filepath.Join(dir, "tmp"))
	if len(tmp) != 0 {
		t.Fatalf("tmp dir not empty: %d entries", len(tmp))
	}
	if _, err := w.Write(RowFromEpisode(sampleEpisode(9))); !errors.Is(err, ErrWriterClosed) {
		t.Fatalf("write after close: %v", err)
	}
}

func TestBatchWriter_CloseWithoutRows(t *testing.T) {
	dir := t.TempDir()
	w, err := NewBatchWriter(dir, 10)
	if err != nil {
		t.Fatal(err)
	}
	b, err := w.Close()
	if err != nil || b != nil {
		t.Fatalf("batch=%+v err=%v", b, err)
	}
	files, _ := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if len(files) != 0 {
		t.Fatalf("unexpected files %v", files)
	}
}

func TestImprovementLog_AppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "improvements.jsonl")
	l, err := OpenImprovementLog(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	pa := game.Params{Health: 1.5, Block: -0.25}
	pb := game.Params{Missile: 2}
	if err := l.Append(NewImprovement(game.SideA, 3, 10, pa)); err != nil {
		t.Fatal(err)
	}
	if err := l.Append(NewImprovement(game.SideB, 4, 7, pb)); err != nil {
		t.Fatal(err)
	}
	if err := l.Append(NewImprovement(game.SideA, 8, 12, pb)); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	// A torn trailing line must not break loading.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(`{"side":"A","epis`)
	f.Close()

	reopened, err := OpenImprovementLog(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if reopened.Count() != 3 {
		t.Fatalf("count=%d want=3", reopened.Count())
	}

	if err := reopened.Append(NewImprovement(game.SideB, 9, 8, pa)); err != nil {
		t.Fatal(err)
	}

	entries, err := LoadImprovements(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Fatalf("entries=%d want=4", len(entries))
	}
	best, ok := LatestBest(entries, game.SideA)
	if !ok || best.Episode != 8 || best.Params() != pb {
		t.Fatalf("latest A = %+v", best)
	}
	best, ok = LatestBest(entries, game.SideB)
	if !ok || best.Params() != pa || best.Value != 8 {
		t.Fatalf("latest B = %+v", best)
	}
}
