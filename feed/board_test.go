package feed

import (
	"context"
	"strings"
	"testing"

	"github.com/brensch/broadside/config"
	"github.com/brensch/broadside/game"
	"github.com/brensch/broadside/selfplay"
)

func TestBoardPublisher_PublishesResolvesAndFinish(t *testing.T) {
	cfg := config.Default()
	cfg.GridSize = 12
	cfg.MaxRounds = 3
	cfg.Fleets = [2][]config.FleetEntry{
		{{Class: "medium", Count: 1}},
		{{Class: "heavy", Count: 1}},
	}
	hub := NewHub()
	p := game.ParamsFromWeights(cfg.Weights)
	m, err := selfplay.NewMatch(cfg, nil, p, p, 7, BoardPublisher{Hub: hub})
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var snaps []BoardSnapshot
	for len(hub.broadcast) > 0 {
		msg := <-hub.broadcast
		if msg.Type != MsgTypeBoard {
			t.Fatalf("unexpected message type %q", msg.Type)
		}
		snaps = append(snaps, msg.Data.(BoardSnapshot))
	}
	if len(snaps) < 2 {
		t.Fatalf("got %d snapshots, want at least a resolve and the finish", len(snaps))
	}
	for _, s := range snaps[:len(snaps)-1] {
		if s.Phase != selfplay.ResolveA.String() && s.Phase != selfplay.ResolveB.String() {
			t.Fatalf("snapshot for phase %q", s.Phase)
		}
	}
	last := snaps[len(snaps)-1]
	if last.Phase != selfplay.Finished.String() || last.Reason != res.Reason.String() {
		t.Fatalf("last snapshot %q reason %q, result reason %v", last.Phase, last.Reason, res.Reason)
	}
	if rows := strings.Count(last.Board, "\n"); rows != cfg.GridSize {
		t.Fatalf("board has %d rows", rows)
	}
	if !strings.Contains(last.Fleets, "medium") || !strings.Contains(last.Fleets, "heavy") {
		t.Fatalf("fleet table:\n%s", last.Fleets)
	}
}
