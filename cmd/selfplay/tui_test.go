package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/broadside/game"
	"github.com/brensch/broadside/rules"
	"github.com/brensch/broadside/search"
	"github.com/brensch/broadside/selfplay"
)

func TestModel_RecordsEpisodes(t *testing.T) {
	m := newModel(10, make(chan search.Episode), make(chan struct{}))
	ep := search.Episode{
		Index:     0,
		Params:    [2]game.Params{{Health: 1.25}, {Missile: -0.5}},
		Result:    selfplay.Result{Rounds: 12, Ships: [2]int{3, 0}, Winner: rules.WinnerA, Reason: rules.FleetDestroyed},
		Reward:    [2]float64{140, -150},
		Adopted:   [2]bool{true, false},
		BestValue: [2]float64{14, 0},
	}
	next, _ := m.Update(ep)
	m = next.(model)
	if m.played != 1 || m.wins[rules.WinnerA] != 1 {
		t.Fatalf("played=%d wins=%v", m.played, m.wins)
	}
	if m.best[0] != ep.Params[0] || m.best[1] != (game.Params{}) {
		t.Fatalf("best=%v", m.best)
	}
	view := m.View()
	if !strings.Contains(view, "Episodes:     1 / 10") || !strings.Contains(view, "fleet_destroyed") {
		t.Fatalf("view:\n%s", view)
	}

	next, cmd := m.Update(doneMsg{})
	m = next.(model)
	if !m.finished || cmd == nil {
		t.Fatal("done message did not finish the model")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("done message did not quit")
	}
}

func TestRunInBackground_ResultOutlivesDoneWaiters(t *testing.T) {
	errStop := errors.New("stopped")
	result, done := runInBackground(func() error { return errStop })

	// The dashboard waits on done the same way.
	msgs := make(chan tea.Msg, 2)
	for i := 0; i < 2; i++ {
		go func() { msgs <- waitForDone(done)() }()
	}

	select {
	case err := <-result:
		if !errors.Is(err, errStop) {
			t.Fatalf("result=%v want %v", err, errStop)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("result never delivered")
	}
	for i := 0; i < 2; i++ {
		select {
		case msg := <-msgs:
			if _, ok := msg.(doneMsg); !ok {
				t.Fatalf("waiter got %T", msg)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("done waiter never released")
		}
	}
}

func TestForwardEpisode_CountsEveryEpisode(t *testing.T) {
	const n = 50
	updates := make(chan search.Episode, 1)
	m := newModel(n, updates, make(chan struct{}))
	go func() {
		for i := 0; i < n; i++ {
			forwardEpisode(context.Background(), updates, search.Episode{
				Index:  i,
				Result: selfplay.Result{Winner: rules.WinnerB},
			})
		}
	}()
	for i := 0; i < n; i++ {
		next, _ := m.Update(<-updates)
		m = next.(model)
	}
	if m.played != n || m.wins[rules.WinnerB] != n {
		t.Fatalf("played=%d wins=%v want %d", m.played, m.wins, n)
	}
}

func TestForwardEpisode_GivesUpWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	returned := make(chan struct{})
	go func() {
		forwardEpisode(ctx, make(chan search.Episode), search.Episode{})
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("forwardEpisode blocked after cancel")
	}
}

func TestModel_DoneRecordsQueuedEpisodes(t *testing.T) {
	updates := make(chan search.Episode, 4)
	updates <- search.Episode{Index: 0, Result: selfplay.Result{Winner: rules.WinnerA}}
	updates <- search.Episode{Index: 1, Result: selfplay.Result{Winner: rules.Draw}}
	m := newModel(2, updates, make(chan struct{}))

	next, _ := m.Update(doneMsg{})
	m = next.(model)
	if m.played != 2 || m.wins[rules.WinnerA] != 1 || m.wins[rules.Draw] != 1 {
		t.Fatalf("played=%d wins=%v", m.played, m.wins)
	}
}
