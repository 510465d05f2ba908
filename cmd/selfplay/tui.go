package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/broadside/game"
	"github.com/brensch/broadside/rules"
	"github.com/brensch/broadside/search"
)

type tickMsg time.Time

type doneMsg struct{}

type model struct {
	target    int
	played    int
	wins      [3]int
	rounds    int
	best      [2]game.Params
	bestValue [2]float64
	explore   [2]float64
	recent    []string
	startTime time.Time

	finished bool

	updates <-chan search.Episode
	done    <-chan struct{}
}

func newModel(target int, updates <-chan search.Episode, done <-chan struct{}) model {
	return model{target: target, startTime: time.Now(), updates: updates, done: done}
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForEpisode(updates <-chan search.Episode) tea.Cmd {
	return func() tea.Msg { return <-updates }
}

func waitForDone(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return doneMsg{}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForEpisode(m.updates), waitForDone(m.done), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tickMsg:
		return m, tickCmd()
	case search.Episode:
		m.record(msg)
		return m, waitForEpisode(m.updates)
	case doneMsg:
		m.drain()
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

// drain records episodes still queued when the search finishes.
func (m *model) drain() {
	for {
		select {
		case ep := <-m.updates:
			m.record(ep)
		default:
			return
		}
	}
}

func (m *model) record(ep search.Episode) {
	m.played++
	m.wins[ep.Result.Winner]++
	m.rounds += ep.Result.Rounds
	for side := range ep.Adopted {
		m.explore[side] = ep.Exploration[side]
		m.bestValue[side] = ep.BestValue[side]
		if ep.Adopted[side] {
			m.best[side] = ep.Params[side]
		}
	}
	line := fmt.Sprintf("#%-5d winner %-4s %-15s rounds %3d ships %d-%d reward %.1f / %.1f",
		ep.Index, ep.Result.Winner, ep.Result.Reason, ep.Result.Rounds,
		ep.Result.Ships[0], ep.Result.Ships[1], ep.Reward[0], ep.Reward[1])
	m.recent = append([]string{line}, m.recent...)
	if len(m.recent) > 10 {
		m.recent = m.recent[:10]
	}
}

func (m model) View() string {
	elapsed := time.Since(m.startTime)
	perSec := 0.0
	if elapsed.Seconds() >= 1 {
		perSec = float64(m.played) / elapsed.Seconds()
	}
	avgRounds := 0.0
	if m.played > 0 {
		avgRounds = float64(m.rounds) / float64(m.played)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Episodes:     %d / %d\n", m.played, m.target)
	fmt.Fprintf(&b, "Duration:     %s\n", elapsed.Round(time.Second))
	fmt.Fprintf(&b, "Episodes/Sec: %.2f\n", perSec)
	fmt.Fprintf(&b, "Avg Rounds:   %.1f\n", avgRounds)
	fmt.Fprintf(&b, "Wins:         A %d  B %d  draw %d\n\n",
		m.wins[rules.WinnerA], m.wins[rules.WinnerB], m.wins[rules.Draw])
	for side := range m.best {
		fmt.Fprintf(&b, "Side %s  best %.2f  explore %.3f\n  %s\n",
			game.Side(side), m.bestValue[side], m.explore[side], m.best[side])
	}
	b.WriteString("\nRecent Episodes:\n")
	for _, l := range m.recent {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteString("\nPress q to quit.\n")
	return b.String()
}
