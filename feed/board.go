package feed

import (
	"github.com/brensch/broadside/selfplay"
)

// BoardSnapshot is the payload of a board message.
type BoardSnapshot struct {
	Round  int    `json:"round"`
	Phase  string `json:"phase"`
	Board  string `json:"board"`
	Fleets string `json:"fleets"`
	Reason string `json:"reason,omitempty"`
}

// BoardPublisher is a match observer that publishes the rendered board after
// every resolve phase and once more when the match ends.
type BoardPublisher struct {
	Hub *Hub
}

func (p BoardPublisher) OnPhase(e selfplay.PhaseEvent) {
	snap := BoardSnapshot{Round: e.Round, Phase: e.Phase.String()}
	switch e.Phase {
	case selfplay.ResolveA, selfplay.ResolveB:
		snap.Board = selfplay.RenderBoard(e.State, selfplay.ShotCells(e.State.GridSize, e.Shots))
	case selfplay.Finished:
		snap.Board = selfplay.RenderBoard(e.State, nil)
		snap.Reason = e.Reason.String()
	default:
		return
	}
	snap.Fleets = selfplay.RenderFleets(e.State)
	if !p.Hub.Publish(MsgTypeBoard, snap) {
		p.Hub.Logger.Debug("board snapshot dropped", "round", e.Round, "phase", snap.Phase)
	}
}
