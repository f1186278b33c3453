package hub

import (
	"bytes"
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/breakpointhq/breakpoint/internal/game"
	"github.com/breakpointhq/breakpoint/internal/logging"
	"github.com/breakpointhq/breakpoint/internal/protocol"
	"github.com/breakpointhq/breakpoint/internal/room"
)

// gameLoopResolution is how often the loop wakes to check the accumulator,
// independent of any individual game's declared tick rate.
const gameLoopResolution = 10 * time.Millisecond

// runGameLoop is the room's host-side tick loop: it accumulates wall-clock
// dt, steps the active game at its declared rate (fixed-timestep
// accumulator), broadcasts GameState on change, and drives the room
// through RoundEnd/BetweenRounds/GameStart on round completion. One
// goroutine per in-progress game; it exits when the room leaves the
// InGame/BetweenRounds cycle or becomes empty.
func (h *Hub) runGameLoop(r *room.Room) {
	ctx := context.Background()
	ticker := time.NewTicker(gameLoopResolution)
	defer ticker.Stop()

	lastTick := time.Now()
	var accumulator float32
	var lastState []byte
	var tick uint32
	var betweenRoundDeadline time.Time

	for range ticker.C {
		if r.IsEmpty() {
			return
		}

		switch r.GetState() {
		case room.StateInGame:
			g := r.ActiveGame()
			if g == nil {
				return
			}

			now := time.Now()
			accumulator += float32(now.Sub(lastTick).Seconds())
			lastTick = now

			step := 1.0 / g.TickRate()
			stepped := false
			for accumulator >= step {
				g.Update(step, nil)
				accumulator -= step
				tick++
				stepped = true
			}

			if stepped {
				if state, err := g.SerializeState(); err == nil && !bytes.Equal(state, lastState) {
					lastState = state
					h.broadcastGameState(ctx, r, tick, state)
				}
			}

			if g.IsRoundComplete() {
				if h.finishRound(ctx, r, g) {
					return
				}
				betweenRoundDeadline = time.Now().Add(r.Config.BetweenRoundDuration)
			}

		case room.StateBetweenRounds:
			if !time.Now().Before(betweenRoundDeadline) {
				if !h.startNextRound(ctx, r) {
					return
				}
				lastTick = time.Now()
				accumulator = 0
				lastState = nil
			}

		default:
			return
		}
	}
}

func (h *Hub) broadcastGameState(ctx context.Context, r *room.Room, tick uint32, state []byte) {
	frame, err := protocol.Encode(protocol.GameState, protocol.GameStatePayload{Tick: tick, StateData: state})
	if err != nil {
		logging.Warn(ctx, "failed to encode game state frame", zap.Error(err))
		return
	}
	h.broadcastToRoom(r, frame)
}

// finishRound applies the completed round's results to the room's tracker
// and either ends the game session (final round: GameEnd, back to Lobby)
// or advances to BetweenRounds (RoundEnd, countdown to the next round).
// Returns true when the game session has ended and the tick loop should stop.
func (h *Hub) finishRound(ctx context.Context, r *room.Room, g room.GameInstance) bool {
	tracker := r.CurrentTracker()
	if tracker == nil {
		return true
	}
	tracker.ApplyRoundResults(g.RoundResults())

	if tracker.IsFinalRound() {
		frame, err := protocol.Encode(protocol.GameEnd, protocol.GameEndPayload{FinalScores: scoreEntries(tracker.Scores)})
		if err != nil {
			logging.Warn(ctx, "failed to encode game end frame", zap.Error(err))
		} else {
			h.broadcastToRoom(r, frame)
		}
		r.EndGame()
		return true
	}

	frame, err := protocol.Encode(protocol.RoundEnd, protocol.RoundEndPayload{
		Round:  uint8(tracker.CurrentRound),
		Scores: scoreEntries(tracker.Scores),
	})
	if err != nil {
		logging.Warn(ctx, "failed to encode round end frame", zap.Error(err))
	} else {
		h.broadcastToRoom(r, frame)
	}

	tracker.Advance()
	r.SetState(room.StateBetweenRounds)
	r.SetCurrentRound(uint8(tracker.CurrentRound))
	return false
}

// startNextRound re-initializes the active game for the round that just
// elapsed its between-rounds countdown, promoting any spectator to an
// active player, and re-broadcasts GameStart. Returns false if the room no
// longer has a game to restart, in which case the caller stops the loop.
func (h *Hub) startNextRound(ctx context.Context, r *room.Room) bool {
	gi := r.ActiveGame()
	g, ok := gi.(game.Game)
	if !ok {
		return false
	}

	players := r.PromoteAllToActive()
	g.Init(players, game.Config{RoundCount: r.Config.RoundCount, RoundDuration: r.Config.RoundDuration})
	r.SetState(room.StateInGame)

	h.broadcastGameStart(ctx, r, g.Metadata().Name, players)
	return true
}

func scoreEntries(scores map[room.PlayerID]int32) []protocol.PlayerScoreEntry {
	out := make([]protocol.PlayerScoreEntry, 0, len(scores))
	for id, score := range scores {
		out = append(out, protocol.PlayerScoreEntry{PlayerID: uint32(id), Score: score})
	}
	return out
}
