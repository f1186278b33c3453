package room

// RoundTracker accumulates per-player scores across the rounds of one game
// session inside a room.
type RoundTracker struct {
	CurrentRound int
	TotalRounds  int
	Scores       map[PlayerID]int32
}

// NewRoundTracker starts tracking at round 1 of totalRounds with every
// player's cumulative score at zero.
func NewRoundTracker(totalRounds int, playerIDs []PlayerID) *RoundTracker {
	scores := make(map[PlayerID]int32, len(playerIDs))
	for _, id := range playerIDs {
		scores[id] = 0
	}
	return &RoundTracker{CurrentRound: 1, TotalRounds: totalRounds, Scores: scores}
}

// ApplyRoundResults adds each player's round score to their running total.
func (rt *RoundTracker) ApplyRoundResults(results map[PlayerID]int32) {
	for id, delta := range results {
		rt.Scores[id] += delta
	}
}

// IsFinalRound reports whether the current round is the last one configured.
func (rt *RoundTracker) IsFinalRound() bool {
	return rt.CurrentRound >= rt.TotalRounds
}

// Advance moves to the next round.
func (rt *RoundTracker) Advance() {
	rt.CurrentRound++
}
