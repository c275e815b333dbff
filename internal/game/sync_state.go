// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
)

// PlayerView is what everyone at the table may know about a seat: never the cards, only how many.
// CardCount only counts cards of sets still in play, which is what decides whether the seat can
// be asked. HeldCount also includes dead cards kept after a failed declaration.
type PlayerView struct {
	Seat      int    `json:"id"`
	Name      string `json:"name"`
	Team      int    `json:"team"`
	CardCount int    `json:"card_count"`
	HeldCount int    `json:"held_count"`
	IsCurrent bool   `json:"is_current"`
	IsBot     bool   `json:"is_bot"`
	Connected bool   `json:"connected"`
}

// ClaimedSet is one resolved set in a snapshot.
type ClaimedSet struct {
	Set SetID `json:"set"`
	ClaimRecord
}

// StateSnapshot is the game as seen from one seat. Only the viewer's own hand is included.
type StateSnapshot struct {
	GameID      uuid.UUID    `json:"game_id"`
	Started     bool         `json:"started"`
	GameOver    bool         `json:"game_over"`
	CurrentTurn int          `json:"current_turn"`
	TeamScores  [2]int       `json:"team_scores"`
	SetsClaimed int          `json:"sets_claimed"`
	Winner      int          `json:"winning_team"`
	Claimed     []ClaimedSet `json:"claimed_sets"`
	Players     []PlayerView `json:"players"`
	ViewerSeat  int          `json:"viewer_seat"`
	Hand        []Card       `json:"hand"`
	HouseRules  HouseRules   `json:"house_rules"`
	LogLength   int          `json:"log_length"`
	LastEvent   *LogEntry    `json:"last_event,omitempty"`
}

// Snapshot returns the state visible to viewerSeat. A seat outside the table (a spectator) gets no hand.
func (g *LiteratureGame) Snapshot(viewerSeat int) StateSnapshot {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.snapshot(viewerSeat)
}

// snapshot assumes lock is held.
func (g *LiteratureGame) snapshot(viewerSeat int) StateSnapshot {
	snap := StateSnapshot{
		GameID:      g.ID,
		Started:     g.Started,
		GameOver:    g.GameOver,
		CurrentTurn: g.CurrentTurn,
		TeamScores:  g.TeamScores,
		SetsClaimed: g.SetsClaimed,
		Winner:      g.Winner,
		Claimed:     []ClaimedSet{},
		Players:     make([]PlayerView, 0, len(g.Players)),
		ViewerSeat:  viewerSeat,
		Hand:        []Card{},
		HouseRules:  g.HouseRules,
		LogLength:   len(g.Log),
	}
	// AllSets is ordered, so claimed sets come out the same way every time.
	for _, id := range AllSets() {
		if rec, ok := g.Claimed[id]; ok {
			snap.Claimed = append(snap.Claimed, ClaimedSet{Set: id, ClaimRecord: rec})
		}
	}
	for _, p := range g.Players {
		snap.Players = append(snap.Players, PlayerView{
			Seat:      p.Seat,
			Name:      p.Name,
			Team:      p.Team,
			CardCount: g.liveCards(p),
			HeldCount: p.HandSize(),
			IsCurrent: g.Started && !g.GameOver && p.Seat == g.CurrentTurn,
			IsBot:     p.IsBot(),
			Connected: p.Connected || p.IsBot(),
		})
	}
	if len(g.Log) > 0 {
		last := g.Log[len(g.Log)-1]
		snap.LastEvent = &last
	}
	if g.validSeat(viewerSeat) {
		snap.Hand = g.Players[viewerSeat].Cards()
	}
	return snap
}
