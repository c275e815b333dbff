// internal/game/events.go
package game

// ActionType labels an entry of the game log.
type ActionType string

const (
	ActionGameStart      ActionType = "GAME_START"
	ActionCardRequest    ActionType = "CARD_REQUEST"
	ActionSetDeclaration ActionType = "SET_DECLARATION"
	ActionTurnPass       ActionType = "TURN_PASS"
	ActionPlayerJoin     ActionType = "PLAYER_JOIN"
	ActionGameOver       ActionType = "GAME_OVER"
)

// LogEntry is one append-only record of the game history. Seat fields are -1 when not applicable.
type LogEntry struct {
	Index     int        `json:"index"`
	Type      ActionType `json:"type"`
	Timestamp int64      `json:"timestamp"`
	Turn      int        `json:"turn"` // whose turn it is after the action
	Requester int        `json:"requester"`
	Target    int        `json:"target"`
	Card      *Card      `json:"card,omitempty"`
	Set       *SetID     `json:"set,omitempty"`
	Success   bool       `json:"success"`
	Team      *int       `json:"team,omitempty"` // team that scored, for declarations

	Details map[string]interface{} `json:"details,omitempty"`
}

// payload flattens the entry for the historian queue.
func (e LogEntry) payload() map[string]interface{} {
	p := map[string]interface{}{
		"turn":      e.Turn,
		"requester": e.Requester,
		"target":    e.Target,
		"success":   e.Success,
	}
	if e.Card != nil {
		p["card"] = e.Card.Key()
	}
	if e.Set != nil {
		p["set"] = e.Set.String()
	}
	if e.Team != nil {
		p["team"] = *e.Team
	}
	for k, v := range e.Details {
		p[k] = v
	}
	return p
}

// GameEventType is the type of an event broadcast to every client at the table.
type GameEventType string

const (
	EventCardRequestResult    GameEventType = "card_request_result"
	EventSetDeclarationResult GameEventType = "set_declaration_result"
	EventGamePlayerTurn       GameEventType = "game_player_turn"
	EventPlayerJoined         GameEventType = "player_joined"
	EventGameOver             GameEventType = "game_over"
)

// GameEvent is a public notification. It never carries hidden hand contents.
type GameEvent struct {
	Type    GameEventType          `json:"type"`
	Log     *LogEntry              `json:"log,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}
