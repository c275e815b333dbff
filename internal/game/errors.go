// internal/game/errors.go
package game

import "errors"

// Rule violations. These are expected at runtime and leave the game untouched.
var (
	ErrNotYourTurn          = errors.New("not your turn")
	ErrSameTeamRequest      = errors.New("cannot request a card from a teammate")
	ErrTargetHasNoCards     = errors.New("target holds no cards in play")
	ErrAlreadyHasCard       = errors.New("requester already holds that card")
	ErrNoRootCard           = errors.New("requester holds no card of that set")
	ErrIncompleteAssignment = errors.New("assignment does not cover exactly the six cards of the set")
	ErrSetAlreadyClaimed    = errors.New("set already claimed")
	ErrGameOver             = errors.New("game is over")
	ErrGameNotStarted       = errors.New("game has not started")
	ErrInvalidPlayer        = errors.New("no player at that seat")
)

// Setup and model errors.
var (
	ErrInvalidPlayerCount = errors.New("player count must be even and between 4 and 8")
	ErrInsufficientCards  = errors.New("not enough cards in the deck")
	ErrInvalidRank        = errors.New("rank is not in play")
	ErrUnknownSet         = errors.New("unknown set")
	ErrDuplicateCard      = errors.New("card already in hand")
	ErrSeatsFull          = errors.New("no open seat")
)

// ErrCardNotFound means a card was expected in a hand and was not there. Outside of
// Player.RemoveCard it signals a broken invariant.
var ErrCardNotFound = errors.New("card not found in hand")

var errorCodes = []struct {
	err     error
	code    string
	message string
}{
	{ErrNotYourTurn, "not_your_turn", "It's not your turn!"},
	{ErrSameTeamRequest, "same_team_request", "You can only request cards from the other team!"},
	{ErrTargetHasNoCards, "target_has_no_cards", "That player has no cards left to ask for."},
	{ErrAlreadyHasCard, "already_has_card", "You already have that card."},
	{ErrNoRootCard, "no_root_card", "You can only request cards from families you already have!"},
	{ErrIncompleteAssignment, "incomplete_assignment", "Assign every card of the set to a player."},
	{ErrSetAlreadyClaimed, "set_already_claimed", "That set has already been claimed."},
	{ErrGameOver, "game_over", "The game is over."},
	{ErrGameNotStarted, "game_not_started", "The game has not started yet."},
	{ErrInvalidPlayer, "invalid_player", "There is no player in that seat."},
	{ErrInvalidPlayerCount, "invalid_player_count", "Games need 4, 6 or 8 players."},
	{ErrInsufficientCards, "insufficient_cards", "Not enough cards to deal."},
	{ErrInvalidRank, "invalid_rank", "Eights are not used in Literature."},
	{ErrUnknownSet, "unknown_set", "Unknown set."},
	{ErrDuplicateCard, "duplicate_card", "That card is already in the hand."},
	{ErrSeatsFull, "seats_full", "All human seats are taken."},
	{ErrCardNotFound, "card_not_found", "Internal error: card missing from hand."},
}

// ErrorCode maps a rule error to a stable code for clients. Unknown errors map to "internal".
func ErrorCode(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return "internal"
}

// UserMessage maps a rule error to a message suitable for showing to a player.
func UserMessage(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.message
		}
	}
	return "Something went wrong."
}
