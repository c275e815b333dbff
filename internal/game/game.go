// internal/game/game.go
package game

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/literature/internal/cache"
	"github.com/jason-s-yu/literature/internal/database"
	log "github.com/sirupsen/logrus"
)

// OnGameEndFunc is invoked once when the last set is claimed. winningTeam is -1 on a tie.
type OnGameEndFunc func(gameID uuid.UUID, winningTeam int, scores [2]int)

// RequestOutcome is the result of a request that passed validation.
type RequestOutcome int

const (
	Failed      RequestOutcome = iota // target did not hold the card; turn passed to target
	Transferred                       // card moved to the requester; requester keeps the turn
)

func (o RequestOutcome) String() string {
	if o == Transferred {
		return "transferred"
	}
	return "failed"
}

// DeclarationOutcome reports whether a declaration was right and which team scored the set.
type DeclarationOutcome struct {
	Correct bool `json:"correct"`
	Team    int  `json:"team"`
}

// ClaimRecord remembers how a set was resolved.
type ClaimRecord struct {
	Team     int  `json:"team"`
	Declarer int  `json:"declarer"`
	Correct  bool `json:"correct"`
}

// LiteratureGame holds the entire state for a single table in memory.
// Exported methods acquire Mu; unexported helpers assume it is held.
type LiteratureGame struct {
	ID         uuid.UUID
	HouseRules HouseRules

	Players     []*Player
	CurrentTurn int
	TeamScores  [2]int
	Claimed     map[SetID]ClaimRecord
	SetsClaimed int
	Log         []LogEntry

	Started  bool
	GameOver bool
	Winner   int // winning team once GameOver; -1 on a tie or while playing

	Mu sync.Mutex

	// BroadcastFn receives public events. It is called with Mu held and must not call back into the game.
	BroadcastFn func(ev GameEvent)

	// OnGameEnd is called with Mu held when the game finishes.
	OnGameEnd OnGameEndFunc

	rng *rand.Rand
}

// NewLiteratureGame seats the given players (assigning seats and teams) and returns an unstarted game.
// rng drives the shuffle; nil uses a time-seeded source.
func NewLiteratureGame(players []*Player, rules HouseRules, rng *rand.Rand) (*LiteratureGame, error) {
	if !ValidPlayerCount(len(players)) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPlayerCount, len(players))
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	for i, p := range players {
		p.Seat = i
		p.Team = rules.TeamOf(i, len(players))
	}
	return &LiteratureGame{
		ID:         uuid.New(),
		HouseRules: rules,
		Players:    players,
		Claimed:    make(map[SetID]ClaimRecord),
		Log:        []LogEntry{},
		Winner:     -1,
		rng:        rng,
	}, nil
}

// NewTable builds playerCount players. Seats listed in humanSeats are human; every other seat
// is a bot using a policy from newPolicy.
func NewTable(playerCount int, humanSeats []int, newPolicy func() Policy) ([]*Player, error) {
	if !ValidPlayerCount(playerCount) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPlayerCount, playerCount)
	}
	human := make(map[int]bool, len(humanSeats))
	for _, s := range humanSeats {
		if s < 0 || s >= playerCount {
			return nil, fmt.Errorf("%w: human seat %d", ErrInvalidPlayer, s)
		}
		human[s] = true
	}
	players := make([]*Player, playerCount)
	for i := range players {
		if human[i] {
			players[i] = NewPlayer(i, fmt.Sprintf("Player %d", i+1), 0, HumanControl())
		} else {
			players[i] = NewPlayer(i, fmt.Sprintf("Bot %d", i+1), 0, BotControl(newPolicy()))
		}
	}
	return players, nil
}

// Start shuffles a fresh deck and deals it out evenly. Seat 0 moves first.
func (g *LiteratureGame) Start() error {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.Started {
		return nil
	}
	deck := NewDeck()
	deck.Shuffle(g.rng)
	if err := deck.Deal(g.Players, CardsPerPlayer(len(g.Players))); err != nil {
		return fmt.Errorf("dealing game %s: %w", g.ID, err)
	}
	g.begin()
	return nil
}

// StartWithHands starts the game from a known deal, hands[i] going to seat i.
// Every card must be playable and appear at most once.
func (g *LiteratureGame) StartWithHands(hands [][]Card) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.Started {
		return nil
	}
	if len(hands) != len(g.Players) {
		return fmt.Errorf("%w: %d hands for %d players", ErrInvalidPlayerCount, len(hands), len(g.Players))
	}
	seen := make(map[Card]bool)
	for seat, hand := range hands {
		for _, c := range hand {
			if _, err := c.Set(); err != nil {
				return err
			}
			if seen[c] {
				return fmt.Errorf("%w: %s dealt twice", ErrDuplicateCard, c)
			}
			seen[c] = true
		}
		for _, c := range hand {
			if err := g.Players[seat].AddCard(c); err != nil {
				return err
			}
		}
	}
	g.begin()
	return nil
}

// begin marks the game live after a deal. Assumes lock is held.
func (g *LiteratureGame) begin() {
	g.Started = true
	g.CurrentTurn = 0
	g.settleTurn()
	g.logAction(LogEntry{
		Type:      ActionGameStart,
		Requester: -1,
		Target:    -1,
		Details: map[string]interface{}{
			"player_count": len(g.Players),
			"first_player": g.CurrentTurn,
		},
	})
	log.WithFields(log.Fields{"game": g.ID, "players": len(g.Players)}).Info("game started")
	g.persistInitialGameState()
	g.broadcastPlayerTurn()
}

// RequestCard asks target for card on behalf of requester.
//
// Checks run in a fixed order and the first violation is returned with no state change:
// game over, unknown seat, not the requester's turn, same team, target out of live cards,
// rank not in play, card already held, no root card of the set, set already claimed.
// A failed request that passes every check always hands the turn to the target.
func (g *LiteratureGame) RequestCard(requester, target int, card Card) (RequestOutcome, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.requestCard(requester, target, card)
}

// requestCard assumes lock is held.
func (g *LiteratureGame) requestCard(requester, target int, card Card) (RequestOutcome, error) {
	if err := g.checkActive(); err != nil {
		return Failed, err
	}
	if !g.validSeat(requester) {
		return Failed, fmt.Errorf("%w: requester %d", ErrInvalidPlayer, requester)
	}
	if requester != g.CurrentTurn {
		return Failed, ErrNotYourTurn
	}
	if !g.validSeat(target) {
		return Failed, fmt.Errorf("%w: target %d", ErrInvalidPlayer, target)
	}
	req, tgt := g.Players[requester], g.Players[target]
	if req.Team == tgt.Team {
		return Failed, ErrSameTeamRequest
	}
	if g.liveCards(tgt) == 0 {
		return Failed, fmt.Errorf("%w: seat %d", ErrTargetHasNoCards, target)
	}
	set, err := card.Set()
	if err != nil {
		return Failed, err
	}
	if req.HasCard(card) {
		return Failed, ErrAlreadyHasCard
	}
	if !req.HasCardOfSet(set) {
		return Failed, fmt.Errorf("%w: %s", ErrNoRootCard, set)
	}
	if _, claimed := g.Claimed[set]; claimed {
		return Failed, fmt.Errorf("%w: %s", ErrSetAlreadyClaimed, set)
	}

	outcome := Failed
	if tgt.HasCard(card) {
		moved, err := tgt.RemoveCard(card)
		if err != nil {
			log.WithFields(log.Fields{"game": g.ID, "target": target, "card": card.Key()}).
				Error("card reported in hand but could not be removed")
			return Failed, err
		}
		if err := req.AddCard(moved); err != nil {
			_ = tgt.AddCard(moved)
			log.WithFields(log.Fields{"game": g.ID, "requester": requester, "card": card.Key()}).
				Error("transferred card already present in requester hand")
			return Failed, err
		}
		outcome = Transferred
	} else {
		g.CurrentTurn = target
	}

	entry := g.logAction(LogEntry{
		Type:      ActionCardRequest,
		Requester: requester,
		Target:    target,
		Card:      &card,
		Success:   outcome == Transferred,
	})
	log.WithFields(log.Fields{
		"game":      g.ID,
		"requester": req.Name,
		"target":    tgt.Name,
		"card":      card.String(),
	}).Debugf("card request %s", outcome)
	g.fireEvent(GameEvent{Type: EventCardRequestResult, Log: &entry})
	if outcome == Failed {
		g.broadcastPlayerTurn()
	}
	return outcome, nil
}

// DeclareSet claims set on behalf of the declarer's team. assignment maps each of the six member
// cards to the seat believed to hold it.
//
// The declaration is correct only if every assigned seat is on the declarer's team and actually
// holds its card. A correct declaration scores for the declarer's team and keeps the turn; a wrong
// one scores for the other team and hands the turn to the first opponent (by seat) still holding cards.
func (g *LiteratureGame) DeclareSet(declarer int, set SetID, assignment map[Card]int) (DeclarationOutcome, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.declareSet(declarer, set, assignment)
}

// declareSet assumes lock is held.
func (g *LiteratureGame) declareSet(declarer int, set SetID, assignment map[Card]int) (DeclarationOutcome, error) {
	if err := g.checkActive(); err != nil {
		return DeclarationOutcome{}, err
	}
	if !g.validSeat(declarer) {
		return DeclarationOutcome{}, fmt.Errorf("%w: declarer %d", ErrInvalidPlayer, declarer)
	}
	if declarer != g.CurrentTurn {
		return DeclarationOutcome{}, ErrNotYourTurn
	}
	members, err := SetMembers(set)
	if err != nil {
		return DeclarationOutcome{}, err
	}
	if _, claimed := g.Claimed[set]; claimed {
		return DeclarationOutcome{}, fmt.Errorf("%w: %s", ErrSetAlreadyClaimed, set)
	}
	if len(assignment) != SetSize {
		return DeclarationOutcome{}, fmt.Errorf("%w: got %d cards", ErrIncompleteAssignment, len(assignment))
	}
	for _, m := range members {
		seat, ok := assignment[m]
		if !ok {
			return DeclarationOutcome{}, fmt.Errorf("%w: %s missing", ErrIncompleteAssignment, m)
		}
		if !g.validSeat(seat) {
			return DeclarationOutcome{}, fmt.Errorf("%w: %s assigned to seat %d", ErrIncompleteAssignment, m, seat)
		}
	}

	team := g.Players[declarer].Team
	correct := true
	for _, m := range members {
		holder := g.Players[assignment[m]]
		if holder.Team != team || !holder.HasCard(m) {
			correct = false
			break
		}
	}

	scoring := team
	if !correct {
		scoring = 1 - team
	}
	g.TeamScores[scoring]++
	g.Claimed[set] = ClaimRecord{Team: scoring, Declarer: declarer, Correct: correct}
	g.SetsClaimed++
	if correct || g.HouseRules.RetireCardsOnFailedDeclare {
		g.retireCards(members)
	}
	if !correct {
		g.CurrentTurn = g.firstSeatOfTeam(1 - team)
	}
	if g.SetsClaimed < NumSets {
		g.settleTurn()
	}

	assigned := make(map[string]interface{}, len(assignment))
	for c, seat := range assignment {
		assigned[c.Key()] = seat
	}
	entry := g.logAction(LogEntry{
		Type:      ActionSetDeclaration,
		Requester: declarer,
		Target:    -1,
		Set:       &set,
		Success:   correct,
		Team:      &scoring,
		Details:   map[string]interface{}{"assignment": assigned},
	})
	log.WithFields(log.Fields{
		"game":     g.ID,
		"declarer": g.Players[declarer].Name,
		"set":      set.String(),
		"correct":  correct,
		"scores":   g.TeamScores,
	}).Info("set declared")
	g.fireEvent(GameEvent{Type: EventSetDeclarationResult, Log: &entry})

	if g.SetsClaimed >= NumSets {
		g.endGame()
	} else {
		g.broadcastPlayerTurn()
	}
	return DeclarationOutcome{Correct: correct, Team: scoring}, nil
}

// ClaimSeat binds a user to a human seat, returning the seat they already hold when rejoining.
func (g *LiteratureGame) ClaimSeat(userID uuid.UUID, name string) (int, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	for _, p := range g.Players {
		if p.UserID == userID {
			p.Connected = true
			return p.Seat, nil
		}
	}
	for _, p := range g.Players {
		if p.IsBot() || p.UserID != uuid.Nil {
			continue
		}
		p.UserID = userID
		p.Connected = true
		if name != "" {
			p.Name = name
		}
		entry := g.logAction(LogEntry{
			Type:      ActionPlayerJoin,
			Requester: p.Seat,
			Target:    -1,
			Details:   map[string]interface{}{"name": p.Name},
		})
		g.fireEvent(GameEvent{Type: EventPlayerJoined, Log: &entry})
		return p.Seat, nil
	}
	return -1, ErrSeatsFull
}

// SeatOf returns the seat bound to a user, or -1.
func (g *LiteratureGame) SeatOf(userID uuid.UUID) int {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	for _, p := range g.Players {
		if p.UserID == userID {
			return p.Seat
		}
	}
	return -1
}

// HandleDisconnect marks the user's seat as disconnected. The seat stays reserved for a rejoin.
func (g *LiteratureGame) HandleDisconnect(userID uuid.UUID) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	for _, p := range g.Players {
		if p.UserID == userID {
			p.Connected = false
			log.WithFields(log.Fields{"game": g.ID, "seat": p.Seat}).Info("player disconnected")
			return
		}
	}
}

// checkActive assumes lock is held.
func (g *LiteratureGame) checkActive() error {
	if g.GameOver {
		return ErrGameOver
	}
	if !g.Started {
		return ErrGameNotStarted
	}
	return nil
}

func (g *LiteratureGame) validSeat(seat int) bool {
	return seat >= 0 && seat < len(g.Players)
}

// liveCards counts the cards a player holds from sets that are still in play.
func (g *LiteratureGame) liveCards(p *Player) int {
	n := 0
	for _, c := range p.hand {
		if set, err := c.Set(); err == nil {
			if _, claimed := g.Claimed[set]; !claimed {
				n++
			}
		}
	}
	return n
}

// retireCards takes the given cards out of every hand. Assumes lock is held.
func (g *LiteratureGame) retireCards(cards []Card) {
	for _, p := range g.Players {
		for _, c := range cards {
			if p.HasCard(c) {
				_, _ = p.RemoveCard(c)
			}
		}
	}
}

// firstSeatOfTeam returns the lowest seat on team that still holds live cards,
// or the lowest seat on the team when none do.
func (g *LiteratureGame) firstSeatOfTeam(team int) int {
	first := -1
	for _, p := range g.Players {
		if p.Team != team {
			continue
		}
		if first < 0 {
			first = p.Seat
		}
		if g.liveCards(p) > 0 {
			return p.Seat
		}
	}
	return first
}

// settleTurn moves the turn off a player who has nothing left to ask with: first to the next
// teammate in seat order holding live cards, then to anyone holding live cards.
// Assumes lock is held.
func (g *LiteratureGame) settleTurn() {
	if g.GameOver || len(g.Players) == 0 {
		return
	}
	cur := g.Players[g.CurrentTurn]
	if g.liveCards(cur) > 0 {
		return
	}
	n := len(g.Players)
	for i := 1; i < n; i++ {
		p := g.Players[(g.CurrentTurn+i)%n]
		if p.Team == cur.Team && g.liveCards(p) > 0 {
			g.CurrentTurn = p.Seat
			return
		}
	}
	for i := 1; i < n; i++ {
		p := g.Players[(g.CurrentTurn+i)%n]
		if g.liveCards(p) > 0 {
			g.CurrentTurn = p.Seat
			return
		}
	}
}

// endGame finalizes scores and notifies listeners. Assumes lock is held.
func (g *LiteratureGame) endGame() {
	if g.GameOver {
		return
	}
	g.GameOver = true
	switch {
	case g.TeamScores[0] > g.TeamScores[1]:
		g.Winner = 0
	case g.TeamScores[1] > g.TeamScores[0]:
		g.Winner = 1
	default:
		g.Winner = -1
	}
	entry := g.logAction(LogEntry{
		Type:      ActionGameOver,
		Requester: -1,
		Target:    -1,
		Details: map[string]interface{}{
			"team_scores":  g.TeamScores,
			"winning_team": g.Winner,
		},
	})
	log.WithFields(log.Fields{"game": g.ID, "scores": g.TeamScores, "winner": g.Winner}).Info("game over")
	g.fireEvent(GameEvent{
		Type: EventGameOver,
		Log:  &entry,
		Payload: map[string]interface{}{
			"team_scores":  g.TeamScores,
			"winning_team": g.Winner,
		},
	})
	g.persistFinalGameState()
	if g.OnGameEnd != nil {
		g.OnGameEnd(g.ID, g.Winner, g.TeamScores)
	}
}

// broadcastPlayerTurn notifies everyone whose turn it is now. Assumes lock is held.
func (g *LiteratureGame) broadcastPlayerTurn() {
	if g.GameOver || !g.Started {
		return
	}
	cur := g.Players[g.CurrentTurn]
	g.fireEvent(GameEvent{
		Type: EventGamePlayerTurn,
		Payload: map[string]interface{}{
			"seat":   cur.Seat,
			"name":   cur.Name,
			"is_bot": cur.IsBot(),
		},
	})
}

// fireEvent broadcasts an event to all connected players. Assumes lock is held.
func (g *LiteratureGame) fireEvent(ev GameEvent) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	}
}

// logAction appends to the game log and hands the record to the historian queue.
// Assumes lock is held.
func (g *LiteratureGame) logAction(entry LogEntry) LogEntry {
	entry.Index = len(g.Log) + 1
	entry.Timestamp = time.Now().UnixMilli()
	entry.Turn = g.CurrentTurn
	g.Log = append(g.Log, entry)

	if cache.Rdb == nil {
		return entry
	}
	actorUser := uuid.Nil
	if g.validSeat(entry.Requester) {
		actorUser = g.Players[entry.Requester].UserID
	}
	record := cache.GameActionRecord{
		GameID:        g.ID,
		ActionIndex:   entry.Index,
		ActorSeat:     entry.Requester,
		ActorUserID:   actorUser,
		ActionType:    string(entry.Type),
		ActionPayload: entry.payload(),
		Timestamp:     entry.Timestamp,
	}
	go func(rec cache.GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishGameAction(ctx, rec); err != nil {
			log.Warnf("Error publishing game action %d to Redis for game %s: %v", rec.ActionIndex, rec.GameID, err)
		}
	}(record)
	return entry
}

// persistInitialGameState stores every dealt hand so a game can be audited later. Assumes lock is held.
func (g *LiteratureGame) persistInitialGameState() {
	if !database.Enabled() {
		return
	}
	hands := make(map[string][]string, len(g.Players))
	for _, p := range g.Players {
		keys := make([]string, 0, len(p.hand))
		for _, c := range p.hand {
			keys = append(keys, c.Key())
		}
		hands[fmt.Sprintf("%d", p.Seat)] = keys
	}
	snap := map[string]interface{}{
		"players":     len(g.Players),
		"house_rules": g.HouseRules,
		"hands":       hands,
	}
	go database.UpsertInitialGameState(g.ID, snap)
}

// persistFinalGameState writes the result rows. Assumes lock is held.
func (g *LiteratureGame) persistFinalGameState() {
	if !database.Enabled() {
		return
	}
	seats := make([]database.SeatResult, 0, len(g.Players))
	for _, p := range g.Players {
		seats = append(seats, database.SeatResult{
			Seat:   p.Seat,
			UserID: p.UserID,
			Team:   p.Team,
			IsBot:  p.IsBot(),
		})
	}
	scores, winner, id := g.TeamScores, g.Winner, g.ID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.RecordGameResult(ctx, id, scores, winner, seats); err != nil {
			log.Errorf("failed to record result for game %s: %v", id, err)
		}
	}()
}
