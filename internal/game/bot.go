// internal/game/bot.go
package game

import (
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// BotActionKind is what a bot decided to do with its turn.
type BotActionKind int

const (
	BotSkip BotActionKind = iota
	BotRequest
	BotDeclare
)

func (k BotActionKind) String() string {
	switch k {
	case BotRequest:
		return "request"
	case BotDeclare:
		return "declare"
	default:
		return "skip"
	}
}

// BotAction is a policy's decision. Only the fields for Kind are read.
type BotAction struct {
	Kind       BotActionKind
	Target     int
	Card       Card
	Set        SetID
	Assignment map[Card]int
}

// SeatView is the public information about another seat.
type SeatView struct {
	Seat      int
	Team      int
	CardCount int
}

// BotView is everything a policy is allowed to see: its own hand and the public table.
type BotView struct {
	Seat      int
	Team      int
	Hand      []Card
	Opponents []SeatView
	Teammates []SeatView
	Claimed   map[SetID]bool
}

// LiveHand returns the cards of the hand whose sets are still in play.
func (v BotView) LiveHand() []Card {
	out := make([]Card, 0, len(v.Hand))
	for _, c := range v.Hand {
		if set, err := c.Set(); err == nil && !v.Claimed[set] {
			out = append(out, c)
		}
	}
	return out
}

// Policy decides a bot's move. Implementations must not keep references to the view's slices.
type Policy interface {
	Choose(view BotView) BotAction
}

// RandomPolicy declares any set it holds completely, and otherwise asks a random opponent
// for a random missing card from a family it holds.
type RandomPolicy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPolicy returns a policy drawing from rng, or from a time-seeded source when rng is nil.
func NewRandomPolicy(rng *rand.Rand) *RandomPolicy {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomPolicy{rng: rng}
}

func (p *RandomPolicy) Choose(view BotView) BotAction {
	p.mu.Lock()
	defer p.mu.Unlock()

	live := view.LiveHand()
	if len(live) == 0 {
		return BotAction{Kind: BotSkip}
	}
	if set, ok := completeSet(live); ok {
		return declareOwnSet(view.Seat, set)
	}

	root := live[p.rng.Intn(len(live))]
	set, _ := root.Set()
	missing := missingMembers(live, set)

	targets := make([]int, 0, len(view.Opponents))
	for _, o := range view.Opponents {
		if o.CardCount > 0 {
			targets = append(targets, o.Seat)
		}
	}
	if len(missing) == 0 || len(targets) == 0 {
		return BotAction{Kind: BotSkip}
	}
	return BotAction{
		Kind:   BotRequest,
		Target: targets[p.rng.Intn(len(targets))],
		Card:   missing[p.rng.Intn(len(missing))],
	}
}

// completeSet returns the first set (in AllSets order) the hand holds all six cards of.
func completeSet(hand []Card) (SetID, bool) {
	counts := make(map[SetID]int)
	for _, c := range hand {
		if set, err := c.Set(); err == nil {
			counts[set]++
		}
	}
	for _, id := range AllSets() {
		if counts[id] == SetSize {
			return id, true
		}
	}
	return SetID{}, false
}

func declareOwnSet(seat int, set SetID) BotAction {
	members, _ := SetMembers(set)
	assignment := make(map[Card]int, len(members))
	for _, m := range members {
		assignment[m] = seat
	}
	return BotAction{Kind: BotDeclare, Set: set, Assignment: assignment}
}

func missingMembers(hand []Card, set SetID) []Card {
	members, err := SetMembers(set)
	if err != nil {
		return nil
	}
	held := make(map[Card]bool, len(hand))
	for _, c := range hand {
		held[c] = true
	}
	out := make([]Card, 0, len(members))
	for _, m := range members {
		if !held[m] {
			out = append(out, m)
		}
	}
	return out
}

// botView builds the view for seat. Assumes lock is held.
func (g *LiteratureGame) botView(seat int) BotView {
	p := g.Players[seat]
	view := BotView{
		Seat:    seat,
		Team:    p.Team,
		Hand:    p.Cards(),
		Claimed: make(map[SetID]bool, len(g.Claimed)),
	}
	for id := range g.Claimed {
		view.Claimed[id] = true
	}
	for _, other := range g.Players {
		if other.Seat == seat {
			continue
		}
		sv := SeatView{Seat: other.Seat, Team: other.Team, CardCount: g.liveCards(other)}
		if other.Team == p.Team {
			view.Teammates = append(view.Teammates, sv)
		} else {
			view.Opponents = append(view.Opponents, sv)
		}
	}
	return view
}

// TakeBotTurn lets the current seat's policy act once. ok is false when the game is not live
// or the current seat is human. Turn order is left to the rules: a skip does not move the turn.
func (g *LiteratureGame) TakeBotTurn() (action BotAction, ok bool, err error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.takeBotTurn()
}

// takeBotTurn assumes lock is held.
func (g *LiteratureGame) takeBotTurn() (BotAction, bool, error) {
	if g.checkActive() != nil {
		return BotAction{}, false, nil
	}
	p := g.Players[g.CurrentTurn]
	if !p.IsBot() || p.Control.Policy == nil {
		return BotAction{}, false, nil
	}

	action := p.Control.Policy.Choose(g.botView(p.Seat))
	var err error
	switch action.Kind {
	case BotRequest:
		_, err = g.requestCard(p.Seat, action.Target, action.Card)
	case BotDeclare:
		_, err = g.declareSet(p.Seat, action.Set, action.Assignment)
	}
	if err != nil {
		log.WithFields(log.Fields{
			"game":   g.ID,
			"seat":   p.Seat,
			"action": action.Kind.String(),
		}).Warnf("bot action rejected: %v", err)
	}
	return action, true, err
}

// IsBotTurn reports whether the game is live and waiting on a bot.
func (g *LiteratureGame) IsBotTurn() bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.isBotTurn()
}

func (g *LiteratureGame) isBotTurn() bool {
	return g.checkActive() == nil && g.Players[g.CurrentTurn].IsBot()
}

// AdvanceBotTurns plays bot turns until a human is up, the game ends, or maxSteps actions
// have been taken. A bot that skips or makes an illegal move loses its turn to the next seat
// holding cards. It returns the number of bot actions taken.
func (g *LiteratureGame) AdvanceBotTurns(maxSteps int) int {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	steps := 0
	for steps < maxSteps && g.isBotTurn() {
		action, _, err := g.takeBotTurn()
		steps++
		if err != nil || action.Kind == BotSkip {
			g.passTurn()
		}
	}
	return steps
}

// passTurn gives the turn to the next seat, in seat order, holding live cards. Assumes lock is held.
func (g *LiteratureGame) passTurn() {
	if g.checkActive() != nil {
		return
	}
	from := g.CurrentTurn
	n := len(g.Players)
	for i := 1; i <= n; i++ {
		p := g.Players[(from+i)%n]
		if g.liveCards(p) > 0 {
			g.CurrentTurn = p.Seat
			break
		}
	}
	g.logAction(LogEntry{
		Type:      ActionTurnPass,
		Requester: from,
		Target:    g.CurrentTurn,
	})
	g.broadcastPlayerTurn()
}
