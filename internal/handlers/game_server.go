// internal/handlers/game_server.go
package handlers

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/literature/internal/game"
	"github.com/sirupsen/logrus"
)

var (
	// ErrGameNotFound is returned for an unknown game id.
	ErrGameNotFound = errors.New("game not found")
	// ErrInvalidRules wraps a house rule override that could not be applied.
	ErrInvalidRules = errors.New("invalid house rules")
)

// GameServer owns the live games and the sockets attached to them. It schedules bot turns
// and pushes a fresh snapshot to every client after each change.
type GameServer struct {
	GameStore *game.GameStore
	Rules     game.HouseRules
	NewPolicy func() game.Policy

	// MaxBotRun caps consecutive bot actions without a human action in between.
	// All-bot tables stop there instead of spinning forever.
	MaxBotRun int
	// Retention is how long a finished game stays readable before it is closed.
	Retention time.Duration

	logger *logrus.Logger
	mu     sync.Mutex
	tables map[uuid.UUID]*table
}

type table struct {
	mu       sync.Mutex
	conns    map[*Connection]struct{}
	botTimer *time.Timer
	botRun   int
	closed   bool
}

func NewGameServer(logger *logrus.Logger) *GameServer {
	return &GameServer{
		GameStore: game.NewGameStore(),
		Rules:     game.DefaultHouseRules(),
		NewPolicy: func() game.Policy { return game.NewRandomPolicy(nil) },
		MaxBotRun: 200,
		Retention: 5 * time.Minute,
		logger:    logger,
		tables:    make(map[uuid.UUID]*table),
	}
}

// CreateGame seats bots everywhere except humanSeats, deals, and starts driving bot turns.
// rules overrides the server defaults key by key.
func (s *GameServer) CreateGame(playerCount int, humanSeats []int, rules map[string]interface{}) (*game.LiteratureGame, error) {
	hr, err := game.ParseRules(rules, s.Rules)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	players, err := game.NewTable(playerCount, humanSeats, s.NewPolicy)
	if err != nil {
		return nil, err
	}
	g, err := game.NewLiteratureGame(players, hr, nil)
	if err != nil {
		return nil, err
	}

	t := &table{conns: make(map[*Connection]struct{})}
	s.mu.Lock()
	s.tables[g.ID] = t
	s.mu.Unlock()

	// Both hooks run under g.Mu and must not call back into the game.
	g.BroadcastFn = func(ev game.GameEvent) {
		t.broadcast(ev)
	}
	g.OnGameEnd = func(id uuid.UUID, winningTeam int, scores [2]int) {
		t.stopBots()
		s.logger.WithFields(logrus.Fields{
			"game_id":      id,
			"winning_team": winningTeam,
			"scores":       scores,
		}).Info("game over")
		if s.Retention > 0 {
			time.AfterFunc(s.Retention, func() { s.CloseGame(id) })
		}
	}

	s.GameStore.AddGame(g)
	if err := g.Start(); err != nil {
		s.CloseGame(g.ID)
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"game_id":     g.ID,
		"players":     playerCount,
		"human_seats": humanSeats,
	}).Info("game created")

	s.scheduleBots(g)
	return g, nil
}

// JoinGame seats a user at the first free human seat, or returns the seat they already hold.
func (s *GameServer) JoinGame(gameID, userID uuid.UUID, name string) (int, error) {
	g, ok := s.GameStore.GetGame(gameID)
	if !ok {
		return -1, ErrGameNotFound
	}
	seat, err := g.ClaimSeat(userID, name)
	if err != nil {
		return -1, err
	}
	s.broadcastState(g)
	return seat, nil
}

// CloseGame stops bots, drops every socket and forgets the game.
func (s *GameServer) CloseGame(gameID uuid.UUID) {
	s.mu.Lock()
	t, ok := s.tables[gameID]
	delete(s.tables, gameID)
	s.mu.Unlock()
	g, found := s.GameStore.GetGame(gameID)
	s.GameStore.DeleteGame(gameID)
	if found {
		closePolicies(g)
	}
	if !ok {
		return
	}

	t.mu.Lock()
	t.closed = true
	if t.botTimer != nil {
		t.botTimer.Stop()
		t.botTimer = nil
	}
	conns := make([]*Connection, 0, len(t.conns))
	for c := range t.conns {
		conns = append(conns, c)
	}
	t.conns = map[*Connection]struct{}{}
	t.mu.Unlock()

	for _, c := range conns {
		c.Cancel()
	}
	s.logger.Infof("closed game %s", gameID)
}

// AdvanceBots resets the bot run, plays one bot action right away and re-arms the timer.
// This is how a client resumes a table whose bots paused at MaxBotRun.
func (s *GameServer) AdvanceBots(g *game.LiteratureGame) int {
	t := s.table(g.ID)
	if t == nil {
		return 0
	}
	t.mu.Lock()
	t.botRun = 0
	t.mu.Unlock()

	steps := g.AdvanceBotTurns(1)
	if steps > 0 {
		t.mu.Lock()
		t.botRun += steps
		t.mu.Unlock()
		s.broadcastState(g)
	}
	s.scheduleBots(g)
	return steps
}

// afterHumanAction resets the bot run and hands control to the scheduler.
func (s *GameServer) afterHumanAction(g *game.LiteratureGame) {
	if t := s.table(g.ID); t != nil {
		t.mu.Lock()
		t.botRun = 0
		t.mu.Unlock()
	}
	s.broadcastState(g)
	s.scheduleBots(g)
}

// scheduleBots arms a single timer that plays one bot action after the table's bot delay.
func (s *GameServer) scheduleBots(g *game.LiteratureGame) {
	t := s.table(g.ID)
	if t == nil || !g.IsBotTurn() {
		return
	}
	delay := time.Duration(g.HouseRules.BotDelayMs) * time.Millisecond

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.botTimer != nil {
		return
	}
	if t.botRun >= s.MaxBotRun {
		s.logger.Warnf("game %s: %d bot actions in a row, pausing bots", g.ID, t.botRun)
		return
	}
	t.botTimer = time.AfterFunc(delay, func() {
		t.mu.Lock()
		t.botTimer = nil
		closed := t.closed
		t.botRun++
		t.mu.Unlock()
		if closed {
			return
		}
		if g.AdvanceBotTurns(1) > 0 {
			s.broadcastState(g)
		}
		s.scheduleBots(g)
	})
}

// broadcastState sends every attached client a snapshot from its own seat.
// Must not be called while holding g.Mu.
func (s *GameServer) broadcastState(g *game.LiteratureGame) {
	t := s.table(g.ID)
	if t == nil {
		return
	}
	for _, c := range t.snapshotConns() {
		c.Write(newStateMessage(g.Snapshot(c.Seat())))
	}
}

// closePolicies releases bot policies that hold resources, such as Lua states.
func closePolicies(g *game.LiteratureGame) {
	for _, p := range g.Players {
		if c, ok := p.Control.Policy.(interface{ Close() }); ok {
			c.Close()
		}
	}
}

func (s *GameServer) table(id uuid.UUID) *table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[id]
}

func (s *GameServer) attach(gameID uuid.UUID, c *Connection) bool {
	t := s.table(gameID)
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.conns[c] = struct{}{}
	return true
}

// detach drops c from the table and reports whether the same user still has a socket attached.
func (s *GameServer) detach(gameID uuid.UUID, c *Connection) bool {
	t := s.table(gameID)
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.conns, c)
	return t.hasUserLocked(c.UserID)
}

// userAttached reports whether any socket of userID is attached to the game.
func (s *GameServer) userAttached(gameID, userID uuid.UUID) bool {
	t := s.table(gameID)
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasUserLocked(userID)
}

// Connections counts the sockets attached to a game.
func (s *GameServer) Connections(gameID uuid.UUID) int {
	t := s.table(gameID)
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

func (t *table) hasUserLocked(userID uuid.UUID) bool {
	for c := range t.conns {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

func (t *table) broadcast(msg interface{}) {
	for _, c := range t.snapshotConns() {
		c.Write(msg)
	}
}

func (t *table) snapshotConns() []*Connection {
	t.mu.Lock()
	defer t.mu.Unlock()
	conns := make([]*Connection, 0, len(t.conns))
	for c := range t.conns {
		conns = append(conns, c)
	}
	return conns
}

func (t *table) stopBots() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.botTimer != nil {
		t.botTimer.Stop()
		t.botTimer = nil
	}
}
