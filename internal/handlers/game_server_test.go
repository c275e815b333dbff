// internal/handlers/game_server_test.go
package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/literature/internal/game"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietServer() *GameServer {
	logger, _ := test.NewNullLogger()
	gs := NewGameServer(logger)
	gs.Rules.BotDelayMs = 0
	gs.Retention = 0
	return gs
}

func TestCreateGameRejectsBadInput(t *testing.T) {
	gs := quietServer()
	_, err := gs.CreateGame(5, []int{0}, nil)
	assert.ErrorIs(t, err, game.ErrInvalidPlayerCount)

	_, err = gs.CreateGame(4, []int{0}, map[string]interface{}{"teamAssignment": "random"})
	assert.ErrorIs(t, err, ErrInvalidRules)

	_, err = gs.CreateGame(4, []int{7}, nil)
	assert.ErrorIs(t, err, game.ErrInvalidPlayer)
	assert.Empty(t, gs.GameStore.ListGames())
}

func TestCreateGameWaitsForHuman(t *testing.T) {
	gs := quietServer()
	g, err := gs.CreateGame(6, []int{0}, nil)
	require.NoError(t, err)
	defer gs.CloseGame(g.ID)

	snap := g.Snapshot(0)
	assert.True(t, snap.Started)
	assert.Equal(t, 0, snap.CurrentTurn)
	assert.Len(t, snap.Hand, game.CardsPerPlayer(6))
	assert.False(t, g.IsBotTurn())

	userID := uuid.New()
	seat, err := gs.JoinGame(g.ID, userID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, seat)
	again, err := gs.JoinGame(g.ID, userID, "")
	require.NoError(t, err)
	assert.Equal(t, 0, again)
	_, err = gs.JoinGame(g.ID, uuid.New(), "bob")
	assert.ErrorIs(t, err, game.ErrSeatsFull)
	_, err = gs.JoinGame(uuid.New(), userID, "")
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestBotsPauseAfterMaxRun(t *testing.T) {
	gs := quietServer()
	gs.MaxBotRun = 12
	g, err := gs.CreateGame(4, []int{}, nil)
	require.NoError(t, err)
	defer gs.CloseGame(g.ID)

	tbl := gs.table(g.ID)
	require.NotNil(t, tbl)
	require.Eventually(t, func() bool {
		if g.Snapshot(-1).GameOver {
			return true
		}
		tbl.mu.Lock()
		defer tbl.mu.Unlock()
		return tbl.botRun >= gs.MaxBotRun && tbl.botTimer == nil
	}, 5*time.Second, 10*time.Millisecond)

	if g.Snapshot(-1).GameOver {
		return
	}

	// Paused tables stay paused until something resets the run.
	logLen := g.Snapshot(-1).LogLength
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, logLen, g.Snapshot(-1).LogLength)

	// next_turn resumes them.
	conn := NewConnection(uuid.New(), "watcher", func() {}, gs.logger)
	gs.handleMessage(g, conn, gameMessage{Type: "next_turn"})
	require.Eventually(t, func() bool {
		snap := g.Snapshot(-1)
		return snap.GameOver || snap.LogLength > logLen+1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestAdvanceBotsResetsRun(t *testing.T) {
	gs := quietServer()
	g, err := gs.CreateGame(4, []int{}, map[string]interface{}{"botDelayMs": 60000})
	require.NoError(t, err)
	defer gs.CloseGame(g.ID)

	tbl := gs.table(g.ID)
	require.NotNil(t, tbl)
	tbl.mu.Lock()
	tbl.botRun = gs.MaxBotRun
	tbl.mu.Unlock()

	logLen := g.Snapshot(-1).LogLength
	assert.Equal(t, 1, gs.AdvanceBots(g))
	assert.Equal(t, logLen+1, g.Snapshot(-1).LogLength)

	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	assert.Equal(t, 1, tbl.botRun)
	if !g.IsBotTurn() {
		return
	}
	assert.NotNil(t, tbl.botTimer, "bots are scheduled again")
}

func TestAdvanceBotsStopsAtHuman(t *testing.T) {
	gs := quietServer()
	g, err := gs.CreateGame(4, []int{0}, map[string]interface{}{"botDelayMs": 60000})
	require.NoError(t, err)
	defer gs.CloseGame(g.ID)
	assert.Equal(t, 0, gs.AdvanceBots(g), "seat 0 is human and up first")
}

func TestCloseGameDropsConnections(t *testing.T) {
	gs := quietServer()
	g, err := gs.CreateGame(4, []int{0, 1, 2, 3}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	conn := NewConnection(uuid.New(), "guest", cancel, gs.logger)
	require.True(t, gs.attach(g.ID, conn))
	assert.Equal(t, 1, gs.Connections(g.ID))

	gs.CloseGame(g.ID)
	assert.Error(t, ctx.Err(), "connection context is cancelled")
	_, ok := gs.GameStore.GetGame(g.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, gs.Connections(g.ID))
	assert.False(t, gs.attach(g.ID, conn))
	gs.CloseGame(g.ID)
}

func TestGameOverSchedulesClose(t *testing.T) {
	gs := quietServer()
	gs.Retention = 10 * time.Millisecond
	g, err := gs.CreateGame(4, []int{0, 1, 2, 3}, nil)
	require.NoError(t, err)

	// Force the end through the hook the engine calls.
	g.OnGameEnd(g.ID, 0, [2]int{5, 3})
	assert.Eventually(t, func() bool {
		_, ok := gs.GameStore.GetGame(g.ID)
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestConnectionWriteError(t *testing.T) {
	logger, hook := test.NewNullLogger()
	conn := NewConnection(uuid.New(), "guest", func() {}, logger)
	assert.Equal(t, -1, conn.Seat())

	conn.WriteError(game.ErrNotYourTurn)
	msg := (<-conn.OutChan).(errorMessage)
	assert.Equal(t, "not_your_turn", msg.Code)
	assert.Equal(t, "It's not your turn!", msg.Message)

	conn.WriteError(assert.AnError)
	msg = (<-conn.OutChan).(errorMessage)
	assert.Equal(t, "invalid_message", msg.Code)

	for i := 0; i < cap(conn.OutChan)+1; i++ {
		conn.Write(i)
	}
	assert.Len(t, conn.OutChan, cap(conn.OutChan))
	require.NotEmpty(t, hook.AllEntries())
	assert.Contains(t, hook.LastEntry().Message, "dropped")
}
