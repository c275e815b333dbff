// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/literature/internal/game"
	"github.com/jason-s-yu/literature/internal/middleware"
	"github.com/sirupsen/logrus"
)

// gameMessage is any client message. Fields are used according to Type.
type gameMessage struct {
	Type       string            `json:"type"`
	Name       string            `json:"name,omitempty"`
	Target     *int              `json:"target,omitempty"`
	Card       *game.Card        `json:"card,omitempty"`
	Set        *game.SetID       `json:"set,omitempty"`
	Assignment map[game.Card]int `json:"assignment,omitempty"`
}

// GameWSHandler serves /game/ws/{game_id}. A client that already holds a seat is reattached
// to it; others watch until they send join_game.
func GameWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameIDStr := strings.Trim(strings.TrimPrefix(r.URL.Path, "/game/ws/"), "/")
		gameID, err := uuid.Parse(gameIDStr)
		if err != nil {
			http.Error(w, "invalid game_id", http.StatusBadRequest)
			return
		}
		g, ok := gs.GameStore.GetGame(gameID)
		if !ok {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		// The session cookie has to be set before the upgrade response goes out.
		userID, name, err := EnsureUser(w, r)
		if err != nil {
			logger.Warnf("failed to establish session: %v", err)
			http.Error(w, "could not create session", http.StatusInternalServerError)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the literature subprotocol")
			return
		}
		defer c.CloseNow()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := NewConnection(userID, name, cancel, logger)
		if !gs.attach(gameID, conn) {
			c.Close(GameClosedError, "game closed")
			return
		}
		defer gs.detach(gameID, conn)
		if g.SeatOf(userID) >= 0 {
			seat, _ := g.ClaimSeat(userID, "")
			conn.SetSeat(seat)
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, gameID.String())

		go writePump(ctx, c, conn, logger)
		conn.Write(newStateMessage(g.Snapshot(conn.Seat())))
		if conn.Seat() >= 0 {
			gs.broadcastState(g)
		}

		err = readGameMessages(ctx, c, gs, g, conn)

		// The seat stays connected while the same user has another socket open.
		if !gs.detach(gameID, conn) {
			g.HandleDisconnect(userID)
			if gs.userAttached(gameID, userID) {
				_, _ = g.ClaimSeat(userID, "")
			}
		}
		gs.broadcastState(g)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, gameID.String(), err)

		if gs.table(gameID) == nil {
			c.Close(GameClosedError, "game closed")
			return
		}
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readGameMessages reads client messages until the socket closes or ctx ends.
// A normal close returns nil.
func readGameMessages(ctx context.Context, c *websocket.Conn, gs *GameServer, g *game.LiteratureGame, conn *Connection) error {
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		var msg gameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.WriteError(err)
			continue
		}
		gs.handleMessage(g, conn, msg)
	}
}

// handleMessage applies one client message. Rule errors go back to the sender only;
// successful actions broadcast a fresh snapshot to the table.
func (s *GameServer) handleMessage(g *game.LiteratureGame, conn *Connection, msg gameMessage) {
	switch msg.Type {
	case "ping":
		conn.Write(map[string]string{"type": "pong"})

	case "get_game_state":
		conn.Write(newStateMessage(g.Snapshot(conn.Seat())))

	case "join_game":
		name := msg.Name
		if name == "" {
			name = conn.Name
		}
		seat, err := g.ClaimSeat(conn.UserID, name)
		if err != nil {
			conn.WriteError(err)
			return
		}
		conn.SetSeat(seat)
		s.broadcastState(g)
		s.scheduleBots(g)

	case "request_card":
		if conn.Seat() < 0 {
			conn.WriteError(game.ErrInvalidPlayer)
			return
		}
		if msg.Target == nil || msg.Card == nil {
			conn.Write(errorMessage{Type: "error", Code: "invalid_message", Message: "request_card needs target and card"})
			return
		}
		if _, err := g.RequestCard(conn.Seat(), *msg.Target, *msg.Card); err != nil {
			conn.WriteError(err)
			return
		}
		s.afterHumanAction(g)

	case "declare_set":
		if conn.Seat() < 0 {
			conn.WriteError(game.ErrInvalidPlayer)
			return
		}
		if msg.Set == nil {
			conn.Write(errorMessage{Type: "error", Code: "invalid_message", Message: "declare_set needs set"})
			return
		}
		if _, err := g.DeclareSet(conn.Seat(), *msg.Set, msg.Assignment); err != nil {
			conn.WriteError(err)
			return
		}
		s.afterHumanAction(g)

	case "next_turn":
		s.AdvanceBots(g)

	default:
		conn.Write(errorMessage{Type: "error", Code: "unknown_message", Message: "unknown message type " + msg.Type})
	}
}
