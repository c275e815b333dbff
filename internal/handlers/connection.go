// internal/handlers/connection.go
package handlers

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/literature/internal/game"
	"github.com/sirupsen/logrus"
)

// Connection is one client socket attached to a game. Messages are queued on OutChan and
// written by writePump so each client sees them in order.
type Connection struct {
	UserID  uuid.UUID
	Name    string
	OutChan chan interface{}
	Cancel  context.CancelFunc

	seat   atomic.Int64
	logger *logrus.Logger
}

func NewConnection(userID uuid.UUID, name string, cancel context.CancelFunc, logger *logrus.Logger) *Connection {
	c := &Connection{
		UserID:  userID,
		Name:    name,
		OutChan: make(chan interface{}, 64),
		Cancel:  cancel,
		logger:  logger,
	}
	c.seat.Store(-1)
	return c
}

// Seat is the seat this client plays, or -1 for a spectator.
func (c *Connection) Seat() int {
	return int(c.seat.Load())
}

func (c *Connection) SetSeat(seat int) {
	c.seat.Store(int64(seat))
}

// Write queues a message without blocking. A full queue drops the message.
func (c *Connection) Write(msg interface{}) {
	select {
	case c.OutChan <- msg:
	default:
		c.logger.Warnf("OutChan for user %s full; dropped message", c.UserID)
	}
}

// WriteError sends a rule or protocol error to this client only.
func (c *Connection) WriteError(err error) {
	code, message := game.ErrorCode(err), game.UserMessage(err)
	if code == "internal" {
		code, message = "invalid_message", err.Error()
	}
	c.Write(errorMessage{Type: "error", Code: code, Message: message})
}

type errorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type stateMessage struct {
	Type  string             `json:"type"`
	State game.StateSnapshot `json:"state"`
}

func newStateMessage(snap game.StateSnapshot) stateMessage {
	return stateMessage{Type: "game_state_update", State: snap}
}

// writePump drains OutChan onto the socket and keeps the connection alive with pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *Connection, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-conn.OutChan:
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("Failed to marshal outgoing msg for user %v: %v", conn.UserID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Failed to write to websocket for user %v: %v", conn.UserID, err)
				conn.Cancel()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("Failed to ping user %v: %v. Assuming disconnect.", conn.UserID, err)
				conn.Cancel()
				return
			}
		}
	}
}
