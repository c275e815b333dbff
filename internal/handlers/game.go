// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/literature/internal/auth"
	"github.com/sirupsen/logrus"
)

type createGameRequest struct {
	PlayerCount int                    `json:"player_count"`
	HumanSeats  *[]int                 `json:"human_seats,omitempty"`
	HouseRules  map[string]interface{} `json:"house_rules,omitempty"`
}

type createGameResponse struct {
	GameID uuid.UUID `json:"game_id"`
	Seat   int       `json:"seat"`
}

// CreateGameHandler deals a new table. POST /game/create
//
// Request payload:
//
//	{
//	  "player_count": 6,
//	  "human_seats": [0, 2],
//	  "house_rules": {"botDelayMs": 500}
//	}
//
// human_seats defaults to [0]. The caller takes the first human seat, if any.
func CreateGameHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
			return
		}
		req := createGameRequest{PlayerCount: 6}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid_payload", "invalid payload")
			return
		}
		humanSeats := []int{0}
		if req.HumanSeats != nil {
			humanSeats = *req.HumanSeats
		}

		userID, name, err := EnsureUser(w, r)
		if err != nil {
			logger.Errorf("failed to establish session: %v", err)
			writeError(w, http.StatusInternalServerError, "internal", "could not create session")
			return
		}

		g, err := gs.CreateGame(req.PlayerCount, humanSeats, req.HouseRules)
		if errors.Is(err, ErrInvalidRules) {
			writeError(w, http.StatusBadRequest, "invalid_rules", err.Error())
			return
		}
		if err != nil {
			writeRuleError(w, err)
			return
		}
		seat := -1
		if len(humanSeats) > 0 {
			if seat, err = gs.JoinGame(g.ID, userID, name); err != nil {
				logger.Warnf("creator could not join game %s: %v", g.ID, err)
				seat = -1
			}
		}
		writeJSON(w, http.StatusCreated, createGameResponse{GameID: g.ID, Seat: seat})
	}
}

// GameStateHandler returns the table as seen by the caller. GET /game/state/{id}
// Callers without a seat get a spectator view.
func GameStateHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, err := uuid.Parse(strings.Trim(strings.TrimPrefix(r.URL.Path, "/game/state/"), "/"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_game_id", "invalid game id")
			return
		}
		g, ok := gs.GameStore.GetGame(gameID)
		if !ok {
			writeError(w, http.StatusNotFound, "game_not_found", ErrGameNotFound.Error())
			return
		}
		seat := -1
		if token := tokenFromRequest(r); token != "" {
			if userID, _, err := auth.AuthenticateJWT(token); err == nil {
				seat = g.SeatOf(userID)
			}
		}
		writeJSON(w, http.StatusOK, g.Snapshot(seat))
	}
}

// ListGamesHandler lists live game ids. GET /game/list
func ListGamesHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"games": gs.GameStore.ListGames()})
	}
}
