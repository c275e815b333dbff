// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/literature/internal/cache"
	log "github.com/sirupsen/logrus"
)

// SeatResult is one row of game_results.
type SeatResult struct {
	Seat   int
	UserID uuid.UUID // uuid.Nil for bots and unclaimed seats
	Team   int
	IsBot  bool
}

// UpsertInitialGameState stores the dealt hands in games.initial_game_state.
func UpsertInitialGameState(gameID uuid.UUID, initialData map[string]interface{}) {
	if !Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	dataBytes, err := json.Marshal(initialData)
	if err != nil {
		log.Errorf("failed to marshal initial game state for game %v: %v", gameID, err)
		return
	}
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO games (id, status, player_count, initial_game_state, start_time)
			VALUES ($1, 'in_progress', $2, $3, NOW())
			ON CONFLICT (id)
			DO UPDATE SET initial_game_state = EXCLUDED.initial_game_state, status = 'in_progress'
		`
		_, e := tx.Exec(ctx, q, gameID, initialData["players"], dataBytes)
		return e
	})
	if err != nil {
		log.Errorf("failed to store initial game state for game %v: %v", gameID, err)
	}
}

// RecordGameResult marks a game completed and writes one result row per seat.
// winningTeam is -1 for a tie, in which case nobody is recorded as a winner.
func RecordGameResult(ctx context.Context, gameID uuid.UUID, teamScores [2]int, winningTeam int, seats []SeatResult) error {
	if !Enabled() {
		return ErrNoDatabase
	}
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO games (id, status, player_count, team_scores, winning_team, end_time)
			VALUES ($1, 'completed', $2, $3, $4, NOW())
			ON CONFLICT (id) DO UPDATE
			SET status = 'completed', team_scores = $3, winning_team = $4, end_time = NOW()
		`
		if _, e := tx.Exec(ctx, upsertGame, gameID, len(seats), teamScores[:], winningTeam); e != nil {
			return e
		}

		q := `
			INSERT INTO game_results (game_id, seat, user_id, team, is_bot, did_win)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (game_id, seat)
			DO UPDATE SET user_id = $3, team = $4, is_bot = $5, did_win = $6
		`
		for _, s := range seats {
			var userID *uuid.UUID
			if s.UserID != uuid.Nil {
				id := s.UserID
				userID = &id
			}
			if _, e := tx.Exec(ctx, q, gameID, s.Seat, userID, s.Team, s.IsBot, s.Team == winningTeam); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx upsert game or results: %w", err)
	}
	return nil
}

// InsertGameActions writes a batch of historian records in one transaction.
// A GAME_OVER record also closes the game row.
func InsertGameActions(ctx context.Context, records []cache.GameActionRecord) error {
	if !Enabled() {
		return ErrNoDatabase
	}
	if len(records) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertGameActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("action %d of game %s: %w", rec.ActionIndex, rec.GameID, err)
			}
		}
		return nil
	})
}

func insertGameActionTx(ctx context.Context, tx pgx.Tx, rec cache.GameActionRecord) error {
	upsertGameQ := `
		INSERT INTO games (id, status, start_time)
		VALUES ($1, 'in_progress', NOW())
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertGameQ, rec.GameID); err != nil {
		return err
	}

	jsonPayload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	var actor *uuid.UUID
	if rec.ActorUserID != uuid.Nil {
		id := rec.ActorUserID
		actor = &id
	}
	actionInsertQ := `
		INSERT INTO game_actions (
			game_id, action_index, actor_seat, actor_user_id, action_type, action_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (game_id, action_index) DO NOTHING
	`
	_, err = tx.Exec(ctx, actionInsertQ,
		rec.GameID, rec.ActionIndex, rec.ActorSeat, actor, rec.ActionType, jsonPayload,
		time.UnixMilli(rec.Timestamp),
	)
	if err != nil {
		return err
	}

	if rec.ActionType == "GAME_OVER" {
		finalizeQ := `
			UPDATE games
			SET status = 'completed', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		if _, err = tx.Exec(ctx, finalizeQ, rec.GameID); err != nil {
			return err
		}
	}
	return nil
}

// MarkGameAbandoned flags a game that stopped producing actions while still in progress.
func MarkGameAbandoned(ctx context.Context, gameID uuid.UUID) error {
	if !Enabled() {
		return ErrNoDatabase
	}
	q := `
		UPDATE games
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, gameID)
		return e
	})
}
