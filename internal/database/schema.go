package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id           UUID PRIMARY KEY,
		email        TEXT UNIQUE,
		password     TEXT NOT NULL DEFAULT '',
		username     TEXT NOT NULL,
		is_ephemeral BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS games (
		id                 UUID PRIMARY KEY,
		status             TEXT NOT NULL DEFAULT 'in_progress',
		player_count       INT,
		initial_game_state JSONB,
		team_scores        INT[],
		winning_team       INT,
		start_time         TIMESTAMPTZ,
		end_time           TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS game_results (
		game_id UUID NOT NULL REFERENCES games (id),
		seat    INT NOT NULL,
		user_id UUID,
		team    INT NOT NULL,
		is_bot  BOOLEAN NOT NULL,
		did_win BOOLEAN NOT NULL,
		PRIMARY KEY (game_id, seat)
	)`,
	`CREATE TABLE IF NOT EXISTS game_actions (
		game_id        UUID NOT NULL,
		action_index   INT NOT NULL,
		actor_seat     INT NOT NULL,
		actor_user_id  UUID,
		action_type    TEXT NOT NULL,
		action_payload JSONB,
		created_at     TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (game_id, action_index)
	)`,
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}
