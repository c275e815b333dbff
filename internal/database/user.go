package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/literature/internal/auth"
	"github.com/jason-s-yu/literature/internal/models"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// CreateUser inserts a user, hashing the password unless the user is ephemeral.
func CreateUser(ctx context.Context, user *models.User) error {
	if !Enabled() {
		return ErrNoDatabase
	}
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}

	if !user.IsEphemeral {
		hash, err := auth.HashPassword(user.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = hash
	}

	var email *string
	if user.Email != "" {
		email = &user.Email
	}
	q := `INSERT INTO users (id, email, password, username, is_ephemeral)
	      VALUES ($1, $2, $3, $4, $5)`

	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, user.ID, email, user.Password, user.Username, user.IsEphemeral)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	user.Password = ""
	return nil
}

func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if !Enabled() {
		return nil, ErrNoDatabase
	}
	var u models.User
	q := `SELECT id, COALESCE(email, ''), password, username, is_ephemeral FROM users WHERE email=$1`
	err := DB.QueryRow(ctx, q, email).Scan(&u.ID, &u.Email, &u.Password, &u.Username, &u.IsEphemeral)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if !Enabled() {
		return nil, ErrNoDatabase
	}
	var u models.User
	q := `SELECT id, COALESCE(email, ''), username, is_ephemeral FROM users WHERE id=$1`
	err := DB.QueryRow(ctx, q, id).Scan(&u.ID, &u.Email, &u.Username, &u.IsEphemeral)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// AuthenticateUser checks the password and returns the user with a fresh session token.
func AuthenticateUser(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := GetUserByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("user lookup: %w", err)
	}

	match, err := auth.VerifyPassword(password, user.Password)
	if err != nil || !match {
		return nil, "", ErrInvalidCredentials
	}
	user.Password = ""

	token, err := auth.CreateJWT(user.ID, user.Username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create jwt: %w", err)
	}
	return user, token, nil
}
