package models

import "github.com/google/uuid"

// User is an account that can claim seats. Ephemeral users are created on the fly
// for guests and never have a password.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email,omitempty"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`

	IsEphemeral bool `json:"is_ephemeral"`
}
