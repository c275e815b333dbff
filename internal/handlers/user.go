// internal/handlers/user.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jason-s-yu/literature/internal/auth"
	"github.com/jason-s-yu/literature/internal/database"
	"github.com/jason-s-yu/literature/internal/models"
	"github.com/sirupsen/logrus"
)

const guestName = "Guest"

// EnsureUser returns the caller's identity. A caller without a valid token gets a new
// ephemeral user and a session cookie. Without a database the guest only lives in the token.
// Must run before the response is written or upgraded.
func EnsureUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, error) {
	if token := tokenFromRequest(r); token != "" {
		if userID, name, err := auth.AuthenticateJWT(token); err == nil {
			if name == "" {
				name = guestName
			}
			return userID, name, nil
		}
	}

	guest := models.User{
		Username:    guestName,
		IsEphemeral: true,
	}
	if database.Enabled() {
		if err := database.CreateUser(context.Background(), &guest); err != nil {
			return uuid.Nil, "", fmt.Errorf("failed to create ephemeral user: %w", err)
		}
	} else {
		id, err := uuid.NewRandom()
		if err != nil {
			return uuid.Nil, "", fmt.Errorf("failed to generate guest id: %w", err)
		}
		guest.ID = id
	}

	token, err := auth.CreateJWT(guest.ID, guest.Username)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to create ephemeral JWT: %w", err)
	}
	setSessionCookie(w, token)
	return guest.ID, guest.Username, nil
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		MaxAge:   int(auth.TokenTTL().Seconds()),
	})
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// CreateUserHandler registers an account. POST /user/create
func CreateUserHandler(logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
			return
		}
		if !database.Enabled() {
			writeError(w, http.StatusServiceUnavailable, "no_database", "accounts are unavailable")
			return
		}
		var req createUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_payload", "invalid payload")
			return
		}
		if req.Email == "" || req.Password == "" || req.Username == "" {
			writeError(w, http.StatusBadRequest, "invalid_payload", "email, password and username are required")
			return
		}

		user := models.User{
			Email:    req.Email,
			Password: req.Password,
			Username: req.Username,
		}
		if err := database.CreateUser(r.Context(), &user); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				writeError(w, http.StatusConflict, "email_taken", "email already exists")
				return
			}
			logger.Errorf("error creating user: %v", err)
			writeError(w, http.StatusInternalServerError, "internal", "error creating user")
			return
		}
		writeJSON(w, http.StatusCreated, user)
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// LoginHandler checks credentials and returns a session token, also set as a cookie.
// POST /user/login
//
// Request payload:
//
//	{
//	  "email": "someone@example.com",
//	  "password": "password"
//	}
func LoginHandler(logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
			return
		}
		if !database.Enabled() {
			writeError(w, http.StatusServiceUnavailable, "no_database", "accounts are unavailable")
			return
		}
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_payload", "invalid request payload")
			return
		}

		user, token, err := database.AuthenticateUser(r.Context(), req.Email, req.Password)
		if err != nil {
			if !errors.Is(err, database.ErrInvalidCredentials) {
				logger.Errorf("failed to authenticate user: %v", err)
			}
			writeError(w, http.StatusForbidden, "authentication_failed", "authentication failed")
			return
		}
		setSessionCookie(w, token)
		writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
	}
}

// MeHandler reports who the session belongs to, creating a guest if needed. GET /user/me
func MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, name, err := EnsureUser(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": userID, "username": name})
}
