// internal/handlers/utils.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jason-s-yu/literature/internal/auth"
	"github.com/jason-s-yu/literature/internal/game"
)

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// tokenFromRequest prefers the session cookie and falls back to a Bearer header.
func tokenFromRequest(r *http.Request) string {
	if token := extractCookieToken(r.Header.Get("Cookie"), auth.CookieName); token != "" {
		return token
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes {"code","message"} with the given status.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}

// writeRuleError maps a game error onto a 400 response.
func writeRuleError(w http.ResponseWriter, err error) {
	code, message := game.ErrorCode(err), game.UserMessage(err)
	if code == "internal" {
		writeError(w, http.StatusInternalServerError, code, message)
		return
	}
	writeError(w, http.StatusBadRequest, code, message)
}
