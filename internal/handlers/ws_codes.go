// internal/handlers/ws_codes.go
package handlers

// Subprotocol is the WebSocket subprotocol clients must offer.
const Subprotocol = "literature"

// Custom WebSocket close codes used by the game handler.
const (
	BadSubprotocolError   = 3000 // Client connected without the literature subprotocol.
	InvalidAuthTokenError = 3001 // Session could not be established.
	InvalidGameIDError    = 3003 // Game in the URL does not exist.
	GameClosedError       = 3004 // Game was torn down while the client was connected.
)
