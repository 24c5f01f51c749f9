// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the session event stream. These give
// clients more specific reasons for closure than the standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidSessionIDError = 3001 // Session ID in the WS URL was malformed or unknown.
	SessionOverError      = 3002 // Session already ended; nothing left to stream.
)
