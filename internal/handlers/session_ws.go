// internal/handlers/session_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/dareloop/dareloop/internal/game"
	"github.com/dareloop/dareloop/internal/middleware"
	"github.com/dareloop/dareloop/internal/models"
)

// wsMessage is the structure for incoming WebSocket messages on the session
// stream. The stream is mostly one-way (engine events out), but a UI may
// report outcomes over it instead of the HTTP endpoint.
type wsMessage struct {
	Type    string `json:"type"`
	Outcome string `json:"outcome,omitempty"`
}

// SessionWSHandler upgrades the HTTP connection to a WebSocket subscribed to
// a session's event stream. The client receives a sync snapshot on connect
// and every engine event afterwards.
func SessionWSHandler(logger *logrus.Logger, s *SessionServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"dare"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "dare" {
			logger.Warnf("Client connected with invalid subprotocol: %s", c.Subprotocol())
			c.Close(websocket.StatusCode(BadSubprotocolError), "Client must use the 'dare' subprotocol.")
			return
		}

		id, err := parseSessionID(r.URL.Path, "/session/ws/")
		if err != nil {
			c.Close(websocket.StatusCode(InvalidSessionIDError), err.Error())
			return
		}
		sess, exists := s.Store.Get(id)
		if !exists {
			c.Close(websocket.StatusCode(InvalidSessionIDError), "session not found")
			return
		}
		if sess.Snapshot().GameOver {
			c.Close(websocket.StatusCode(SessionOverError), "session already ended")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		s.addSubscriber(id, c)
		defer s.removeSubscriber(id, c)

		// Sync the new subscriber before streaming live events.
		snap := sess.Snapshot()
		sendWsMessage(logger, c, game.SessionEvent{Type: game.EventSessionSync, Snapshot: &snap})

		readErr := readSessionMessages(r.Context(), c, sess, logger)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, readErr)
	}
}

// readSessionMessages reads client messages until the connection closes or
// the context is cancelled. Returns the terminating error, nil for a normal
// closure.
func readSessionMessages(ctx context.Context, c *websocket.Conn, sess *game.DareSession, logger *logrus.Logger) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway ||
				strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWsError(logger, c, "Invalid JSON format.")
			continue
		}

		switch msg.Type {
		case "report_outcome":
			outcome, err := models.ParseOutcome(msg.Outcome)
			if err != nil {
				sendWsError(logger, c, err.Error())
				continue
			}
			if err := sess.ReportOutcome(outcome); err != nil {
				sendWsError(logger, c, err.Error())
			}
			// The resulting event reaches this client through the broadcast.
		case "ping":
			sendWsMessage(logger, c, map[string]string{"type": "pong"})
		default:
			sendWsError(logger, c, "Unknown message type: "+msg.Type)
		}
	}
}

// sendWsMessage marshals a message and writes it with a timeout.
func sendWsMessage(logger *logrus.Logger, c *websocket.Conn, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Write(ctx, websocket.MessageText, data); err != nil {
		logger.Warnf("Failed to write WebSocket message: %v", err)
	}
}

// sendWsError sends a structured error message to the client.
func sendWsError(logger *logrus.Logger, c *websocket.Conn, errorMsg string) {
	sendWsMessage(logger, c, map[string]string{"type": "error", "message": errorMsg})
}
