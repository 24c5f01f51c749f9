// internal/handlers/utils.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dareloop/dareloop/internal/models"
)

// parseSessionID extracts the session UUID from a path like
// {prefix}{session_id}[/...].
func parseSessionID(path, prefix string) (uuid.UUID, error) {
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.Split(rest, "/")
	if len(parts) < 1 || parts[0] == "" {
		return uuid.Nil, fmt.Errorf("missing session_id in path (%s{session_id})", prefix)
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session_id format")
	}
	return id, nil
}

// parseModeOrDefault maps the wire mode string onto a GameMode, defaulting to
// party mode when absent.
func parseModeOrDefault(mode string) (models.GameMode, error) {
	if mode == "" {
		return models.ModeParty, nil
	}
	return models.ParseGameMode(mode)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
