// internal/handlers/session.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dareloop/dareloop/internal/content"
	"github.com/dareloop/dareloop/internal/game"
	"github.com/dareloop/dareloop/internal/models"
	"github.com/dareloop/dareloop/internal/standings"
)

type createSessionRequest struct {
	Pack    string   `json:"pack"`
	Mode    string   `json:"mode"`
	Quota   int      `json:"quota"`
	Players []string `json:"players"`
}

type createSessionResponse struct {
	ID       uuid.UUID       `json:"id"`
	Snapshot models.Snapshot `json:"snapshot"`
}

// CreateSessionHandler starts a new session from a pack, mode, quota and
// roster. POST /session/create
func CreateSessionHandler(s *SessionServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		sess, err := s.CreateSession(r.Context(), req.Pack, req.Mode, req.Quota, req.Players)
		if err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, createSessionResponse{ID: sess.ID, Snapshot: sess.Snapshot()})
	}
}

// StateHandler returns the current snapshot. GET /session/state/{id}
func StateHandler(s *SessionServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.lookupSession(w, r, "/session/state/")
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

type outcomeRequest struct {
	Outcome string `json:"outcome"`
}

// OutcomeHandler records the current player's outcome and advances the turn.
// POST /session/outcome/{id}
func OutcomeHandler(s *SessionServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		sess, ok := s.lookupSession(w, r, "/session/outcome/")
		if !ok {
			return
		}
		var req outcomeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		outcome, err := models.ParseOutcome(req.Outcome)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := sess.ReportOutcome(outcome); err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

type addPlayerRequest struct {
	Name string `json:"name"`
}

type addPlayerResponse struct {
	Index    int             `json:"index"`
	Snapshot models.Snapshot `json:"snapshot"`
}

// AddPlayerHandler appends a player to a running session.
// POST /session/players/{id}
func AddPlayerHandler(s *SessionServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		sess, ok := s.lookupSession(w, r, "/session/players/")
		if !ok {
			return
		}
		var req addPlayerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		idx, err := sess.AddPlayer(r.Context(), req.Name)
		if err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, addPlayerResponse{Index: idx, Snapshot: sess.Snapshot()})
	}
}

type removePlayerRequest struct {
	Index int `json:"index"`
}

// RemovePlayerHandler removes the player at a roster index.
// POST /session/players/{id}/remove
func RemovePlayerHandler(s *SessionServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		sess, ok := s.lookupSession(w, r, "/session/players/")
		if !ok {
			return
		}
		var req removePlayerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := sess.RemovePlayer(req.Index); err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

// PlayersHandler routes roster edits sharing the /session/players/ prefix:
// POST /session/players/{id} adds, POST /session/players/{id}/remove removes.
func PlayersHandler(s *SessionServer) http.HandlerFunc {
	add := AddPlayerHandler(s)
	remove := RemovePlayerHandler(s)
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/remove") {
			remove(w, r)
			return
		}
		add(w, r)
	}
}

// PendingHandler lists deferred dares in insertion order.
// GET /session/pending/{id}
func PendingHandler(s *SessionServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.lookupSession(w, r, "/session/pending/")
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"pending": sess.PendingEntries(),
		})
	}
}

// StandingsHandler computes final standings once the game is over, then
// discards the session: results are consumed exactly once, there is no
// resume. GET /session/standings/{id}
func StandingsHandler(s *SessionServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.lookupSession(w, r, "/session/standings/")
		if !ok {
			return
		}
		if !sess.Snapshot().GameOver {
			writeError(w, http.StatusConflict, "session is still in progress")
			return
		}
		result, err := standings.Compute(sess.PlayerNames(), sess.CompletedCounts(), s.Commentary, sess.PackID, nil)
		if err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		s.Store.Delete(sess.ID)
		s.dropQueue(sess.ID)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"standings": result,
			"pending":   sess.PendingEntries(),
		})
	}
}

// PacksHandler lists the packs the catalog carries. GET /packs
func PacksHandler(s *SessionServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"packs": s.Content.PackIDs(),
		})
	}
}

// lookupSession parses the session ID from the URL path and fetches it from
// the store, writing the error response itself on failure.
func (s *SessionServer) lookupSession(w http.ResponseWriter, r *http.Request, prefix string) (*game.DareSession, bool) {
	id, err := parseSessionID(r.URL.Path, prefix)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	sess, exists := s.Store.Get(id)
	if !exists {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

// statusForError maps engine and content errors onto HTTP status codes.
// Roster-bound and state violations are recoverable conflicts; locked or
// unknown packs block session start.
func statusForError(err error) int {
	switch {
	case errors.Is(err, game.ErrEntitlement):
		return http.StatusForbidden
	case errors.Is(err, content.ErrUnknownPack):
		return http.StatusNotFound
	case errors.Is(err, game.ErrCapacity),
		errors.Is(err, game.ErrMinimumRoster),
		errors.Is(err, game.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, standings.ErrPrecondition):
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}
