// internal/handlers/api_server.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dareloop/dareloop/internal/content"
	"github.com/dareloop/dareloop/internal/game"
	"github.com/dareloop/dareloop/internal/standings"
)

// SessionServer holds the live session store, the content collaborators, and
// the websocket subscribers per session. It is the single wiring point
// between the engine and the HTTP surface.
type SessionServer struct {
	Store        *game.SessionStore
	Content      *content.Catalog
	Entitlements content.Entitlements
	Commentary   standings.Table
	Logger       *logrus.Logger

	subMu       sync.Mutex
	subscribers map[uuid.UUID][]*websocket.Conn
	queues      map[uuid.UUID]*eventQueue
}

// eventQueue buffers a session's outbound events so a single drainer writes
// them to subscribers in emission order. Spawning a goroutine per event would
// let closely spaced events race each other onto the wire.
type eventQueue struct {
	mu       sync.Mutex
	items    [][]byte
	draining bool
}

// push appends data and reports whether the caller must start a drainer.
// At most one drainer runs per queue.
func (q *eventQueue) push(data []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, data)
	if q.draining {
		return false
	}
	q.draining = true
	return true
}

// pop returns the oldest buffered event, or nil when the queue is empty, in
// which case the drainer has already been marked stopped and must exit.
func (q *eventQueue) pop() []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		q.draining = false
		return nil
	}
	data := q.items[0]
	q.items = q.items[1:]
	return data
}

// NewSessionServer wires a server with the built-in catalog, the free packs
// unlocked, and the default commentary table.
func NewSessionServer(logger *logrus.Logger) *SessionServer {
	return &SessionServer{
		Store:        game.NewSessionStore(),
		Content:      content.NewCatalog(nil),
		Entitlements: content.NewStaticEntitlements(content.PackClassic, content.PackParty),
		Commentary:   standings.DefaultTable(),
		Logger:       logger,
		subscribers:  make(map[uuid.UUID][]*websocket.Conn),
		queues:       make(map[uuid.UUID]*eventQueue),
	}
}

// CreateSession builds and initializes a session, attaches the websocket
// broadcast, and registers it in the store.
func (s *SessionServer) CreateSession(ctx context.Context, pack string, mode string, quota int, players []string) (*game.DareSession, error) {
	gm, err := parseModeOrDefault(mode)
	if err != nil {
		return nil, err
	}
	sess, err := game.NewDareSession(pack, gm, quota, players, s.Content, s.Entitlements)
	if err != nil {
		return nil, err
	}
	sess.BroadcastFn = s.broadcastFuncFor(sess.ID)
	if err := sess.Initialize(ctx); err != nil {
		return nil, err
	}
	s.Store.Add(sess)
	s.Logger.WithFields(logrus.Fields{
		"session": sess.ID,
		"pack":    pack,
		"players": len(players),
		"quota":   quota,
	}).Info("Session created")
	return sess, nil
}

// broadcastFuncFor returns a function suitable for DareSession.BroadcastFn.
// It is called while the session lock is held, so it only marshals and
// enqueues; the per-session drainer delivers events in emission order.
func (s *SessionServer) broadcastFuncFor(sessionID uuid.UUID) func(ev game.SessionEvent) {
	return func(ev game.SessionEvent) {
		s.subMu.Lock()
		hasSubscribers := len(s.subscribers[sessionID]) > 0
		s.subMu.Unlock()
		if !hasSubscribers {
			return
		}

		data, err := json.Marshal(ev)
		if err != nil {
			s.Logger.Errorf("Failed to marshal event %s for session %s: %v", ev.Type, sessionID, err)
			return
		}

		q := s.queueFor(sessionID)
		if q.push(data) {
			go s.drainQueue(sessionID, q)
		}
	}
}

// queueFor returns the session's event queue, creating it on first use.
func (s *SessionServer) queueFor(sessionID uuid.UUID) *eventQueue {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	q, ok := s.queues[sessionID]
	if !ok {
		q = &eventQueue{}
		s.queues[sessionID] = q
	}
	return q
}

// dropQueue discards a finished session's event queue.
func (s *SessionServer) dropQueue(sessionID uuid.UUID) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	delete(s.queues, sessionID)
}

// drainQueue writes buffered events to the session's subscribers until the
// queue runs empty. Only one drainer runs per session, so subscribers see
// events in the order the engine emitted them.
func (s *SessionServer) drainQueue(sessionID uuid.UUID, q *eventQueue) {
	for {
		data := q.pop()
		if data == nil {
			return
		}
		s.subMu.Lock()
		conns := append([]*websocket.Conn(nil), s.subscribers[sessionID]...)
		s.subMu.Unlock()
		for _, c := range conns {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := c.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.Logger.Warnf("Failed to write event to subscriber of session %s: %v", sessionID, err)
			}
		}
	}
}

// addSubscriber registers a websocket connection for a session's events.
func (s *SessionServer) addSubscriber(sessionID uuid.UUID, c *websocket.Conn) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers[sessionID] = append(s.subscribers[sessionID], c)
}

// removeSubscriber drops a websocket connection, pruning the session entry
// when the last subscriber leaves.
func (s *SessionServer) removeSubscriber(sessionID uuid.UUID, c *websocket.Conn) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	conns := s.subscribers[sessionID]
	for i, other := range conns {
		if other == c {
			s.subscribers[sessionID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(s.subscribers[sessionID]) == 0 {
		delete(s.subscribers, sessionID)
	}
}
