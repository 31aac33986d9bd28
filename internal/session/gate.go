package session

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrConflict is returned when a connection cannot be admitted or a session cannot be activated.
	ErrConflict = errors.New("session conflict")
	// ErrUnauthorized is returned when a connection acts on a session it does not own.
	ErrUnauthorized = errors.New("unauthorized")
)

// Gate admits connections and tracks the single active session of the process.
// All transitions share one lock.
type Gate struct {
	mu          sync.RWMutex
	connections map[string]string // user id -> connection id
	activeUser  string
}

func NewGate() *Gate {
	return &Gate{connections: make(map[string]string)}
}

// Admit registers connID for userID. It fails when another user's session is
// active or userID already has a connection.
func (g *Gate) Admit(connID, userID string) error {
	if connID == "" || userID == "" {
		return fmt.Errorf("%w: connection and user ids are required", ErrValidation)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.activeUser != "" && g.activeUser != userID {
		return fmt.Errorf("%w: another session is active", ErrConflict)
	}
	if _, ok := g.connections[userID]; ok {
		return fmt.Errorf("%w: user %s is already connected", ErrConflict, userID)
	}

	g.connections[userID] = connID
	g.check()
	return nil
}

// Activate marks the session of userID as the active one.
func (g *Gate) Activate(connID, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.connections[userID] != connID {
		return fmt.Errorf("%w: connection %s is not registered for %s", ErrUnauthorized, connID, userID)
	}
	if g.activeUser != "" && g.activeUser != userID {
		return fmt.Errorf("%w: another session is active", ErrConflict)
	}

	g.activeUser = userID
	g.check()
	return nil
}

// Release clears the active session if it belongs to userID.
func (g *Gate) Release(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.activeUser == userID {
		g.activeUser = ""
	}
}

// Disconnect removes the registration of connID and releases its session.
func (g *Gate) Disconnect(connID, userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.connections[userID] != connID {
		return
	}
	delete(g.connections, userID)
	if g.activeUser == userID {
		g.activeUser = ""
	}
	g.check()
}

func (g *Gate) IsUserConnected(userID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.connections[userID]
	return ok
}

// IsActive reports whether connID holds the active session.
func (g *Gate) IsActive(connID, userID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.activeUser == userID && g.connections[userID] == connID
}

// ActiveUser returns the user of the active session, if any.
func (g *Gate) ActiveUser() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.activeUser, g.activeUser != ""
}

func (g *Gate) Connections() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.connections)
}

// check must be called with the lock held.
func (g *Gate) check() {
	if g.activeUser == "" {
		return
	}
	if _, ok := g.connections[g.activeUser]; !ok {
		panic(fmt.Sprintf("session gate: active user %q has no registered connection", g.activeUser))
	}
}
