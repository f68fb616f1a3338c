// Package registry holds every live Room in memory behind a single
// mutex-guarded map, the same pattern the multiplayer handler used for
// its package-level rooms map, generalized into an injectable component
// with secondary lookup indexes.
package registry

import (
	"sync"

	"quizrealm/apperrors"
	"quizrealm/domain"
)

const maxPINGenerationAttempts = 50

// Registry is the process-wide directory of live rooms, addressable by
// PIN, host token, player/spectator token, or connection ID.
type Registry struct {
	mu sync.RWMutex

	byPIN          map[domain.PIN]*domain.Room
	pinByHostToken map[domain.Token]domain.PIN
	pinByToken     map[domain.Token]domain.PIN
	pinByConn      map[string]domain.PIN
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		byPIN:          make(map[domain.PIN]*domain.Room),
		pinByHostToken: make(map[domain.Token]domain.PIN),
		pinByToken:     make(map[domain.Token]domain.PIN),
		pinByConn:      make(map[string]domain.PIN),
	}
}

// GenerateUniquePIN mints a PIN that is not already present in the
// registry, retrying on collision up to maxPINGenerationAttempts times.
func (reg *Registry) GenerateUniquePIN() (domain.PIN, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	for attempt := 0; attempt < maxPINGenerationAttempts; attempt++ {
		pin, err := domain.NewPIN()
		if err != nil {
			return "", err
		}
		if _, taken := reg.byPIN[pin]; !taken {
			return pin, nil
		}
	}
	return "", apperrors.Internal(nil, "could not generate a unique PIN after %d attempts", maxPINGenerationAttempts)
}

// Save inserts or updates a room and refreshes every secondary index
// derived from its current membership.
func (reg *Registry) Save(room *domain.Room) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.byPIN[room.PIN] = room
	reg.reindexLocked(room)
}

func (reg *Registry) reindexLocked(room *domain.Room) {
	reg.pruneStaleEntriesLocked(room)

	reg.pinByHostToken[room.HostToken] = room.PIN
	reg.pinByConn[room.HostConnectionID] = room.PIN

	for _, p := range room.GetPlayers() {
		reg.pinByToken[p.Token] = room.PIN
		reg.pinByConn[p.ConnectionID] = room.PIN
	}
	for _, s := range room.GetSpectators() {
		reg.pinByToken[s.Token] = room.PIN
		reg.pinByConn[s.ConnectionID] = room.PIN
	}
}

// pruneStaleEntriesLocked drops index entries pointing at room's PIN that
// no longer match any of the room's current tokens/connections, so a
// token rotation or connection swap doesn't leave a permanent stray
// entry behind (the lookups in Get* also self-heal lazily, but pruning
// here keeps the indexes from growing unbounded between lookups).
func (reg *Registry) pruneStaleEntriesLocked(room *domain.Room) {
	for tok, pin := range reg.pinByHostToken {
		if pin == room.PIN && !room.HasHostToken(tok) {
			delete(reg.pinByHostToken, tok)
		}
	}
	for tok, pin := range reg.pinByToken {
		if pin == room.PIN && !room.HasParticipantToken(tok) {
			delete(reg.pinByToken, tok)
		}
	}
	for conn, pin := range reg.pinByConn {
		if pin == room.PIN && !room.HasConnection(conn) {
			delete(reg.pinByConn, conn)
		}
	}
}

// Delete removes a room and every index entry pointing at it.
func (reg *Registry) Delete(pin domain.PIN) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	delete(reg.byPIN, pin)
	reg.pruneIndexesLocked(pin)
}

func (reg *Registry) pruneIndexesLocked(pin domain.PIN) {
	for tok, p := range reg.pinByHostToken {
		if p == pin {
			delete(reg.pinByHostToken, tok)
		}
	}
	for tok, p := range reg.pinByToken {
		if p == pin {
			delete(reg.pinByToken, tok)
		}
	}
	for conn, p := range reg.pinByConn {
		if p == pin {
			delete(reg.pinByConn, conn)
		}
	}
}

// GetByPIN returns the room for pin. It reads the primary map only and
// does not touch the secondary indexes.
func (reg *Registry) GetByPIN(pin domain.PIN) (*domain.Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.byPIN[pin]
	return room, ok
}

// GetByConnectionID resolves a live connection back to its room,
// self-healing the index if the room no longer recognizes connectionID
// (e.g. a prior token rotation's old connection binding).
func (reg *Registry) GetByConnectionID(connectionID string) (*domain.Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	pin, ok := reg.pinByConn[connectionID]
	if !ok {
		return nil, false
	}
	room, ok := reg.byPIN[pin]
	if !ok || !room.HasConnection(connectionID) {
		delete(reg.pinByConn, connectionID)
		return nil, false
	}
	return room, true
}

// GetByHostToken resolves a host's reconnect token back to its room,
// self-healing the index once the host token has rotated past it.
func (reg *Registry) GetByHostToken(token domain.Token) (*domain.Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	pin, ok := reg.pinByHostToken[token]
	if !ok {
		return nil, false
	}
	room, ok := reg.byPIN[pin]
	if !ok || !room.HasHostToken(token) {
		delete(reg.pinByHostToken, token)
		return nil, false
	}
	return room, true
}

// GetByToken resolves a player or spectator's reconnect token back to its
// room, self-healing the index once that token has rotated past it.
func (reg *Registry) GetByToken(token domain.Token) (*domain.Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	pin, ok := reg.pinByToken[token]
	if !ok {
		return nil, false
	}
	room, ok := reg.byPIN[pin]
	if !ok || !room.HasParticipantToken(token) {
		delete(reg.pinByToken, token)
		return nil, false
	}
	return room, true
}

// ReindexConnection re-derives the secondary indexes for room, called
// after any operation that changes its membership or connection
// bindings (join, reconnect, kick, ban).
func (reg *Registry) ReindexConnection(room *domain.Room) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.reindexLocked(room)
}

// All returns a snapshot slice of every live room, used by the cleanup
// sweep and graceful-shutdown draining.
func (reg *Registry) All() []*domain.Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]*domain.Room, 0, len(reg.byPIN))
	for _, room := range reg.byPIN {
		out = append(out, room)
	}
	return out
}

// Count reports how many rooms are currently live.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.byPIN)
}
