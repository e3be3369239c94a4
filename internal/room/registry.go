package room

import (
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
)

var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// ValidateRoomID rejects malformed identifiers before any registry lookup.
func ValidateRoomID(id string) error {
	if !roomIDPattern.MatchString(id) {
		return ErrInvalidRoomID
	}
	return nil
}

// Registry owns the in-memory room map. Creation is atomic per key: two
// concurrent first-joins for the same id observe the same *Room. Lock order
// is registry first, room second, never reversed.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	limit int
}

func NewRegistry(limit int) *Registry {
	if limit <= 0 {
		limit = 500
	}
	return &Registry{rooms: make(map[string]*Room), limit: limit}
}

// GetOrCreate returns the room for id, creating it on first use.
func (g *Registry) GetOrCreate(id string) (*Room, error) {
	if err := ValidateRoomID(id); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.rooms[id]; ok {
		return r, nil
	}
	if len(g.rooms) >= g.limit {
		return nil, ErrTooManyRooms
	}
	now := time.Now()
	r := &Room{
		ID:        id,
		SessionID: uuid.NewString(),
		users:     make(map[string]*Participant),
		state: GameState{
			FEN:      StartFEN,
			MovesUCI: []string{},
			MovesSAN: []string{},
			Turn:     White,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	g.rooms[id] = r
	return r, nil
}

// Get returns an existing room without creating one.
func (g *Registry) Get(id string) (*Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.rooms[id]
	return r, ok
}

// RemoveIfEmpty evicts the room when no participant is connected. Called by
// the transport after every detach.
func (g *Registry) RemoveIfEmpty(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.rooms[id]
	if !ok {
		return false
	}
	r.mu.Lock()
	empty := r.emptyLocked()
	r.mu.Unlock()
	if !empty {
		return false
	}
	delete(g.rooms, id)
	return true
}

// Len reports the number of live rooms.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}
