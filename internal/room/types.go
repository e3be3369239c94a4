package room

import (
	"sync"
	"time"
)

// Color identifies a participant's role in the room.
type Color string

const (
	White     Color = "white"
	Black     Color = "black"
	Spectator Color = "spectator"
)

// Playing reports whether the color holds one of the two playing sides.
func (c Color) Playing() bool { return c == White || c == Black }

// Other returns the complementary playing color.
func (c Color) Other() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	}
	return Spectator
}

// Title returns the capitalized color name used in system messages.
func (c Color) Title() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	}
	return "Spectator"
}

// ResultType is the terminal condition of a game.
type ResultType string

const (
	ResultCheckmate ResultType = "mat"
	ResultStalemate ResultType = "pat"
	ResultDraw      ResultType = "draw"
)

// GameResult is immutable once stored; a room accepts at most one.
type GameResult struct {
	Type     ResultType `json:"resultType"`
	WinColor Color      `json:"winColor,omitempty"` // set only for checkmate
}

// StartFEN is the standard chess starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// GameState is the shared per-room game state. Mutated only while the owning
// room's lock is held.
type GameState struct {
	FEN      string      `json:"currentFEN"`
	MovesUCI []string    `json:"moves_uci"`
	MovesSAN []string    `json:"moves_san"`
	Turn     Color       `json:"currentPlayer"`
	Started  bool        `json:"gameStarted"`
	Ended    bool        `json:"gameEnded"`
	Result   *GameResult `json:"gameResult,omitempty"`
}

// Participant is owned by exactly one room. The record survives disconnects
// so a reconnecting user resumes the same color.
type Participant struct {
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Color     Color     `json:"color"`
	Connected bool      `json:"connected"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Room is one chess session: up to two playing participants plus spectators.
// All state behind mu; every operation on a room is serialized through it.
type Room struct {
	mu sync.Mutex

	ID        string
	SessionID string // minted at creation, keys the archive row

	order []string // join order
	users map[string]*Participant

	state GameState

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *Room) playingCountLocked() int {
	n := 0
	for _, p := range r.users {
		if p.Color.Playing() {
			n++
		}
	}
	return n
}

func (r *Room) playingColorLocked() (Color, bool) {
	for _, p := range r.users {
		if p.Color.Playing() {
			return p.Color, true
		}
	}
	return Spectator, false
}

// emptyLocked reports whether nobody is connected.
func (r *Room) emptyLocked() bool {
	for _, p := range r.users {
		if p.Connected {
			return false
		}
	}
	return true
}

// Snapshot is an immutable copy of a room taken under its lock, safe to use
// after the lock is released (broadcast payloads, archiving).
type Snapshot struct {
	RoomID       string
	SessionID    string
	Participants []Participant // join order
	State        GameState     // deep copy
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r *Room) snapshotLocked() *Snapshot {
	s := &Snapshot{
		RoomID:    r.ID,
		SessionID: r.SessionID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	for _, id := range r.order {
		if p, ok := r.users[id]; ok {
			s.Participants = append(s.Participants, *p)
		}
	}
	s.State = r.state
	s.State.MovesUCI = append([]string(nil), r.state.MovesUCI...)
	s.State.MovesSAN = append([]string(nil), r.state.MovesSAN...)
	if r.state.Result != nil {
		res := *r.state.Result
		s.State.Result = &res
	}
	return s
}

// Participant returns the snapshot entry for userID.
func (s *Snapshot) Participant(userID string) *Participant {
	for i := range s.Participants {
		if s.Participants[i].UserID == userID {
			return &s.Participants[i]
		}
	}
	return nil
}

// ConnectedIDs returns the user ids of connected participants in join order.
func (s *Snapshot) ConnectedIDs() []string {
	out := make([]string, 0, len(s.Participants))
	for _, p := range s.Participants {
		if p.Connected {
			out = append(out, p.UserID)
		}
	}
	return out
}
