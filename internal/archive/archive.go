// Package archive persists finished games: a redis snapshot with TTL for
// recent lookups plus an optional postgres row with PGN for long-term
// history. Both halves are optional at runtime.
package archive

import (
	"context"
	"time"

	"github.com/pawnhub/chess-room-server/internal/room"
)

// Record is the archived form of a finished game.
type Record struct {
	SessionID string `json:"session_id"`
	RoomID    string `json:"room_id"`

	WhiteID   string `json:"white_id"`
	WhiteName string `json:"white_name"`
	BlackID   string `json:"black_id"`
	BlackName string `json:"black_name"`

	FEN      string   `json:"fen"`
	MovesUCI []string `json:"moves_uci"`
	MovesSAN []string `json:"moves_san"`

	ResultType string `json:"result_type"`
	WinColor   string `json:"win_color,omitempty"`

	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

func recordFrom(snap *room.Snapshot) *Record {
	rec := &Record{
		SessionID: snap.SessionID,
		RoomID:    snap.RoomID,
		FEN:       snap.State.FEN,
		MovesUCI:  snap.State.MovesUCI,
		MovesSAN:  snap.State.MovesSAN,
		StartedAt: snap.CreatedAt,
		EndedAt:   snap.UpdatedAt,
	}
	if res := snap.State.Result; res != nil {
		rec.ResultType = string(res.Type)
		rec.WinColor = string(res.WinColor)
	}
	for _, p := range snap.Participants {
		switch p.Color {
		case room.White:
			rec.WhiteID, rec.WhiteName = p.UserID, p.UserName
		case room.Black:
			rec.BlackID, rec.BlackName = p.UserID, p.UserName
		}
	}
	return rec
}

// Archive fans a finished game to the configured backends. Implements
// room.Archiver. Either backend may be nil.
type Archive struct {
	store *Store
	repo  *Repository
}

func New(store *Store, repo *Repository) *Archive {
	return &Archive{store: store, repo: repo}
}

func (a *Archive) SaveFinished(ctx context.Context, snap *room.Snapshot) error {
	if a == nil || snap == nil || !snap.State.Ended {
		return nil
	}
	rec := recordFrom(snap)
	if a.store != nil {
		if err := a.store.Save(ctx, rec); err != nil {
			return err
		}
	}
	if a.repo != nil {
		if err := a.repo.SaveResult(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// LoadFinished fetches an archived game by session id from the redis store.
// Returns nil when the store is absent or the record expired.
func (a *Archive) LoadFinished(ctx context.Context, sessionID string) (*Record, error) {
	if a == nil || a.store == nil {
		return nil, nil
	}
	return a.store.Load(ctx, sessionID)
}
