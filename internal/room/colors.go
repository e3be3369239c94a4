package room

import (
	"crypto/rand"
	"math/big"
)

// ColorPicker draws the first playing color of a room. Injected so tests can
// pin the draw; production uses crypto/rand.
type ColorPicker interface {
	Pick() Color
}

type cryptoPicker struct{}

// NewCryptoPicker returns a uniform 50/50 picker.
func NewCryptoPicker() ColorPicker { return cryptoPicker{} }

func (cryptoPicker) Pick() Color {
	if n, err := rand.Int(rand.Reader, big.NewInt(2)); err == nil && n.Int64() == 0 {
		return Black
	}
	return White
}

// FixedPicker always returns c. Test helper.
type FixedPicker struct{ C Color }

func (f FixedPicker) Pick() Color { return f.C }

// assignColorLocked implements the color assignment policy. Idempotent per
// (room, user): an existing participant keeps its recorded color. The first
// player gets a random color, the second the complement, everyone after that
// spectates.
func (r *Room) assignColorLocked(userID string, picker ColorPicker) Color {
	if p, ok := r.users[userID]; ok {
		return p.Color
	}
	switch r.playingCountLocked() {
	case 0:
		return picker.Pick()
	case 1:
		c, _ := r.playingColorLocked()
		return c.Other()
	default:
		return Spectator
	}
}
