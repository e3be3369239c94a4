package room

import (
	"sync"
	"testing"
)

func TestValidateRoomID(t *testing.T) {
	for _, id := range []string{"room-1", "a", "A.B_c-9", "x1234567890"} {
		if err := ValidateRoomID(id); err != nil {
			t.Fatalf("expected %q valid: %v", id, err)
		}
	}
	long := make([]byte, 65)
	for i := range long {
		long[i] = 'a'
	}
	for _, id := range []string{"", "room 1", "room/1", "room#1", string(long)} {
		if err := ValidateRoomID(id); err == nil {
			t.Fatalf("expected %q invalid", id)
		}
	}
}

func TestGetOrCreateIdempotent(t *testing.T) {
	reg := NewRegistry(10)
	a, err := reg.GetOrCreate("r1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	b, err := reg.GetOrCreate("r1")
	if err != nil {
		t.Fatalf("GetOrCreate#2: %v", err)
	}
	if a != b {
		t.Fatalf("expected same room instance for same id")
	}
	if a.state.FEN != StartFEN {
		t.Fatalf("new room FEN = %q, want start position", a.state.FEN)
	}
	if a.state.Turn != White {
		t.Fatalf("new room turn = %q, want white", a.state.Turn)
	}
	if a.SessionID == "" {
		t.Fatalf("expected session id minted at creation")
	}
}

func TestGetOrCreateInvalidID(t *testing.T) {
	reg := NewRegistry(10)
	if _, err := reg.GetOrCreate("no spaces"); err != ErrInvalidRoomID {
		t.Fatalf("expected ErrInvalidRoomID, got %v", err)
	}
}

func TestGetOrCreateConcurrentSingleInstance(t *testing.T) {
	reg := NewRegistry(10)
	const n = 32
	rooms := make([]*Room, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := reg.GetOrCreate("shared")
			if err != nil {
				t.Errorf("GetOrCreate: %v", err)
				return
			}
			rooms[i] = r
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if rooms[i] != rooms[0] {
			t.Fatalf("two distinct instances observed for one id")
		}
	}
	if reg.Len() != 1 {
		t.Fatalf("registry len = %d, want 1", reg.Len())
	}
}

func TestRoomLimit(t *testing.T) {
	reg := NewRegistry(2)
	if _, err := reg.GetOrCreate("a"); err != nil {
		t.Fatalf("a: %v", err)
	}
	if _, err := reg.GetOrCreate("b"); err != nil {
		t.Fatalf("b: %v", err)
	}
	if _, err := reg.GetOrCreate("c"); err != ErrTooManyRooms {
		t.Fatalf("expected ErrTooManyRooms, got %v", err)
	}
	// an existing id still resolves at the limit
	if _, err := reg.GetOrCreate("a"); err != nil {
		t.Fatalf("a again: %v", err)
	}
}

func TestRemoveIfEmpty(t *testing.T) {
	reg := NewRegistry(10)
	mgr := NewManager(reg, nil, FixedPicker{C: White}, nil, nil)
	ctx := testCtx()

	if _, err := mgr.Join(ctx, "r1", "u1", "Alice"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if reg.RemoveIfEmpty("r1") {
		t.Fatalf("room with a connected participant must not be evicted")
	}
	if _, err := mgr.Disconnect(ctx, "r1", "u1"); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if !reg.RemoveIfEmpty("r1") {
		t.Fatalf("expected eviction once everyone disconnected")
	}
	if reg.Len() != 0 {
		t.Fatalf("registry len = %d, want 0", reg.Len())
	}
	if reg.RemoveIfEmpty("r1") {
		t.Fatalf("evicting a missing room must report false")
	}
}
