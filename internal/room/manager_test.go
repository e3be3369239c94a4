package room

import (
	"fmt"
	"sync"
	"testing"

	"github.com/pawnhub/chess-room-server/internal/oracle"
	"github.com/pawnhub/chess-room-server/pkg/roomdto"
)

// scriptOracle accepts any move except "bad" and reports the configured
// terminal outcome when the move is "last".
type scriptOracle struct {
	terminal oracle.Outcome
}

func (s scriptOracle) Apply(history []string, move string) (*oracle.Verdict, error) {
	if move == "bad" {
		return nil, oracle.ErrIllegalMove
	}
	n := len(history) + 1
	turn := "white"
	if n%2 == 1 {
		turn = "black"
	}
	v := &oracle.Verdict{
		UCI:      move,
		SAN:      move,
		FEN:      fmt.Sprintf("fen-after-%d", n),
		NextTurn: turn,
	}
	if move == "last" {
		v.Outcome = s.terminal
	}
	return v, nil
}

// capturePub records events synchronously for assertions.
type capturePub struct {
	mu     sync.Mutex
	events []roomdto.ServerEvent
	recips [][]string
}

func (c *capturePub) Publish(roomID string, recipients []string, ev roomdto.ServerEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	c.recips = append(c.recips, append([]string(nil), recipients...))
}

func (c *capturePub) byType(typ string) []roomdto.ServerEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []roomdto.ServerEvent
	for _, ev := range c.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func newStartedGame(t *testing.T, orc oracle.Oracle, pub Publisher) *Manager {
	t.Helper()
	mgr := NewManager(NewRegistry(10), orc, FixedPicker{C: White}, pub, nil)
	ctx := testCtx()
	if _, err := mgr.Join(ctx, "r1", "p1", "P1"); err != nil {
		t.Fatalf("Join p1: %v", err)
	}
	snap, err := mgr.Join(ctx, "r1", "p2", "P2")
	if err != nil {
		t.Fatalf("Join p2: %v", err)
	}
	if !snap.State.Started {
		t.Fatalf("game must start on second playing join")
	}
	return mgr
}

func TestWhiteToMoveRegardlessOfJoinOrder(t *testing.T) {
	for _, first := range []Color{White, Black} {
		mgr := NewManager(NewRegistry(10), nil, FixedPicker{C: first}, nil, nil)
		ctx := testCtx()
		if _, err := mgr.Join(ctx, "r1", "u1", "u1"); err != nil {
			t.Fatalf("Join: %v", err)
		}
		snap, err := mgr.Join(ctx, "r1", "u2", "u2")
		if err != nil {
			t.Fatalf("Join: %v", err)
		}
		if !snap.State.Started || snap.State.Turn != White {
			t.Fatalf("first=%s: started=%v turn=%s, want started white-to-move", first, snap.State.Started, snap.State.Turn)
		}
	}
}

func TestMoveBeforeStartRejected(t *testing.T) {
	mgr := NewManager(NewRegistry(10), scriptOracle{}, FixedPicker{C: White}, nil, nil)
	ctx := testCtx()
	if _, err := mgr.Join(ctx, "r1", "u1", "u1"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := mgr.SubmitMove(ctx, "r1", "u1", "e2e4"); err != ErrGameNotStarted {
		t.Fatalf("expected ErrGameNotStarted, got %v", err)
	}
}

func TestMoveTurnOrder(t *testing.T) {
	mgr := newStartedGame(t, scriptOracle{}, nil)
	ctx := testCtx()

	// p1 holds white; black may not open
	if _, err := mgr.SubmitMove(ctx, "r1", "p2", "e7e5"); err != ErrNotYourTurn {
		t.Fatalf("expected ErrNotYourTurn for black opening, got %v", err)
	}
	snap, err := mgr.SubmitMove(ctx, "r1", "p1", "e2e4")
	if err != nil {
		t.Fatalf("white move: %v", err)
	}
	if snap.State.Turn != Black || len(snap.State.MovesUCI) != 1 {
		t.Fatalf("after white move: turn=%s moves=%d", snap.State.Turn, len(snap.State.MovesUCI))
	}
	// white again out of turn
	if _, err := mgr.SubmitMove(ctx, "r1", "p1", "d2d4"); err != ErrNotYourTurn {
		t.Fatalf("expected ErrNotYourTurn for white double-move, got %v", err)
	}
}

func TestSpectatorNeverOnTurn(t *testing.T) {
	mgr := newStartedGame(t, scriptOracle{}, nil)
	ctx := testCtx()
	if _, err := mgr.Join(ctx, "r1", "u3", "u3"); err != nil {
		t.Fatalf("Join spectator: %v", err)
	}
	if _, err := mgr.SubmitMove(ctx, "r1", "u3", "e2e4"); err != ErrNotYourTurn {
		t.Fatalf("expected ErrNotYourTurn for spectator, got %v", err)
	}
}

func TestIllegalMoveLeavesStateUntouched(t *testing.T) {
	mgr := newStartedGame(t, scriptOracle{}, nil)
	ctx := testCtx()
	if _, err := mgr.SubmitMove(ctx, "r1", "p1", "bad"); err != ErrIllegalMove {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
	r, _ := mgr.Registry().Get("r1")
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.state.MovesUCI) != 0 || r.state.Turn != White || r.state.FEN != StartFEN {
		t.Fatalf("state mutated by rejected move: moves=%d turn=%s", len(r.state.MovesUCI), r.state.Turn)
	}
}

func TestAutoDetectedTerminalEndsGame(t *testing.T) {
	pub := &capturePub{}
	mgr := newStartedGame(t, scriptOracle{terminal: oracle.OutcomeWhiteWins}, pub)
	ctx := testCtx()

	snap, err := mgr.SubmitMove(ctx, "r1", "p1", "last")
	if err != nil {
		t.Fatalf("terminal move: %v", err)
	}
	if !snap.State.Ended || snap.State.Result == nil {
		t.Fatalf("expected game ended with result")
	}
	if snap.State.Result.Type != ResultCheckmate || snap.State.Result.WinColor != White {
		t.Fatalf("result = %+v, want mat/white", snap.State.Result)
	}
	// no separate client message needed; result already broadcast
	if got := pub.byType(roomdto.EventGameResult); len(got) != 1 {
		t.Fatalf("gameResult events = %d, want 1", len(got))
	}
	// move after the end always fails, before any oracle call
	if _, err := mgr.SubmitMove(ctx, "r1", "p2", "e7e5"); err != ErrGameAlreadyEnded {
		t.Fatalf("expected ErrGameAlreadyEnded, got %v", err)
	}
}

func TestResultBeforeStartRejected(t *testing.T) {
	mgr := NewManager(NewRegistry(10), nil, FixedPicker{C: White}, nil, nil)
	ctx := testCtx()
	if _, err := mgr.Join(ctx, "r1", "u1", "u1"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	_, err := mgr.SubmitResult(ctx, "r1", "u1", GameResult{Type: ResultDraw})
	if err != ErrGameNotStarted {
		t.Fatalf("expected ErrGameNotStarted, got %v", err)
	}
}

func TestResultExactlyOnce(t *testing.T) {
	mgr := newStartedGame(t, nil, nil)
	ctx := testCtx()

	first := GameResult{Type: ResultCheckmate, WinColor: White}
	if _, err := mgr.SubmitResult(ctx, "r1", "p1", first); err != nil {
		t.Fatalf("first result: %v", err)
	}
	_, err := mgr.SubmitResult(ctx, "r1", "p2", GameResult{Type: ResultDraw})
	if err != ErrResultAlreadySubmitted {
		t.Fatalf("expected ErrResultAlreadySubmitted, got %v", err)
	}
	r, _ := mgr.Registry().Get("r1")
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Result == nil || r.state.Result.Type != ResultCheckmate || r.state.Result.WinColor != White {
		t.Fatalf("stored result = %+v, want the first accepted one", r.state.Result)
	}
}

func TestConcurrentResultsSingleWinner(t *testing.T) {
	mgr := newStartedGame(t, nil, nil)
	ctx := testCtx()

	results := []GameResult{
		{Type: ResultCheckmate, WinColor: White},
		{Type: ResultCheckmate, WinColor: Black},
	}
	errs := make([]error, len(results))
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("p%d", i+1)
			_, errs[i] = mgr.SubmitResult(ctx, "r1", user, results[i])
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
		} else if err != ErrResultAlreadySubmitted {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if accepted != 1 {
		t.Fatalf("accepted = %d, want exactly 1", accepted)
	}
}

func TestSpectatorCannotSubmitResult(t *testing.T) {
	mgr := newStartedGame(t, nil, nil)
	ctx := testCtx()
	if _, err := mgr.Join(ctx, "r1", "u3", "u3"); err != nil {
		t.Fatalf("Join spectator: %v", err)
	}
	_, err := mgr.SubmitResult(ctx, "r1", "u3", GameResult{Type: ResultDraw})
	if err != ErrSpectatorNotAllowed {
		t.Fatalf("expected ErrSpectatorNotAllowed, got %v", err)
	}
}

func TestInvalidResultPayloads(t *testing.T) {
	mgr := newStartedGame(t, nil, nil)
	ctx := testCtx()
	cases := []GameResult{
		{Type: "resign"},
		{Type: ResultCheckmate},                        // mat without winner
		{Type: ResultCheckmate, WinColor: "purple"},    // nonsense winner
		{Type: ResultType("MAT"), WinColor: White},     // wrong case
	}
	for _, res := range cases {
		if _, err := mgr.SubmitResult(ctx, "r1", "p1", res); err != ErrInvalidResult {
			t.Fatalf("result %+v: expected ErrInvalidResult, got %v", res, err)
		}
	}
	// stalemate with a stray winner is normalized, not rejected
	snap, err := mgr.SubmitResult(ctx, "r1", "p1", GameResult{Type: ResultStalemate, WinColor: White})
	if err != nil {
		t.Fatalf("stalemate: %v", err)
	}
	if snap.State.Result.WinColor != "" {
		t.Fatalf("stalemate winColor = %q, want empty", snap.State.Result.WinColor)
	}
}

func TestResultBroadcastShapes(t *testing.T) {
	cases := []struct {
		res  GameResult
		text string
	}{
		{GameResult{Type: ResultCheckmate, WinColor: White}, "Checkmate! White wins!"},
		{GameResult{Type: ResultCheckmate, WinColor: Black}, "Checkmate! Black wins!"},
		{GameResult{Type: ResultStalemate}, "Stalemate! Draw!"},
		{GameResult{Type: ResultDraw}, "Draw!"},
	}
	for _, tc := range cases {
		pub := &capturePub{}
		mgr := newStartedGame(t, nil, pub)
		ctx := testCtx()

		if _, err := mgr.SubmitResult(ctx, "r1", "p1", tc.res); err != nil {
			t.Fatalf("SubmitResult %+v: %v", tc.res, err)
		}
		resEvents := pub.byType(roomdto.EventGameResult)
		if len(resEvents) != 1 {
			t.Fatalf("gameResult events = %d, want 1", len(resEvents))
		}
		ev := resEvents[0]
		if ev.Result.ResultType != string(tc.res.Type) || ev.Result.WinColor != string(tc.res.WinColor) {
			t.Fatalf("broadcast result = %+v, want %+v", ev.Result, tc.res)
		}
		if ev.State == nil || !ev.State.GameEnded {
			t.Fatalf("gameResult event must carry the ended state snapshot")
		}
		if ev.By == nil || ev.By.UserID != "p1" || ev.By.UserName != "P1" {
			t.Fatalf("gameResult event must name the submitter, got %+v", ev.By)
		}
		if ev.Timestamp.IsZero() {
			t.Fatalf("gameResult event must carry a server timestamp")
		}

		var sysText string
		for _, sev := range pub.byType(roomdto.EventSystem) {
			sysText = sev.Text
			if !sev.System {
				t.Fatalf("system event must be tagged system")
			}
		}
		if sysText != tc.text {
			t.Fatalf("system text = %q, want %q", sysText, tc.text)
		}

		// both players received the result, in join order
		pub.mu.Lock()
		var resRecips []string
		for i, ev := range pub.events {
			if ev.Type == roomdto.EventGameResult {
				resRecips = pub.recips[i]
			}
		}
		pub.mu.Unlock()
		if len(resRecips) != 2 || resRecips[0] != "p1" || resRecips[1] != "p2" {
			t.Fatalf("result recipients = %v, want [p1 p2]", resRecips)
		}
	}
}

func TestDisconnectDoesNotEndGame(t *testing.T) {
	mgr := newStartedGame(t, scriptOracle{}, nil)
	ctx := testCtx()

	if _, err := mgr.SubmitMove(ctx, "r1", "p1", "e2e4"); err != nil {
		t.Fatalf("move: %v", err)
	}
	snap, err := mgr.Disconnect(ctx, "r1", "p2")
	if err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if snap.State.Ended {
		t.Fatalf("disconnect must not end the game")
	}
	if p := snap.Participant("p2"); p == nil || p.Connected {
		t.Fatalf("participant record must survive disconnected")
	}

	snap, err = mgr.Reconnect(ctx, "r1", "p2")
	if err != nil {
		t.Fatalf("Reconnect: %v", err)
	}
	p := snap.Participant("p2")
	if !p.Connected || p.Color != Black {
		t.Fatalf("reconnect: connected=%v color=%s, want true/black", p.Connected, p.Color)
	}
	if len(snap.State.MovesUCI) != 1 {
		t.Fatalf("move history changed across reconnect: %d", len(snap.State.MovesUCI))
	}
	if _, err := mgr.Reconnect(ctx, "r1", "ghost"); err != ErrUnknownParticipant {
		t.Fatalf("expected ErrUnknownParticipant, got %v", err)
	}
}

func TestMoveInUnknownRoom(t *testing.T) {
	mgr := NewManager(NewRegistry(10), scriptOracle{}, FixedPicker{C: White}, nil, nil)
	ctx := testCtx()
	if _, err := mgr.SubmitMove(ctx, "nope", "u1", "e2e4"); err != ErrRoomNotFound {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if _, err := mgr.SubmitMove(ctx, "bad id", "u1", "e2e4"); err != ErrInvalidRoomID {
		t.Fatalf("expected ErrInvalidRoomID, got %v", err)
	}
}
