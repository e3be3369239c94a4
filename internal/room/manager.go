package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pawnhub/chess-room-server/internal/msgcat"
	"github.com/pawnhub/chess-room-server/internal/obslog"
	"github.com/pawnhub/chess-room-server/internal/oracle"
	"github.com/pawnhub/chess-room-server/pkg/roomdto"
)

// Publisher fans an event out to the given recipients. Fire-and-forget: the
// manager never waits for delivery and a slow participant never blocks the
// room mutation that produced the event.
type Publisher interface {
	Publish(roomID string, recipients []string, ev roomdto.ServerEvent)
}

// Archiver persists a finished game. Failures are logged, never propagated
// into the room state machine.
type Archiver interface {
	SaveFinished(ctx context.Context, snap *Snapshot) error
}

// Manager coordinates rooms: joins, color assignment, move and result
// submission, disconnects. One room is a unit of serialized mutation;
// different rooms proceed in parallel.
type Manager struct {
	reg    *Registry
	oracle oracle.Oracle
	picker ColorPicker
	pub    Publisher
	cat    *msgcat.Catalog
	arch   Archiver
	now    func() time.Time
}

func NewManager(reg *Registry, orc oracle.Oracle, picker ColorPicker, pub Publisher, cat *msgcat.Catalog) *Manager {
	if picker == nil {
		picker = NewCryptoPicker()
	}
	return &Manager{
		reg:    reg,
		oracle: orc,
		picker: picker,
		pub:    pub,
		cat:    cat,
		now:    time.Now,
	}
}

// AttachArchiver wires an optional finished-game archiver.
func (m *Manager) AttachArchiver(a Archiver) {
	if m != nil {
		m.arch = a
	}
}

// Registry exposes the underlying registry for transport-level eviction.
func (m *Manager) Registry() *Registry { return m.reg }

// Join adds userID to the room, creating the room on first join. Re-joining
// an existing participant is the reconnect path: same color, no new draw.
func (m *Manager) Join(ctx context.Context, roomID, userID, userName string) (*Snapshot, error) {
	userID = strings.TrimSpace(userID)
	userName = strings.TrimSpace(userName)
	if userID == "" {
		return nil, ErrInvalidUser
	}
	if userName == "" {
		userName = userID
	}
	r, err := m.reg.GetOrCreate(roomID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	rejoin := false
	var color Color
	if p, ok := r.users[userID]; ok {
		p.Connected = true
		color = p.Color
		rejoin = true
	} else {
		color = r.assignColorLocked(userID, m.picker)
		r.users[userID] = &Participant{
			UserID:    userID,
			UserName:  userName,
			Color:     color,
			Connected: true,
			JoinedAt:  m.now(),
		}
		r.order = append(r.order, userID)
		if color.Playing() && r.playingCountLocked() == 2 && !r.state.Started {
			// white moves first no matter which side joined first
			r.state.Started = true
			r.state.Turn = White
		}
	}
	r.UpdatedAt = m.now()
	snap := r.snapshotLocked()
	r.mu.Unlock()

	obslog.L().Info("room_join",
		zap.String("room_id", roomID),
		zap.String("user_id", userID),
		zap.String("color", string(color)),
		zap.Bool("rejoin", rejoin),
		zap.Bool("game_started", snap.State.Started),
	)

	joiner := snap.Participant(userID)
	ev := roomdto.ServerEvent{
		Type:      roomdto.EventJoin,
		RoomID:    roomID,
		Timestamp: m.now(),
		User:      toParticipantInfo(joiner),
		State:     toStateInfo(&snap.State),
	}
	m.publish(roomID, snap.ConnectedIDs(), ev)
	key, data := "system.joined", map[string]string{"Name": userName}
	if rejoin {
		key = "system.reconnected"
	}
	m.publishSystem(roomID, snap.ConnectedIDs(), m.render(key, data, userName+" joined the room."))
	return snap, nil
}

// SubmitMove validates and applies a move for userID. Terminal positions
// detected by the oracle finish the game through the same exactly-once path
// as SubmitResult.
func (m *Manager) SubmitMove(ctx context.Context, roomID, userID, move string) (*Snapshot, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUser
	}
	if err := ValidateRoomID(roomID); err != nil {
		return nil, err
	}
	r, ok := m.reg.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}

	r.mu.Lock()
	p, ok := r.users[userID]
	if !ok {
		r.mu.Unlock()
		return nil, ErrUnknownParticipant
	}
	// terminal check comes before everything else, including the oracle
	if r.state.Ended {
		r.mu.Unlock()
		return nil, ErrGameAlreadyEnded
	}
	if !r.state.Started {
		r.mu.Unlock()
		return nil, ErrGameNotStarted
	}
	if p.Color != r.state.Turn {
		r.mu.Unlock()
		return nil, ErrNotYourTurn
	}

	history := append([]string(nil), r.state.MovesUCI...)
	verdict, err := m.oracle.Apply(history, move)
	if err != nil {
		r.mu.Unlock()
		if errors.Is(err, oracle.ErrIllegalMove) {
			return nil, ErrIllegalMove
		}
		return nil, fmt.Errorf("oracle: %w", err)
	}

	r.state.MovesUCI = append(r.state.MovesUCI, verdict.UCI)
	r.state.MovesSAN = append(r.state.MovesSAN, verdict.SAN)
	r.state.FEN = verdict.FEN
	r.state.Turn = colorFromString(verdict.NextTurn)
	r.UpdatedAt = m.now()

	var result *GameResult
	if verdict.Outcome != oracle.OutcomeNone {
		result = resultFromOutcome(verdict.Outcome)
		// cannot fail here: ended was false and the lock is still held
		_ = r.finishLocked(result)
	}
	snap := r.snapshotLocked()
	r.mu.Unlock()

	obslog.L().Info("room_move",
		zap.String("room_id", roomID),
		zap.String("user_id", userID),
		zap.String("uci", verdict.UCI),
		zap.String("san", verdict.SAN),
		zap.String("next_turn", string(snap.State.Turn)),
		zap.Bool("game_ended", snap.State.Ended),
	)

	recipients := snap.ConnectedIDs()
	m.publish(roomID, recipients, roomdto.ServerEvent{
		Type:      roomdto.EventMove,
		RoomID:    roomID,
		Timestamp: m.now(),
		By:        toParticipantInfo(snap.Participant(userID)),
		Move: &roomdto.MoveInfo{
			UCI:      verdict.UCI,
			SAN:      verdict.SAN,
			FEN:      verdict.FEN,
			NextTurn: verdict.NextTurn,
		},
		State: toStateInfo(&snap.State),
	})
	if result != nil {
		m.announceResult(roomID, snap, userID)
		m.archive(snap)
	}
	return snap, nil
}

// SubmitResult is the explicit client-submitted result path. The first
// accepted result is final; duplicates and conflicts are rejected.
func (m *Manager) SubmitResult(ctx context.Context, roomID, userID string, res GameResult) (*Snapshot, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUser
	}
	if err := validateResult(&res); err != nil {
		return nil, err
	}
	if err := ValidateRoomID(roomID); err != nil {
		return nil, err
	}
	r, ok := m.reg.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}

	r.mu.Lock()
	p, ok := r.users[userID]
	if !ok {
		r.mu.Unlock()
		return nil, ErrUnknownParticipant
	}
	if !p.Color.Playing() {
		r.mu.Unlock()
		return nil, ErrSpectatorNotAllowed
	}
	if r.state.Ended {
		r.mu.Unlock()
		return nil, ErrResultAlreadySubmitted
	}
	if !r.state.Started {
		r.mu.Unlock()
		return nil, ErrGameNotStarted
	}
	_ = r.finishLocked(&res)
	r.UpdatedAt = m.now()
	snap := r.snapshotLocked()
	r.mu.Unlock()

	obslog.L().Info("room_result",
		zap.String("room_id", roomID),
		zap.String("user_id", userID),
		zap.String("result_type", string(res.Type)),
		zap.String("win_color", string(res.WinColor)),
	)

	m.announceResult(roomID, snap, userID)
	m.archive(snap)
	return snap, nil
}

// Disconnect marks the participant disconnected. The record survives so a
// later reconnect resumes the same color; the game does not end.
func (m *Manager) Disconnect(ctx context.Context, roomID, userID string) (*Snapshot, error) {
	r, ok := m.reg.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	r.mu.Lock()
	p, ok := r.users[userID]
	if !ok {
		r.mu.Unlock()
		return nil, ErrUnknownParticipant
	}
	p.Connected = false
	r.UpdatedAt = m.now()
	snap := r.snapshotLocked()
	name := p.UserName
	r.mu.Unlock()

	obslog.L().Info("room_disconnect", zap.String("room_id", roomID), zap.String("user_id", userID))
	m.publishSystem(roomID, snap.ConnectedIDs(), m.render("system.left", map[string]string{"Name": name}, name+" left the room."))
	return snap, nil
}

// Reconnect marks the participant connected again, keeping the recorded
// color. Fails for users the room has never seen.
func (m *Manager) Reconnect(ctx context.Context, roomID, userID string) (*Snapshot, error) {
	r, ok := m.reg.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	r.mu.Lock()
	p, ok := r.users[userID]
	if !ok {
		r.mu.Unlock()
		return nil, ErrUnknownParticipant
	}
	p.Connected = true
	r.UpdatedAt = m.now()
	snap := r.snapshotLocked()
	name := p.UserName
	r.mu.Unlock()

	obslog.L().Info("room_reconnect", zap.String("room_id", roomID), zap.String("user_id", userID))
	m.publishSystem(roomID, snap.ConnectedIDs(), m.render("system.reconnected", map[string]string{"Name": name}, name+" reconnected."))
	return snap, nil
}

// finishLocked is the single terminal transition. Both the oracle-detected
// path and the client-submitted path converge here; the first caller wins.
func (r *Room) finishLocked(res *GameResult) error {
	if r.state.Ended {
		return ErrResultAlreadySubmitted
	}
	stored := *res
	r.state.Ended = true
	r.state.Result = &stored
	return nil
}

func validateResult(res *GameResult) error {
	switch res.Type {
	case ResultCheckmate:
		if res.WinColor != White && res.WinColor != Black {
			return ErrInvalidResult
		}
	case ResultStalemate, ResultDraw:
		res.WinColor = ""
	default:
		return ErrInvalidResult
	}
	return nil
}

func resultFromOutcome(o oracle.Outcome) *GameResult {
	switch o {
	case oracle.OutcomeWhiteWins:
		return &GameResult{Type: ResultCheckmate, WinColor: White}
	case oracle.OutcomeBlackWins:
		return &GameResult{Type: ResultCheckmate, WinColor: Black}
	case oracle.OutcomeStalemate:
		return &GameResult{Type: ResultStalemate}
	default:
		return &GameResult{Type: ResultDraw}
	}
}

func colorFromString(s string) Color {
	if s == "black" {
		return Black
	}
	return White
}

func (m *Manager) announceResult(roomID string, snap *Snapshot, byUserID string) {
	res := snap.State.Result
	if res == nil {
		return
	}
	recipients := snap.ConnectedIDs()
	m.publish(roomID, recipients, roomdto.ServerEvent{
		Type:      roomdto.EventGameResult,
		RoomID:    roomID,
		Timestamp: m.now(),
		Result:    toResultInfo(res),
		By:        toParticipantInfo(snap.Participant(byUserID)),
		State:     toStateInfo(&snap.State),
	})
	m.publishSystem(roomID, recipients, m.resultText(res))
}

// resultText renders the terminal system line for a result.
func (m *Manager) resultText(res *GameResult) string {
	switch res.Type {
	case ResultCheckmate:
		return m.render("system.checkmate", map[string]string{"Color": res.WinColor.Title()},
			fmt.Sprintf("Checkmate! %s wins!", res.WinColor.Title()))
	case ResultStalemate:
		return m.render("system.stalemate", nil, "Stalemate! Draw!")
	default:
		return m.render("system.draw", nil, "Draw!")
	}
}

func (m *Manager) render(key string, data any, fallback string) string {
	if m.cat == nil {
		return fallback
	}
	s, err := m.cat.Render(key, data)
	if err != nil {
		obslog.L().Warn("msgcat_render_error", zap.String("key", key), zap.Error(err))
		return fallback
	}
	return s
}

func (m *Manager) publish(roomID string, recipients []string, ev roomdto.ServerEvent) {
	if m.pub == nil || len(recipients) == 0 {
		return
	}
	m.pub.Publish(roomID, recipients, ev)
}

func (m *Manager) publishSystem(roomID string, recipients []string, text string) {
	m.publish(roomID, recipients, roomdto.ServerEvent{
		Type:      roomdto.EventSystem,
		RoomID:    roomID,
		Timestamp: m.now(),
		Text:      text,
		System:    true,
	})
}

// archive hands the finished game to the archiver off the hot path. Archive
// failures never roll back the room state.
func (m *Manager) archive(snap *Snapshot) {
	if m.arch == nil || snap == nil || !snap.State.Ended {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.arch.SaveFinished(ctx, snap); err != nil {
			obslog.L().Error("archive_save_error",
				zap.String("room_id", snap.RoomID),
				zap.String("session_id", snap.SessionID),
				zap.Error(err),
			)
		}
	}()
}

// toParticipantInfo and friends translate domain types into wire DTOs.
func toParticipantInfo(p *Participant) *roomdto.ParticipantInfo {
	if p == nil {
		return nil
	}
	return &roomdto.ParticipantInfo{
		UserID:    p.UserID,
		UserName:  p.UserName,
		Color:     string(p.Color),
		Connected: p.Connected,
	}
}

func toResultInfo(res *GameResult) *roomdto.ResultInfo {
	if res == nil {
		return nil
	}
	return &roomdto.ResultInfo{ResultType: string(res.Type), WinColor: string(res.WinColor)}
}

func toStateInfo(st *GameState) *roomdto.GameStateInfo {
	if st == nil {
		return nil
	}
	return &roomdto.GameStateInfo{
		FEN:           st.FEN,
		MovesUCI:      st.MovesUCI,
		MovesSAN:      st.MovesSAN,
		CurrentPlayer: string(st.Turn),
		GameStarted:   st.Started,
		GameEnded:     st.Ended,
		GameResult:    toResultInfo(st.Result),
	}
}

// SnapshotDTO builds the transport-facing room snapshot.
func SnapshotDTO(snap *Snapshot) *roomdto.RoomSnapshot {
	if snap == nil {
		return nil
	}
	out := &roomdto.RoomSnapshot{
		RoomID:    snap.RoomID,
		SessionID: snap.SessionID,
		State:     *toStateInfo(&snap.State),
	}
	for i := range snap.Participants {
		out.Participants = append(out.Participants, *toParticipantInfo(&snap.Participants[i]))
	}
	return out
}
