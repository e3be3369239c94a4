package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/pawnhub/chess-room-server/internal/obslog"
	"github.com/pawnhub/chess-room-server/internal/room"
	"github.com/pawnhub/chess-room-server/pkg/roomdto"
)

const joinDeadline = 10 * time.Second

var errSessionClosed = errors.New("session closed")

// session is one websocket connection acting as a relay sink. Outbound
// events go through a buffered queue drained by a single write pump, so a
// slow reader stalls only its own queue.
type session struct {
	conn *websocket.Conn
	out  chan roomdto.ServerEvent

	closed    chan struct{}
	closeOnce sync.Once
}

func newSession(conn *websocket.Conn, queueSize int) *session {
	return &session{
		conn:   conn,
		out:    make(chan roomdto.ServerEvent, queueSize),
		closed: make(chan struct{}),
	}
}

// Send enqueues the event for the write pump. Blocks at most until ctx
// expires when the queue is full.
func (s *session) Send(ctx context.Context, ev roomdto.ServerEvent) error {
	select {
	case <-s.closed:
		return errSessionClosed
	default:
	}
	select {
	case s.out <- ev:
		return nil
	case <-s.closed:
		return errSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

func (s *session) writePump(writeTimeout time.Duration) {
	for {
		select {
		case ev := <-s.out:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := wsjson.Write(ctx, s.conn, ev)
			cancel()
			if err != nil {
				s.close()
				return
			}
		case <-s.closed:
			return
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session ended")

	ctx := r.Context()

	// the first frame must be a join
	var first roomdto.ClientMessage
	jctx, cancel := context.WithTimeout(ctx, joinDeadline)
	err = wsjson.Read(jctx, conn, &first)
	cancel()
	if err != nil || first.Type != roomdto.TypeJoin {
		_ = wsjson.Write(ctx, conn, errorEvent("", roomdto.DomainError{
			Code: roomdto.CodeBadRequest, Message: "expected join frame",
		}))
		conn.Close(websocket.StatusPolicyViolation, "expected join frame")
		return
	}

	roomID, userID := first.RoomID, first.UserID
	snap, err := s.mgr.Join(ctx, roomID, userID, first.UserName)
	if err != nil {
		_ = wsjson.Write(ctx, conn, errorEvent(roomID, toWireError(err)))
		conn.Close(websocket.StatusPolicyViolation, "join rejected")
		return
	}

	sess := newSession(conn, s.queueSize)
	s.bcast.Attach(roomID, userID, sess)
	defer func() {
		sess.close()
		s.bcast.Detach(roomID, userID)
		if _, derr := s.mgr.Disconnect(context.Background(), roomID, userID); derr != nil {
			obslog.L().Warn("ws_disconnect_error", zap.String("room_id", roomID), zap.String("user_id", userID), zap.Error(derr))
		}
		s.mgr.Registry().RemoveIfEmpty(roomID)
	}()

	// answer the join with the current room snapshot before any broadcast
	if err := wsjson.Write(ctx, conn, snapshotEvent(roomID, snap)); err != nil {
		return
	}
	go sess.writePump(s.writeTimeout)

	for {
		var msg roomdto.ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			status := websocket.CloseStatus(err)
			if status == -1 || status == websocket.StatusAbnormalClosure {
				obslog.L().Info("ws_read_closed", zap.String("room_id", roomID), zap.String("user_id", userID))
			}
			return
		}
		s.dispatch(ctx, sess, roomID, userID, &msg)
	}
}

func (s *Server) dispatch(ctx context.Context, sess *session, roomID, userID string, msg *roomdto.ClientMessage) {
	switch msg.Type {
	case roomdto.TypeMove:
		if _, err := s.mgr.SubmitMove(ctx, roomID, userID, msg.Move); err != nil {
			s.reject(ctx, sess, roomID, err)
		}
	case roomdto.TypeGameResult:
		res := room.GameResult{
			Type:     room.ResultType(msg.ResultType),
			WinColor: room.Color(msg.WinColor),
		}
		if _, err := s.mgr.SubmitResult(ctx, roomID, userID, res); err != nil {
			s.reject(ctx, sess, roomID, err)
		}
	case roomdto.TypeJoin:
		// duplicate join on a live socket: answer with a fresh snapshot
		if snap, err := s.mgr.Reconnect(ctx, roomID, userID); err == nil {
			_ = sess.Send(ctx, snapshotEvent(roomID, snap))
		}
	case roomdto.TypeChat:
		// chat never touches the game state machine
	default:
		s.reject(ctx, sess, roomID, errUnknownType(msg.Type))
	}
}

// reject reports a guard failure to the originating session only.
func (s *Server) reject(ctx context.Context, sess *session, roomID string, err error) {
	sctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	_ = sess.Send(sctx, errorEvent(roomID, toWireError(err)))
}

func snapshotEvent(roomID string, snap *room.Snapshot) roomdto.ServerEvent {
	return roomdto.ServerEvent{
		Type:      roomdto.EventSnapshot,
		RoomID:    roomID,
		Timestamp: time.Now(),
		Snapshot:  room.SnapshotDTO(snap),
	}
}

func errorEvent(roomID string, derr roomdto.DomainError) roomdto.ServerEvent {
	return roomdto.ServerEvent{
		Type:      roomdto.EventError,
		RoomID:    roomID,
		Timestamp: time.Now(),
		Error:     &derr,
	}
}
