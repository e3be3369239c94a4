// Package ws is the connection manager: it owns the physical websocket
// sessions and translates frames into room coordinator calls. The room core
// never touches a socket; it sees sinks and disconnect notifications only.
package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pawnhub/chess-room-server/internal/relay"
	"github.com/pawnhub/chess-room-server/internal/room"
)

type Server struct {
	mgr   *room.Manager
	bcast *relay.Broadcaster

	queueSize    int
	writeTimeout time.Duration
}

func NewServer(mgr *room.Manager, bcast *relay.Broadcaster, queueSize int, writeTimeout time.Duration) *Server {
	if queueSize <= 0 {
		queueSize = 32
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Server{mgr: mgr, bcast: bcast, queueSize: queueSize, writeTimeout: writeTimeout}
}

// Routes returns the HTTP mux: the realtime endpoint plus operational probes.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{
		"rooms":    s.mgr.Registry().Len(),
		"sessions": s.bcast.SessionCount(),
	})
}
