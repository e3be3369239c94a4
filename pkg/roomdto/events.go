package roomdto

import "time"

// Outbound event types.
const (
	EventSnapshot   = "snapshot"
	EventJoin       = "join"
	EventMove       = "move"
	EventGameResult = "gameResult"
	EventSystem     = "system"
	EventError      = "error"
)

type ParticipantInfo struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Color     string `json:"color"`
	Connected bool   `json:"connected"`
}

type ResultInfo struct {
	ResultType string `json:"resultType"`
	WinColor   string `json:"winColor,omitempty"`
}

type GameStateInfo struct {
	FEN           string      `json:"currentFEN"`
	MovesUCI      []string    `json:"movesUci"`
	MovesSAN      []string    `json:"movesSan"`
	CurrentPlayer string      `json:"currentPlayer"`
	GameStarted   bool        `json:"gameStarted"`
	GameEnded     bool        `json:"gameEnded"`
	GameResult    *ResultInfo `json:"gameResult,omitempty"`
}

type MoveInfo struct {
	UCI      string `json:"uci"`
	SAN      string `json:"san"`
	FEN      string `json:"fen"`
	NextTurn string `json:"nextTurn"`
}

type RoomSnapshot struct {
	RoomID       string            `json:"roomId"`
	SessionID    string            `json:"sessionId"`
	Participants []ParticipantInfo `json:"participants"`
	State        GameStateInfo     `json:"gameState"`
}

// ServerEvent is the outbound envelope. Type selects which optional payload
// fields are populated.
type ServerEvent struct {
	Type      string    `json:"type"`
	RoomID    string    `json:"roomId"`
	Timestamp time.Time `json:"ts"`

	// snapshot
	Snapshot *RoomSnapshot `json:"snapshot,omitempty"`

	// join
	User *ParticipantInfo `json:"user,omitempty"`

	// move
	Move *MoveInfo `json:"move,omitempty"`

	// gameResult
	Result *ResultInfo      `json:"result,omitempty"`
	By     *ParticipantInfo `json:"by,omitempty"`
	State  *GameStateInfo   `json:"gameState,omitempty"`

	// system: non-player-authored status line, distinct from chat
	Text   string `json:"text,omitempty"`
	System bool   `json:"system,omitempty"`

	// error (sent only to the originating session)
	Error *DomainError `json:"error,omitempty"`
}
