package roomdto

// Inbound frame types.
const (
	TypeJoin       = "join"
	TypeMove       = "move"
	TypeGameResult = "gameResult"
	TypeChat       = "chat"
)

// ClientMessage is the single inbound frame shape. Type selects which fields
// are read; the rest are ignored.
type ClientMessage struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId,omitempty"`
	UserID   string `json:"userId,omitempty"`
	UserName string `json:"userName,omitempty"`

	// move
	Move string `json:"move,omitempty"`

	// gameResult
	ResultType string `json:"resultType,omitempty"`
	WinColor   string `json:"winColor,omitempty"`
}
