package roomdto

// Wire-level rejection codes. Every guard failure in the room core maps to
// exactly one of these.
const (
	CodeInvalidRoomID          = "INVALID_ROOM_ID"
	CodeRoomNotFound           = "ROOM_NOT_FOUND"
	CodeGameNotStarted         = "GAME_NOT_STARTED"
	CodeNotYourTurn            = "NOT_YOUR_TURN"
	CodeIllegalMove            = "ILLEGAL_MOVE"
	CodeGameAlreadyEnded       = "GAME_ALREADY_ENDED"
	CodeResultAlreadySubmitted = "RESULT_ALREADY_SUBMITTED"
	CodeUnknownParticipant     = "UNKNOWN_PARTICIPANT"
	CodeSpectatorNotAllowed    = "SPECTATOR_NOT_ALLOWED"
	CodeRoomLimit              = "ROOM_LIMIT"
	CodeBadRequest             = "BAD_REQUEST"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "room error"
}
