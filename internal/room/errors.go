package room

import "errors"

// Guard rejections. All are returned synchronously to the caller; none of
// them leaves partial state behind.
var (
	ErrInvalidRoomID          = errors.New("invalid room id")
	ErrRoomNotFound           = errors.New("room not found")
	ErrTooManyRooms           = errors.New("room limit reached")
	ErrUnknownParticipant     = errors.New("user not in room")
	ErrSpectatorNotAllowed    = errors.New("spectators cannot perform this action")
	ErrGameNotStarted         = errors.New("game not started")
	ErrNotYourTurn            = errors.New("not your turn")
	ErrIllegalMove            = errors.New("illegal move")
	ErrGameAlreadyEnded       = errors.New("game already ended")
	ErrResultAlreadySubmitted = errors.New("result already submitted")
	ErrInvalidResult          = errors.New("invalid result payload")
	ErrInvalidUser            = errors.New("invalid user")
)
