package ws

import (
	"errors"
	"fmt"

	"github.com/pawnhub/chess-room-server/internal/room"
	"github.com/pawnhub/chess-room-server/pkg/roomdto"
)

func errUnknownType(t string) error {
	return fmt.Errorf("unknown message type %q", t)
}

// toWireError maps core guard failures to wire codes.
func toWireError(err error) roomdto.DomainError {
	switch {
	case errors.Is(err, room.ErrInvalidRoomID):
		return roomdto.DomainError{Code: roomdto.CodeInvalidRoomID, Message: err.Error()}
	case errors.Is(err, room.ErrRoomNotFound):
		return roomdto.DomainError{Code: roomdto.CodeRoomNotFound, Message: err.Error()}
	case errors.Is(err, room.ErrGameNotStarted):
		return roomdto.DomainError{Code: roomdto.CodeGameNotStarted, Message: err.Error()}
	case errors.Is(err, room.ErrNotYourTurn):
		return roomdto.DomainError{Code: roomdto.CodeNotYourTurn, Message: err.Error()}
	case errors.Is(err, room.ErrIllegalMove):
		return roomdto.DomainError{Code: roomdto.CodeIllegalMove, Message: err.Error()}
	case errors.Is(err, room.ErrGameAlreadyEnded):
		return roomdto.DomainError{Code: roomdto.CodeGameAlreadyEnded, Message: err.Error()}
	case errors.Is(err, room.ErrResultAlreadySubmitted):
		return roomdto.DomainError{Code: roomdto.CodeResultAlreadySubmitted, Message: err.Error()}
	case errors.Is(err, room.ErrUnknownParticipant):
		return roomdto.DomainError{Code: roomdto.CodeUnknownParticipant, Message: err.Error()}
	case errors.Is(err, room.ErrSpectatorNotAllowed):
		return roomdto.DomainError{Code: roomdto.CodeSpectatorNotAllowed, Message: err.Error()}
	case errors.Is(err, room.ErrTooManyRooms):
		return roomdto.DomainError{Code: roomdto.CodeRoomLimit, Message: err.Error(), Retryable: true}
	default:
		return roomdto.DomainError{Code: roomdto.CodeBadRequest, Message: err.Error()}
	}
}
