package chat

import (
	"errors"

	"github.com/hilthontt/huddle/internal/domain"
	"github.com/hilthontt/huddle/internal/infrastructure/ws"
)

type errorCode struct {
	err   error
	code  string
	retry bool
}

var errorCodes = []errorCode{
	{domain.ErrRoomNotFound, "ROOM_NOT_FOUND", true},
	{domain.ErrNameTaken, "NAME_TAKEN", true},
	{domain.ErrNotAMember, "NOT_A_MEMBER", false},
	{domain.ErrEmptyBody, "EMPTY_BODY", false},
	{domain.ErrBodyTooLong, "BODY_TOO_LONG", false},
	{domain.ErrRoomFull, "ROOM_FULL", true},
	{domain.ErrInvalidName, "INVALID_NAME", true},
	{domain.ErrAlreadyInRoom, "ALREADY_IN_ROOM", false},
	{domain.ErrNotInRoom, "NOT_IN_ROOM", false},
	{domain.ErrRoomLimitReached, "ROOM_LIMIT_REACHED", true},
	{domain.ErrRateLimited, "RATE_LIMITED", true},
	{domain.ErrSessionClosed, "SESSION_CLOSED", false},
	{ws.ErrUnknownEvent, "UNKNOWN_EVENT", false},
	{ws.ErrMalformedFrame, "MALFORMED_FRAME", false},
}

// errorFrame maps an operation error to the frame sent back to the
// connection. Faults and unknown errors are reported without detail.
func errorFrame(roomCode string, err error) *ws.WSMessage {
	if !domain.IsFault(err) {
		for _, ec := range errorCodes {
			if errors.Is(err, ec.err) {
				return ws.NewError(roomCode, ec.code, ec.err.Error(), ec.retry)
			}
		}
	}
	return ws.NewError(roomCode, "INTERNAL", "internal error", false)
}
