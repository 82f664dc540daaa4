package domain

import "errors"

// Recoverable errors. They are reported to the originating connection only
// and never leave a partial mutation behind.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrNameTaken        = errors.New("name already taken in this room")
	ErrNotAMember       = errors.New("not a member of this room")
	ErrEmptyBody        = errors.New("message body is empty")
	ErrBodyTooLong      = errors.New("message body is too long")
	ErrRoomFull         = errors.New("room is full")
	ErrInvalidName      = errors.New("invalid display name")
	ErrAlreadyInRoom    = errors.New("already in a room")
	ErrNotInRoom        = errors.New("not in a room")
	ErrRoomLimitReached = errors.New("room limit reached")
	ErrRateLimited      = errors.New("rate limited")
	ErrSessionClosed    = errors.New("session is closed")
)

// Invariant faults. These surface to the operator, not the client.
var (
	ErrCodeSpaceExhausted = errors.New("could not generate a unique room code")
	ErrMembershipDesync   = errors.New("room membership out of sync")
)

// ErrDeliveryFailed marks a single recipient that could not be reached
// during a fan-out.
var ErrDeliveryFailed = errors.New("transport delivery failed")

// IsFault reports whether err is an invariant violation rather than a
// client-recoverable condition.
func IsFault(err error) bool {
	return errors.Is(err, ErrCodeSpaceExhausted) || errors.Is(err, ErrMembershipDesync)
}
