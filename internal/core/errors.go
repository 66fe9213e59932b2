package core

// Error codes for realtime errors.
const (
	ErrCodeRoomNotFound  = "room_not_found"
	ErrCodeAlreadyJoined = "already_joined"
	ErrCodeNotInRoom     = "not_in_room"
	ErrCodeBadRequest    = "bad_request"
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeInternal      = "internal"
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// NewError builds a CoreError.
func NewError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
