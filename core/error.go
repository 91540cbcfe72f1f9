package core

type Error struct {
	msg string
	// sensitive is a flag to indicate if the error is sensitive or not.
	// If it is not, it can be returned to the client.
	Sensitive bool
}

func NewSensitiveError(msg string) *Error {
	return &Error{msg: msg, Sensitive: true}
}

func NewInsensitiveError(msg string) *Error {
	return &Error{msg: msg, Sensitive: false}
}

func (e *Error) Error() string {
	return e.msg
}

var (
	// ErrValidation marks an inbound payload that is malformed or misses a required field.
	// The event is dropped without notifying the client.
	ErrValidation = NewInsensitiveError("invalid payload")
	// ErrNotFound marks a target (connection, room, recipient) that is not present.
	// Callers treat it as a silent no-op.
	ErrNotFound = NewInsensitiveError("not found")
	// ErrRegistrationConflict is returned when a username is empty or already registered.
	ErrRegistrationConflict = NewInsensitiveError("Username taken or invalid")
)

