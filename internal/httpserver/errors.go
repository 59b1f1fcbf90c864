package httpserver

const (
	ErrBadBody          = "unreadable body"
	ErrInvalidMessage   = "invalid message"
	ErrInvalidSignature = "invalid signature"
	ErrDependency       = "dependency error"
)
