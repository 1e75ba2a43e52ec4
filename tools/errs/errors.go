package errs

// Codes below 2000 are auth/session failures, 2xxx are chat action
// failures, 3xxx are store failures.
var (
	ErrTokenMissing    = NewCodeError(1001, "token missing")
	ErrTokenInvalid    = NewCodeError(1002, "token invalid or expired")
	ErrTokenSuperseded = NewCodeError(1003, "token superseded by a newer login")
	ErrBadCredentials  = NewCodeError(1004, "bad username or password")

	ErrEmptyContent = NewCodeError(2001, "message content is empty")
	ErrUserNotFound = NewCodeError(2002, "user not found")
	ErrNotJoined    = NewCodeError(2003, "join required before sending")
	ErrBadRequest   = NewCodeError(2004, "bad request")

	ErrStoreUnavailable = NewCodeError(3001, "store unavailable")
)
