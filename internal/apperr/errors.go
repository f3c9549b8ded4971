// Package apperr defines the error taxonomy shared by repositories, services,
// and HTTP handlers. Repositories translate driver errors into these
// sentinels at the boundary; handlers map them to status codes with errors.Is
// and never expose driver text to clients.
package apperr

import "errors"

var (
	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUsername means registration hit the username uniqueness
	// constraint.
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrInvalidCredentials covers both unknown username and wrong password,
	// so callers cannot enumerate usernames.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUnauthorized means the caller is authenticated but not allowed to
	// perform the operation on this entity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation means the request payload is malformed or incomplete.
	ErrValidation = errors.New("validation failed")

	// ErrRecipientNotFound means a message was addressed to an unknown user.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrUnavailable means the store could not be reached. Transient;
	// deliberately distinct from the entity-level errors above.
	ErrUnavailable = errors.New("store unavailable")
)
