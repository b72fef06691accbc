package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionExpired occurs when a bearer token is unknown or expired.
	ErrSessionExpired = errors.New("session expired")
	// ErrTokenMissing occurs when a request carries no bearer token.
	ErrTokenMissing = errors.New("bearer token missing")
)
