package auth

import "errors"

var (
	// ErrInvalidStorageID rejects ids outside 3-64 characters of [A-Za-z0-9_-].
	ErrInvalidStorageID = errors.New("storage id must be 3-64 characters of letters, digits, '_' or '-'")
	// ErrInvalidPassword rejects passwords outside 6-72 bytes.
	ErrInvalidPassword = errors.New("password must be between 6 and 72 bytes")
	// ErrStorageTaken indicates the storage id is already registered.
	ErrStorageTaken = errors.New("storage id already exists")
	// ErrInvalidCredentials is returned when authentication fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized represents a missing, invalid or foreign session.
	ErrUnauthorized = errors.New("unauthorized")
)
