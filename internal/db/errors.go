package db

import "errors"

var (
	ErrSessionNotFound = errors.New("transfer session not found")
	ErrCodeTaken       = errors.New("session code already in use")
	// ErrClaimConflict means the session was not claimable: it is already
	// downloaded, expired, or gone.
	ErrClaimConflict = errors.New("session could not be claimed")

	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already in use")
)
