package services

import "errors"

// Lifecycle and input errors are returned synchronously and shown to the end
// user. Transport failures never appear here; they are swallowed at the
// realtime boundary.
var (
	ErrNotFound            = errors.New("session not found")
	ErrAlreadyEnded        = errors.New("session ended")
	ErrExpired             = errors.New("session expired")
	ErrFull                = errors.New("session full")
	ErrInvalidInput        = errors.New("invalid input")
	ErrAllocationExhausted = errors.New("unable to allocate session code")
)
