package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound      = errors.New("domain: not found")
	ErrNotEmpty      = errors.New("domain: board not empty")
	ErrAlreadyExists = errors.New("domain: already exists")
	ErrValidation    = errors.New("domain: validation failed")
	ErrRoomClosed    = errors.New("domain: room closed")
)
