// Package repository implements the MySQL persistence layer. Error
// sentinels defined here let handlers distinguish failure scenarios:
// ErrEventNotFound maps to 404, ErrForbidden to 403, ErrConflict to 409.
package repository

import "errors"

// ErrEventNotFound is returned when an event ID or join code does not
// resolve to an event row.
var ErrEventNotFound = errors.New("event not found")

// ErrGuestNotFound is returned when a guest ID does not exist.
var ErrGuestNotFound = errors.New("guest not found")

// ErrSongNotFound is returned when a catalog song ID does not exist or
// the song is inactive.
var ErrSongNotFound = errors.New("catalog song not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state.
var ErrConflict = errors.New("conflict")
