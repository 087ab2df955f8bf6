package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers missing collections, missing files and unknown names.
	ErrNotFound = errors.New("not found")
	// ErrInvalidIndex is returned for an empty image set or an index outside [0, total).
	ErrInvalidIndex = errors.New("invalid image or index")
	// ErrDecode marks a malformed upload payload or undecodable image bytes.
	ErrDecode = errors.New("decode failed")
	// ErrIO wraps filesystem failures during read, write or archive.
	ErrIO = errors.New("io failure")
)

func Errorf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Wrap tags cause with kind while keeping both reachable through errors.Is.
func Wrap(kind error, cause error, msg string) error {
	return fmt.Errorf("%w: %s: %w", kind, msg, cause)
}
