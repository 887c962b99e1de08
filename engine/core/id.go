package core

import (
	"fmt"

	"github.com/google/uuid"
)

// ID is the canonical identifier type for all entities (tenants, credentials,
// principals, roles, audit events).
type ID string

// NewID generates a new random ID.
func NewID() (ID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate ID: %w", err)
	}
	return ID(id.String()), nil
}

// MustNewID generates a new ID and panics on failure. Reserved for tests and
// process startup paths.
func MustNewID() ID {
	id, err := NewID()
	if err != nil {
		panic(err)
	}
	return id
}

// ParseID validates the given string as an ID.
func ParseID(s string) (ID, error) {
	if s == "" {
		return "", fmt.Errorf("id cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid id %q: %w", s, err)
	}
	return ID(s), nil
}

func (i ID) String() string {
	return string(i)
}

// IsZero reports whether the ID is unset.
func (i ID) IsZero() bool {
	return i == ""
}
