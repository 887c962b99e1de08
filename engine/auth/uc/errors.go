package uc

import "errors"

// Typed authentication failures. All of them fail closed with 401 at the edge.
var (
	// ErrInvalidCredential covers malformed keys and keys with no matching
	// record; callers must not be able to tell the two apart.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrCredentialExpired is returned when the key's expiry is in the past.
	ErrCredentialExpired = errors.New("credential expired")
	// ErrCredentialDisabled covers revoked and suspended keys, inactive
	// principals, and tenants whose API-key feature flag is off.
	ErrCredentialDisabled = errors.New("credential disabled")
)
