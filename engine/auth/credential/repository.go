package credential

import (
	"context"
	"errors"
	"time"

	"github.com/kishore28kumar/pulss/engine/auth/principal"
	"github.com/kishore28kumar/pulss/engine/core"
)

// ErrNotFound is returned when no credential matches the lookup.
var ErrNotFound = errors.New("credential not found")

// Repository defines the interface for credential data access.
type Repository interface {
	// Create persists a new credential.
	Create(ctx context.Context, cred *Credential) error
	// GetByID retrieves a credential by its ID.
	GetByID(ctx context.Context, id core.ID) (*Credential, error)
	// GetByFingerprint retrieves a credential by its SHA-256 fingerprint.
	GetByFingerprint(ctx context.Context, fingerprint []byte) (*Credential, error)
	// List retrieves credentials within a tenant with pagination.
	List(ctx context.Context, tenantID core.ID, limit, offset int) ([]*Credential, error)
	// UpdateStatus transitions a credential's status. Credentials are never
	// deleted.
	UpdateStatus(ctx context.Context, id core.ID, status Status) error
	// TouchLastUsed updates the last-used timestamp and increments the total
	// usage counter in one statement.
	TouchLastUsed(ctx context.Context, id core.ID, at time.Time) error
	// RecordOutcome increments the success or failure usage counter.
	RecordOutcome(ctx context.Context, id core.ID, success bool) error
	// GetPrincipal retrieves the principal behind a credential.
	GetPrincipal(ctx context.Context, id core.ID) (*principal.Principal, error)
}
