package credential

import (
	"fmt"
	"strings"
	"time"

	"github.com/kishore28kumar/pulss/engine/core"
)

// Status represents the status of a credential. Credentials are never
// physically deleted, only status-transitioned, to preserve audit continuity.
type Status string

const (
	StatusActive    Status = "active"
	StatusRevoked   Status = "revoked"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"
)

// IsValid checks if the credential status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusRevoked, StatusExpired, StatusSuspended:
		return true
	default:
		return false
	}
}

const (
	// KeyPrefix is the prefix for all Pulss API keys.
	KeyPrefix = "plss_"
	// KeyRandomLength is the number of random characters after the prefix.
	KeyRandomLength = 32
)

// WindowLimits holds the per-window request budgets for a credential.
// A zero limit means the window is unlimited.
type WindowLimits struct {
	PerMinute int `json:"per_minute" db:"rate_limit_per_minute"`
	PerHour   int `json:"per_hour"   db:"rate_limit_per_hour"`
	PerDay    int `json:"per_day"    db:"rate_limit_per_day"`
	PerMonth  int `json:"per_month"  db:"rate_limit_per_month"`
}

// UsageCounters tracks lifetime request counts for a credential.
type UsageCounters struct {
	Total   int64 `json:"total"   db:"usage_total"`
	Success int64 `json:"success" db:"usage_success"`
	Failure int64 `json:"failure" db:"usage_failure"`
}

// Credential identifies an API key. Secret material is stored only as a bcrypt
// hash plus a SHA-256 fingerprint for O(1) lookups.
type Credential struct {
	ID          core.ID  `json:"id"           db:"id"`
	TenantID    *core.ID `json:"tenant_id"    db:"tenant_id"` // nil = platform-level key
	PrincipalID core.ID  `json:"principal_id" db:"principal_id"`
	KeyHash     string   `json:"-"            db:"key_hash"`
	Fingerprint []byte   `json:"-"            db:"fingerprint"`
	KeyPrefix   string   `json:"key_prefix"   db:"key_prefix"`
	Name        string   `json:"name"         db:"name"`
	// Scopes are coarse grants attached to the key itself (e.g. "orders:read").
	Scopes []string `json:"scopes" db:"scopes"`
	// Permissions maps resource to allowed actions; "*" covers everything.
	Permissions map[string][]string `json:"permissions"            db:"permissions"`
	Status      Status              `json:"status"                 db:"status"`
	ExpiresAt   *time.Time          `json:"expires_at,omitempty"   db:"expires_at"`
	Limits      WindowLimits        `json:"limits"                 db:"-"`
	Usage       UsageCounters       `json:"usage"                  db:"-"`
	LastUsedAt  *time.Time          `json:"last_used_at,omitempty" db:"last_used_at"`
	CreatedAt   time.Time           `json:"created_at"             db:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"             db:"updated_at"`
	// Key is the plaintext key value, only populated when generating a new key.
	Key string `json:"key,omitempty" db:"-"`
}

// NewCredential creates a credential record for a principal. TenantID may be
// nil only for platform-level keys; it is never ambiguous.
func NewCredential(tenantID *core.ID, principalID core.ID, name string) (*Credential, error) {
	if principalID.IsZero() {
		return nil, fmt.Errorf("principal ID cannot be empty")
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	id, err := core.NewID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate credential ID: %w", err)
	}
	now := time.Now().UTC()
	return &Credential{
		ID:          id,
		TenantID:    tenantID,
		PrincipalID: principalID,
		Name:        name,
		Status:      StatusActive,
		Limits: WindowLimits{
			PerMinute: 60,
			PerHour:   3600,
			PerDay:    50000,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ValidateName validates the credential display name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("credential name cannot be empty")
	}
	if len(name) < 3 {
		return fmt.Errorf("credential name must be at least 3 characters long")
	}
	if len(name) > 255 {
		return fmt.Errorf("credential name must be at most 255 characters long")
	}
	return nil
}

// Validate validates the credential entity.
func (c *Credential) Validate() error {
	if c.ID.IsZero() {
		return fmt.Errorf("credential ID cannot be empty")
	}
	if c.PrincipalID.IsZero() {
		return fmt.Errorf("principal ID cannot be empty")
	}
	if c.KeyHash == "" {
		return fmt.Errorf("key hash cannot be empty")
	}
	if len(c.Fingerprint) == 0 {
		return fmt.Errorf("fingerprint cannot be empty")
	}
	if err := ValidateName(c.Name); err != nil {
		return err
	}
	if !c.Status.IsValid() {
		return fmt.Errorf("invalid credential status: %s", c.Status)
	}
	return nil
}

// IsGlobal reports whether the key is a platform-level (cross-tenant) key.
func (c *Credential) IsGlobal() bool {
	return c.TenantID == nil
}

// IsActive returns true if the credential is active and not expired.
func (c *Credential) IsActive() bool {
	if c.Status != StatusActive {
		return false
	}
	return !c.IsExpired()
}

// IsExpired returns true if the credential has passed its expiry.
func (c *Credential) IsExpired() bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(time.Now().UTC())
}

// Revoke transitions the credential to revoked.
func (c *Credential) Revoke() {
	c.Status = StatusRevoked
	c.UpdatedAt = time.Now().UTC()
}

// Suspend transitions the credential to suspended.
func (c *Credential) Suspend() {
	c.Status = StatusSuspended
	c.UpdatedAt = time.Now().UTC()
}

// HasScope reports whether the key carries the given scope.
func (c *Credential) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope || s == "*" {
			return true
		}
	}
	return false
}

// AllowsAction checks the key-level permission map for resource:action.
// An empty map delegates entirely to the principal's roles.
func (c *Credential) AllowsAction(resource, action string) bool {
	if len(c.Permissions) == 0 {
		return true
	}
	if actions, ok := c.Permissions["*"]; ok && containsAction(actions, action) {
		return true
	}
	actions, ok := c.Permissions[resource]
	return ok && containsAction(actions, action)
}

func containsAction(actions []string, action string) bool {
	for _, a := range actions {
		if a == action || a == "*" {
			return true
		}
	}
	return false
}

// ValidateFormat rejects raw key strings that cannot possibly be Pulss keys
// before any store lookup happens.
func ValidateFormat(raw string) error {
	if !strings.HasPrefix(raw, KeyPrefix) {
		return fmt.Errorf("invalid key format: missing %q prefix", KeyPrefix)
	}
	if len(raw) != len(KeyPrefix)+KeyRandomLength {
		return fmt.Errorf("invalid key format: wrong length")
	}
	return nil
}
