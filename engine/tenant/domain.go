package tenant

import (
	"fmt"
	"net"
	"time"

	"github.com/kishore28kumar/pulss/engine/core"
)

// Status represents the lifecycle state of a tenant.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// FeatureFlags gate optional pipeline stages per tenant. A disabled flag turns
// the corresponding stage into a pass-through; RBAC additionally falls back to
// the legacy static mapping instead of being bypassed.
type FeatureFlags struct {
	RBAC         bool `json:"rbac"          db:"flag_rbac"`
	RateLimiting bool `json:"rate_limiting" db:"flag_rate_limiting"`
	IPWhitelist  bool `json:"ip_whitelist"  db:"flag_ip_whitelist"`
	GeoFencing   bool `json:"geo_fencing"   db:"flag_geo_fencing"`
	AuditLogging bool `json:"audit_logging" db:"flag_audit_logging"`
	APIKeys      bool `json:"api_keys"      db:"flag_api_keys"`
}

// DefaultFlags returns the flags applied to tenants without an explicit record.
func DefaultFlags() FeatureFlags {
	return FeatureFlags{
		RBAC:         true,
		RateLimiting: true,
		AuditLogging: true,
		APIKeys:      true,
	}
}

// Tenant represents an isolated store within the platform.
type Tenant struct {
	ID          core.ID      `json:"id"           db:"id"`
	Name        string       `json:"name"         db:"name"`
	Slug        string       `json:"slug"         db:"slug"`
	Status      Status       `json:"status"       db:"status"`
	Flags       FeatureFlags `json:"flags"        db:"-"`
	IPWhitelist []string     `json:"ip_whitelist" db:"ip_whitelist"`
	CreatedAt   time.Time    `json:"created_at"   db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"   db:"updated_at"`
}

// IsActive reports whether the tenant may serve traffic.
func (t *Tenant) IsActive() bool {
	return t.Status == StatusActive
}

// AllowsIP checks the client IP against the tenant's whitelist. An empty
// whitelist allows everything; entries may be single addresses or CIDR blocks.
func (t *Tenant) AllowsIP(ip string) bool {
	if len(t.IPWhitelist) == 0 {
		return true
	}
	addr := net.ParseIP(ip)
	if addr == nil {
		return false
	}
	for _, entry := range t.IPWhitelist {
		if _, cidr, err := net.ParseCIDR(entry); err == nil {
			if cidr.Contains(addr) {
				return true
			}
			continue
		}
		if allowed := net.ParseIP(entry); allowed != nil && allowed.Equal(addr) {
			return true
		}
	}
	return false
}

// Validate validates the tenant entity.
func (t *Tenant) Validate() error {
	if t.ID.IsZero() {
		return fmt.Errorf("tenant ID cannot be empty")
	}
	if t.Slug == "" {
		return fmt.Errorf("tenant slug cannot be empty")
	}
	return nil
}
