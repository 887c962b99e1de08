package principal

import (
	"time"

	"github.com/kishore28kumar/pulss/engine/core"
)

// Type represents the kind of identity making a request.
type Type string

const (
	TypeAdmin    Type = "admin"
	TypeCustomer Type = "customer"
	TypePartner  Type = "partner"
)

// Valid checks if the type is a known value.
func (t Type) Valid() bool {
	switch t {
	case TypeAdmin, TypeCustomer, TypePartner:
		return true
	default:
		return false
	}
}

// Status represents the account state of a principal.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Principal is the authenticated identity behind a credential.
type Principal struct {
	ID       core.ID `json:"id"        db:"id"`
	TenantID *core.ID `json:"tenant_id" db:"tenant_id"`
	Type     Type    `json:"type"      db:"type"`
	Email    string  `json:"email"     db:"email"`
	// SuperAdmin marks platform operators allowed to act across tenants.
	SuperAdmin bool `json:"super_admin" db:"super_admin"`
	// LegacyRole is the coarse role name consulted when a tenant's RBAC flag
	// is off (e.g. "admin", "staff", "viewer").
	LegacyRole string    `json:"legacy_role" db:"legacy_role"`
	Status     Status    `json:"status"      db:"status"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"`
}

// IsActive reports whether the principal may authenticate.
func (p *Principal) IsActive() bool {
	return p.Status == StatusActive
}

// BelongsTo reports whether the principal is scoped to the given tenant.
// Super-admins belong to every tenant.
func (p *Principal) BelongsTo(tenantID core.ID) bool {
	if p.SuperAdmin {
		return true
	}
	return p.TenantID != nil && *p.TenantID == tenantID
}
