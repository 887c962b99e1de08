package rbac

import (
	"strings"
	"time"

	"github.com/kishore28kumar/pulss/engine/core"
)

// Permission is a fine-grained named capability, e.g. "products:delete".
type Permission struct {
	ID       core.ID `json:"id"       db:"id"`
	Name     string  `json:"name"     db:"name"`
	Category string  `json:"category" db:"category"`
}

// Role is a named, reusable bundle of permissions. System roles have a nil
// TenantID and are immutable; custom roles belong to exactly one tenant and
// cannot be assigned outside it.
type Role struct {
	ID          core.ID   `json:"id"          db:"id"`
	TenantID    *core.ID  `json:"tenant_id"   db:"tenant_id"`
	Name        string    `json:"name"        db:"name"`
	Permissions []string  `json:"permissions" db:"permissions"`
	CreatedAt   time.Time `json:"created_at"  db:"created_at"`
}

// IsSystem reports whether the role is a platform-defined, tenant-less role.
func (r *Role) IsSystem() bool {
	return r.TenantID == nil
}

// AssignableIn reports whether the role may be held within the given tenant.
func (r *Role) AssignableIn(tenantID core.ID) bool {
	if r.IsSystem() {
		return true
	}
	return *r.TenantID == tenantID
}

// ResourceOf returns the resource prefix of a permission name:
// "products:delete" -> "products". Names without a separator are their own
// resource.
func ResourceOf(permission string) string {
	if i := strings.IndexByte(permission, ':'); i >= 0 {
		return permission[:i]
	}
	return permission
}

// ActionOf returns the action part of a permission name, or "" when absent.
func ActionOf(permission string) string {
	if i := strings.IndexByte(permission, ':'); i >= 0 {
		return permission[i+1:]
	}
	return ""
}
