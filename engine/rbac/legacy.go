package rbac

// legacyRoleResources is the fixed fallback mapping used when a tenant's RBAC
// flag is off: coarse role name -> resource prefixes the role may touch.
// This is the single consolidated table; there is exactly one fallback branch.
var legacyRoleResources = map[string][]string{
	"admin": {
		"products", "orders", "customers", "categories",
		"billing", "reports", "settings", "credentials", "roles",
	},
	"manager": {
		"products", "orders", "customers", "categories", "reports",
	},
	"staff": {
		"products", "orders", "customers",
	},
	"viewer": {
		"reports",
	},
	"customer": {
		"orders", "profile",
	},
	"partner": {
		"products", "orders", "reports",
	},
}

// LegacyAllows answers the legacy mapping: the permission's resource prefix
// must be in the set for the principal's coarse role. Unknown roles get
// nothing.
func LegacyAllows(roleName, permission string) bool {
	resources, ok := legacyRoleResources[roleName]
	if !ok {
		return false
	}
	resource := ResourceOf(permission)
	for _, r := range resources {
		if r == resource {
			return true
		}
	}
	return false
}
