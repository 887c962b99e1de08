package credential

import (
	"strings"
	"testing"
	"time"

	"github.com/kishore28kumar/pulss/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validKey() string {
	return KeyPrefix + strings.Repeat("a", KeyRandomLength)
}

func TestNewCredential(t *testing.T) {
	t.Run("Should create an active credential with default limits", func(t *testing.T) {
		principalID := core.MustNewID()
		cred, err := NewCredential(nil, principalID, "billing service")
		require.NoError(t, err)
		assert.False(t, cred.ID.IsZero())
		assert.Equal(t, StatusActive, cred.Status)
		assert.Equal(t, 60, cred.Limits.PerMinute)
		assert.Equal(t, 3600, cred.Limits.PerHour)
		assert.Equal(t, 50000, cred.Limits.PerDay)
		assert.Zero(t, cred.Limits.PerMonth)
		assert.True(t, cred.IsGlobal())
	})

	t.Run("Should scope the credential to a tenant when one is given", func(t *testing.T) {
		tenantID := core.MustNewID()
		cred, err := NewCredential(&tenantID, core.MustNewID(), "storefront")
		require.NoError(t, err)
		assert.False(t, cred.IsGlobal())
		assert.Equal(t, tenantID, *cred.TenantID)
	})

	t.Run("Should reject an empty principal", func(t *testing.T) {
		_, err := NewCredential(nil, "", "name here")
		assert.Error(t, err)
	})

	t.Run("Should reject invalid names", func(t *testing.T) {
		_, err := NewCredential(nil, core.MustNewID(), "ab")
		assert.Error(t, err)
		_, err = NewCredential(nil, core.MustNewID(), "")
		assert.Error(t, err)
	})
}

func TestCredential_Lifecycle(t *testing.T) {
	t.Run("Should not report active once revoked", func(t *testing.T) {
		cred, err := NewCredential(nil, core.MustNewID(), "rotating key")
		require.NoError(t, err)
		assert.True(t, cred.IsActive())
		cred.Revoke()
		assert.Equal(t, StatusRevoked, cred.Status)
		assert.False(t, cred.IsActive())
	})

	t.Run("Should not report active once suspended", func(t *testing.T) {
		cred, err := NewCredential(nil, core.MustNewID(), "rotating key")
		require.NoError(t, err)
		cred.Suspend()
		assert.Equal(t, StatusSuspended, cred.Status)
		assert.False(t, cred.IsActive())
	})

	t.Run("Should report expired when past expiry", func(t *testing.T) {
		cred, err := NewCredential(nil, core.MustNewID(), "short lived")
		require.NoError(t, err)
		past := time.Now().UTC().Add(-time.Minute)
		cred.ExpiresAt = &past
		assert.True(t, cred.IsExpired())
		assert.False(t, cred.IsActive())
	})

	t.Run("Should not report expired without an expiry", func(t *testing.T) {
		cred, err := NewCredential(nil, core.MustNewID(), "long lived")
		require.NoError(t, err)
		assert.False(t, cred.IsExpired())
	})
}

func TestCredential_HasScope(t *testing.T) {
	t.Run("Should match exact scopes and the wildcard", func(t *testing.T) {
		cred := &Credential{Scopes: []string{"orders:read"}}
		assert.True(t, cred.HasScope("orders:read"))
		assert.False(t, cred.HasScope("orders:write"))
		cred.Scopes = []string{"*"}
		assert.True(t, cred.HasScope("orders:write"))
	})
}

func TestCredential_AllowsAction(t *testing.T) {
	t.Run("Should delegate to roles when the map is empty", func(t *testing.T) {
		cred := &Credential{}
		assert.True(t, cred.AllowsAction("orders", "delete"))
	})

	t.Run("Should check resource actions", func(t *testing.T) {
		cred := &Credential{Permissions: map[string][]string{"orders": {"read", "create"}}}
		assert.True(t, cred.AllowsAction("orders", "read"))
		assert.False(t, cred.AllowsAction("orders", "delete"))
		assert.False(t, cred.AllowsAction("products", "read"))
	})

	t.Run("Should honor resource and action wildcards", func(t *testing.T) {
		cred := &Credential{Permissions: map[string][]string{"*": {"read"}}}
		assert.True(t, cred.AllowsAction("anything", "read"))
		cred = &Credential{Permissions: map[string][]string{"orders": {"*"}}}
		assert.True(t, cred.AllowsAction("orders", "delete"))
	})
}

func TestValidateFormat(t *testing.T) {
	t.Run("Should accept a well-formed key", func(t *testing.T) {
		assert.NoError(t, ValidateFormat(validKey()))
	})

	t.Run("Should reject a missing prefix", func(t *testing.T) {
		assert.Error(t, ValidateFormat(strings.Repeat("a", KeyRandomLength+5)))
	})

	t.Run("Should reject a wrong length", func(t *testing.T) {
		assert.Error(t, ValidateFormat(KeyPrefix+"short"))
		assert.Error(t, ValidateFormat(validKey()+"x"))
	})
}

func TestCredential_Validate(t *testing.T) {
	t.Run("Should require hash and fingerprint", func(t *testing.T) {
		cred, err := NewCredential(nil, core.MustNewID(), "incomplete")
		require.NoError(t, err)
		assert.Error(t, cred.Validate())
		cred.KeyHash = "$2a$10$hash"
		cred.Fingerprint = []byte("fp")
		assert.NoError(t, cred.Validate())
	})
}
