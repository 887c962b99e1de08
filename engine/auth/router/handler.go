package router

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kishore28kumar/pulss/engine/auth"
	"github.com/kishore28kumar/pulss/engine/auth/credential"
	"github.com/kishore28kumar/pulss/engine/auth/uc"
	"github.com/kishore28kumar/pulss/engine/core"
	srvrouter "github.com/kishore28kumar/pulss/engine/infra/server/router"
	"github.com/kishore28kumar/pulss/engine/tenant"
	"github.com/kishore28kumar/pulss/pkg/logger"
)

// GenerateKeyRequest is the payload for creating a new API key.
type GenerateKeyRequest struct {
	Name string `json:"name" binding:"required"`
}

// GenerateKeyData contains the generated key. The plaintext value appears
// here exactly once and is never retrievable again.
type GenerateKeyData struct {
	ID     core.ID `json:"id"`
	Name   string  `json:"name"`
	APIKey string  `json:"api_key"`
}

// Handler handles credential management HTTP requests
type Handler struct {
	factory *uc.Factory
}

// NewHandler creates a new credential handler
func NewHandler(factory *uc.Factory) *Handler {
	return &Handler{factory: factory}
}

// GenerateKey creates a new API key for the authenticated principal within
// the resolved tenant.
func (h *Handler) GenerateKey(c *gin.Context) {
	var req GenerateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		srvrouter.RespondError(c, srvrouter.ErrBadRequestCode, "Invalid request body")
		return
	}
	prin, ok := auth.GetPrincipal(c)
	if !ok {
		srvrouter.RespondError(c, srvrouter.ErrInvalidCredentialCode, "Authentication required")
		return
	}
	var tenantID *core.ID
	if id, ok := tenant.IDFromContext(c.Request.Context()); ok {
		tenantID = &id
	}
	cred, err := h.factory.GenerateCredential(tenantID, prin.ID, req.Name).Execute(c.Request.Context())
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("key generation failed", "error", err)
		srvrouter.RespondError(c, srvrouter.ErrBadRequestCode, "Could not generate key")
		return
	}
	srvrouter.RespondCreated(c, GenerateKeyData{ID: cred.ID, Name: cred.Name, APIKey: cred.Key})
}

// ListKeys returns the resolved tenant's credentials. Key material is never
// included.
func (h *Handler) ListKeys(c *gin.Context) {
	tenantID, ok := tenant.IDFromContext(c.Request.Context())
	if !ok {
		srvrouter.RespondError(c, srvrouter.ErrTenantRequiredCode, "Tenant context required")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	creds, err := h.factory.ListCredentials(tenantID, limit, offset).Execute(c.Request.Context())
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("key listing failed", "error", err)
		srvrouter.RespondError(c, srvrouter.ErrInternalCode, "Could not list keys")
		return
	}
	srvrouter.RespondOK(c, creds)
}

// RevokeKey transitions a credential to revoked. The resolved tenant scopes
// the revocation: keys owned by another tenant cannot be touched.
func (h *Handler) RevokeKey(c *gin.Context) {
	id, err := core.ParseID(c.Param("id"))
	if err != nil {
		srvrouter.RespondError(c, srvrouter.ErrBadRequestCode, "Invalid key ID")
		return
	}
	var ownerID *core.ID
	if tenantID, ok := tenant.IDFromContext(c.Request.Context()); ok {
		ownerID = &tenantID
	}
	if err := h.factory.RevokeCredential(id, ownerID).Execute(c.Request.Context()); err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			srvrouter.RespondError(c, srvrouter.ErrNotFoundCode, "Key not found")
			return
		}
		if errors.Is(err, tenant.ErrIsolationViolation) {
			srvrouter.RespondError(c, srvrouter.ErrTenantIsolationCode, "Key belongs to another tenant")
			return
		}
		logger.FromContext(c.Request.Context()).Error("key revocation failed", "error", err)
		srvrouter.RespondError(c, srvrouter.ErrInternalCode, "Could not revoke key")
		return
	}
	srvrouter.RespondOK(c, gin.H{"revoked": id})
}
