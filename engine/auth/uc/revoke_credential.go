package uc

import (
	"context"
	"errors"
	"fmt"

	"github.com/kishore28kumar/pulss/engine/auth/credential"
	"github.com/kishore28kumar/pulss/engine/core"
	"github.com/kishore28kumar/pulss/engine/tenant"
	"github.com/kishore28kumar/pulss/pkg/logger"
)

// RevokeCredential transitions a credential to revoked. Credentials are never
// deleted so the audit trail stays intact. Tenant-scoped callers can only
// revoke credentials their own tenant owns; a nil tenantID means a platform
// caller, which may revoke any credential.
type RevokeCredential struct {
	repo     credential.Repository
	id       core.ID
	tenantID *core.ID
}

// NewRevokeCredential creates the revoke use case.
func NewRevokeCredential(repo credential.Repository, id core.ID, tenantID *core.ID) *RevokeCredential {
	return &RevokeCredential{repo: repo, id: id, tenantID: tenantID}
}

// Execute revokes the credential.
func (uc *RevokeCredential) Execute(ctx context.Context) error {
	log := logger.FromContext(ctx)
	cred, err := uc.repo.GetByID(ctx, uc.id)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return credential.ErrNotFound
		}
		return fmt.Errorf("failed to load credential: %w", err)
	}
	if uc.tenantID != nil {
		if cred.TenantID == nil || *cred.TenantID != *uc.tenantID {
			log.Warn("cross-tenant credential revocation rejected",
				"credential_id", uc.id, "tenant_id", *uc.tenantID)
			return tenant.ErrIsolationViolation
		}
	}
	if err := uc.repo.UpdateStatus(ctx, uc.id, credential.StatusRevoked); err != nil {
		log.Error("failed to revoke credential", "credential_id", uc.id, "error", err)
		return fmt.Errorf("failed to revoke credential: %w", err)
	}
	log.Info("credential revoked", "credential_id", uc.id)
	return nil
}

// ListCredentials lists a tenant's credentials with pagination.
type ListCredentials struct {
	repo     credential.Repository
	tenantID core.ID
	limit    int
	offset   int
}

// NewListCredentials creates the list use case.
func NewListCredentials(repo credential.Repository, tenantID core.ID, limit, offset int) *ListCredentials {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return &ListCredentials{repo: repo, tenantID: tenantID, limit: limit, offset: offset}
}

// Execute returns the page of credentials.
func (uc *ListCredentials) Execute(ctx context.Context) ([]*credential.Credential, error) {
	creds, err := uc.repo.List(ctx, uc.tenantID, uc.limit, uc.offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	return creds, nil
}
