package uc

import (
	"github.com/kishore28kumar/pulss/engine/auth/credential"
	"github.com/kishore28kumar/pulss/engine/core"
	"github.com/kishore28kumar/pulss/engine/tenant"
)

// Factory builds auth use cases over a shared repository.
type Factory struct {
	repo       credential.Repository
	flags      tenant.FlagSource
	bcryptCost int
	bgSem      chan struct{}
}

// NewFactory creates a use case factory. backgroundSlots bounds the deferred
// last-used updates in flight across all validations.
func NewFactory(repo credential.Repository, flags tenant.FlagSource, bcryptCost, backgroundSlots int) *Factory {
	if backgroundSlots <= 0 {
		backgroundSlots = defaultBackgroundSlots
	}
	return &Factory{
		repo:       repo,
		flags:      flags,
		bcryptCost: bcryptCost,
		bgSem:      make(chan struct{}, backgroundSlots),
	}
}

// ValidateCredential builds the validation use case for a raw key string.
func (f *Factory) ValidateCredential(plaintext string) *ValidateCredential {
	return NewValidateCredential(f.repo, f.flags, plaintext, f.bgSem)
}

// GenerateCredential builds the generation use case.
func (f *Factory) GenerateCredential(tenantID *core.ID, principalID core.ID, name string) *GenerateCredential {
	return NewGenerateCredential(f.repo, tenantID, principalID, name, f.bcryptCost)
}

// RevokeCredential builds the revocation use case. tenantID is the caller's
// resolved tenant, nil for platform callers.
func (f *Factory) RevokeCredential(id core.ID, tenantID *core.ID) *RevokeCredential {
	return NewRevokeCredential(f.repo, id, tenantID)
}

// ListCredentials builds the listing use case.
func (f *Factory) ListCredentials(tenantID core.ID, limit, offset int) *ListCredentials {
	return NewListCredentials(f.repo, tenantID, limit, offset)
}

// Repository exposes the underlying repository for outcome recording.
func (f *Factory) Repository() credential.Repository {
	return f.repo
}
