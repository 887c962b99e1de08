package uc

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/kishore28kumar/pulss/engine/auth/credential"
	"github.com/kishore28kumar/pulss/engine/auth/principal"
	"github.com/kishore28kumar/pulss/engine/tenant"
	"github.com/kishore28kumar/pulss/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// Pre-computed bcrypt hash of an arbitrary string (cost=10) for
// timing-equalized comparisons when the fingerprint lookup misses.
var dummyBcryptHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOa5hnhtNGRjukDWO2xzg3sjQTL1dDQ2u")

// defaultBackgroundSlots bounds the deferred last-used updates when no
// explicit slot count is configured.
const defaultBackgroundSlots = 10

// ValidateCredential resolves a raw key string to a credential and its
// principal, or a typed failure.
type ValidateCredential struct {
	repo      credential.Repository
	flags     tenant.FlagSource
	plaintext string
	sem       chan struct{}
}

// NewValidateCredential creates the validate use case. sem is the shared
// background task semaphore; nil gets a private one with the default size.
func NewValidateCredential(
	repo credential.Repository,
	flags tenant.FlagSource,
	plaintext string,
	sem chan struct{},
) *ValidateCredential {
	if sem == nil {
		sem = make(chan struct{}, defaultBackgroundSlots)
	}
	return &ValidateCredential{repo: repo, flags: flags, plaintext: plaintext, sem: sem}
}

// Execute runs the validation chain: format check, fingerprint lookup, hash
// verification, expiry, tenant feature flag, principal status. On success the
// last-used timestamp and total usage counter are updated as a deferred side
// effect that never blocks the decision.
func (uc *ValidateCredential) Execute(
	ctx context.Context,
) (*credential.Credential, *principal.Principal, error) {
	log := logger.FromContext(ctx)

	if err := credential.ValidateFormat(uc.plaintext); err != nil {
		log.Debug("credential format rejected", "error", err)
		return nil, nil, ErrInvalidCredential
	}

	fingerprint := sha256.Sum256([]byte(uc.plaintext))
	cred, err := uc.repo.GetByFingerprint(ctx, fingerprint[:])
	if err != nil {
		//nolint:errcheck // timing equalization on the not-found path
		_ = bcrypt.CompareHashAndPassword(dummyBcryptHash, []byte(uc.plaintext))
		if errors.Is(err, credential.ErrNotFound) {
			log.Debug("credential not found")
			return nil, nil, ErrInvalidCredential
		}
		log.Error("failed to look up credential", "error", err)
		return nil, nil, fmt.Errorf("internal error validating credential: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.KeyHash), []byte(uc.plaintext)); err != nil {
		log.Debug("credential hash verification failed")
		return nil, nil, ErrInvalidCredential
	}

	if cred.IsExpired() {
		return nil, nil, ErrCredentialExpired
	}
	if cred.Status != credential.StatusActive {
		return nil, nil, ErrCredentialDisabled
	}

	if cred.TenantID != nil {
		flags, err := uc.flags.Flags(ctx, *cred.TenantID)
		if err != nil {
			log.Error("failed to resolve tenant flags", "tenant_id", cred.TenantID, "error", err)
			return nil, nil, fmt.Errorf("internal error validating credential: %w", err)
		}
		if !flags.APIKeys {
			return nil, nil, ErrCredentialDisabled
		}
	}

	prin, err := uc.repo.GetPrincipal(ctx, cred.ID)
	if err != nil {
		log.Error("failed to get principal for valid credential",
			"credential_id", cred.ID, "error", err)
		return nil, nil, fmt.Errorf("failed to get principal for credential: %w", err)
	}
	if !prin.IsActive() {
		return nil, nil, ErrCredentialDisabled
	}

	uc.touchInBackground(ctx, cred)
	return cred, prin, nil
}

// touchInBackground updates last-used and the total counter without blocking
// the caller. The update is a single SQL statement executed at most once per
// request, so a missed increment is possible under load but double-counting
// is not.
func (uc *ValidateCredential) touchInBackground(ctx context.Context, cred *credential.Credential) {
	log := logger.FromContext(ctx)
	select {
	case uc.sem <- struct{}{}:
		go func() {
			defer func() { <-uc.sem }()
			// Detach cancellation but preserve values; bound execution time.
			bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := uc.repo.TouchLastUsed(bgCtx, cred.ID, time.Now().UTC()); err != nil {
				logger.FromContext(bgCtx).Warn("failed to update credential last used",
					"credential_id", cred.ID, "error", err)
			}
		}()
	default:
		// Semaphore full: skip the update rather than queue unbounded work.
		log.Debug("skipping credential last-used update due to high load",
			"credential_id", cred.ID)
	}
}
