package uc

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kishore28kumar/pulss/engine/auth/credential"
	"github.com/kishore28kumar/pulss/engine/auth/principal"
	"github.com/kishore28kumar/pulss/engine/core"
	"github.com/kishore28kumar/pulss/engine/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testKey = credential.KeyPrefix + "abcdefghijklmnopqrstuvwxyz012345"

type stubCredRepo struct {
	mu        sync.Mutex
	cred      *credential.Credential
	credErr   error
	prin      *principal.Principal
	prinErr   error
	touched   int
	statusSet []credential.Status
}

func (s *stubCredRepo) Create(context.Context, *credential.Credential) error { return nil }

func (s *stubCredRepo) GetByID(_ context.Context, id core.ID) (*credential.Credential, error) {
	if s.cred != nil && s.cred.ID == id {
		return s.cred, nil
	}
	return nil, credential.ErrNotFound
}

func (s *stubCredRepo) GetByFingerprint(_ context.Context, fp []byte) (*credential.Credential, error) {
	if s.credErr != nil {
		return nil, s.credErr
	}
	if s.cred == nil || !bytes.Equal(s.cred.Fingerprint, fp) {
		return nil, credential.ErrNotFound
	}
	return s.cred, nil
}

func (s *stubCredRepo) List(context.Context, core.ID, int, int) ([]*credential.Credential, error) {
	return nil, nil
}

func (s *stubCredRepo) UpdateStatus(_ context.Context, _ core.ID, status credential.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusSet = append(s.statusSet, status)
	return nil
}

func (s *stubCredRepo) TouchLastUsed(context.Context, core.ID, time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched++
	return nil
}

func (s *stubCredRepo) RecordOutcome(context.Context, core.ID, bool) error { return nil }

func (s *stubCredRepo) GetPrincipal(context.Context, core.ID) (*principal.Principal, error) {
	if s.prinErr != nil {
		return nil, s.prinErr
	}
	return s.prin, nil
}

func (s *stubCredRepo) touchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

type stubFlagSource struct {
	flags tenant.FeatureFlags
	err   error
}

func (s *stubFlagSource) Flags(context.Context, core.ID) (tenant.FeatureFlags, error) {
	return s.flags, s.err
}

func storedCredential(t *testing.T, tenantID *core.ID) *credential.Credential {
	t.Helper()
	cred, err := credential.NewCredential(tenantID, core.MustNewID(), "checkout service")
	require.NoError(t, err)
	hashed, err := bcrypt.GenerateFromPassword([]byte(testKey), bcrypt.MinCost)
	require.NoError(t, err)
	fp := sha256.Sum256([]byte(testKey))
	cred.KeyHash = string(hashed)
	cred.Fingerprint = fp[:]
	return cred
}

func activePrincipal(tenantID *core.ID) *principal.Principal {
	return &principal.Principal{
		ID:       core.MustNewID(),
		TenantID: tenantID,
		Type:     principal.TypeAdmin,
		Email:    "ops@acme.test",
		Status:   principal.StatusActive,
	}
}

func TestValidateCredential_Execute(t *testing.T) {
	ctx := context.Background()
	tenantID := core.MustNewID()

	setup := func(t *testing.T) (*stubCredRepo, *stubFlagSource) {
		repo := &stubCredRepo{
			cred: storedCredential(t, &tenantID),
			prin: activePrincipal(&tenantID),
		}
		return repo, &stubFlagSource{flags: tenant.DefaultFlags()}
	}

	t.Run("Should resolve a valid key to its credential and principal", func(t *testing.T) {
		repo, flags := setup(t)
		cred, prin, err := NewValidateCredential(repo, flags, testKey, nil).Execute(ctx)
		require.NoError(t, err)
		assert.Equal(t, repo.cred.ID, cred.ID)
		assert.Equal(t, repo.prin.ID, prin.ID)
	})

	t.Run("Should update last used in the background on success", func(t *testing.T) {
		repo, flags := setup(t)
		_, _, err := NewValidateCredential(repo, flags, testKey, nil).Execute(ctx)
		require.NoError(t, err)
		assert.Eventually(t, func() bool { return repo.touchCount() == 1 },
			time.Second, 10*time.Millisecond)
	})

	t.Run("Should reject a malformed key without touching the store", func(t *testing.T) {
		repo, flags := setup(t)
		for _, raw := range []string{"", "plss_short", "sk_" + testKey[3:], testKey + "x"} {
			_, _, err := NewValidateCredential(repo, flags, raw, nil).Execute(ctx)
			assert.ErrorIs(t, err, ErrInvalidCredential)
		}
	})

	t.Run("Should reject an unknown key", func(t *testing.T) {
		repo, flags := setup(t)
		unknown := credential.KeyPrefix + "ABCDEFGHIJKLMNOPQRSTUVWXYZ543210"
		_, _, err := NewValidateCredential(repo, flags, unknown, nil).Execute(ctx)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("Should reject when the stored hash does not match", func(t *testing.T) {
		repo, flags := setup(t)
		other, err := bcrypt.GenerateFromPassword([]byte("something else"), bcrypt.MinCost)
		require.NoError(t, err)
		repo.cred.KeyHash = string(other)
		_, _, err = NewValidateCredential(repo, flags, testKey, nil).Execute(ctx)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("Should reject an expired key", func(t *testing.T) {
		repo, flags := setup(t)
		past := time.Now().Add(-time.Hour)
		repo.cred.ExpiresAt = &past
		_, _, err := NewValidateCredential(repo, flags, testKey, nil).Execute(ctx)
		assert.ErrorIs(t, err, ErrCredentialExpired)
	})

	t.Run("Should reject revoked and suspended keys alike", func(t *testing.T) {
		for _, status := range []credential.Status{credential.StatusRevoked, credential.StatusSuspended} {
			repo, flags := setup(t)
			repo.cred.Status = status
			_, _, err := NewValidateCredential(repo, flags, testKey, nil).Execute(ctx)
			assert.ErrorIs(t, err, ErrCredentialDisabled)
		}
	})

	t.Run("Should reject when the tenant's API key flag is off", func(t *testing.T) {
		repo, flags := setup(t)
		flags.flags.APIKeys = false
		_, _, err := NewValidateCredential(repo, flags, testKey, nil).Execute(ctx)
		assert.ErrorIs(t, err, ErrCredentialDisabled)
	})

	t.Run("Should skip the tenant flag check for platform keys", func(t *testing.T) {
		repo := &stubCredRepo{
			cred: storedCredential(t, nil),
			prin: activePrincipal(nil),
		}
		flags := &stubFlagSource{err: errors.New("flags must not be consulted")}
		_, _, err := NewValidateCredential(repo, flags, testKey, nil).Execute(ctx)
		require.NoError(t, err)
	})

	t.Run("Should fail closed when the flag lookup errors", func(t *testing.T) {
		repo, flags := setup(t)
		flags.err = errors.New("tenant store down")
		_, _, err := NewValidateCredential(repo, flags, testKey, nil).Execute(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("Should reject a suspended principal", func(t *testing.T) {
		repo, flags := setup(t)
		repo.prin.Status = principal.StatusSuspended
		_, _, err := NewValidateCredential(repo, flags, testKey, nil).Execute(ctx)
		assert.ErrorIs(t, err, ErrCredentialDisabled)
	})

	t.Run("Should surface repository failures as internal errors", func(t *testing.T) {
		repo, flags := setup(t)
		repo.credErr = errors.New("connection refused")
		_, _, err := NewValidateCredential(repo, flags, testKey, nil).Execute(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidCredential)
	})
}

func TestGenerateCredential_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("Should mint a verifiable key and persist only its hash", func(t *testing.T) {
		repo := &captureRepo{}
		tenantID := core.MustNewID()
		uc := NewGenerateCredential(repo, &tenantID, core.MustNewID(), "checkout service", bcrypt.MinCost)
		cred, err := uc.Execute(ctx)
		require.NoError(t, err)
		require.NoError(t, credential.ValidateFormat(cred.Key))

		// The plaintext is attached to the returned credential only after the
		// record is persisted.
		assert.Empty(t, repo.keyAtCreate)
		require.NoError(t,
			bcrypt.CompareHashAndPassword([]byte(cred.KeyHash), []byte(cred.Key)))
		fp := sha256.Sum256([]byte(cred.Key))
		assert.Equal(t, fp[:], cred.Fingerprint)
	})

	t.Run("Should reject an invalid name", func(t *testing.T) {
		uc := NewGenerateCredential(&captureRepo{}, nil, core.MustNewID(), "", bcrypt.MinCost)
		_, err := uc.Execute(ctx)
		assert.Error(t, err)
	})
}

type captureRepo struct {
	stubCredRepo
	keyAtCreate string
}

func (r *captureRepo) Create(_ context.Context, cred *credential.Credential) error {
	r.keyAtCreate = cred.Key
	return nil
}

type blockingTouchRepo struct {
	stubCredRepo
	release chan struct{}
}

func (r *blockingTouchRepo) TouchLastUsed(ctx context.Context, id core.ID, at time.Time) error {
	<-r.release
	return r.stubCredRepo.TouchLastUsed(ctx, id, at)
}

func TestValidateCredential_BackgroundSlots(t *testing.T) {
	t.Run("Should skip the deferred update when every slot is taken", func(t *testing.T) {
		ctx := context.Background()
		tenantID := core.MustNewID()
		repo := &blockingTouchRepo{release: make(chan struct{})}
		repo.cred = storedCredential(t, &tenantID)
		repo.prin = activePrincipal(&tenantID)
		flags := &stubFlagSource{flags: tenant.DefaultFlags()}

		sem := make(chan struct{}, 1)
		_, _, err := NewValidateCredential(repo, flags, testKey, sem).Execute(ctx)
		require.NoError(t, err)
		// The only slot is now held by the blocked update, so the second
		// validation must skip its own update instead of queueing.
		_, _, err = NewValidateCredential(repo, flags, testKey, sem).Execute(ctx)
		require.NoError(t, err)

		close(repo.release)
		assert.Eventually(t, func() bool { return repo.touchCount() == 1 },
			time.Second, 10*time.Millisecond)
		assert.Equal(t, 1, repo.touchCount())
	})
}
