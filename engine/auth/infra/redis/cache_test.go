package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kishore28kumar/pulss/engine/auth/credential"
	"github.com/kishore28kumar/pulss/engine/auth/principal"
	"github.com/kishore28kumar/pulss/engine/core"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepository implements credential.Repository for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, cred *credential.Credential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id core.ID) (*credential.Credential, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credential.Credential), args.Error(1)
}

func (m *MockRepository) GetByFingerprint(ctx context.Context, fingerprint []byte) (*credential.Credential, error) {
	args := m.Called(ctx, fingerprint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credential.Credential), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, tenantID core.ID, limit, offset int) ([]*credential.Credential, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	return args.Get(0).([]*credential.Credential), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id core.ID, status credential.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockRepository) TouchLastUsed(ctx context.Context, id core.ID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockRepository) RecordOutcome(ctx context.Context, id core.ID, success bool) error {
	args := m.Called(ctx, id, success)
	return args.Error(0)
}

func (m *MockRepository) GetPrincipal(ctx context.Context, id core.ID) (*principal.Principal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*principal.Principal), args.Error(1)
}

func setupTestCache(t *testing.T) (*CachedRepository, *MockRepository, *redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mockRepo := &MockRepository{}
	cache := NewCachedRepository(mockRepo, client, 30*time.Second).(*CachedRepository)
	return cache, mockRepo, client, mr
}

func testCredential() *credential.Credential {
	return &credential.Credential{
		ID:          core.MustNewID(),
		PrincipalID: core.MustNewID(),
		KeyHash:     "$2a$10$hashhashhashhashhashha",
		Fingerprint: []byte("test-fingerprint"),
		Name:        "checkout service",
		Status:      credential.StatusActive,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestCachedRepository_GetByFingerprint(t *testing.T) {
	cache, mockRepo, _, _ := setupTestCache(t)
	ctx := context.Background()
	cred := testCredential()

	t.Run("Should cache the credential on first retrieval", func(t *testing.T) {
		mockRepo.On("GetByFingerprint", ctx, cred.Fingerprint).Return(cred, nil).Once()
		result, err := cache.GetByFingerprint(ctx, cred.Fingerprint)
		require.NoError(t, err)
		assert.Equal(t, cred.ID, result.ID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Should serve the second retrieval from cache", func(t *testing.T) {
		// No mock expectation - should not call underlying repo
		result, err := cache.GetByFingerprint(ctx, cred.Fingerprint)
		require.NoError(t, err)
		assert.Equal(t, cred.ID, result.ID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Should restore hash material on cache hits", func(t *testing.T) {
		// KeyHash and Fingerprint are excluded from the credential's JSON
		// encoding; a hit without them could never verify a key.
		result, err := cache.GetByFingerprint(ctx, cred.Fingerprint)
		require.NoError(t, err)
		assert.Equal(t, cred.KeyHash, result.KeyHash)
		assert.Equal(t, cred.Fingerprint, result.Fingerprint)
	})

	t.Run("Should fall through to the repository when Redis is down", func(t *testing.T) {
		cache, mockRepo, _, mr := setupTestCache(t)
		mr.Close()
		mockRepo.On("GetByFingerprint", ctx, cred.Fingerprint).Return(cred, nil).Once()
		result, err := cache.GetByFingerprint(ctx, cred.Fingerprint)
		require.NoError(t, err)
		assert.Equal(t, cred.ID, result.ID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Should propagate repository errors", func(t *testing.T) {
		cache, mockRepo, _, _ := setupTestCache(t)
		mockRepo.On("GetByFingerprint", ctx, []byte("missing")).
			Return(nil, credential.ErrNotFound).Once()
		_, err := cache.GetByFingerprint(ctx, []byte("missing"))
		assert.ErrorIs(t, err, credential.ErrNotFound)
		mockRepo.AssertExpectations(t)
	})
}

func TestCachedRepository_GetByID(t *testing.T) {
	cache, mockRepo, _, _ := setupTestCache(t)
	ctx := context.Background()
	cred := testCredential()

	t.Run("Should cache the credential by ID on first retrieval", func(t *testing.T) {
		mockRepo.On("GetByID", ctx, cred.ID).Return(cred, nil).Once()
		result, err := cache.GetByID(ctx, cred.ID)
		require.NoError(t, err)
		assert.Equal(t, cred.ID, result.ID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Should serve the second retrieval from cache", func(t *testing.T) {
		// No mock expectation - should not call underlying repo
		result, err := cache.GetByID(ctx, cred.ID)
		require.NoError(t, err)
		assert.Equal(t, cred.ID, result.ID)
		mockRepo.AssertExpectations(t)
	})
}

func TestCachedRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Should invalidate both cache entries before the status change", func(t *testing.T) {
		cache, mockRepo, client, _ := setupTestCache(t)
		cred := testCredential()

		mockRepo.On("GetByID", ctx, cred.ID).Return(cred, nil).Twice()
		mockRepo.On("GetByFingerprint", ctx, cred.Fingerprint).Return(cred, nil).Once()
		mockRepo.On("UpdateStatus", ctx, cred.ID, credential.StatusRevoked).Return(nil).Once()

		_, err := cache.GetByID(ctx, cred.ID)
		require.NoError(t, err)
		_, err = cache.GetByFingerprint(ctx, cred.Fingerprint)
		require.NoError(t, err)

		idCacheKey := idKey(cred.ID)
		fpCacheKey := fingerprintKey(cred.Fingerprint)
		assert.Equal(t, int64(1), client.Exists(ctx, idCacheKey).Val())
		assert.Equal(t, int64(1), client.Exists(ctx, fpCacheKey).Val())

		require.NoError(t, cache.UpdateStatus(ctx, cred.ID, credential.StatusRevoked))

		assert.Equal(t, int64(0), client.Exists(ctx, idCacheKey).Val())
		assert.Equal(t, int64(0), client.Exists(ctx, fpCacheKey).Val())
		mockRepo.AssertExpectations(t)
	})

	t.Run("Should still update when the credential cannot be loaded", func(t *testing.T) {
		cache, mockRepo, _, _ := setupTestCache(t)
		id := core.MustNewID()

		mockRepo.On("GetByID", ctx, id).Return(nil, credential.ErrNotFound).Once()
		mockRepo.On("UpdateStatus", ctx, id, credential.StatusSuspended).Return(nil).Once()

		require.NoError(t, cache.UpdateStatus(ctx, id, credential.StatusSuspended))
		mockRepo.AssertExpectations(t)
	})
}

func TestCachedRepository_Delegation(t *testing.T) {
	cache, mockRepo, _, _ := setupTestCache(t)
	ctx := context.Background()
	cred := testCredential()

	t.Run("Should delegate writes and listings to the repository", func(t *testing.T) {
		tenantID := core.MustNewID()
		now := time.Now().UTC()
		prin := &principal.Principal{ID: cred.PrincipalID}

		mockRepo.On("Create", ctx, cred).Return(nil).Once()
		mockRepo.On("List", ctx, tenantID, 50, 0).
			Return([]*credential.Credential{cred}, nil).Once()
		mockRepo.On("TouchLastUsed", ctx, cred.ID, now).Return(nil).Once()
		mockRepo.On("RecordOutcome", ctx, cred.ID, true).Return(nil).Once()
		mockRepo.On("GetPrincipal", ctx, cred.ID).Return(prin, nil).Once()

		require.NoError(t, cache.Create(ctx, cred))
		listed, err := cache.List(ctx, tenantID, 50, 0)
		require.NoError(t, err)
		assert.Len(t, listed, 1)
		require.NoError(t, cache.TouchLastUsed(ctx, cred.ID, now))
		require.NoError(t, cache.RecordOutcome(ctx, cred.ID, true))
		got, err := cache.GetPrincipal(ctx, cred.ID)
		require.NoError(t, err)
		assert.Equal(t, prin.ID, got.ID)
		mockRepo.AssertExpectations(t)
	})
}
