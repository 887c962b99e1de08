package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kishore28kumar/pulss/engine/auth/credential"
	"github.com/kishore28kumar/pulss/engine/auth/principal"
	"github.com/kishore28kumar/pulss/engine/core"
	"github.com/kishore28kumar/pulss/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// CachedRepository wraps a credential repository with Redis caching so the
// fingerprint lookup on the hot path does not hit PostgreSQL per request.
type CachedRepository struct {
	repo   credential.Repository
	client Interface
	ttl    time.Duration
}

// Interface defines the minimal Redis interface needed for caching
type Interface interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// NewCachedRepository creates a new cached repository
func NewCachedRepository(repo credential.Repository, client Interface, ttl time.Duration) credential.Repository {
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	return &CachedRepository{repo: repo, client: client, ttl: ttl}
}

// cacheEntry carries the hash material that the credential's JSON encoding
// deliberately omits. Without it a cache hit could not verify the key.
type cacheEntry struct {
	Credential  *credential.Credential `json:"credential"`
	KeyHash     string                 `json:"key_hash"`
	Fingerprint []byte                 `json:"fingerprint"`
}

func fingerprintKey(fingerprint []byte) string {
	return fmt.Sprintf("auth:credential:fp:%x", fingerprint)
}

func idKey(id core.ID) string {
	return fmt.Sprintf("auth:credential:id:%s", id)
}

// GetByFingerprint retrieves a credential by fingerprint with Redis caching
func (c *CachedRepository) GetByFingerprint(ctx context.Context, fingerprint []byte) (*credential.Credential, error) {
	log := logger.FromContext(ctx)
	cacheKey := fingerprintKey(fingerprint)
	cached := c.client.Get(ctx, cacheKey)
	if cached.Err() == nil {
		if cred, ok := decodeEntry(cached.Val()); ok {
			log.Debug("credential cache hit", "cache_key", cacheKey)
			return cred, nil
		}
	}
	log.Debug("credential cache miss", "cache_key", cacheKey)
	cred, err := c.repo.GetByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	c.store(ctx, cacheKey, cred)
	return cred, nil
}

// GetByID retrieves a credential by ID with Redis caching
func (c *CachedRepository) GetByID(ctx context.Context, id core.ID) (*credential.Credential, error) {
	cacheKey := idKey(id)
	cached := c.client.Get(ctx, cacheKey)
	if cached.Err() == nil {
		if cred, ok := decodeEntry(cached.Val()); ok {
			return cred, nil
		}
	}
	cred, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, cacheKey, cred)
	return cred, nil
}

// UpdateStatus transitions a credential's status and invalidates both cache
// entries so a revocation takes effect within one request, not one TTL.
func (c *CachedRepository) UpdateStatus(ctx context.Context, id core.ID, status credential.Status) error {
	c.invalidate(ctx, id)
	return c.repo.UpdateStatus(ctx, id, status)
}

// Delegate the remaining methods to the wrapped repository

func (c *CachedRepository) Create(ctx context.Context, cred *credential.Credential) error {
	return c.repo.Create(ctx, cred)
}

func (c *CachedRepository) List(ctx context.Context, tenantID core.ID, limit, offset int) ([]*credential.Credential, error) {
	return c.repo.List(ctx, tenantID, limit, offset)
}

func (c *CachedRepository) TouchLastUsed(ctx context.Context, id core.ID, at time.Time) error {
	return c.repo.TouchLastUsed(ctx, id, at)
}

func (c *CachedRepository) RecordOutcome(ctx context.Context, id core.ID, success bool) error {
	return c.repo.RecordOutcome(ctx, id, success)
}

func (c *CachedRepository) GetPrincipal(ctx context.Context, id core.ID) (*principal.Principal, error) {
	return c.repo.GetPrincipal(ctx, id)
}

func (c *CachedRepository) store(ctx context.Context, cacheKey string, cred *credential.Credential) {
	log := logger.FromContext(ctx)
	payload, err := json.Marshal(cacheEntry{
		Credential:  cred,
		KeyHash:     cred.KeyHash,
		Fingerprint: cred.Fingerprint,
	})
	if err != nil {
		log.Warn("failed to marshal credential for cache", "error", err)
		return
	}
	if err := c.client.Set(ctx, cacheKey, payload, c.ttl).Err(); err != nil {
		log.Warn("failed to cache credential", "error", err)
	}
}

func (c *CachedRepository) invalidate(ctx context.Context, id core.ID) {
	log := logger.FromContext(ctx)
	keys := []string{idKey(id)}
	if cred, err := c.repo.GetByID(ctx, id); err == nil {
		keys = append(keys, fingerprintKey(cred.Fingerprint))
	} else {
		log.Warn("failed to load credential for cache invalidation", "credential_id", id, "error", err)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Warn("failed to invalidate credential cache", "error", err)
	}
}

func decodeEntry(raw string) (*credential.Credential, bool) {
	var entry cacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.Credential == nil {
		return nil, false
	}
	entry.Credential.KeyHash = entry.KeyHash
	entry.Credential.Fingerprint = entry.Fingerprint
	return entry.Credential, true
}
