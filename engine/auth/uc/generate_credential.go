package uc

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/kishore28kumar/pulss/engine/auth/credential"
	"github.com/kishore28kumar/pulss/engine/core"
	"github.com/kishore28kumar/pulss/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// GenerateCredential creates a new API key for a principal. The plaintext key
// is returned exactly once and never stored.
type GenerateCredential struct {
	repo        credential.Repository
	tenantID    *core.ID
	principalID core.ID
	name        string
	bcryptCost  int
}

// NewGenerateCredential creates the generate use case.
func NewGenerateCredential(
	repo credential.Repository,
	tenantID *core.ID,
	principalID core.ID,
	name string,
	bcryptCost int,
) *GenerateCredential {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &GenerateCredential{
		repo:        repo,
		tenantID:    tenantID,
		principalID: principalID,
		name:        name,
		bcryptCost:  bcryptCost,
	}
}

// Execute generates, hashes, and persists a new credential, returning it with
// the plaintext key populated.
func (uc *GenerateCredential) Execute(ctx context.Context) (*credential.Credential, error) {
	log := logger.FromContext(ctx)

	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	keyPart := make([]byte, credential.KeyRandomLength)
	for i := range keyPart {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return nil, fmt.Errorf("failed to generate random key part: %w", err)
		}
		keyPart[i] = charset[num.Int64()]
	}
	plaintext := credential.KeyPrefix + string(keyPart)

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), uc.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash credential: %w", err)
	}
	fingerprint := sha256.Sum256([]byte(plaintext))

	cred, err := credential.NewCredential(uc.tenantID, uc.principalID, uc.name)
	if err != nil {
		return nil, err
	}
	cred.KeyHash = string(hashed)
	cred.Fingerprint = fingerprint[:]
	cred.KeyPrefix = credential.KeyPrefix

	if err := uc.repo.Create(ctx, cred); err != nil {
		log.Error("failed to create credential", "error", err, "principal_id", uc.principalID)
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}

	log.Info("credential generated",
		"credential_id", cred.ID, "principal_id", uc.principalID)
	cred.Key = plaintext
	return cred, nil
}
