package auth

import (
	"context"

	"github.com/kishore28kumar/pulss/engine/auth/credential"
	"github.com/kishore28kumar/pulss/engine/auth/principal"
	"github.com/kishore28kumar/pulss/engine/core"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	contextKeyCredential   contextKey = "auth_credential"
	contextKeyPrincipal    contextKey = "auth_principal"
	contextKeyCredentialID contextKey = "auth_credential_id"
)

// WithCredential adds the validated credential to the context.
func WithCredential(ctx context.Context, cred *credential.Credential) context.Context {
	ctx = context.WithValue(ctx, contextKeyCredential, cred)
	return context.WithValue(ctx, contextKeyCredentialID, cred.ID)
}

// WithPrincipal adds the authenticated principal to the context.
func WithPrincipal(ctx context.Context, p *principal.Principal) context.Context {
	return context.WithValue(ctx, contextKeyPrincipal, p)
}

// CredentialFromContext retrieves the validated credential from context.
func CredentialFromContext(ctx context.Context) (*credential.Credential, bool) {
	cred, ok := ctx.Value(contextKeyCredential).(*credential.Credential)
	return cred, ok
}

// PrincipalFromContext retrieves the authenticated principal from context.
func PrincipalFromContext(ctx context.Context) (*principal.Principal, bool) {
	p, ok := ctx.Value(contextKeyPrincipal).(*principal.Principal)
	return p, ok
}

// CredentialIDFromContext retrieves the credential ID from context.
func CredentialIDFromContext(ctx context.Context) (core.ID, bool) {
	id, ok := ctx.Value(contextKeyCredentialID).(core.ID)
	return id, ok
}
