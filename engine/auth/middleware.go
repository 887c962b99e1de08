package auth

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kishore28kumar/pulss/engine/auth/credential"
	"github.com/kishore28kumar/pulss/engine/auth/principal"
	"github.com/kishore28kumar/pulss/engine/auth/uc"
	"github.com/kishore28kumar/pulss/engine/infra/monitoring"
	"github.com/kishore28kumar/pulss/engine/infra/server/router"
	"github.com/kishore28kumar/pulss/engine/tenant"
	"github.com/kishore28kumar/pulss/pkg/logger"
)

// Middleware handles credential authentication for all protected routes.
type Middleware struct {
	factory  *uc.Factory
	excluded map[string]struct{}
}

// NewMiddleware creates a new authentication middleware instance.
// excludedPaths are matched against the request path verbatim and skip
// authentication entirely (health checks, metrics).
func NewMiddleware(factory *uc.Factory, excludedPaths []string) *Middleware {
	excluded := make(map[string]struct{}, len(excludedPaths))
	for _, p := range excludedPaths {
		excluded[p] = struct{}{}
	}
	return &Middleware{factory: factory, excluded: excluded}
}

// Authenticate is the Gin middleware handler for credential authentication.
// It accepts both "Bearer <key>" and "ApiKey <key>" authorization schemes.
func (m *Middleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, skip := m.excluded[c.Request.URL.Path]; skip {
			c.Next()
			return
		}
		log := logger.FromContext(c.Request.Context())
		rawKey, ok := extractKey(c.GetHeader("Authorization"))
		if !ok {
			log.Debug("missing or malformed Authorization header")
			router.RespondError(c, router.ErrInvalidCredentialCode, "Invalid or missing credential")
			return
		}
		// Attach request info for the audit trail before validation runs.
		info := &credential.RequestInfo{
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		}
		ctx := credential.WithRequestInfo(c.Request.Context(), info)
		cred, prin, err := m.factory.ValidateCredential(rawKey).Execute(ctx)
		if err != nil {
			monitoring.AuthAttempts.WithLabelValues("failure").Inc()
			// Log the actual error for debugging but return generic messages
			// so clients cannot distinguish unknown keys from disabled ones
			// beyond the documented codes.
			log.With("error", err).Debug("credential validation failed")
			switch {
			case errors.Is(err, uc.ErrCredentialExpired):
				router.RespondError(c, router.ErrCredentialExpiredCode, "Credential expired")
			case errors.Is(err, uc.ErrCredentialDisabled):
				router.RespondError(c, router.ErrCredentialDisabledCode, "Credential disabled")
			case errors.Is(err, uc.ErrInvalidCredential):
				router.RespondError(c, router.ErrInvalidCredentialCode, "Invalid or missing credential")
			default:
				router.RespondError(c, router.ErrInternalCode, "Authentication service unavailable")
			}
			return
		}
		monitoring.AuthAttempts.WithLabelValues("success").Inc()
		ctx = WithCredential(ctx, cred)
		ctx = WithPrincipal(ctx, prin)
		if prin.TenantID != nil {
			ctx = tenant.WithTenantID(ctx, *prin.TenantID)
		}
		c.Request = c.Request.WithContext(ctx)
		log.With(
			"credential_id", cred.ID,
			"principal_id", prin.ID,
			"principal_type", prin.Type,
		).Debug("request authenticated")
		c.Next()
	}
}

// extractKey parses the Authorization header value. Both "Bearer <key>" and
// "ApiKey <key>" schemes are accepted, case-insensitively.
func extractKey(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	scheme := parts[0]
	if !strings.EqualFold(scheme, "bearer") && !strings.EqualFold(scheme, "apikey") {
		return "", false
	}
	key := strings.TrimSpace(parts[1])
	if key == "" {
		return "", false
	}
	return key, true
}

// GetCredential retrieves the validated credential from the request context.
func GetCredential(c *gin.Context) (*credential.Credential, bool) {
	return CredentialFromContext(c.Request.Context())
}

// GetPrincipal retrieves the authenticated principal from the request context.
func GetPrincipal(c *gin.Context) (*principal.Principal, bool) {
	return PrincipalFromContext(c.Request.Context())
}
