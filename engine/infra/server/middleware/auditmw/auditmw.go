package auditmw

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kishore28kumar/pulss/engine/audit"
	"github.com/kishore28kumar/pulss/engine/auth"
	"github.com/kishore28kumar/pulss/engine/auth/credential"
	"github.com/kishore28kumar/pulss/engine/infra/monitoring"
	"github.com/kishore28kumar/pulss/engine/infra/server/router"
	"github.com/kishore28kumar/pulss/engine/tenant"
	"github.com/kishore28kumar/pulss/pkg/logger"
)

// Middleware records one audit event per gated request after the response has
// been written. It runs as a post-response hook: nothing it does can delay or
// fail the request, including on early pipeline rejections.
type Middleware struct {
	recorder *audit.Recorder
	creds    credential.Repository
	flags    tenant.FlagSource
	excluded map[string]struct{}
}

// NewMiddleware creates the audit middleware.
func NewMiddleware(
	recorder *audit.Recorder,
	creds credential.Repository,
	flags tenant.FlagSource,
	excludedPaths []string,
) *Middleware {
	excluded := make(map[string]struct{}, len(excludedPaths))
	for _, p := range excludedPaths {
		excluded[p] = struct{}{}
	}
	return &Middleware{recorder: recorder, creds: creds, flags: flags, excluded: excluded}
}

// Handler is the Gin middleware. It must be registered before the pipeline
// stages so its post-c.Next() hook observes the final decision.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, skip := m.excluded[c.Request.URL.Path]; skip {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		ctx := c.Request.Context()
		statusCode := c.Writer.Status()
		event := m.buildEvent(c, statusCode, time.Since(start))
		if m.auditEnabled(ctx, event) {
			m.recorder.Record(ctx, event)
			monitoring.AuditEvents.WithLabelValues(string(event.Status)).Inc()
		}
		m.recordOutcome(ctx, c, statusCode)
	}
}

func (m *Middleware) buildEvent(c *gin.Context, statusCode int, latency time.Duration) *audit.Event {
	ctx := c.Request.Context()
	// Authenticated requests carry metadata captured at validation time;
	// requests rejected before authentication fall back to the raw request.
	ip, userAgent := c.ClientIP(), c.GetHeader("User-Agent")
	if info := credential.GetRequestInfo(ctx); info.IPAddress != "" {
		ip, userAgent = info.IPAddress, info.UserAgent
	}
	action := actionFor(c)
	event := &audit.Event{
		Action:       action,
		ResourceType: resourceTypeFor(c),
		ResourceID:   c.Param("id"),
		Method:       c.Request.Method,
		Path:         c.Request.URL.Path,
		StatusCode:   statusCode,
		ErrorCode:    c.GetString(router.ContextKeyErrorCode),
		Severity:     audit.SeverityFor(statusCode, action),
		IP:           ip,
		UserAgent:    userAgent,
		LatencyMS:    latency.Milliseconds(),
	}
	if statusCode < http.StatusBadRequest {
		event.Status = audit.StatusSuccess
	} else {
		event.Status = audit.StatusFailure
	}
	if id, ok := tenant.IDFromContext(ctx); ok {
		event.TenantID = &id
	}
	if prin, ok := auth.PrincipalFromContext(ctx); ok {
		actorID := prin.ID
		event.ActorID = &actorID
		event.ActorType = string(prin.Type)
		event.ActorEmail = prin.Email
	}
	if cred, ok := auth.CredentialFromContext(ctx); ok {
		credID := cred.ID
		event.CredentialID = &credID
	}
	return event
}

// auditEnabled honors the tenant's audit logging flag. Events without a
// tenant (platform-level traffic, failed authentication) are always kept.
func (m *Middleware) auditEnabled(ctx context.Context, event *audit.Event) bool {
	if event.TenantID == nil {
		return true
	}
	flags, err := m.flags.Flags(ctx, *event.TenantID)
	if err != nil {
		return true
	}
	return flags.AuditLogging
}

// recordOutcome bumps the credential's success or failure usage counter in
// the background. Failures here are logged and swallowed.
func (m *Middleware) recordOutcome(ctx context.Context, c *gin.Context, statusCode int) {
	cred, ok := auth.GetCredential(c)
	if !ok {
		return
	}
	success := statusCode < http.StatusBadRequest
	bg := context.WithoutCancel(ctx)
	go func() {
		opCtx, cancel := context.WithTimeout(bg, 2*time.Second)
		defer cancel()
		if err := m.creds.RecordOutcome(opCtx, cred.ID, success); err != nil {
			logger.FromContext(bg).Warn("failed to record credential outcome",
				"credential_id", cred.ID, "error", err)
		}
	}()
}

// actionFor derives a stable action name like "orders.list" from the route.
func actionFor(c *gin.Context) string {
	resource := resourceTypeFor(c)
	if resource == "" {
		resource = "request"
	}
	var verb string
	switch c.Request.Method {
	case http.MethodGet:
		if c.Param("id") != "" {
			verb = "read"
		} else {
			verb = "list"
		}
	case http.MethodPost:
		verb = "create"
	case http.MethodPut, http.MethodPatch:
		verb = "update"
	case http.MethodDelete:
		verb = "delete"
	default:
		verb = strings.ToLower(c.Request.Method)
	}
	return resource + "." + verb
}

// resourceTypeFor extracts the first meaningful path segment after the API
// prefix, e.g. "/api/v1/orders/42" yields "orders".
func resourceTypeFor(c *gin.Context) string {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for _, seg := range segments {
		if seg == "" || seg == "api" || strings.HasPrefix(seg, "v") && len(seg) <= 3 {
			continue
		}
		if strings.HasPrefix(seg, ":") || strings.HasPrefix(seg, "*") {
			continue
		}
		return seg
	}
	return ""
}
