package audit

import (
	"context"
	"time"

	"github.com/kishore28kumar/pulss/engine/core"
)

// Status is the final outcome of the request an event records.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Severity classifies an event for operational triage.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is an immutable record of a gated request's outcome. Once written it
// is never mutated.
type Event struct {
	ID           core.ID        `json:"id"                      db:"id"`
	TenantID     *core.ID       `json:"tenant_id,omitempty"     db:"tenant_id"`
	ActorID      *core.ID       `json:"actor_id,omitempty"      db:"actor_id"`
	ActorType    string         `json:"actor_type"              db:"actor_type"`
	ActorEmail   string         `json:"actor_email"             db:"actor_email"`
	CredentialID *core.ID       `json:"credential_id,omitempty" db:"credential_id"`
	Action       string         `json:"action"                  db:"action"`
	ResourceType string         `json:"resource_type"           db:"resource_type"`
	ResourceID   string         `json:"resource_id"             db:"resource_id"`
	Method       string         `json:"method"                  db:"method"`
	Path         string         `json:"path"                    db:"path"`
	OldValues    map[string]any `json:"old_values,omitempty"    db:"old_values"`
	NewValues    map[string]any `json:"new_values,omitempty"    db:"new_values"`
	Status       Status         `json:"status"                  db:"status"`
	StatusCode   int            `json:"status_code"             db:"status_code"`
	ErrorCode    string         `json:"error_code,omitempty"    db:"error_code"`
	Severity     Severity       `json:"severity"                db:"severity"`
	IP           string         `json:"ip"                      db:"ip"`
	UserAgent    string         `json:"user_agent"              db:"user_agent"`
	LatencyMS    int64          `json:"latency_ms"              db:"latency_ms"`
	CreatedAt    time.Time      `json:"created_at"              db:"created_at"`
}

// SeverityFor derives a severity from the response status and action.
func SeverityFor(statusCode int, action string) Severity {
	switch {
	case statusCode >= 500:
		return SeverityCritical
	case statusCode == 401 || statusCode == 403:
		return SeverityWarning
	case action == "delete" || action == "revoke":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Store persists audit events. Write failures must never surface to the
// request path.
type Store interface {
	Insert(ctx context.Context, event *Event) error
}
