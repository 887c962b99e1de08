package audit

import (
	"regexp"
	"strings"
)

// RedactionMarker replaces sensitive values that cannot be partially masked.
const RedactionMarker = "[REDACTED]"

// sensitiveFields is the fixed membership list checked before the regex pass.
var sensitiveFields = map[string]struct{}{
	"password":          {},
	"passwd":            {},
	"pwd":               {},
	"secret":            {},
	"token":             {},
	"api_key":           {},
	"apikey":            {},
	"authorization":     {},
	"access_token":      {},
	"refresh_token":     {},
	"client_secret":     {},
	"private_key":       {},
	"card_number":       {},
	"cardnumber":        {},
	"credit_card":       {},
	"cvv":               {},
	"cvc":               {},
	"security_code":     {},
	"ssn":               {},
	"pin":               {},
	"session_id":        {},
	"cookie":            {},
	"bank_account":      {},
	"routing_number":    {},
}

// sensitivePatterns catch key names the fixed list misses.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)password`),
	regexp.MustCompile(`(?i)token`),
	regexp.MustCompile(`(?i)secret`),
	regexp.MustCompile(`(?i)api[_-]?key`),
	regexp.MustCompile(`(?i)cvv`),
	regexp.MustCompile(`(?i)card`),
	regexp.MustCompile(`(?i)credential`),
}

// maskedValueRe recognizes values already produced by maskString so a second
// sanitization pass leaves them untouched.
var maskedValueRe = regexp.MustCompile(`^..\*\*\*..$`)

// Sanitize returns a deep copy of v with every sensitive value redacted. It is
// idempotent and never panics: any internal error fully redacts the offending
// subtree instead of leaking data. The input is a generic JSON-like tree
// (maps, slices, scalars); the original is never modified.
func Sanitize(v any) (out any) {
	defer func() {
		if r := recover(); r != nil {
			out = RedactionMarker
		}
	}()
	return sanitizeValue(v)
}

// SanitizeMap sanitizes a string-keyed map, the shape audit snapshots use.
func SanitizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	sanitized := Sanitize(m)
	if out, ok := sanitized.(map[string]any); ok {
		return out
	}
	return map[string]any{"_redacted": RedactionMarker}
}

func sanitizeValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for key, child := range value {
			if isSensitiveKey(key) {
				out[key] = redactLeaf(child)
				continue
			}
			out[key] = sanitizeValue(child)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, child := range value {
			out[i] = sanitizeValue(child)
		}
		return out
	default:
		// Non-sensitive scalars pass through unchanged.
		return value
	}
}

// redactLeaf replaces the value of a sensitive key: strings get the partial
// mask, everything else (including nested structures) the fixed marker.
func redactLeaf(v any) any {
	switch value := v.(type) {
	case string:
		return maskString(value)
	case nil:
		return nil
	default:
		return RedactionMarker
	}
}

// isSensitiveKey checks the fixed field list first, then the regex patterns.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if _, ok := sensitiveFields[lower]; ok {
		return true
	}
	for _, re := range sensitivePatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// maskString keeps the first and last two characters of long values so
// operators can correlate without seeing the secret. Values already masked
// pass through unchanged to keep sanitization idempotent.
func maskString(s string) string {
	if s == RedactionMarker || maskedValueRe.MatchString(s) {
		return s
	}
	if len(s) <= 8 {
		return RedactionMarker
	}
	return s[:2] + "***" + s[len(s)-2:]
}
