package config

// SensitiveString is a string whose value must never leak into logs or
// serialized output. Access the raw value explicitly via Value().
type SensitiveString string

// String implements fmt.Stringer and hides the underlying value.
func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// MarshalJSON hides the value in any JSON serialization.
func (s SensitiveString) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte(`""`), nil
	}
	return []byte(`"[REDACTED]"`), nil
}

// Value returns the raw secret.
func (s SensitiveString) Value() string {
	return string(s)
}
