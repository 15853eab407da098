// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

// maskedSecret replaces a secret wherever it would be printed or encoded.
const maskedSecret = "(hidden)"

// SecureString holds the VRRP authentication secret. Formatting and JSON
// encoding mask it, so a logged or dumped config never carries the value;
// only Reveal returns it, for rendering keepalived.conf.
type SecureString string

// String masks a non-empty secret.
func (s SecureString) String() string {
	if s.IsSet() {
		return maskedSecret
	}
	return ""
}

// GoString masks the secret for %#v.
func (s SecureString) GoString() string { return maskedSecret }

// IsSet reports whether a secret was configured.
func (s SecureString) IsSet() bool { return s != "" }

// Reveal returns the raw secret.
func (s SecureString) Reveal() string { return string(s) }

func (s SecureString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalText lets HCL and JSON decode into a SecureString.
func (s *SecureString) UnmarshalText(text []byte) error {
	*s = SecureString(text)
	return nil
}
