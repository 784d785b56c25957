// Package redact removes credentials from text and key/value sets before
// they are logged or returned to HTTP clients.
package redact

import (
	"regexp"
	"strings"
)

const mask = "[REDACTED]"

var bearerRe = regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._\-]+`)

// String masks every occurrence of the given secrets in s, plus any bearer
// token that follows an Authorization scheme. Secrets shorter than four
// characters are ignored.
func String(s string, secrets ...string) string {
	for _, v := range secrets {
		if len(v) < 4 {
			continue
		}
		s = strings.ReplaceAll(s, v, mask)
	}
	return bearerRe.ReplaceAllString(s, "${1}"+mask)
}

// Map returns a copy of m in which string values under credential-like keys
// (api_key, token, secret, password...) are masked.
func Map(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok && s != "" && sensitive(k) {
			out[k] = mask
			continue
		}
		out[k] = v
	}
	return out
}

func sensitive(key string) bool {
	k := strings.ToLower(key)
	for _, w := range []string{"key", "token", "secret", "password", "credential", "auth"} {
		if strings.Contains(k, w) {
			return true
		}
	}
	return false
}
