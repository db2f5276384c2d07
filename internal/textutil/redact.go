package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
)

// secretPattern is one kind of credential that must never reach an error
// message or a log line.
type secretPattern struct {
	Type  string // placeholder prefix: [PROVIDER_KEY:hash], [JWT:hash], ...
	Regex *regexp.Regexp
}

// Patterns are applied in order; provider keys go first so the generic
// key=value rule does not swallow them under a less specific label.
var secretPatterns = []secretPattern{
	// sk-..., sk-ant-..., sk-or-v1-...
	{"PROVIDER_KEY", regexp.MustCompile(`\bsk-[A-Za-z0-9_\-]{8,}`)},
	{"BEARER", regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._\-]{8,}`)},
	{"JWT", regexp.MustCompile(`\beyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*\b`)},
	{"AWS_KEY", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{"SECRET", regexp.MustCompile(`(?i)(?:api[_-]?key|apikey|token|secret|password)["\s]*[:=]["\s]*[a-zA-Z0-9_\-]{8,}`)},
	{"PRIVATE_KEY", regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`)},
	{"EMAIL", regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
}

// Redact replaces credentials in text with placeholders. The same value
// always yields the same placeholder, so two mentions of one key can still
// be correlated.
//
//	"invalid key sk-abc123456789" → "invalid key [PROVIDER_KEY:3f9a]"
func Redact(text string) string {
	for _, p := range secretPatterns {
		p := p
		text = p.Regex.ReplaceAllStringFunc(text, func(match string) string {
			return placeholder(p.Type, match)
		})
	}
	return text
}

// placeholder uses the first 4 hex characters of SHA256 for readability.
func placeholder(kind, value string) string {
	h := sha256.Sum256([]byte(value))
	return fmt.Sprintf("[%s:%s]", kind, hex.EncodeToString(h[:2]))
}
