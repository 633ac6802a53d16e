package transcribe

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// MaxJobNameLength is the collaborator's job name length limit.
const MaxJobNameLength = 200

// SanitizeJobName maps an arbitrary string onto the collaborator's job name
// constraints: only alphanumerics, dot, underscore, and hyphen are kept, and
// names over the length limit are truncated with a short hash suffix so
// distinct long names stay distinct.
func SanitizeJobName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	sanitized := b.String()
	if sanitized == "" {
		sanitized = "job"
	}
	if len(sanitized) <= MaxJobNameLength {
		return sanitized
	}
	sum := sha256.Sum256([]byte(name))
	suffix := "-" + hex.EncodeToString(sum[:4])
	return sanitized[:MaxJobNameLength-len(suffix)] + suffix
}
