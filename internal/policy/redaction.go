package policy

import (
	"regexp"
	"strings"
)

var (
	apiKeyHeaderPattern = regexp.MustCompile(`(?i)(xi-api-key|api[_-]?key|authorization)\s*[:=]\s*\S+`)
	bearerPattern       = regexp.MustCompile(`(?i)bearer\s+[a-z0-9._\-]+`)
)

// RedactCredentials masks credential material in provider error output before
// it reaches logs or API responses. The literal key is scrubbed even when it
// appears without a recognizable header prefix.
func RedactCredentials(input string, secrets ...string) string {
	out := input
	for _, s := range secrets {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = strings.ReplaceAll(out, s, "[REDACTED_KEY]")
	}
	out = apiKeyHeaderPattern.ReplaceAllString(out, "$1: [REDACTED_KEY]")
	out = bearerPattern.ReplaceAllString(out, "bearer [REDACTED_KEY]")
	return out
}
