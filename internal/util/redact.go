package util

import "regexp"

var (
	reEmail    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	reToken    = regexp.MustCompile(`(?i)((?:api[_-]?key|secret|token|key)[=:]\s*)([A-Za-z0-9\-_]{8,})`)
	reUserinfo = regexp.MustCompile(`(https?://)[^/@\s]+@`)
)

// RedactPII masks e-mail addresses, URL credentials and key=value secrets
// in s. Used for anything that leaves the process: log lines and prompts.
func RedactPII(s string) string {
	s = reUserinfo.ReplaceAllString(s, "${1}[redacted]@")
	s = reEmail.ReplaceAllString(s, "[redacted-email]")
	s = reToken.ReplaceAllString(s, "${1}[redacted]")
	return s
}
