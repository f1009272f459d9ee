package storage

import (
	"fmt"
	"net/url"
	"strings"
)

// OriginNamespace turns an API base URL into a filesystem and pass-safe
// namespace, so credentials issued by one API origin are never offered to another.
func OriginNamespace(baseURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("api base url %q must include scheme and host", baseURL)
	}

	var b strings.Builder
	b.WriteString(strings.ToLower(parsed.Scheme))
	b.WriteByte('_')
	for _, r := range strings.ToLower(parsed.Host) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String(), nil
}
