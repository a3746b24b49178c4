package domain

import (
	"strings"
)

// NormalizeURL reduces a URL to the canonical form used as a page identity:
// scheme and "www." prefix stripped, host lowercased, fragment and trailing
// slash dropped. The query string is kept since it can distinguish pages.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)

	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(u, scheme) {
			u = u[len(scheme):]
			break
		}
	}
	u = strings.TrimPrefix(u, "www.")

	if i := strings.IndexByte(u, '#'); i != -1 {
		u = u[:i]
	}

	// Lowercase the host part only; paths stay case-sensitive.
	if i := strings.IndexByte(u, '/'); i != -1 {
		u = strings.ToLower(u[:i]) + u[i:]
	} else {
		u = strings.ToLower(u)
	}

	return strings.TrimSuffix(u, "/")
}
