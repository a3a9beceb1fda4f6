package outputfmt

import (
	"net/url"
	"regexp"
	"strings"
)

var absoluteURLRE = regexp.MustCompile(`https?://[^\s"'<>]+`)

// FormatErrorForDisplay sanitizes error text before it is relayed to a chat:
// URL hosts are dropped and credential-looking query values are redacted, so
// a backend failure never leaks an endpoint or an API key.
func FormatErrorForDisplay(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeErrorText(err.Error())
}

// SanitizeErrorText removes URL hosts from arbitrary text while keeping
// path/query/fragment details.
func SanitizeErrorText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return absoluteURLRE.ReplaceAllStringFunc(raw, stripURLHost)
}

func stripURLHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || strings.TrimSpace(u.Scheme) == "" || strings.TrimSpace(u.Host) == "" {
		return raw
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if q := u.Query(); len(q) > 0 {
		for k := range q {
			if isSensitiveQueryKey(k) {
				q.Set(k, "[redacted]")
			}
		}
		path += "?" + q.Encode()
	}
	if frag := strings.TrimSpace(u.EscapedFragment()); frag != "" {
		path += "#" + frag
	}
	return path
}

func isSensitiveQueryKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.ReplaceAll(strings.ReplaceAll(k, "-", ""), "_", "")
	if k == "key" {
		return true
	}
	for _, marker := range []string{"apikey", "authorization", "token", "secret", "password", "cookie"} {
		if strings.Contains(k, marker) {
			return true
		}
	}
	return false
}
