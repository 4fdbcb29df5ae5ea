package openrouter

import (
	"fmt"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://openrouter.ai"

var defaultAllowedHosts = map[string]struct{}{
	"openrouter.ai":     {},
	"api.openrouter.ai": {},
}

// BaseURLError rejects an oracle base URL. The URL is printed without its
// userinfo so credentials never reach logs.
type BaseURLError struct {
	URL    string
	Reason string
}

func (e *BaseURLError) Error() string {
	return fmt.Sprintf("invalid oracle base URL %q: %s", e.URL, e.Reason)
}

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// ValidateBaseURL accepts only absolute https URLs on an allowed host, with
// no userinfo, query or fragment. An empty allowlist means the public
// OpenRouter hosts.
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	baseURL = normalizeBaseURL(baseURL)

	u, err := url.Parse(baseURL)
	if err != nil {
		return &BaseURLError{URL: "(unparseable)", Reason: err.Error()}
	}
	shown := u.Redacted()
	reject := func(reason string) error {
		return &BaseURLError{URL: shown, Reason: reason}
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case !u.IsAbs() || host == "":
		return reject("absolute URL with host is required")
	case u.User != nil:
		return reject("userinfo is not allowed")
	case u.RawQuery != "" || u.Fragment != "":
		return reject("query and fragment are not allowed")
	case !strings.EqualFold(u.Scheme, "https"):
		return reject("https is required")
	}

	if _, ok := normalizeAllowedHosts(allowedHosts)[host]; !ok {
		return reject(fmt.Sprintf("host %q is not in oracle.allowed_hosts", host))
	}
	return nil
}

// normalizeAllowedHosts lowercases entries and strips scheme, slashes and
// port. It falls back to the defaults when nothing usable is left.
func normalizeAllowedHosts(allowedHosts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(allowedHosts))
	for _, h := range allowedHosts {
		v := strings.ToLower(strings.TrimSpace(h))
		for _, prefix := range []string{"http://", "https://"} {
			v = strings.TrimPrefix(v, prefix)
		}
		v = strings.Trim(v, "/")
		if i := strings.IndexByte(v, ':'); i >= 0 {
			v = v[:i]
		}
		if v != "" {
			out[v] = struct{}{}
		}
	}
	if len(out) == 0 {
		return defaultAllowedHosts
	}
	return out
}
