package origin

import (
	"net"
	"net/url"
	"strings"
)

// Policy decides whether a declared request origin may participate in
// cross-app session exchange. Rules evaluate in order, first match wins:
// absent origin denies, the configured production suffix allows,
// loopback allows, RFC1918 ranges allow (LAN development), else deny.
type Policy struct {
	// TrustedSuffix is the production domain suffix, e.g. "lifedeck.app".
	TrustedSuffix string
}

// Decision carries both the admission verdict and the exact origin to
// reflect in response headers. Wildcards are never used because the
// endpoints carry credentials.
type Decision struct {
	Allowed bool
	Origin  string
}

func New(trustedSuffix string) *Policy {
	return &Policy{TrustedSuffix: trustedSuffix}
}

// Check evaluates the Origin header value. An empty value means the
// caller did not declare an origin; treated conservatively as untrusted.
func (p *Policy) Check(origin string) Decision {
	if origin == "" {
		return Decision{}
	}

	host := originHost(origin)
	if host == "" {
		return Decision{}
	}

	if p.TrustedSuffix != "" && hasDomainSuffix(host, p.TrustedSuffix) {
		return Decision{Allowed: true, Origin: origin}
	}

	if host == "localhost" {
		return Decision{Allowed: true, Origin: origin}
	}

	// Loopback and RFC1918 rules apply to IP literals only. A public
	// hostname like 10.evil.com must never match them.
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() {
			return Decision{Allowed: true, Origin: origin}
		}
	}

	return Decision{}
}

// originHost extracts the hostname (no port) from an origin value.
func originHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil {
		return ""
	}
	if u.Host == "" {
		// Bare host with no scheme, e.g. "localhost:4000".
		if i := strings.IndexByte(origin, ':'); i > 0 {
			return origin[:i]
		}
		return origin
	}
	return u.Hostname()
}

func hasDomainSuffix(host, suffix string) bool {
	host = strings.ToLower(host)
	suffix = strings.ToLower(suffix)
	return host == suffix || strings.HasSuffix(host, "."+suffix)
}
