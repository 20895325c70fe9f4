package delivery

import (
	"net/url"
	"strings"
)

// CDN hosts that serve the catalog's assets; anything under them must be fetched
// over TLS even when the catalog carries a plain-http URL.
var secureHostSuffixes = []string{
	"r2.dev",
	"unsplash.com",
}

func isSecureHost(host string) bool {
	for _, suffix := range secureHostSuffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

// NormalizeURL upgrades http to https for known CDN hosts. Every delivery strategy
// sees the normalized URL; unparseable input is passed through untouched.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "http" {
		return raw
	}
	if !isSecureHost(u.Hostname()) {
		return raw
	}
	u.Scheme = "https"
	return u.String()
}
