package auth

import (
	"net"
	"net/http"
	"strings"
)

// Default upstream hosts. Only the web host receives session cookies; the
// service hosts authenticate with the bearer token alone.
var (
	DefaultWebHosts = []string{"www.dndbeyond.com", "dndbeyond.com"}
)

// HeaderBuilder applies credentials to outbound requests.
type HeaderBuilder struct {
	webHosts map[string]bool
}

// NewHeaderBuilder returns a builder that sends cookies to webHosts only.
// A nil slice selects DefaultWebHosts.
func NewHeaderBuilder(webHosts []string) *HeaderBuilder {
	if webHosts == nil {
		webHosts = DefaultWebHosts
	}
	hb := &HeaderBuilder{webHosts: make(map[string]bool, len(webHosts))}
	for _, h := range webHosts {
		hb.webHosts[strings.ToLower(h)] = true
	}
	return hb
}

// IsWebHost reports whether host (with or without a port) receives cookies.
func (b *HeaderBuilder) IsWebHost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return b.webHosts[strings.ToLower(host)]
}

// Apply sets Authorization and Accept on req, and Cookie when req targets a
// web host. Content-Type is set when the request has a body.
func (b *HeaderBuilder) Apply(req *http.Request, creds Credentials) {
	req.Header.Set("Authorization", "Bearer "+creds.Token)
	req.Header.Set("Accept", "application/json")
	if req.Body != nil && req.Body != http.NoBody {
		req.Header.Set("Content-Type", "application/json")
	}

	req.Header.Del("Cookie")
	if len(creds.Cookies) > 0 && b.IsWebHost(req.URL.Hostname()) {
		req.Header.Set("Cookie", CookieHeader(creds))
	}
}

// CookieHeader formats the credentials' cookies as a Cookie header value,
// ordered by name.
func CookieHeader(creds Credentials) string {
	parts := make([]string, 0, len(creds.Cookies))
	for _, name := range creds.CookieNames() {
		c := &http.Cookie{Name: name, Value: creds.Cookies[name]}
		if s := c.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "; ")
}
