package auth

import (
	"context"
	"maps"
	"slices"
)

// Credentials are the secrets attached to upstream requests.
type Credentials struct {
	// Token is the bearer token sent on every request.
	Token string

	// Cookies are the session cookies sent to web hosts, by name.
	Cookies map[string]string
}

// Validate reports ErrMissingCredentials if there is no token.
func (c Credentials) Validate() error {
	if c.Token == "" {
		return ErrMissingCredentials
	}
	return nil
}

// CookieNames returns the cookie names in sorted order.
func (c Credentials) CookieNames() []string {
	return slices.Sorted(maps.Keys(c.Cookies))
}

// Provider yields the credentials for a request.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: implementations should honor cancellation.
type Provider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// ProviderFunc adapts a function to a Provider.
type ProviderFunc func(ctx context.Context) (Credentials, error)

// Credentials calls f.
func (f ProviderFunc) Credentials(ctx context.Context) (Credentials, error) {
	return f(ctx)
}

// StaticProvider always returns the same credentials.
type StaticProvider struct {
	creds Credentials
}

// NewStaticProvider returns a provider for fixed credentials. The cookie map
// is copied.
func NewStaticProvider(creds Credentials) *StaticProvider {
	creds.Cookies = maps.Clone(creds.Cookies)
	return &StaticProvider{creds: creds}
}

// Credentials returns the fixed credentials, or ErrMissingCredentials if
// the token is empty.
func (p *StaticProvider) Credentials(context.Context) (Credentials, error) {
	if err := p.creds.Validate(); err != nil {
		return Credentials{}, err
	}
	return p.creds, nil
}
