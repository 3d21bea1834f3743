package auth

import (
	"fmt"
	"net/http"
)

// Transport is an http.RoundTripper that attaches credentials to every
// request before delegating to Base.
type Transport struct {
	// Base performs the request. Default: http.DefaultTransport.
	Base http.RoundTripper

	// Provider supplies credentials when the request context carries none.
	Provider Provider

	// Headers decides which headers each request gets. Default: a builder
	// for DefaultWebHosts.
	Headers *HeaderBuilder
}

// RoundTrip implements http.RoundTripper. The caller's request is not
// modified.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	creds, ok := CredentialsFromContext(req.Context())
	if !ok {
		if t.Provider == nil {
			closeBody(req)
			return nil, ErrMissingCredentials
		}
		var err error
		creds, err = t.Provider.Credentials(req.Context())
		if err != nil {
			closeBody(req)
			return nil, fmt.Errorf("auth: resolve credentials: %w", err)
		}
	}

	headers := t.Headers
	if headers == nil {
		headers = NewHeaderBuilder(nil)
	}

	out := req.Clone(req.Context())
	headers.Apply(out, creds)

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(out)
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
