package auth

import "context"

type contextKey int

const credentialsKey contextKey = iota

// WithCredentials returns a context carrying credentials that override the
// Transport's provider for requests made with it.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey, creds)
}

// CredentialsFromContext returns the credentials attached by WithCredentials.
func CredentialsFromContext(ctx context.Context) (Credentials, bool) {
	creds, ok := ctx.Value(credentialsKey).(Credentials)
	return creds, ok
}
