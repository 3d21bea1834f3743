package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry returns the exp claim of a JWT bearer token. The signature is
// not verified; the upstream does that. Tokens without an exp claim return
// ErrNoExpiry.
func TokenExpiry(token string) (time.Time, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return time.Time{}, ErrMissingCredentials
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// TokenRemaining returns how long the token stays valid after now. It
// returns ErrTokenExpired, along with the negative remainder, when the
// token is already expired.
func TokenRemaining(token string, now time.Time) (time.Duration, error) {
	exp, err := TokenExpiry(token)
	if err != nil {
		return 0, err
	}
	left := exp.Sub(now)
	if left <= 0 {
		return left, ErrTokenExpired
	}
	return left, nil
}
