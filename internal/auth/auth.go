// Package auth implements the admin gate: a single process-wide shared
// secret compared by exact equality. There is deliberately no session
// or token state; every protected request re-presents the secret in the
// x-admin-password header, and the login endpoint is only a pre-flight
// check of the same secret.
package auth

import "errors"

var (
	// ErrNotConfigured indicates no admin secret is set server-side.
	// Gated routes fail with a configuration error, never a bypass.
	ErrNotConfigured = errors.New("admin password not configured")
	// ErrUnauthorized indicates the presented secret does not match.
	ErrUnauthorized = errors.New("unauthorized")
)

// HeaderName is the request header carrying the admin secret.
const HeaderName = "x-admin-password"

type Gate struct {
	password func() string
}

// NewGate creates a gate over the configured secret getter. The getter
// is consulted per check so a secret rotated via environment reload
// takes effect without rebuilding the gate.
func NewGate(password func() string) *Gate {
	return &Gate{password: password}
}

// Check validates a caller-supplied secret against the configured one.
func (g *Gate) Check(secret string) error {
	configured := g.password()
	if configured == "" {
		return ErrNotConfigured
	}
	if secret != configured {
		return ErrUnauthorized
	}
	return nil
}
