package identity

import (
	"context"
	"errors"
)

// Provider supplies the authenticated user's uid. Credentials and session
// management live outside the engine.
type Provider interface {
	CurrentUID(ctx context.Context) (string, error)
}

// Verifier resolves a bearer token to a uid. Used by the bridge surface.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

var ErrInvalidToken = errors.New("invalid token")

// Static is a fixed-credential provider for development and tests.
type Static struct {
	UID   string
	Token string
}

func (s Static) CurrentUID(ctx context.Context) (string, error) {
	if s.UID == "" {
		return "", errors.New("no session uid configured")
	}
	return s.UID, nil
}

func (s Static) Verify(ctx context.Context, token string) (string, error) {
	if s.Token == "" || token != s.Token {
		return "", ErrInvalidToken
	}
	return s.UID, nil
}
