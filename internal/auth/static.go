package auth

import (
	"context"
	"sync/atomic"
)

// StaticVerifier accepts a fixed set of tokens. It is meant for tests and
// local development.
type StaticVerifier struct {
	identities map[string]Identity
	calls      atomic.Int64
}

// NewStaticVerifier creates a verifier that maps tokens to identities.
func NewStaticVerifier(identities map[string]Identity) *StaticVerifier {
	return &StaticVerifier{identities: identities}
}

// Verify returns the identity registered for token.
func (v *StaticVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	v.calls.Add(1)
	id, ok := v.identities[token]
	if !ok {
		return nil, ErrInvalidOrExpired
	}
	return &id, nil
}

// Calls reports how many times Verify has been invoked.
func (v *StaticVerifier) Calls() int64 {
	return v.calls.Load()
}
