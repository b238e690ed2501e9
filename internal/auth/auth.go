// Package auth establishes the requester identity of an HTTP request.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// DefaultHeader carries the requester id when HeaderAuthenticator is used.
const DefaultHeader = "X-Requester-ID"

// ErrUnauthenticated reports a request without a usable identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// Authenticator resolves the requester behind a request. The returned id is
// trusted verbatim by the coordinator.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// HeaderAuthenticator trusts an identity header set by an upstream proxy.
type HeaderAuthenticator struct {
	header string
}

// NewHeaderAuthenticator reads the requester id from header, or
// DefaultHeader when header is empty.
func NewHeaderAuthenticator(header string) *HeaderAuthenticator {
	if strings.TrimSpace(header) == "" {
		header = DefaultHeader
	}
	return &HeaderAuthenticator{header: http.CanonicalHeaderKey(header)}
}

// Header returns the header the authenticator reads.
func (a *HeaderAuthenticator) Header() string {
	return a.header
}

// Authenticate implements Authenticator.
func (a *HeaderAuthenticator) Authenticate(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(a.header))
	if id == "" {
		return "", ErrUnauthenticated
	}
	return id, nil
}

// TokenAuthenticator maps bearer tokens to requester ids.
type TokenAuthenticator struct {
	tokens []tokenEntry
}

type tokenEntry struct {
	token     []byte
	requester string
}

// NewTokenAuthenticator builds an authenticator from a token to requester map.
// Entries with an empty token or requester are ignored.
func NewTokenAuthenticator(tokens map[string]string) *TokenAuthenticator {
	a := &TokenAuthenticator{}
	for token, requester := range tokens {
		if token == "" || requester == "" {
			continue
		}
		a.tokens = append(a.tokens, tokenEntry{token: []byte(token), requester: requester})
	}
	return a
}

// Authenticate implements Authenticator. Every configured token is compared
// in constant time.
func (a *TokenAuthenticator) Authenticate(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrUnauthenticated
	}
	presented := []byte(strings.TrimSpace(token))
	if len(presented) == 0 {
		return "", ErrUnauthenticated
	}

	requester := ""
	for _, e := range a.tokens {
		if subtle.ConstantTimeCompare(presented, e.token) == 1 {
			requester = e.requester
		}
	}
	if requester == "" {
		return "", ErrUnauthenticated
	}
	return requester, nil
}
