// Package auth decides whether a bearer token grants access to a
// resource. It verifies the token's signature against the identity
// provider's published keys and synthesizes an allow/deny policy for
// the enforcement layer. It never rejects requests itself, and
// verification failures never escape as errors - only as Deny.
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lestrrat-go/jwx/jwt"
)

type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

// AnonymousPrincipal is the placeholder principal used when no
// verifiable identity is available.
const AnonymousPrincipal = "anonymous"

// Policy is the advisory decision handed to the enforcement point:
// who the caller is, whether they may proceed, and the resource the
// effect applies to. Context carries auxiliary claims forward to the
// downstream operation.
type Policy struct {
	PrincipalID string         `json:"principalId"`
	Effect      Effect         `json:"effect"`
	Resource    string         `json:"resource"`
	Context     map[string]any `json:"context,omitempty"`
}

func (p *Policy) Allowed() bool {
	return p.Effect == EffectAllow
}

type Authorizer struct {
	keys     KeySet
	issuer   string
	clientID string
}

// NewAuthorizer builds an authorizer verifying tokens issued by
// issuer for clientID against the given key set.
func NewAuthorizer(keys KeySet, issuer string, clientID string) *Authorizer {
	return &Authorizer{
		keys:     keys,
		issuer:   issuer,
		clientID: clientID,
	}
}

// Authorize verifies tokenStr and returns the resulting policy. The
// specific verification failure is logged but never surfaced to the
// caller; they only see Deny.
func (a *Authorizer) Authorize(ctx context.Context, tokenStr string, resource string) *Policy {
	if tokenStr == "" {
		slog.Info("no token presented, denying", "resource", resource)
		return &Policy{
			PrincipalID: AnonymousPrincipal,
			Effect:      EffectDeny,
			Resource:    resource,
		}
	}

	token, err := a.verify(ctx, tokenStr)
	if err != nil {
		slog.Warn("token verification failed, denying",
			"resource", resource,
			"err", err)
		return &Policy{
			PrincipalID: AnonymousPrincipal,
			Effect:      EffectDeny,
			Resource:    resource,
		}
	}

	principal := token.Subject()
	if principal == "" {
		principal = AnonymousPrincipal
	}
	return &Policy{
		PrincipalID: principal,
		Effect:      EffectAllow,
		Resource:    resource,
		Context:     token.PrivateClaims(),
	}
}

func (a *Authorizer) verify(ctx context.Context, tokenStr string) (jwt.Token, error) {
	keys, err := a.keys.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing keys: %w", err)
	}

	token, err := jwt.ParseString(tokenStr,
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(a.issuer),
		jwt.WithAudience(a.clientID),
	)
	if err != nil {
		return nil, err
	}

	// The provider marks what a token is for; only id tokens are
	// accepted here.
	if use, ok := token.Get("token_use"); ok && use != "id" {
		return nil, fmt.Errorf("unexpected token_use claim: %v", use)
	}

	return token, nil
}
