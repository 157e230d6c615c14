package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Config is the provider-derived auth configuration, built once at
// startup and immutable afterwards.
type Config struct {
	Issuer      string
	JWKSURL     string
	LoginConfig oauth2.Config
}

// BuildAuthConfig discovers the provider's endpoints and JWKS URI and
// assembles the oauth2 login configuration.
func BuildAuthConfig(ctx context.Context, clientID string, authProviderUrl string, redirectUrl string) (*Config, error) {
	provider, err := loadOIDCConfig(ctx, authProviderUrl)
	if err != nil {
		return nil, fmt.Errorf("could not load OIDC configuration: %w", err)
	}

	var claims struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&claims); err != nil {
		return nil, fmt.Errorf("could not read provider metadata: %w", err)
	}
	if claims.JWKSURI == "" {
		return nil, fmt.Errorf("provider metadata is missing jwks_uri")
	}

	return &Config{
		Issuer:  authProviderUrl,
		JWKSURL: claims.JWKSURI,
		LoginConfig: oauth2.Config{
			ClientID:    clientID,
			Endpoint:    provider.Endpoint(),
			RedirectURL: redirectUrl,
			Scopes:      []string{"profile", "email", oidc.ScopeOpenID},
		},
	}, nil
}

func loadOIDCConfig(ctx context.Context, authProviderUrl string) (*oidc.Provider, error) {
	retries := 5
	var provider *oidc.Provider
	var err error
	i := 0
	for i < retries {
		provider, err = oidc.NewProvider(ctx, authProviderUrl)
		if err != nil {
			// TODO: Real retries/backoff
			slog.Warn("could not load OIDC config", "attempt", i+1, "url", authProviderUrl, "err", err)
			i++
			if i < retries {
				time.Sleep(time.Second * 10)
			}
		} else {
			break
		}
	}

	if err != nil {
		return nil, err
	}
	return provider, nil
}
