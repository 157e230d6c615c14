package auth

import (
	"context"
	"time"

	"github.com/lestrrat-go/jwx/jwk"
)

// KeySet supplies the identity provider's current signing keys. Get
// may serve a cached set; Refresh forces a refetch (e.g. after the
// provider rotates keys).
type KeySet interface {
	Get(ctx context.Context) (jwk.Set, error)
	Refresh(ctx context.Context) (jwk.Set, error)
}

// RemoteKeySet fetches a JWKS over HTTP and caches it, refreshing in
// the background per the endpoint's cache headers.
type RemoteKeySet struct {
	url string
	ar  *jwk.AutoRefresh
}

func NewRemoteKeySet(ctx context.Context, jwksURL string) *RemoteKeySet {
	ar := jwk.NewAutoRefresh(ctx)
	ar.Configure(jwksURL, jwk.WithMinRefreshInterval(15*time.Minute))
	return &RemoteKeySet{url: jwksURL, ar: ar}
}

func (k *RemoteKeySet) Get(ctx context.Context) (jwk.Set, error) {
	return k.ar.Fetch(ctx, k.url)
}

func (k *RemoteKeySet) Refresh(ctx context.Context) (jwk.Set, error) {
	return k.ar.Refresh(ctx, k.url)
}

// StaticKeySet serves a fixed set of keys. Used in tests with
// generated key material.
type StaticKeySet struct {
	set jwk.Set
}

func NewStaticKeySet(set jwk.Set) *StaticKeySet {
	return &StaticKeySet{set: set}
}

func (k *StaticKeySet) Get(ctx context.Context) (jwk.Set, error) {
	return k.set, nil
}

func (k *StaticKeySet) Refresh(ctx context.Context) (jwk.Set, error) {
	return k.set, nil
}
