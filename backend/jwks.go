package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// pemKey serves a single RSA public key configured out of band (the
// networkless verification path).
type pemKey struct {
	pub any
}

// parseJWTKey accepts a PEM encoded RSA public key. The dashboard exposes the
// key both with and without the PEM armour, so bare base64 is wrapped first.
func parseJWTKey(raw string) (*pemKey, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "-----BEGIN") {
		body := strings.Join(strings.Fields(s), "")
		var b strings.Builder
		b.WriteString("-----BEGIN PUBLIC KEY-----\n")
		for len(body) > 64 {
			b.WriteString(body[:64])
			b.WriteByte('\n')
			body = body[64:]
		}
		b.WriteString(body)
		b.WriteString("\n-----END PUBLIC KEY-----\n")
		s = b.String()
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWTKey, err)
	}
	return &pemKey{pub: key}, nil
}

func (p *pemKey) key(context.Context, string) (any, error) {
	return p.pub, nil
}

// bearerTransport authenticates JWKS fetches with the instance secret key.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(HeaderAuthorization, "Bearer "+t.token)
	return t.base.RoundTrip(req)
}

const (
	defaultRegisterTimeout = 5 * time.Second

	// minForcedRefreshInterval limits refetches triggered by unknown key
	// ids, which a client fully controls.
	minForcedRefreshInterval = 10 * time.Second
)

// remoteJWKS resolves keys from the backend API JWKS endpoint through an
// auto-refreshing jwx cache.
type remoteJWKS struct {
	url             string
	cache           *jwk.Cache
	registerTimeout time.Duration

	mu         sync.Mutex
	registered bool
	lastForced time.Time
}

func newRemoteJWKS(ctx context.Context, jwksURL, secretKey string, hc *http.Client) (*remoteJWKS, error) {
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client := &http.Client{
		Timeout:   hc.Timeout,
		Transport: &bearerTransport{token: secretKey, base: base},
	}

	cache, err := jwk.NewCache(ctx, httprc.NewClient(httprc.WithHTTPClient(client)))
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS cache: %w", err)
	}

	return &remoteJWKS{url: jwksURL, cache: cache, registerTimeout: defaultRegisterTimeout}, nil
}

// ensureRegistered registers the JWKS URL on first use and waits for the
// first successful fetch.
//
// httprc keeps the resource even when that first fetch fails, and a second
// Register is rejected. Once the URL is known to the cache, a synchronous
// Refresh stands in for the fetch Register would have waited on.
func (r *remoteJWKS) ensureRegistered(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.registered {
		return nil
	}

	registrationCtx, cancel := context.WithTimeout(ctx, r.registerTimeout)
	defer cancel()

	if err := r.cache.Register(registrationCtx, r.url); err != nil {
		if !r.cache.IsRegistered(ctx, r.url) {
			return err
		}
		if _, err := r.cache.Refresh(registrationCtx, r.url); err != nil {
			return err
		}
	}

	r.registered = true
	return nil
}

// refreshForKeyID refetches the key set after a key id miss, at most once
// per minForcedRefreshInterval. It reports whether a refetch happened.
func (r *remoteJWKS) refreshForKeyID(ctx context.Context) (jwk.Set, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lastForced.IsZero() && time.Since(r.lastForced) < minForcedRefreshInterval {
		return nil, false
	}
	r.lastForced = time.Now()

	set, err := r.cache.Refresh(ctx, r.url)
	if err != nil {
		return nil, false
	}
	return set, true
}

func (r *remoteJWKS) key(ctx context.Context, kid string) (any, error) {
	if err := r.ensureRegistered(ctx); err != nil {
		return nil, &TokenVerificationError{
			Reason:  ReasonJWKRemoteFailedToLoad,
			Message: "failed to load JWKS from " + r.url,
			Err:     err,
		}
	}

	set, err := r.cache.Lookup(ctx, r.url)
	if err != nil {
		return nil, &TokenVerificationError{
			Reason:  ReasonJWKRemoteFailedToLoad,
			Message: "failed to look up JWKS from " + r.url,
			Err:     err,
		}
	}

	k, ok := set.LookupKeyID(kid)
	if !ok {
		// the signing key may have been rotated since the last fetch
		if refreshed, done := r.refreshForKeyID(ctx); done {
			k, ok = refreshed.LookupKeyID(kid)
		}
	}
	if !ok {
		return nil, &TokenVerificationError{
			Reason:  ReasonJWKKidMismatch,
			Message: fmt.Sprintf("no JWK with kid %q", kid),
		}
	}

	var raw any
	if err := jwk.Export(k, &raw); err != nil {
		return nil, &TokenVerificationError{
			Reason:  ReasonJWKRemoteFailedToLoad,
			Message: "failed to export JWK",
			Err:     err,
		}
	}
	return raw, nil
}
