package backend

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate_RemoteJWKS(t *testing.T) {
	t.Parallel()

	priv, _ := newTestKey(t)

	key, err := jwk.Import(&priv.PublicKey)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, testKid))
	require.NoError(t, key.Set(jwk.AlgorithmKey, "RS256"))
	require.NoError(t, key.Set(jwk.KeyUsageKey, "sig"))

	keySet := jwk.NewSet()
	require.NoError(t, keySet.AddKey(key))

	var unauthorized atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+prodSecretKey {
			unauthorized.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		buf, err := json.Marshal(keySet)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(buf)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a := NewAuthenticator(ctx, NewClient(prodSecretKey, WithAPIURL(srv.URL), WithHTTPClient(srv.Client())))

	now := time.Now()
	token := signSessionToken(t, priv, validClaims(now))
	req := testRequest(t, "https://example.com/", map[string]string{
		"User-Agent": browserUA,
		"Cookie":     "__session=" + token + "; __client_uat=" + strconv.FormatInt(now.Add(-time.Minute).Unix(), 10),
	})

	opts := AuthenticateOptions{
		Request:        req,
		SecretKey:      prodSecretKey,
		PublishableKey: EncodePublishableKey("clerk.example.com", Production),
	}

	state := a.Authenticate(context.Background(), opts)
	require.True(t, state.IsSignedIn(), "reason=%s message=%s", state.Reason, state.Message)
	assert.Equal(t, "user_123", state.Claims.Subject)
	assert.Zero(t, unauthorized.Load())
}

func TestAuthenticate_RemoteJWKS_Unreachable(t *testing.T) {
	t.Parallel()

	priv, _ := newTestKey(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a := NewAuthenticator(ctx, NewClient(prodSecretKey, WithAPIURL(srv.URL), WithHTTPClient(srv.Client())))

	token := signSessionToken(t, priv, validClaims(time.Now()))
	req := testRequest(t, "https://example.com/", map[string]string{"Authorization": "Bearer " + token})

	state := a.Authenticate(context.Background(), AuthenticateOptions{
		Request:        req,
		SecretKey:      prodSecretKey,
		PublishableKey: EncodePublishableKey("clerk.example.com", Production),
	})
	assert.True(t, state.IsSignedOut())
	assert.Equal(t, ReasonJWKRemoteFailedToLoad, state.Reason)
}

func TestParseJWTKey_BareBase64(t *testing.T) {
	t.Parallel()

	_, pemKey := newTestKey(t)

	// strip the armour the way the dashboard shows the key
	var body string
	for _, line := range strings.Split(pemKey, "\n") {
		if line == "" || line[0] == '-' {
			continue
		}
		body += line
	}

	k, err := parseJWTKey(body)
	require.NoError(t, err)
	assert.NotNil(t, k.pub)

	_, err = parseJWTKey("definitely not a key")
	require.ErrorIs(t, err, ErrInvalidJWTKey)
}

func newTestKeySet(t *testing.T, priv *rsa.PrivateKey, kid string) jwk.Set {
	t.Helper()

	key, err := jwk.Import(&priv.PublicKey)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	require.NoError(t, key.Set(jwk.AlgorithmKey, "RS256"))

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(key))
	return set
}

// jwksServer serves a swappable key set and can be made to fail or stall.
type jwksServer struct {
	*httptest.Server

	set   atomic.Value // jwk.Set
	fail  atomic.Bool
	delay atomic.Int64
	hits  atomic.Int32
}

func newJWKSServer(t *testing.T, set jwk.Set) *jwksServer {
	t.Helper()

	s := &jwksServer{}
	s.set.Store(set)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if d := time.Duration(s.delay.Load()); d > 0 {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
		}
		if s.fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		buf, err := json.Marshal(s.set.Load())
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(buf)
	}))
	t.Cleanup(s.Close)
	return s
}

// newRemoteTestAuthenticator returns an Authenticator backed by srv's JWKS
// with a short registration timeout.
func newRemoteTestAuthenticator(t *testing.T, srv *jwksServer) *Authenticator {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a := NewAuthenticator(ctx, NewClient(prodSecretKey, WithAPIURL(srv.URL), WithHTTPClient(srv.Client())))

	ks, err := a.keySource("", prodSecretKey)
	require.NoError(t, err)
	remote, ok := ks.(*remoteJWKS)
	require.True(t, ok)
	remote.registerTimeout = 300 * time.Millisecond

	return a
}

func bearerOptions(t *testing.T, token string) AuthenticateOptions {
	t.Helper()

	return AuthenticateOptions{
		Request:        testRequest(t, "https://example.com/", map[string]string{"Authorization": "Bearer " + token}),
		SecretKey:      prodSecretKey,
		PublishableKey: EncodePublishableKey("clerk.example.com", Production),
	}
}

func TestAuthenticate_RemoteJWKS_RecoversFromOutage(t *testing.T) {
	t.Parallel()

	priv, _ := newTestKey(t)
	srv := newJWKSServer(t, newTestKeySet(t, priv, testKid))
	srv.fail.Store(true)

	a := newRemoteTestAuthenticator(t, srv)
	opts := bearerOptions(t, signSessionToken(t, priv, validClaims(time.Now())))

	state := a.Authenticate(context.Background(), opts)
	require.True(t, state.IsSignedOut())
	assert.Equal(t, ReasonJWKRemoteFailedToLoad, state.Reason)

	srv.fail.Store(false)
	before := srv.hits.Load()

	state = a.Authenticate(context.Background(), opts)
	require.True(t, state.IsSignedIn(), "reason=%s message=%s", state.Reason, state.Message)
	assert.Greater(t, srv.hits.Load(), before)

	state = a.Authenticate(context.Background(), opts)
	assert.True(t, state.IsSignedIn())
}

func TestAuthenticate_DeadlineResolvesUnknown(t *testing.T) {
	t.Parallel()

	priv, _ := newTestKey(t)
	srv := newJWKSServer(t, newTestKeySet(t, priv, testKid))
	srv.delay.Store(int64(200 * time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	a := NewAuthenticator(ctx, NewClient(prodSecretKey, WithAPIURL(srv.URL), WithHTTPClient(srv.Client())))
	opts := bearerOptions(t, signSessionToken(t, priv, validClaims(time.Now())))

	shortCtx, shortCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer shortCancel()

	state := a.Authenticate(shortCtx, opts)
	require.True(t, state.IsUnknown(), "status=%s reason=%s", state.Status, state.Reason)
	assert.Equal(t, ReasonTokenVerificationUnavailable, state.Reason)

	// a cancelled first caller must not poison later requests
	state = a.Authenticate(context.Background(), opts)
	assert.True(t, state.IsSignedIn(), "reason=%s message=%s", state.Reason, state.Message)
}

func TestAuthenticate_RemoteJWKS_KeyRotation(t *testing.T) {
	t.Parallel()

	oldKey, _ := newTestKey(t)
	newKey, _ := newTestKey(t)
	srv := newJWKSServer(t, newTestKeySet(t, oldKey, "ins_old"))

	a := newRemoteTestAuthenticator(t, srv)

	state := a.Authenticate(context.Background(),
		bearerOptions(t, signSessionTokenWithKid(t, oldKey, "ins_old", validClaims(time.Now()))))
	require.True(t, state.IsSignedIn(), "reason=%s message=%s", state.Reason, state.Message)

	srv.set.Store(newTestKeySet(t, newKey, "ins_new"))

	state = a.Authenticate(context.Background(),
		bearerOptions(t, signSessionTokenWithKid(t, newKey, "ins_new", validClaims(time.Now()))))
	require.True(t, state.IsSignedIn(), "reason=%s message=%s", state.Reason, state.Message)

	// unknown key ids do not refetch again within the refresh interval
	hits := srv.hits.Load()
	state = a.Authenticate(context.Background(),
		bearerOptions(t, signSessionTokenWithKid(t, newKey, "ins_bogus", validClaims(time.Now()))))
	assert.True(t, state.IsSignedOut())
	assert.Equal(t, ReasonJWKKidMismatch, state.Reason)
	assert.Equal(t, hits, srv.hits.Load())
}
