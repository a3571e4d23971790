package app

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-core/logging"

	"github.com/alexlup06-authgate/clerk-go/backend"
	"github.com/alexlup06-authgate/clerk-go/clerk"
)

type testServer struct {
	handler http.Handler
	priv    *rsa.PrivateKey
}

func newTestServer(t *testing.T, api http.Handler) *testServer {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	apiSrv := httptest.NewServer(api)
	t.Cleanup(apiSrv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	reg := prometheus.NewRegistry()
	sdk, err := clerk.New(ctx, clerk.Env{
		SecretKey:      "sk_live_secret",
		PublishableKey: backend.EncodePublishableKey("clerk.example.com", backend.Production),
		JWTKey:         string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})),
	},
		clerk.WithLogger(logging.New(logging.WithOutput(io.Discard))),
		clerk.WithBackendClient(backend.NewClient("sk_live_secret",
			backend.WithAPIURL(apiSrv.URL),
			backend.WithHTTPClient(apiSrv.Client()),
		)),
		clerk.WithMetrics(reg),
		clerk.WithPublicRoutes("/health", "/metrics"),
	)
	require.NoError(t, err)

	return &testServer{handler: NewRouter(sdk, reg), priv: priv}
}

func (s *testServer) token(t *testing.T) string {
	t.Helper()

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, backend.SessionClaims{
		SessionID: "sess_1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user_1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	})
	signed, err := token.SignedString(s.priv)
	require.NoError(t, err)
	return signed
}

func (s *testServer) get(path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouter_PublicRoutes(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, http.NotFoundHandler())

	rec := s.get("/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	// one authenticated request so the counters have samples
	s.get("/", nil)

	rec = s.get("/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "clerk_auth_request_states_total")
}

func TestRouter_Home(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, http.NotFoundHandler())

	rec := s.get("/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"signed_in":false}`, rec.Body.String())

	rec = s.get("/", http.Header{"Authorization": {"Bearer " + s.token(t)}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"signed_in":true,"user_id":"user_1"}`, rec.Body.String())
}

func TestRouter_Me(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/user_1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "user_1",
			"primary_email_address_id": "idn_1",
			"email_addresses": [{"id": "idn_1", "email_address": "user@example.com"}]
		}`))
	}))

	rec := s.get("/me", http.Header{"Accept": {"application/json"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.get("/me", http.Header{"Authorization": {"Bearer " + s.token(t)}})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "user@example.com", body["email"])
}

func TestRouter_Sessions_UpstreamFailure(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rec := s.get("/sessions", http.Header{"Authorization": {"Bearer " + s.token(t)}})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
