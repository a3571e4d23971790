// Package clerk wires request authentication into net/http servers: it
// normalizes incoming requests, merges options with the environment and
// turns the resolved state into responses.
package clerk

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/gobwas/glob"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/alexlup06-authgate/clerk-go/backend"
)

// SDKOption configures an SDK.
type SDKOption func(*SDK) error

// WithLogger sets the logger for the SDK and the Authenticator it creates.
func WithLogger(l *slog.Logger) SDKOption {
	return func(s *SDK) error {
		s.logger = l
		return nil
	}
}

// WithOptions sets the explicit options the middleware authenticates with.
// They override the environment.
func WithOptions(opts Options) SDKOption {
	return func(s *SDK) error {
		s.options = opts
		return nil
	}
}

// WithBackendClient replaces the backend API client built from Env.
func WithBackendClient(c *backend.Client) SDKOption {
	return func(s *SDK) error {
		s.client = c
		return nil
	}
}

// WithMetrics registers the SDK's Prometheus collectors on reg.
func WithMetrics(reg prometheus.Registerer) SDKOption {
	return func(s *SDK) error {
		s.metrics = newMetrics(reg)
		return nil
	}
}

// WithPublicRoutes exempts paths matching any of the glob patterns from
// authentication. "*" matches within one path segment and "**" across
// segments, e.g. "/static/**".
func WithPublicRoutes(patterns ...string) SDKOption {
	return func(s *SDK) error {
		for _, p := range patterns {
			g, err := glob.Compile(p, '/')
			if err != nil {
				return fmt.Errorf("clerk: invalid public route %q: %w", p, err)
			}
			s.publicRoutes = append(s.publicRoutes, g)
		}
		return nil
	}
}

// SDK authenticates incoming requests against one instance.
type SDK struct {
	env           Env
	options       Options
	client        *backend.Client
	authenticator *backend.Authenticator
	logger        *slog.Logger
	metrics       *metrics
	publicRoutes  []glob.Glob
}

// New creates an SDK from the process environment.
//
// Missing keys are not an error here: requests are then resolved to the
// unknown state so that the embedding application still starts. ctx bounds
// the lifetime of the background JWKS refresh.
func New(ctx context.Context, env Env, opts ...SDKOption) (*SDK, error) {
	s := &SDK{
		env:    env,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.client == nil {
		s.client = backend.NewClient(
			firstNonEmpty(s.options.SecretKey, env.SecretKey, s.options.APIKey, env.APIKey),
			backend.WithAPIURL(env.APIURL),
			backend.WithAPIVersion(env.APIVersion),
			backend.WithClientLogger(s.logger),
		)
	}

	s.authenticator = backend.NewAuthenticator(ctx, s.client, backend.WithLogger(s.logger))

	if firstNonEmpty(s.options.SecretKey, env.SecretKey, s.options.APIKey, env.APIKey) == "" {
		s.logger.Warn("clerk: no secret key configured, every request will resolve to unknown",
			"env", EnvSecretKey)
	}

	return s, nil
}

// AuthenticateRequest runs the full pipeline for req: URL normalization,
// configuration resolution, satellite validation, request building and
// authentication.
//
// A returned error is either a transport error (IsTransportError) or a
// configuration error (IsConfigurationError); no verification was attempted.
func (s *SDK) AuthenticateRequest(ctx context.Context, req IncomingRequest, opts Options) (backend.RequestState, error) {
	state, _, err := s.authenticate(ctx, req, opts)
	return state, err
}

func (s *SDK) authenticate(ctx context.Context, req IncomingRequest, opts Options) (backend.RequestState, *url.URL, error) {
	requestURL, err := NormalizeURL(req)
	if err != nil {
		return backend.RequestState{}, nil, err
	}

	cfg, err := ValidateSatelliteConfig(ResolveConfig(opts, s.env, requestURL), requestURL)
	if err != nil {
		return backend.RequestState{}, requestURL, err
	}

	state := s.authenticator.Authenticate(ctx, cfg.authenticateOptions(BuildRequest(req, requestURL)))
	return state, requestURL, nil
}

// LoadInterstitial returns the interstitial page for state. It is rendered
// locally whenever the publishable key or frontend API is known, and fetched
// from the backend API otherwise.
func (s *SDK) LoadInterstitial(ctx context.Context, state backend.RequestState) (string, error) {
	if state.PublishableKey != "" || state.FrontendAPI != "" {
		return backend.LocalInterstitial(backend.LocalInterstitialOptions{
			PublishableKey: state.PublishableKey,
			FrontendAPI:    state.FrontendAPI,
			ProxyURL:       state.ProxyURL,
			SignInURL:      state.SignInURL,
			IsSatellite:    state.IsSatellite,
			Domain:         state.Domain,
			ClerkJSVersion: s.env.ClerkJSVersion,
			ClerkJSURL:     s.env.ClerkJSURL,
		})
	}
	return s.client.RemotePrivateInterstitial(ctx)
}

// Client returns the backend API client used by the SDK.
func (s *SDK) Client() *backend.Client {
	return s.client
}
