// Package backend resolves the authentication state of a request and talks
// to the Clerk backend API.
package backend

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/alexlup06-authgate/clerk-go/backend"

// AuthenticateOptions is everything Authenticate needs for one request: the
// normalized request plus the resolved instance configuration.
type AuthenticateOptions struct {
	Request Request

	APIKey            string
	SecretKey         string
	FrontendAPI       string
	PublishableKey    string
	JWTKey            string
	AuthorizedParties []string
	Audience          []string

	ProxyURL    string
	IsSatellite bool
	Domain      string
	SignInURL   string
}

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithLogger sets the logger used by the Authenticator.
func WithLogger(l *slog.Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		a.logger = l
	}
}

// WithTracerProvider sets the tracer provider used for Authenticate spans.
// The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) AuthenticatorOption {
	return func(a *Authenticator) {
		a.tracer = tp.Tracer(tracerName)
	}
}

// Authenticator resolves the RequestState of incoming requests.
//
// It is safe for concurrent use. The only state shared between requests is
// the per-secret-key JWKS cache, whose background refresh lives as long as
// the context passed to NewAuthenticator.
type Authenticator struct {
	client *Client
	logger *slog.Logger
	tracer trace.Tracer

	// baseCtx bounds the lifetime of the JWKS caches created lazily per
	// secret key.
	baseCtx context.Context

	mu      sync.Mutex
	jwks    map[string]*remoteJWKS
	pemKeys map[string]*pemKey
}

// NewAuthenticator creates an Authenticator that fetches remote keys through
// client's API URL and HTTP client.
func NewAuthenticator(ctx context.Context, client *Client, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		client:  client,
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
		baseCtx: ctx,
		jwks:    make(map[string]*remoteJWKS),
		pemKeys: make(map[string]*pemKey),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Authenticate resolves the RequestState for a request. It never returns an
// error: ambiguity and misconfiguration are reported as interstitial and
// unknown states respectively. A context deadline that fires while verifying
// resolves to unknown.
func (a *Authenticator) Authenticate(ctx context.Context, opts AuthenticateOptions) RequestState {
	ctx, span := a.tracer.Start(ctx, "backend.Authenticate", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	state := a.authenticate(ctx, opts)

	span.SetAttributes(
		attribute.String("clerk.auth.status", string(state.Status)),
		attribute.String("clerk.auth.reason", string(state.Reason)),
		attribute.Bool("clerk.satellite", opts.IsSatellite),
	)

	a.logger.DebugContext(ctx, "request authenticated",
		"status", state.Status,
		"reason", state.Reason,
		"path", requestPath(opts.Request),
	)

	return state
}

func (a *Authenticator) authenticate(ctx context.Context, opts AuthenticateOptions) RequestState {
	secretKey := opts.SecretKey
	if secretKey == "" {
		secretKey = opts.APIKey
	}
	if secretKey == "" {
		return unknown(opts, ReasonMissingKeys, "missing secret key")
	}

	if opts.PublishableKey == "" && opts.FrontendAPI == "" {
		return unknown(opts, ReasonMissingKeys, "missing publishable key")
	}
	if opts.PublishableKey != "" {
		pk, err := ParsePublishableKey(opts.PublishableKey)
		if err != nil {
			return unknown(opts, ReasonMissingKeys, err.Error())
		}
		if opts.FrontendAPI == "" {
			opts.FrontendAPI = pk.FrontendAPI
		}
	}

	keys, err := a.keySource(opts.JWTKey, secretKey)
	if err != nil {
		return unknown(opts, ReasonMissingKeys, err.Error())
	}
	v := &verifier{keys: keys, authorizedParties: opts.AuthorizedParties, audience: opts.Audience}

	if token := opts.Request.BearerToken(); token != "" {
		return a.authenticateHeaderToken(ctx, v, opts, token)
	}
	return a.authenticateCookies(ctx, v, opts, IsDevelopmentKey(secretKey))
}

func (a *Authenticator) authenticateHeaderToken(ctx context.Context, v *verifier, opts AuthenticateOptions, token string) RequestState {
	claims, err := v.verify(ctx, token)
	if err != nil {
		if ctx.Err() != nil {
			return unknown(opts, ReasonTokenVerificationUnavailable, ctx.Err().Error())
		}
		reason, msg := verificationFailure(err)
		return signedOut(opts, reason, msg)
	}
	return signedIn(opts, claims)
}

// authenticateCookies runs the cookie rules in order; the first rule that
// reaches a verdict wins.
func (a *Authenticator) authenticateCookies(ctx context.Context, v *verifier, opts AuthenticateOptions, isDev bool) RequestState {
	r := opts.Request
	sessionToken := r.Cookie(CookieSession)
	rawUat := r.Cookie(CookieClientUat)
	uat, _ := strconv.ParseInt(rawUat, 10, 64)

	if isDev && !strings.HasPrefix(r.Header(HeaderUserAgent), "Mozilla/") {
		return signedOut(opts, ReasonHeaderMissingNonBrowser, "")
	}

	if origin := r.Header(HeaderOrigin); origin != "" && isCrossOrigin(origin, r) {
		return signedOut(opts, ReasonHeaderMissingCORS, "")
	}

	if opts.IsSatellite && r.Header(HeaderSecFetchDest) == "document" && uat <= 0 && r.QueryParam(QueryParamSynced) != "true" {
		return interstitial(opts, ReasonSatelliteCookieNeedsSyncing, "")
	}

	if isDev && rawUat == "" {
		return interstitial(opts, ReasonCookieUATMissing, "")
	}

	if referrer := r.Header(HeaderReferrer); isDev && referrer != "" && isCrossOrigin(referrer, r) {
		return interstitial(opts, ReasonCrossOriginReferrer, "")
	}

	if !isDev && rawUat == "" && sessionToken == "" {
		return signedOut(opts, ReasonCookieAndUATMissing, "")
	}

	if rawUat == "0" && sessionToken == "" {
		return signedOut(opts, ReasonStandardSignedOut, "")
	}

	if uat > 0 && sessionToken == "" {
		return interstitial(opts, ReasonCookieMissing, "")
	}

	if sessionToken == "" {
		return signedOut(opts, ReasonUnexpectedError, "no session token and no client uat")
	}

	claims, err := v.verify(ctx, sessionToken)
	if err != nil {
		if ctx.Err() != nil {
			return unknown(opts, ReasonTokenVerificationUnavailable, ctx.Err().Error())
		}
		reason, msg := verificationFailure(err)
		if reason == ReasonTokenExpired || reason == ReasonTokenNotActiveYet {
			return interstitial(opts, reason, msg)
		}
		return signedOut(opts, reason, msg)
	}

	if claims.IssuedAt != nil && claims.IssuedAt.Unix() < uat {
		return interstitial(opts, ReasonCookieOutDated, "")
	}

	return signedIn(opts, claims)
}

func (a *Authenticator) keySource(jwtKey, secretKey string) (keySource, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if jwtKey != "" {
		if k, ok := a.pemKeys[jwtKey]; ok {
			return k, nil
		}
		k, err := parseJWTKey(jwtKey)
		if err != nil {
			return nil, err
		}
		a.pemKeys[jwtKey] = k
		return k, nil
	}

	if k, ok := a.jwks[secretKey]; ok {
		return k, nil
	}
	k, err := newRemoteJWKS(a.baseCtx, a.client.JWKSURL(), secretKey, a.client.httpClient)
	if err != nil {
		return nil, err
	}
	a.jwks[secretKey] = k
	return k, nil
}

func verificationFailure(err error) (AuthReason, string) {
	var tve *TokenVerificationError
	if errors.As(err, &tve) {
		return tve.Reason, tve.Message
	}
	return ReasonTokenInvalid, err.Error()
}

// isCrossOrigin reports whether rawURL (an Origin or Referer value) points
// at a host other than the one serving the request. Proxies are honoured via
// X-Forwarded-Host.
func isCrossOrigin(rawURL string, r Request) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	host := r.Header(HeaderForwardedHost)
	if host != "" {
		host = strings.TrimSpace(strings.Split(host, ",")[0])
	} else if r.URL != nil {
		host = r.URL.Host
	}

	return !strings.EqualFold(u.Host, host)
}

func requestPath(r Request) string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Path
}
