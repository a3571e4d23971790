package clerk

import "net/url"

// Option is a per-request setting that is either a literal value or derived
// from the normalized request URL. The zero Option is unset.
type Option[T any] struct {
	set    bool
	value  T
	derive func(*url.URL) T
}

// Value returns an Option holding a literal value.
func Value[T any](v T) Option[T] {
	return Option[T]{set: true, value: v}
}

// Derive returns an Option computed from the request URL at resolution time.
//
// Example: serve as a satellite only on the marketing domain.
//
//	IsSatellite: clerk.Derive(func(u *url.URL) bool {
//		return u.Hostname() == "marketing.example.com"
//	})
func Derive[T any](fn func(*url.URL) T) Option[T] {
	return Option[T]{set: true, derive: fn}
}

// IsSet reports whether the option was explicitly provided.
func (o Option[T]) IsSet() bool {
	return o.set
}

// Resolve returns the option's value for requestURL, or fallback when the
// option is unset.
func (o Option[T]) Resolve(requestURL *url.URL, fallback T) T {
	switch {
	case !o.set:
		return fallback
	case o.derive != nil:
		return o.derive(requestURL)
	default:
		return o.value
	}
}

// Options are explicit per-call settings. Any field left empty falls back to
// the value loaded from the environment.
type Options struct {
	// APIKey is the legacy backend API key. Prefer SecretKey.
	APIKey string

	// SecretKey authenticates the SDK against the backend API. Its prefix
	// (sk_test_ / sk_live_) also tells development and production apart.
	SecretKey string

	// FrontendAPI is the legacy frontend API host. Prefer PublishableKey.
	FrontendAPI string

	// PublishableKey identifies the instance to the browser SDK.
	PublishableKey string

	// JWTKey is the PEM encoded public key used to verify session tokens
	// without a network round trip. When empty, keys are fetched from the
	// backend API JWKS endpoint.
	JWTKey string

	// AuthorizedParties restricts the azp claim of session tokens, e.g.
	// []string{"https://example.com"}.
	AuthorizedParties []string

	// Audience restricts the aud claim of session tokens.
	Audience []string

	// IsSatellite marks the application as a satellite of a primary domain.
	IsSatellite Option[bool]

	// Domain is the satellite's domain.
	Domain Option[string]

	// ProxyURL is the URL the frontend API is proxied through. A path
	// relative to the current host (e.g. "/__clerk") is made absolute
	// against the request URL.
	ProxyURL Option[string]

	// SignInURL is where signed-out visitors are sent. Satellites on
	// development instances must provide an absolute URL.
	SignInURL string
}
