package clerk

import "errors"

// Configuration errors. They are raised before any verification work and
// indicate a misconfigured application, not an unauthenticated visitor.
var (
	ErrMissingSatelliteOrigin = errors.New(
		"clerk: missing domain and proxyUrl. A satellite application needs to specify a domain or a proxyUrl.",
	)
	ErrMissingSatelliteSignInURL = errors.New(
		"clerk: invalid signInUrl. A satellite application requires a signInUrl for development instances. " +
			"Check if signInUrl is missing from your configuration or if it is not an absolute URL.",
	)
)

// Transport errors. The incoming request cannot be turned into an absolute
// URL; callers should answer with a 400.
var (
	ErrProtocolResolution = errors.New(
		"clerk: cannot determine the request protocol. Please ensure you've set the " +
			"X-Forwarded-Proto header with the request protocol (http or https).",
	)
	ErrMissingHost         = errors.New("clerk: cannot determine the request host")
	ErrMalformedRequestURL = errors.New("clerk: malformed request URL")
)

// IsConfigurationError reports whether err is one of the satellite
// configuration errors.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrMissingSatelliteOrigin) || errors.Is(err, ErrMissingSatelliteSignInURL)
}

// IsTransportError reports whether err means the request itself was unusable.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrProtocolResolution) ||
		errors.Is(err, ErrMissingHost) ||
		errors.Is(err, ErrMalformedRequestURL)
}
