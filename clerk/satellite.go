package clerk

import (
	"net/url"

	"github.com/alexlup06-authgate/clerk-go/backend"
)

// ValidateSatelliteConfig normalizes the proxy URL of cfg against the
// request URL and enforces the satellite invariants:
//
//   - a satellite needs a proxy URL or a domain
//   - a satellite on a development instance needs an absolute sign-in URL
//
// It returns the normalized Config, or a configuration error.
func ValidateSatelliteConfig(cfg Config, requestURL *url.URL) (Config, error) {
	cfg.ProxyURL = AbsoluteProxyURL(cfg.ProxyURL, requestURL)

	if !cfg.IsSatellite {
		return cfg, nil
	}

	if cfg.ProxyURL == "" && cfg.Domain == "" {
		return cfg, ErrMissingSatelliteOrigin
	}

	if !IsHTTPOrHTTPS(cfg.SignInURL) && backend.IsDevelopmentKey(cfg.secretOrAPIKey()) {
		return cfg, ErrMissingSatelliteSignInURL
	}

	return cfg, nil
}
