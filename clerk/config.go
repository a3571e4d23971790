package clerk

import (
	"net/url"

	"github.com/alexlup06-authgate/clerk-go/backend"
)

// Config is the configuration a single request is authenticated with. It is
// the merge of the explicit Options and the process Env.
type Config struct {
	APIKey            string
	SecretKey         string
	FrontendAPI       string
	PublishableKey    string
	JWTKey            string
	AuthorizedParties []string
	Audience          []string

	IsSatellite bool
	Domain      string
	ProxyURL    string
	SignInURL   string
}

// ResolveConfig merges opts over env. An explicit, non-empty option wins over
// the environment; the environment wins over absence. Value-or-function
// options are evaluated once against requestURL.
func ResolveConfig(opts Options, env Env, requestURL *url.URL) Config {
	domain := opts.Domain.Resolve(requestURL, "")
	if domain == "" {
		domain = env.Domain
	}

	proxyURL := opts.ProxyURL.Resolve(requestURL, "")
	if proxyURL == "" {
		proxyURL = env.ProxyURL
	}

	return Config{
		APIKey:            firstNonEmpty(opts.APIKey, env.APIKey),
		SecretKey:         firstNonEmpty(opts.SecretKey, env.SecretKey),
		FrontendAPI:       firstNonEmpty(opts.FrontendAPI, env.FrontendAPI),
		PublishableKey:    firstNonEmpty(opts.PublishableKey, env.PublishableKey),
		JWTKey:            firstNonEmpty(opts.JWTKey, env.JWTKey),
		AuthorizedParties: opts.AuthorizedParties,
		Audience:          opts.Audience,
		IsSatellite:       opts.IsSatellite.Resolve(requestURL, env.IsSatellite),
		Domain:            domain,
		ProxyURL:          proxyURL,
		SignInURL:         firstNonEmpty(opts.SignInURL, env.SignInURL),
	}
}

// authenticateOptions hands the resolved configuration to the backend.
func (c Config) authenticateOptions(req backend.Request) backend.AuthenticateOptions {
	return backend.AuthenticateOptions{
		Request:           req,
		APIKey:            c.APIKey,
		SecretKey:         c.SecretKey,
		FrontendAPI:       c.FrontendAPI,
		PublishableKey:    c.PublishableKey,
		JWTKey:            c.JWTKey,
		AuthorizedParties: c.AuthorizedParties,
		Audience:          c.Audience,
		ProxyURL:          c.ProxyURL,
		IsSatellite:       c.IsSatellite,
		Domain:            c.Domain,
		SignInURL:         c.SignInURL,
	}
}

// secretOrAPIKey is the credential whose prefix decides the instance type.
func (c Config) secretOrAPIKey() string {
	return firstNonEmpty(c.SecretKey, c.APIKey)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
