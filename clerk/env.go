package clerk

import (
	"strings"

	"github.com/stacklok/toolhive-core/env"

	"github.com/alexlup06-authgate/clerk-go/backend"
)

// Env is the process-wide configuration read from environment variables.
//
// It is loaded once at startup with LoadEnv and passed explicitly to New;
// nothing in this package reads the environment per request.
type Env struct {
	SecretKey      string
	APIKey         string
	APIURL         string
	APIVersion     string
	JWTKey         string
	PublishableKey string
	FrontendAPI    string
	Domain         string
	ProxyURL       string
	SignInURL      string
	IsSatellite    bool
	ClerkJSVersion string
	ClerkJSURL     string
}

// LoadEnv reads the CLERK_* variables through envReader. Unset variables stay
// empty, except the API URL and version which get their defaults.
func LoadEnv(envReader env.Reader) Env {
	get := func(key string) string {
		return strings.TrimSpace(envReader.Getenv(key))
	}

	e := Env{
		SecretKey:      get(EnvSecretKey),
		APIKey:         get(EnvAPIKey),
		APIURL:         get(EnvAPIURL),
		APIVersion:     get(EnvAPIVersion),
		JWTKey:         get(EnvJWTKey),
		PublishableKey: get(EnvPublishableKey),
		FrontendAPI:    get(EnvFrontendAPI),
		Domain:         get(EnvDomain),
		ProxyURL:       get(EnvProxyURL),
		SignInURL:      get(EnvSignInURL),
		ClerkJSVersion: get(EnvClerkJSVersion),
		ClerkJSURL:     get(EnvClerkJSURL),
	}

	// only a literal "true" turns satellite mode on, as in the other SDKs
	e.IsSatellite = strings.EqualFold(get(EnvIsSatellite), "true")

	if e.APIURL == "" {
		e.APIURL = backend.DefaultAPIURL
	}
	if e.APIVersion == "" {
		e.APIVersion = backend.DefaultAPIVersion
	}

	return e
}

// LoadEnvFromOS is LoadEnv over the real process environment.
func LoadEnvFromOS() Env {
	return LoadEnv(&env.OSReader{})
}
