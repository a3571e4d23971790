package clerk

// Environment variables read by LoadEnv. They are an external contract shared
// with the other SDKs and must not be renamed.
const (
	EnvSecretKey      = "CLERK_SECRET_KEY"
	EnvAPIKey         = "CLERK_API_KEY"
	EnvAPIURL         = "CLERK_API_URL"
	EnvAPIVersion     = "CLERK_API_VERSION"
	EnvJWTKey         = "CLERK_JWT_KEY"
	EnvPublishableKey = "CLERK_PUBLISHABLE_KEY"
	EnvFrontendAPI    = "CLERK_FRONTEND_API"
	EnvDomain         = "CLERK_DOMAIN"
	EnvProxyURL       = "CLERK_PROXY_URL"
	EnvSignInURL      = "CLERK_SIGN_IN_URL"
	EnvIsSatellite    = "CLERK_IS_SATELLITE"
	EnvClerkJSVersion = "CLERK_JS_VERSION"
	EnvClerkJSURL     = "CLERK_JS_URL"
)

const (
	// RedirectURLParam is the query parameter the sign-in page reads to send
	// the user back after authenticating.
	RedirectURLParam = "redirect_url"

	// RequestIDHeader is reused as the log correlation id when present.
	RequestIDHeader = "X-Request-Id"

	contentTypeHTML = "text/html"
)
