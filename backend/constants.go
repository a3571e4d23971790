package backend

import "time"

const (
	// HeaderAuthStatus carries the resolved RequestState status back to the
	// client. Frontend code keys off this name; it must stay stable.
	HeaderAuthStatus = "X-Clerk-Auth-Status"

	// HeaderAuthReason carries the reason code behind the resolved status.
	HeaderAuthReason = "X-Clerk-Auth-Reason"

	// HeaderAuthMessage carries a human readable diagnostic message.
	HeaderAuthMessage = "X-Clerk-Auth-Message"

	HeaderAuthorization  = "Authorization"
	HeaderForwardedProto = "X-Forwarded-Proto"
	HeaderForwardedHost  = "X-Forwarded-Host"
	HeaderOrigin         = "Origin"
	HeaderReferrer       = "Referer"
	HeaderUserAgent      = "User-Agent"
	HeaderSecFetchDest   = "Sec-Fetch-Dest"
	HeaderContentType    = "Content-Type"

	// CookieSession is the cookie holding the short-lived session token.
	CookieSession = "__session"

	// CookieClientUat holds the "client updated at" unix timestamp written by
	// the browser SDK. "0" means the client is signed out.
	CookieClientUat = "__client_uat"

	// QueryParamSynced is appended by the primary domain once a satellite has
	// been synced, so the satellite does not loop through the interstitial.
	QueryParamSynced = "__clerk_synced"

	// DefaultAPIURL is the backend API used when CLERK_API_URL is not set.
	DefaultAPIURL = "https://api.clerk.com"

	// DefaultAPIVersion is the backend API version prefix.
	DefaultAPIVersion = "v1"

	// DefaultClerkJSVersion is the major clerk-js version the interstitial loads.
	DefaultClerkJSVersion = "4"

	// clockSkew is the leeway applied to exp/nbf/iat checks on session tokens.
	clockSkew = 5 * time.Second
)
