package backend

// AuthStatus is the tag of a RequestState.
type AuthStatus string

const (
	SignedIn     AuthStatus = "signed-in"
	SignedOut    AuthStatus = "signed-out"
	Interstitial AuthStatus = "interstitial"
	Unknown      AuthStatus = "unknown"
)

// AuthReason explains why a request resolved to a given AuthStatus.
type AuthReason string

const (
	ReasonCookieAndUATMissing         AuthReason = "cookie-and-uat-missing"
	ReasonCookieMissing               AuthReason = "cookie-missing"
	ReasonCookieOutDated              AuthReason = "cookie-outdated"
	ReasonCookieUATMissing            AuthReason = "uat-missing"
	ReasonCrossOriginReferrer         AuthReason = "cross-origin-referrer"
	ReasonHeaderMissingCORS           AuthReason = "header-missing-cors"
	ReasonHeaderMissingNonBrowser     AuthReason = "header-missing-non-browser"
	ReasonSatelliteCookieNeedsSyncing AuthReason = "satellite-needs-syncing"
	ReasonStandardSignedIn            AuthReason = "standard-signed-in"
	ReasonStandardSignedOut           AuthReason = "standard-signed-out"
	ReasonMissingKeys                 AuthReason = "missing-keys"
	ReasonUnexpectedError             AuthReason = "unexpected-error"
)

// RequestState is the outcome of authenticating a single request.
//
// It is produced once by Authenticate and consumed once by the response
// helpers. Besides the status it echoes the configuration the request was
// resolved with, which the interstitial renderer needs.
type RequestState struct {
	Status  AuthStatus
	Reason  AuthReason
	Message string

	// Claims is set only when Status is SignedIn.
	Claims *SessionClaims

	PublishableKey string
	FrontendAPI    string
	ProxyURL       string
	SignInURL      string
	IsSatellite    bool
	Domain         string
}

func (s RequestState) IsSignedIn() bool     { return s.Status == SignedIn }
func (s RequestState) IsSignedOut() bool    { return s.Status == SignedOut }
func (s RequestState) IsInterstitial() bool { return s.Status == Interstitial }
func (s RequestState) IsUnknown() bool      { return s.Status == Unknown }

func newState(opts AuthenticateOptions, status AuthStatus, reason AuthReason, message string) RequestState {
	return RequestState{
		Status:         status,
		Reason:         reason,
		Message:        message,
		PublishableKey: opts.PublishableKey,
		FrontendAPI:    opts.FrontendAPI,
		ProxyURL:       opts.ProxyURL,
		SignInURL:      opts.SignInURL,
		IsSatellite:    opts.IsSatellite,
		Domain:         opts.Domain,
	}
}

func signedIn(opts AuthenticateOptions, claims *SessionClaims) RequestState {
	s := newState(opts, SignedIn, ReasonStandardSignedIn, "")
	s.Claims = claims
	return s
}

func signedOut(opts AuthenticateOptions, reason AuthReason, message string) RequestState {
	return newState(opts, SignedOut, reason, message)
}

func interstitial(opts AuthenticateOptions, reason AuthReason, message string) RequestState {
	return newState(opts, Interstitial, reason, message)
}

func unknown(opts AuthenticateOptions, reason AuthReason, message string) RequestState {
	return newState(opts, Unknown, reason, message)
}
