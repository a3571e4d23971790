package clerk

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alexlup06-authgate/clerk-go/backend"
)

// RequireAuth returns middleware that enforces authentication.
//
// Every response carries the X-Clerk-Auth-* observability headers. Then,
// depending on the resolved state:
//
//   - unknown: 401 with an empty text/html body
//   - interstitial: 401 with the interstitial page
//   - signed-in: the claims are injected into the request context before
//     calling the next handler
//   - signed-out: browser navigations (Accept: text/html) are redirected to
//     the sign-in URL, HTMX requests (HX-Request: true) get 200 with an
//     HX-Redirect header, API / SPA requests get 401. Without a sign-in URL
//     every signed-out request gets 401.
//
// Transport errors answer 400 and configuration errors 500; neither reaches
// the next handler.
func (s *SDK) RequireAuth(next http.Handler) http.Handler {
	return s.middleware(next, true)
}

// WithAuth returns middleware that resolves the request state but does not
// enforce it.
//
// Unknown and interstitial states are still answered by the middleware, since
// the page cannot know who the visitor is yet. Signed-out requests continue
// without authentication data.
func (s *SDK) WithAuth(next http.Handler) http.Handler {
	return s.middleware(next, false)
}

func (s *SDK) middleware(next http.Handler, enforce bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.isPublicRoute(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := withRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)
		logger := s.logger.With("request_id", requestID)

		start := time.Now()
		state, requestURL, err := s.authenticate(ctx, FromHTTPRequest(r), s.options)
		if err != nil {
			s.handleError(w, logger, err)
			return
		}
		s.metrics.observe(state, time.Since(start))

		DecorateResponseWithObservabilityHeaders(w, state)

		if HandleUnknownCase(w, state) {
			logger.Warn("clerk: request state unknown", "reason", state.Reason, "message", state.Message)
			return
		}

		if state.IsInterstitial() {
			html, err := s.LoadInterstitial(ctx, state)
			if err != nil {
				logger.Error("clerk: failed to load interstitial", "error", err)
				w.Header().Set(backend.HeaderContentType, contentTypeHTML)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			HandleInterstitialCase(w, state, html)
			return
		}

		if state.IsSignedIn() {
			next.ServeHTTP(w, r.WithContext(withAuth(ctx, state)))
			return
		}

		if !enforce {
			next.ServeHTTP(w, r)
			return
		}

		respondSignedOut(w, r, signInRedirect(state.SignInURL, requestURL))
	})
}

func (s *SDK) handleError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if IsTransportError(err) {
		s.metrics.observeError("transport")
		logger.Info("clerk: rejecting unusable request", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.metrics.observeError("configuration")
	logger.Error("clerk: invalid configuration", "error", err)
	http.Error(w, "authentication is misconfigured", http.StatusInternalServerError)
}

func (s *SDK) isPublicRoute(path string) bool {
	for _, g := range s.publicRoutes {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// signInRedirect builds the sign-in URL with the current URL as redirect
// target, or "" when no sign-in URL is configured.
func signInRedirect(signInURL string, requestURL *url.URL) string {
	if signInURL == "" {
		return ""
	}
	u, err := url.Parse(signInURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set(RedirectURLParam, requestURL.String())
	u.RawQuery = q.Encode()
	return u.String()
}

// respondSignedOut answers a signed-out request to a protected route. HTMX
// requests are redirected through HX-Redirect, page navigations through a
// 302. Everything else, and every request when there is nowhere to send the
// visitor, gets 401.
func respondSignedOut(w http.ResponseWriter, r *http.Request, redirectURL string) {
	w.Header().Add("Vary", "Accept, HX-Request")

	htmx := isHTMXRequest(r)
	if redirectURL == "" || (!htmx && !acceptsHTML(r)) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if htmx {
		w.Header().Set("HX-Redirect", redirectURL)
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, redirectURL, http.StatusFound)
}

func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func acceptsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
