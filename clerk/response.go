package clerk

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/alexlup06-authgate/clerk-go/backend"
)

// HandleUnknownCase answers 401 with an empty text/html body when state is
// unknown and reports whether it wrote the response.
func HandleUnknownCase(w http.ResponseWriter, state backend.RequestState) bool {
	if !state.IsUnknown() {
		return false
	}
	w.Header().Set(backend.HeaderContentType, contentTypeHTML)
	w.WriteHeader(http.StatusUnauthorized)
	return true
}

// HandleInterstitialCase answers 401 with the interstitial page when state is
// interstitial and reports whether it wrote the response.
func HandleInterstitialCase(w http.ResponseWriter, state backend.RequestState, interstitial string) bool {
	if !state.IsInterstitial() {
		return false
	}
	w.Header().Set(backend.HeaderContentType, contentTypeHTML)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = io.WriteString(w, interstitial)
	return true
}

// DecorateResponseWithObservabilityHeaders sets the auth message, reason and
// status headers for every non-empty field of state. Values are percent
// encoded the way browsers' encodeURIComponent does. Existing values are
// overwritten, so calling it twice is harmless.
func DecorateResponseWithObservabilityHeaders(w http.ResponseWriter, state backend.RequestState) {
	h := w.Header()
	if state.Message != "" {
		h.Set(backend.HeaderAuthMessage, encodeURIComponent(state.Message))
	}
	if state.Reason != "" {
		h.Set(backend.HeaderAuthReason, encodeURIComponent(string(state.Reason)))
	}
	if state.Status != "" {
		h.Set(backend.HeaderAuthStatus, encodeURIComponent(string(state.Status)))
	}
}

// uriComponentUnescapes undoes the escapes url.QueryEscape applies beyond
// encodeURIComponent's set, and spells spaces as %20.
var uriComponentUnescapes = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func encodeURIComponent(s string) string {
	return uriComponentUnescapes.Replace(url.QueryEscape(s))
}
