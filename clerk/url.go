package clerk

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/alexlup06-authgate/clerk-go/backend"
)

// IncomingRequest is the transport-level request the pipeline starts from.
// FromHTTPRequest adapts *http.Request; other server abstractions can
// implement it directly.
type IncomingRequest interface {
	Method() string
	// RequestURI is the path and query as received, e.g. "/foo?bar=1".
	RequestURI() string
	Host() string
	Header() http.Header
}

// EncryptedConnectionSignal is an optional capability of an IncomingRequest
// that knows whether the underlying connection is encrypted. known is false
// when the transport cannot tell.
type EncryptedConnectionSignal interface {
	EncryptedConnection() (encrypted, known bool)
}

type httpRequest struct {
	r *http.Request
}

// FromHTTPRequest adapts a server-side *http.Request.
func FromHTTPRequest(r *http.Request) IncomingRequest {
	return httpRequest{r: r}
}

func (h httpRequest) Method() string      { return h.r.Method }
func (h httpRequest) Host() string        { return h.r.Host }
func (h httpRequest) Header() http.Header { return h.r.Header }

func (h httpRequest) RequestURI() string {
	// absolute-form targets ("GET https://host/path") carry the origin in
	// RequestURI; only origin-form is used verbatim
	if strings.HasPrefix(h.r.RequestURI, "/") {
		return h.r.RequestURI
	}
	return h.r.URL.RequestURI()
}

func (h httpRequest) EncryptedConnection() (bool, bool) {
	return h.r.TLS != nil, true
}

// NormalizeURL reconstructs the absolute URL of req.
//
// The protocol comes from the first comma-separated token of
// X-Forwarded-Proto when present, otherwise from the transport's encrypted
// connection signal. When neither is available ErrProtocolResolution is
// returned rather than guessing an origin.
func NormalizeURL(req IncomingRequest) (*url.URL, error) {
	proto := forwardedProto(req.Header().Get(backend.HeaderForwardedProto))
	if proto == "" {
		if sig, ok := req.(EncryptedConnectionSignal); ok {
			if encrypted, known := sig.EncryptedConnection(); known {
				proto = "http"
				if encrypted {
					proto = "https"
				}
			}
		}
	}
	if proto == "" {
		return nil, ErrProtocolResolution
	}

	host := strings.TrimSpace(req.Host())
	if host == "" {
		return nil, ErrMissingHost
	}

	uri := req.RequestURI()
	if !strings.HasPrefix(uri, "/") {
		uri = "/" + uri
	}

	u, err := url.Parse(proto + "://" + host + uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequestURL, err)
	}
	if u.Host == "" {
		return nil, ErrMissingHost
	}
	return u, nil
}

// forwardedProto returns the first token of an X-Forwarded-Proto value.
// Some proxies append their own hop, e.g. "https, http".
func forwardedProto(header string) string {
	first, _, _ := strings.Cut(header, ",")
	return strings.ToLower(strings.TrimSpace(first))
}

var httpOrHTTPS = regexp.MustCompile(`^https?://`)

// IsHTTPOrHTTPS reports whether s is an absolute http(s) URL.
func IsHTTPOrHTTPS(s string) bool {
	return httpOrHTTPS.MatchString(s)
}

// IsProxyURLRelative reports whether s is a path relative to the current host.
func IsProxyURLRelative(s string) bool {
	return strings.HasPrefix(s, "/")
}

// IsValidProxyURL reports whether s looks like a usable proxy URL: empty, an
// absolute http(s) URL or a host-relative path.
func IsValidProxyURL(s string) bool {
	if s == "" {
		return true
	}
	return IsHTTPOrHTTPS(s) || IsProxyURLRelative(s)
}

// AbsoluteProxyURL resolves a host-relative proxy URL against base. Any
// other value, including an invalid one, is returned unchanged.
func AbsoluteProxyURL(proxyURL string, base *url.URL) string {
	if proxyURL == "" || base == nil || !IsValidProxyURL(proxyURL) || !IsProxyURLRelative(proxyURL) {
		return proxyURL
	}
	ref, err := url.Parse(proxyURL)
	if err != nil {
		return proxyURL
	}
	return base.ResolveReference(ref).String()
}
