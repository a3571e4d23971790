package backend

import (
	"net/http"
	"net/url"
	"strings"
)

// Request is a transport-neutral view of an incoming HTTP request.
//
// Headers are keyed by their canonical MIME form (see
// http.CanonicalHeaderKey). A Request is never mutated after construction.
type Request struct {
	URL     *url.URL
	Method  string
	Headers map[string]string
}

// NewRequest builds a Request, canonicalising header names. When the same
// name appears twice the last value wins.
func NewRequest(method string, u *url.URL, headers map[string]string) Request {
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[http.CanonicalHeaderKey(k)] = v
	}
	return Request{URL: u, Method: method, Headers: h}
}

// Header returns the value of the named header, or "".
func (r Request) Header(name string) string {
	return r.Headers[http.CanonicalHeaderKey(name)]
}

// Cookie returns the value of the named cookie, or "".
func (r Request) Cookie(name string) string {
	line := r.Header("Cookie")
	if line == "" {
		return ""
	}
	cookies, err := http.ParseCookie(line)
	if err != nil {
		// fall back to a lenient scan; a single malformed pair must not hide
		// the session cookie
		for _, part := range strings.Split(line, ";") {
			k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
			if ok && k == name {
				return v
			}
		}
		return ""
	}
	for _, c := range cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func (r Request) BearerToken() string {
	h := strings.TrimSpace(r.Header(HeaderAuthorization))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// QueryParam returns the first value of a URL query parameter.
func (r Request) QueryParam(name string) string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Query().Get(name)
}
