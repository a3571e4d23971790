package clerk

import (
	"net/url"

	"github.com/alexlup06-authgate/clerk-go/backend"
)

// BuildRequest turns req into the transport-neutral backend.Request,
// pairing its method and flattened headers with the already normalized URL.
// Repeated header values collapse to the last one. The Host header, which
// net/http strips from Header, is restored.
func BuildRequest(req IncomingRequest, normalized *url.URL) backend.Request {
	headers := make(map[string]string, len(req.Header())+1)
	for name, values := range req.Header() {
		for _, v := range values {
			headers[name] = v
		}
	}
	if _, ok := headers["Host"]; !ok && req.Host() != "" {
		headers["Host"] = req.Host()
	}

	return backend.NewRequest(req.Method(), normalized, headers)
}
