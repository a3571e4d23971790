package backend

import (
	"bytes"
	"errors"
	"html/template"
	"strings"
)

// ErrMissingFrontendAPI is returned when the interstitial cannot be rendered
// locally because neither a publishable key nor a frontend API is known.
var ErrMissingFrontendAPI = errors.New("backend: publishable key or frontend API is required to render the interstitial")

// LocalInterstitialOptions configures LocalInterstitial.
type LocalInterstitialOptions struct {
	PublishableKey string
	FrontendAPI    string
	ProxyURL       string
	SignInURL      string
	IsSatellite    bool
	Domain         string
	ClerkJSVersion string
	ClerkJSURL     string
}

var interstitialTemplate = template.Must(template.New("interstitial").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8" />
<style>
@media (prefers-color-scheme: dark) { body { background-color: black; } }
</style>
</head>
<body>
<script>
window.__clerk_frontend_api = {{.FrontendAPI}};
window.__clerk_proxy_url = {{.ProxyURL}};
window.__clerk_domain = {{.Domain}};
window.startClerk = async () => {
  const Clerk = window.Clerk;
  try {
    await Clerk.load({
      isSatellite: {{.IsSatellite}},
      isInterstitial: true,
      signInUrl: {{.SignInURL}},
    });
    if (Clerk.loaded) {
      if (window.location.href.endsWith('#')) {
        window.location.href = window.location.href.slice(0, -1);
      } else {
        window.location.reload();
      }
    }
  } catch (err) {
    console.error('Clerk: ', err);
  }
};
(() => {
  const script = document.createElement('script');
  {{- if .PublishableKey}}
  script.setAttribute('data-clerk-publishable-key', {{.PublishableKey}});
  {{- else}}
  script.setAttribute('data-clerk-frontend-api', {{.FrontendAPI}});
  {{- end}}
  {{- if .Domain}}
  script.setAttribute('data-clerk-domain', {{.Domain}});
  {{- end}}
  {{- if .ProxyURL}}
  script.setAttribute('data-clerk-proxy-url', {{.ProxyURL}});
  {{- end}}
  script.async = true;
  script.src = {{.ScriptURL}};
  script.crossOrigin = 'anonymous';
  script.addEventListener('load', startClerk);
  document.body.appendChild(script);
})();
</script>
</body>
</html>
`))

type interstitialData struct {
	LocalInterstitialOptions
	ScriptURL string
}

// LocalInterstitial renders the interstitial page without calling the
// backend API.
func LocalInterstitial(opts LocalInterstitialOptions) (string, error) {
	if opts.FrontendAPI == "" && opts.PublishableKey != "" {
		pk, err := ParsePublishableKey(opts.PublishableKey)
		if err != nil {
			return "", err
		}
		opts.FrontendAPI = pk.FrontendAPI
	}
	if opts.FrontendAPI == "" {
		return "", ErrMissingFrontendAPI
	}

	var buf bytes.Buffer
	data := interstitialData{LocalInterstitialOptions: opts, ScriptURL: ClerkJSScriptURL(opts)}
	if err := interstitialTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ClerkJSScriptURL returns the URL the interstitial loads clerk-js from.
// An explicit ClerkJSURL wins, then the proxy URL, then the satellite domain,
// then the frontend API host.
func ClerkJSScriptURL(opts LocalInterstitialOptions) string {
	if opts.ClerkJSURL != "" {
		return opts.ClerkJSURL
	}

	version := opts.ClerkJSVersion
	if version == "" {
		version = DefaultClerkJSVersion
	}

	var host string
	switch {
	case opts.ProxyURL != "":
		host = strings.TrimRight(opts.ProxyURL, "/")
	case opts.IsSatellite && opts.Domain != "":
		host = "https://clerk." + stripScheme(opts.Domain)
	default:
		host = "https://" + stripScheme(opts.FrontendAPI)
	}

	return host + "/npm/@clerk/clerk-js@" + version + "/dist/clerk.browser.js"
}

func stripScheme(s string) string {
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	return strings.TrimRight(s, "/")
}
