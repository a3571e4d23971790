package clerk

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse %q: %v", raw, err)
	}
	return u
}

func TestResolveConfig_ExplicitWinsOverEnv(t *testing.T) {
	t.Parallel()

	env := Env{
		SecretKey:      "sk_live_env",
		PublishableKey: "pk_live_env",
		Domain:         "env.example.com",
		ProxyURL:       "https://env.example.com/__clerk",
		SignInURL:      "https://env.example.com/sign-in",
		IsSatellite:    true,
	}
	opts := Options{
		SecretKey:         "sk_live_explicit",
		AuthorizedParties: []string{"https://example.com"},
		IsSatellite:       Value(false),
		Domain:            Value("explicit.example.com"),
		SignInURL:         "https://explicit.example.com/sign-in",
	}

	got := ResolveConfig(opts, env, mustURL(t, "https://example.com/"))

	want := Config{
		SecretKey:         "sk_live_explicit",
		PublishableKey:    "pk_live_env",
		AuthorizedParties: []string{"https://example.com"},
		IsSatellite:       false,
		Domain:            "explicit.example.com",
		ProxyURL:          "https://env.example.com/__clerk",
		SignInURL:         "https://explicit.example.com/sign-in",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ResolveConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveConfig_DerivedOptions(t *testing.T) {
	t.Parallel()

	opts := Options{
		IsSatellite: Derive(func(u *url.URL) bool { return u.Hostname() == "satellite.dev" }),
		Domain:      Derive(func(u *url.URL) string { return u.Hostname() }),
		ProxyURL:    Derive(func(*url.URL) string { return "" }),
	}
	env := Env{ProxyURL: "/__clerk"}

	got := ResolveConfig(opts, env, mustURL(t, "https://satellite.dev/page"))
	assert.True(t, got.IsSatellite)
	assert.Equal(t, "satellite.dev", got.Domain)
	assert.Equal(t, "/__clerk", got.ProxyURL, "empty derived value falls back to env")

	got = ResolveConfig(opts, env, mustURL(t, "https://primary.dev/page"))
	assert.False(t, got.IsSatellite)
	assert.Equal(t, "primary.dev", got.Domain)
}

func TestResolveConfig_EnvDefaults(t *testing.T) {
	t.Parallel()

	got := ResolveConfig(Options{}, Env{IsSatellite: true, Domain: "satellite.dev", APIKey: "test_legacy"}, mustURL(t, "https://x.dev/"))
	assert.True(t, got.IsSatellite)
	assert.Equal(t, "satellite.dev", got.Domain)
	assert.Equal(t, "test_legacy", got.secretOrAPIKey())
}

func TestOption_Resolve(t *testing.T) {
	t.Parallel()

	var unset Option[string]
	assert.False(t, unset.IsSet())
	assert.Equal(t, "fallback", unset.Resolve(nil, "fallback"))

	lit := Value("literal")
	assert.True(t, lit.IsSet())
	assert.Equal(t, "literal", lit.Resolve(nil, "fallback"))

	calls := 0
	derived := Derive(func(u *url.URL) string {
		calls++
		return u.Path
	})
	assert.Equal(t, "/p", derived.Resolve(mustURL(t, "https://x.dev/p"), "fallback"))
	assert.Equal(t, 1, calls)
}
