package backend

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	publishableKeyLivePrefix = "pk_live_"
	publishableKeyTestPrefix = "pk_test_"
)

// developmentKeyPrefixes mark secret keys (sk_test_) and legacy API keys
// (test_) issued for development instances.
var developmentKeyPrefixes = []string{"test_", "sk_test_"}

// InstanceType is the kind of instance a key belongs to.
type InstanceType string

const (
	Development InstanceType = "development"
	Production  InstanceType = "production"
)

// PublishableKey is the decoded form of a pk_live_/pk_test_ key.
type PublishableKey struct {
	InstanceType InstanceType
	FrontendAPI  string
}

// ParsePublishableKey decodes a publishable key. The payload after the
// prefix is the base64 encoded frontend API host terminated by '$'.
func ParsePublishableKey(key string) (PublishableKey, error) {
	var instance InstanceType
	switch {
	case strings.HasPrefix(key, publishableKeyLivePrefix):
		instance = Production
	case strings.HasPrefix(key, publishableKeyTestPrefix):
		instance = Development
	default:
		return PublishableKey{}, ErrInvalidPublishableKey
	}

	payload := key[len(publishableKeyTestPrefix):]
	decoded, err := base64.StdEncoding.DecodeString(padBase64(payload))
	if err != nil {
		return PublishableKey{}, fmt.Errorf("%w: %v", ErrInvalidPublishableKey, err)
	}

	frontendAPI, ok := strings.CutSuffix(string(decoded), "$")
	if !ok || frontendAPI == "" {
		return PublishableKey{}, ErrInvalidPublishableKey
	}

	return PublishableKey{InstanceType: instance, FrontendAPI: frontendAPI}, nil
}

// EncodePublishableKey builds a publishable key for frontendAPI.
func EncodePublishableKey(frontendAPI string, instance InstanceType) string {
	prefix := publishableKeyLivePrefix
	if instance == Development {
		prefix = publishableKeyTestPrefix
	}
	return prefix + base64.StdEncoding.EncodeToString([]byte(frontendAPI+"$"))
}

// IsDevelopmentKey reports whether a secret key or API key belongs to a
// development instance.
func IsDevelopmentKey(key string) bool {
	for _, p := range developmentKeyPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func padBase64(s string) string {
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	return s
}
