package backend

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPublishableKey = errors.New("backend: invalid publishable key")
	ErrMissingSecretKey      = errors.New("backend: secret key or API key is required")
	ErrInvalidJWTKey         = errors.New("backend: jwt key is not a valid RSA public key")
)

// Token verification reasons. They double as AuthReason values on the
// resulting RequestState.
const (
	ReasonTokenExpired                 AuthReason = "token-expired"
	ReasonTokenNotActiveYet            AuthReason = "token-not-active-yet"
	ReasonTokenInvalid                 AuthReason = "token-invalid"
	ReasonTokenInvalidAlgorithm        AuthReason = "token-invalid-algorithm"
	ReasonTokenInvalidSignature        AuthReason = "token-invalid-signature"
	ReasonTokenInvalidAuthorizedParty  AuthReason = "token-invalid-authorized-parties"
	ReasonTokenInvalidAudience         AuthReason = "token-invalid-audience"
	ReasonJWKRemoteFailedToLoad        AuthReason = "jwk-remote-failed-to-load"
	ReasonJWKKidMismatch               AuthReason = "jwk-kid-mismatch"
	ReasonTokenVerificationUnavailable AuthReason = "token-verification-unavailable"
)

// TokenVerificationError describes why a session token was rejected.
type TokenVerificationError struct {
	Reason  AuthReason
	Message string
	Err     error
}

func (e *TokenVerificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend: %s (reason=%s): %v", e.Message, e.Reason, e.Err)
	}
	return fmt.Sprintf("backend: %s (reason=%s)", e.Message, e.Reason)
}

func (e *TokenVerificationError) Unwrap() error { return e.Err }

// APIErrorDetail is a single entry of the backend API error envelope.
type APIErrorDetail struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	LongMessage string `json:"long_message"`
}

// APIError is returned by Client when the backend API answers with a non-2xx
// status.
type APIError struct {
	Status int              `json:"-"`
	Errors []APIErrorDetail `json:"errors"`
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("backend: unexpected status %d", e.Status)
	}
	codes := make([]string, 0, len(e.Errors))
	for _, d := range e.Errors {
		codes = append(codes, fmt.Sprintf("%s (%s)", d.Code, d.Message))
	}
	return fmt.Sprintf("backend: status %d: %s", e.Status, strings.Join(codes, "; "))
}
