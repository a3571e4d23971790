package backend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the claims carried by a session token.
type SessionClaims struct {
	SessionID       string `json:"sid"`
	AuthorizedParty string `json:"azp,omitempty"`
	OrgID           string `json:"org_id,omitempty"`
	OrgRole         string `json:"org_role,omitempty"`
	OrgSlug         string `json:"org_slug,omitempty"`

	jwt.RegisteredClaims
}

// keySource resolves the verification key for a token key id.
type keySource interface {
	key(ctx context.Context, kid string) (any, error)
}

type verifier struct {
	keys              keySource
	authorizedParties []string
	audience          []string
}

func (v *verifier) verify(ctx context.Context, tokenString string) (*SessionClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}),
		jwt.WithLeeway(clockSkew),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}

	token, err := jwt.NewParser(opts...).ParseWithClaims(
		tokenString,
		&SessionClaims{},
		func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			return v.keys.key(ctx, kid)
		},
	)
	if err != nil {
		return nil, classifyJWTError(err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, &TokenVerificationError{Reason: ReasonTokenInvalid, Message: "invalid session token"}
	}

	if claims.Subject == "" {
		return nil, &TokenVerificationError{Reason: ReasonTokenInvalid, Message: "session token has no subject"}
	}

	if len(v.audience) > 0 && !slices.ContainsFunc(claims.Audience, func(a string) bool {
		return slices.Contains(v.audience, a)
	}) {
		return nil, &TokenVerificationError{
			Reason:  ReasonTokenInvalidAudience,
			Message: fmt.Sprintf("invalid audience %q, expected one of %q", claims.Audience, v.audience),
		}
	}

	if claims.AuthorizedParty != "" && len(v.authorizedParties) > 0 &&
		!slices.Contains(v.authorizedParties, claims.AuthorizedParty) {
		return nil, &TokenVerificationError{
			Reason:  ReasonTokenInvalidAuthorizedParty,
			Message: fmt.Sprintf("invalid azp %q, expected one of %q", claims.AuthorizedParty, strings.Join(v.authorizedParties, ", ")),
		}
	}

	return claims, nil
}

func classifyJWTError(err error) error {
	var tve *TokenVerificationError
	if errors.As(err, &tve) {
		return tve
	}

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &TokenVerificationError{Reason: ReasonTokenExpired, Message: "session token is expired", Err: err}
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return &TokenVerificationError{Reason: ReasonTokenNotActiveYet, Message: "session token is not active yet", Err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		if strings.Contains(err.Error(), "signing method") {
			return &TokenVerificationError{Reason: ReasonTokenInvalidAlgorithm, Message: "unsupported signing method", Err: err}
		}
		return &TokenVerificationError{Reason: ReasonTokenInvalidSignature, Message: "session token signature is invalid", Err: err}
	default:
		return &TokenVerificationError{Reason: ReasonTokenInvalid, Message: "invalid session token", Err: err}
	}
}
