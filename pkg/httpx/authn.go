package httpx

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/doorman/pkg/slogx"
)

// ErrInvalidToken reports a token that failed signature or claim checks.
var ErrInvalidToken = errors.New("httpx: invalid token")

// Claims are the verified fields this service cares about.
type Claims struct {
	Subject string
	Scopes  []string
}

// TokenVerifier verifies HS256 bearer tokens minted with a shared secret.
// This service has exactly two token audiences (the chat-transport bridge
// and the operator), so a symmetric secret is sufficient; there is no JWKS
// or key rotation surface.
type TokenVerifier struct {
	Secret []byte
	Issuer string
}

type tokenClaims struct {
	Scope string `json:"scope"` // space-delimited scopes
	jwt.RegisteredClaims
}

// Verify parses and validates raw, returning the claims on success.
func (v *TokenVerifier) Verify(raw string) (Claims, error) {
	var tc tokenClaims
	_, err := jwt.ParseWithClaims(raw, &tc, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.Secret, nil
	}, jwt.WithIssuer(v.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}

	return Claims{
		Subject: tc.Subject,
		Scopes:  strings.Fields(tc.Scope),
	}, nil
}

// MintToken signs an HS256 token for the given subject and scopes.
// Used by ops tooling and tests; the server itself never mints.
func MintToken(secret []byte, issuer, subject string, scopes []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Scope: strings.Join(scopes, " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// AuthnMiddleware rejects requests without a valid bearer token and injects
// the verified subject and scopes into the request context.
func AuthnMiddleware(v *TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(raw)
			if err != nil {
				writeBearerError(w, "token verification failed")
				log.Warn("jwt verify failed", "err", err)
				return
			}

			ctx = context.WithValue(ctx, CtxKeyUserID, claims.Subject)
			ctx = context.WithValue(ctx, CtxKeyScopes, claims.Scopes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAnyScope rejects authenticated requests that carry none of the
// listed scopes.
func RequireAnyScope(scopes ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			held := scopesFromCtx(r.Context())
			for _, want := range scopes {
				if slices.Contains(held, want) {
					next.ServeHTTP(w, r)
					return
				}
			}
			WriteError(w, http.StatusForbidden, "insufficient_scope", "token lacks required scope")
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
