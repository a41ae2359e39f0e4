// Package auth resolves the ledger owner from a bearer token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type ctxKey struct{}

var errMissingToken = errors.New("missing bearer token")

// Middleware rejects requests without a valid HS256 token. The token subject is the owner id.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID, err := ownerFromRequest(r, parser, keyFunc)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="tally"`)
				http.Error(w, err.Error(), http.StatusUnauthorized)

				return
			}

			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), ownerID)))
		})
	}
}

func ownerFromRequest(r *http.Request, parser *jwt.Parser, keyFunc jwt.Keyfunc) (uuid.UUID, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return uuid.Nil, errMissingToken
	}

	var claims jwt.RegisteredClaims

	if _, err := parser.ParseWithClaims(raw, &claims, keyFunc); err != nil {
		return uuid.Nil, fmt.Errorf("invalid token: %w", err)
	}

	ownerID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token subject: %w", err)
	}

	return ownerID, nil
}

func WithOwner(ctx context.Context, ownerID uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, ownerID)
}

// Owner returns the owner set by Middleware. It panics when called outside it.
func Owner(ctx context.Context) uuid.UUID {
	return ctx.Value(ctxKey{}).(uuid.UUID)
}

// Token signs a token for ownerID, for tooling and tests.
func Token(secret []byte, ownerID uuid.UUID, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = ownerID.String()

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
