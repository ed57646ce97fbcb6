// Copyright (c) 2026 Optica. All rights reserved.

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/optica-app/optica/internal/platform/apperr"
	"github.com/optica-app/optica/internal/platform/ctxkey"
	"github.com/optica-app/optica/internal/platform/respond"
	"github.com/optica-app/optica/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify tokens in middleware.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from the token service
// implementation, allowing us to easily inject mocks during unit testing.
type TokenVerifier interface {
	VerifyAccessToken(tokenStr string) (*sec.AuthClaims, error)
}

// AccountGate validates the live state of the account behind a token.
//
// A structurally valid JWT is not enough to act on behalf of a user: the
// account must still exist, be active and unblocked, and the token's session
// claim must match the account's current session token. Logging in again
// rotates the session token, which retroactively invalidates every token
// issued before the rotation.
type AccountGate interface {
	AuthorizeSession(ctx context.Context, userID int64, sessionToken string) error
}

// Authenticate extracts and verifies the JWT from the Authorization header.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header.
//  2. If absent, request proceeds as anonymous.
//  3. If present, parse and verify the access JWT via [TokenVerifier].
//  4. Inject [*sec.AuthClaims] into the request context for downstream use.
//
// Refresh tokens are rejected here: the kind discriminator inside the token
// only allows "access" tokens on API routes.
//
// # Parameters
//   - verifier: The TokenVerifier instance.
//
// # Returns
//   - An [http.Handler] middleware.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get("Authorization")

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Format Validation ──────────────────────────────────────────
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
				return
			}

			// ── 3. Token Verification ─────────────────────────────────────────
			tokenStr := parts[1]
			claims, err := verifier.VerifyAccessToken(tokenStr)
			if err != nil {
				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired token"))
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			ctx := context.WithValue(request.Context(), ctxkey.KeyUser, claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not backed by a live, authorized session.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
//
// # Flow
//  1. Check if [*sec.AuthClaims] exists in context.
//  2. Re-validate the account via [AccountGate]: existence, active/blocked state,
//     and session-token binding.
//  3. If anything fails, abort with HTTP 401 Unauthorized.
func RequireAuth(gate AccountGate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if err := authorizeRequest(request, gate); err != nil {
				respond.Error(writer, request, err)
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// RequireRole blocks requests if the authenticated user doesn't have the required role.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate]. It automatically implies
// [RequireAuth] so you don't need to mount both.
//
// # Flow
//  1. Authorize the live session exactly like [RequireAuth].
//  2. Check if the user's role meets or exceeds the target role using [sec.Role.AtLeast].
//  3. If insufficient, abort with HTTP 403 Forbidden.
func RequireRole(gate AccountGate, role sec.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Authentication Check ───────────────────────────────────────
			if err := authorizeRequest(request, gate); err != nil {
				respond.Error(writer, request, err)
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			claims := GetUser(request.Context())
			if !sec.Role(claims.Role).AtLeast(role) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// authorizeRequest performs the shared AuthN and live-session checks.
func authorizeRequest(request *http.Request, gate AccountGate) error {
	claims := GetUser(request.Context())
	if claims == nil {
		return apperr.Unauthorized("Authentication required")
	}

	userID, err := claims.UserID()
	if err != nil {
		return apperr.Unauthorized("Invalid or expired token")
	}

	if err := gate.AuthorizeSession(request.Context(), userID, claims.Session); err != nil {
		return err
	}

	return nil
}

// GetUser retrieves the [*sec.AuthClaims] from the [context.Context].
//
// # Returns
//   - A pointer to [*sec.AuthClaims] if the user is authenticated.
//   - nil if the user is anonymous.
func GetUser(ctx context.Context) *sec.AuthClaims {
	claims, ok := ctx.Value(ctxkey.KeyUser).(*sec.AuthClaims)
	if !ok {
		return nil
	}
	return claims
}
