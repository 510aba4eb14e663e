// Package middleware holds the storefront's request middleware: shopper identity and session cookies.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/abgdnv/storefront/pkg/auth"
	"github.com/abgdnv/storefront/pkg/web"
)

// AccessTokenCookie is the cookie the identity provider's login flow leaves the token in.
const AccessTokenCookie = "access_token"

// Identify verifies an optional identity token from the Authorization header or the
// access_token cookie and puts its subject in the context as the current user.
// Requests without a token, or with one that fails verification, continue as guests.
func Identify(verifier auth.Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			subject, err := auth.Subject(r.Context(), verifier, tokenString)
			if err != nil {
				logger.DebugContext(r.Context(), "Ignoring invalid identity token", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(web.WithUserID(r.Context(), subject)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString != authHeader {
			return strings.TrimSpace(tokenString)
		}
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// ClearIdentity expires the access_token cookie so the next request is a guest.
func ClearIdentity(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
