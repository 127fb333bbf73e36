package middleware

import (
	"net/http"
	"strings"

	"jainn/internal/auth"
	"jainn/internal/domain/models"
	"jainn/internal/httputil"
)

// AuthMiddleware resolves the caller's identity for every request.
//
// Two identities exist: authenticated users present a Supabase JWT in the
// Authorization header, guests present a self-issued ID in X-Guest-ID.
// Guest IDs must carry the guest prefix so they can never collide with a
// real user ID. Requests with neither credential are rejected.
func AuthMiddleware(verifier auth.JWTVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Health checks stay open
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				token, ok := strings.CutPrefix(authHeader, "Bearer ")
				if !ok {
					httputil.RespondError(w, http.StatusUnauthorized, "authorization header must use the Bearer scheme")
					return
				}

				claims, err := verifier.VerifyToken(token)
				if err != nil {
					httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
					return
				}

				next.ServeHTTP(w, httputil.WithUserID(r, claims.Subject))
				return
			}

			if guestID := r.Header.Get("X-Guest-ID"); guestID != "" {
				if !models.IsGuestID(guestID) {
					httputil.RespondError(w, http.StatusUnauthorized, "guest IDs must carry the guest prefix")
					return
				}

				next.ServeHTTP(w, httputil.WithUserID(r, guestID))
				return
			}

			httputil.RespondError(w, http.StatusUnauthorized, "missing credentials")
		})
	}
}
