package handler

import (
	"net/http"

	"jainn/internal/httputil"
)

// requireUserID extracts the caller's identity from the request context.
// The auth middleware always sets it; an empty value means the route was
// wired outside the middleware chain.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "missing user identity")
		return "", false
	}
	return userID, true
}
