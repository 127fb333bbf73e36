package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"jainn/internal/domain"
	"jainn/internal/domain/models"
	"jainn/internal/httputil"
)

// stubVerifier accepts exactly one token string.
type stubVerifier struct {
	validToken string
	userID     string
}

func (v *stubVerifier) VerifyToken(token string) (*models.SupabaseClaims, error) {
	if token != v.validToken {
		return nil, domain.ErrUnauthorized
	}
	claims := &models.SupabaseClaims{Role: "authenticated"}
	claims.RegisteredClaims = jwt.RegisteredClaims{Subject: v.userID}
	return claims, nil
}

func (v *stubVerifier) Close() error { return nil }

func newAuthTestServer() (http.Handler, *string) {
	var seenUserID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID = httputil.GetUserID(r)
		w.WriteHeader(http.StatusOK)
	})
	verifier := &stubVerifier{validToken: "good-token", userID: "user-123"}
	return AuthMiddleware(verifier)(inner), &seenUserID
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		guestID    string
		wantStatus int
		wantUserID string
	}{
		{
			name:       "valid bearer token",
			authHeader: "Bearer good-token",
			wantStatus: http.StatusOK,
			wantUserID: "user-123",
		},
		{
			name:       "invalid token",
			authHeader: "Bearer bad-token",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			authHeader: "Basic abc",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "guest header",
			guestID:    "guest_xyz",
			wantStatus: http.StatusOK,
			wantUserID: "guest_xyz",
		},
		{
			name:       "guest header without prefix",
			guestID:    "someone-else",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no credentials",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, seenUserID := newAuthTestServer()

			req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.guestID != "" {
				req.Header.Set("X-Guest-ID", tt.guestID)
			}

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && *seenUserID != tt.wantUserID {
				t.Errorf("user ID = %q, want %q", *seenUserID, tt.wantUserID)
			}
		})
	}
}

func TestAuthMiddlewareSkipsHealthCheck(t *testing.T) {
	srv, _ := newAuthTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("health check should bypass auth, got %d", rec.Code)
	}
}
