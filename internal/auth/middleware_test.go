package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewareRoles(t *testing.T) {
	tm := NewTokenManager("test-secret")
	mw := NewMiddleware(tm)

	next := func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			t.Error("claims missing from request context")
		}
		w.WriteHeader(http.StatusOK)
	}

	userToken, err := tm.Issue("alice", RoleUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	adminToken, err := tm.Issue("root", RoleAdmin)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tests := []struct {
		name    string
		handler http.HandlerFunc
		header  string
		want    int
	}{
		{"no token", mw.RequireAuth(next), "", http.StatusUnauthorized},
		{"malformed header", mw.RequireAuth(next), userToken, http.StatusUnauthorized},
		{"bad token", mw.RequireAuth(next), "Bearer junk", http.StatusUnauthorized},
		{"user passes auth", mw.RequireAuth(next), "Bearer " + userToken, http.StatusOK},
		{"user blocked from admin", mw.RequireAdmin(next), "Bearer " + userToken, http.StatusForbidden},
		{"admin passes admin", mw.RequireAdmin(next), "Bearer " + adminToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			tt.handler(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
