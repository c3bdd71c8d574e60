package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func adminProtected(t *testing.T) http.Handler {
	t.Helper()
	return RequireAdmin("secret-token")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestRequireAdminRejectsMissingToken(t *testing.T) {
	rr := httptest.NewRecorder()
	adminProtected(t).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/orders", nil))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
}

func TestRequireAdminRejectsWrongToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	req.Header.Set("X-Admin-Token", "wrong")
	rr := httptest.NewRecorder()
	adminProtected(t).ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
}

func TestRequireAdminAcceptsHeaderToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	req.Header.Set("X-Admin-Token", "secret-token")
	rr := httptest.NewRecorder()
	adminProtected(t).ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}
}

func TestRequireAdminAcceptsQueryToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/orders?token=secret-token", nil)
	rr := httptest.NewRecorder()
	adminProtected(t).ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}
}
