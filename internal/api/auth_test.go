package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewAdminToken_RoundTripsThroughMiddleware(t *testing.T) {
	secret := "super-secret-admin-token-with-plenty-of-entropy"
	tok, err := NewAdminToken(secret)
	if err != nil {
		t.Fatalf("NewAdminToken: %v", err)
	}

	s := &Server{adminSecret: []byte(secret)}

	var called bool
	handler := s.adminAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/admin/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected wrapped handler to run for a valid admin token")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAdminAuthMiddleware_RejectsWrongSecret(t *testing.T) {
	tok, err := NewAdminToken("secret-a")
	if err != nil {
		t.Fatalf("NewAdminToken: %v", err)
	}

	s := &Server{adminSecret: []byte("secret-b")}

	called := false
	handler := s.adminAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("GET", "/admin/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if called {
		t.Fatal("expected handler not to run for a token signed with the wrong secret")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAdminAuthMiddleware_MissingBearerToken(t *testing.T) {
	s := &Server{adminSecret: []byte("secret")}

	handler := s.adminAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without a token")
	}))

	req := httptest.NewRequest("GET", "/admin/x", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAdminAuthMiddleware_DisabledWithoutSecret(t *testing.T) {
	s := &Server{}

	handler := s.adminAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run when no admin secret is configured")
	}))

	req := httptest.NewRequest("GET", "/admin/x", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
