package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/distroline/botcrm-backend/internal/auth"
)

func TestIssueAndParse(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)

	token, err := tm.Issue(7, "boss", "superadmin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := tm.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.AdminID != 7 || claims.Username != "boss" || claims.Role != "superadmin" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tm := auth.NewTokenManager("secret-a", time.Hour)
	other := auth.NewTokenManager("secret-b", time.Hour)

	token, err := tm.Issue(1, "boss", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := other.Parse(token); err == nil {
		t.Error("token signed with another secret must not parse")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", -time.Minute)

	token, err := tm.Issue(1, "boss", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := tm.Parse(token); err == nil {
		t.Error("expired token must not parse")
	}
}

func TestRequireAuthMiddleware(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := auth.FromContext(r.Context())
		if claims == nil {
			t.Error("claims missing from context")
		}
		w.WriteHeader(http.StatusOK)
	})
	protected := auth.RequireAuth(tm)(next)

	// No token
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: got %d, want 401", w.Code)
	}

	// Garbage token
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: got %d, want 401", w.Code)
	}

	// Valid token
	token, _ := tm.Issue(1, "boss", "admin")
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token: got %d, want 200", w.Code)
	}
}

func TestRequireRoles(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := auth.RequireAuth(tm)(auth.RequireRoles("superadmin", "admin")(next))

	managerToken, _ := tm.Issue(2, "junior", "manager")
	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set("Authorization", "Bearer "+managerToken)
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("manager on admin route: got %d, want 403", w.Code)
	}

	adminToken, _ := tm.Issue(3, "boss", "admin")
	req = httptest.NewRequest("POST", "/", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("admin on admin route: got %d, want 200", w.Code)
	}
}
