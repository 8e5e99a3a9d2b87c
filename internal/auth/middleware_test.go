package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fleet-cloud/internal/robots/application"
	robots "fleet-cloud/internal/robots/domain"
)

var testSecret = []byte("test-secret")

func mustToken(t *testing.T, role string, expiresIn time.Duration) string {
	t.Helper()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func adminProbe(t *testing.T) (http.Handler, *string) {
	t.Helper()
	subject := new(string)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*subject = AdminSubjectFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return NewAdminMiddleware(testSecret).Wrap(next), subject
}

func TestAdminMiddleware_ValidToken(t *testing.T) {
	handler, subject := adminProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/robots", nil)
	req.Header.Set("Authorization", "Bearer "+mustToken(t, RoleAdmin, time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if *subject != "ops" {
		t.Fatalf("expected subject propagated, got %q", *subject)
	}
}

func TestAdminMiddleware_Rejections(t *testing.T) {
	handler, _ := adminProbe(t)

	cases := map[string]struct {
		header string
		want   int
	}{
		"missing header": {"", http.StatusUnauthorized},
		"not bearer":     {"Basic abc", http.StatusUnauthorized},
		"garbage token":  {"Bearer not.a.jwt", http.StatusUnauthorized},
		"expired":        {"Bearer " + mustToken(t, RoleAdmin, -time.Minute), http.StatusUnauthorized},
		"wrong role":     {"Bearer " + mustToken(t, "viewer", time.Hour), http.StatusForbidden},
	}
	for name, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/robots", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", name, tc.want, rec.Code)
		}
	}
}

func TestParseJWT_WrongSecret(t *testing.T) {
	token := mustToken(t, RoleAdmin, time.Hour)
	if _, err := ParseJWT(token, []byte("other-secret")); err == nil {
		t.Fatal("expected signature verification failure")
	}
}

type staticFinder struct {
	robot robots.Robot
}

func (f staticFinder) FindByAPIKeyHash(_ context.Context, hash string) (robots.Robot, bool, error) {
	if hash == f.robot.APIKeyHash {
		return f.robot, true, nil
	}
	return robots.Robot{}, false, nil
}

func TestRobotKeyMiddleware(t *testing.T) {
	apiKey := "raw-key-123"
	known := robots.Robot{ID: "A1", Name: "scout-1", APIKeyHash: application.HashAPIKey(apiKey)}

	var seen robots.Robot
	handler := NewRobotKeyMiddleware(staticFinder{robot: known}).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = RobotFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/robots/telemetry", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing key: expected 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/robots/telemetry", nil)
	req.Header.Set("X-Api-Key", "wrong-key")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown key: expected 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/robots/telemetry", nil)
	req.Header.Set("X-Api-Key", apiKey)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid key: expected 200, got %d", rec.Code)
	}
	if seen.ID != known.ID {
		t.Fatalf("expected robot in context, got %+v", seen)
	}
}
