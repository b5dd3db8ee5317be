package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func serve(h http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuth_ValidTokenCarriesCompany(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"user_id":    "u1",
		"email":      "dana@example.com",
		"role":       "dispatcher",
		"company_id": "acme",
		"exp":        time.Now().Add(time.Hour).Unix(),
	})

	var got UserClaims
	var company string
	h := Auth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetUserFromContext(r)
		company = CompanyIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := serve(h, "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.UserID != "u1" || got.Role != "dispatcher" || company != "acme" {
		t.Fatalf("unexpected claims %+v company=%q", got, company)
	}
}

func TestAuth_Rejects(t *testing.T) {
	expired := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"company_id": "acme",
		"exp":        time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"company_id": "acme"})
	wrongAlg := sign(t, jwt.SigningMethodHS512, []byte(secret), jwt.MapClaims{"company_id": "acme"})

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Token abc"},
		{"empty token", "Bearer "},
		{"garbage", "Bearer not.a.jwt"},
		{"expired", "Bearer " + expired},
		{"wrong key", "Bearer " + wrongKey},
		{"wrong algorithm", "Bearer " + wrongAlg},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Auth(secret)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("should not reach next")
			}))
			if rec := serve(h, tt.header); rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RequireRole("admin", "dispatcher")(ok)

	tests := []struct {
		name   string
		claims *UserClaims
		want   int
	}{
		{"no claims", nil, http.StatusUnauthorized},
		{"technician", &UserClaims{Role: "technician"}, http.StatusForbidden},
		{"dispatcher", &UserClaims{Role: "dispatcher"}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.claims != nil {
				req = req.WithContext(context.WithValue(req.Context(), UserContextKey, *tt.claims))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestCompanyIDFromContext_Missing(t *testing.T) {
	if got := CompanyIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty company, got %q", got)
	}
}
