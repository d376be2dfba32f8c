package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(testKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func doRequest(mw echo.MiddlewareFunc, header string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/forms", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, UserIDFromContext(c.Request().Context()))
	})
	return rec, handler(c)
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{"physician"},
	}
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	rec, err := doRequest(mw, "Bearer "+signToken(t, claims))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Body.String() != "user-1" {
		t.Errorf("subject = %q, want user-1", rec.Body.String())
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	err := mw(func(c echo.Context) error { return nil })(echoContext())
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("err = %v, want 401", err)
	}
}

func TestJWTMiddleware_BadSignature(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, _ := token.SignedString([]byte("wrong-key"))

	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	_, err := doRequest(mw, "Bearer "+s)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("err = %v, want 401", err)
	}
}

func TestJWTMiddleware_WrongIssuer(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "https://other",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey, Issuer: "https://expected"})
	_, err := doRequest(mw, "Bearer "+signToken(t, claims))
	if err == nil {
		t.Error("expected error for wrong issuer")
	}
}

func TestJWTMiddleware_Skipper(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/health")

	mw := JWTMiddleware(JWTConfig{SigningKey: testKey, Skipper: AuthSkipper})
	err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
	if err != nil {
		t.Errorf("health check should skip auth: %v", err)
	}
}

func TestDevAuthMiddleware_GrantsAdmin(t *testing.T) {
	mw := DevAuthMiddleware()
	c := echoContext()
	err := mw(func(c echo.Context) error {
		roles := RolesFromContext(c.Request().Context())
		if len(roles) != 1 || roles[0] != "admin" {
			t.Errorf("roles = %v, want [admin]", roles)
		}
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func echoContext() echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/forms", nil)
	return e.NewContext(req, httptest.NewRecorder())
}
