package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "super-secret-jwt-token-with-at-least-32-characters"
	testUser   = "11111111-1111-1111-1111-111111111111"
)

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   testUser,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
}

type staticRoles map[string]string

func (r staticRoles) GetRole(_ context.Context, userID string) (string, error) {
	if userID == "broken" {
		return "", errors.New("db down")
	}
	return r[userID], nil
}

func setupRouter(roles RoleReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())

	authed := r.Group("/", Auth(testSecret))
	authed.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	authed.GET("/admin", RequireRole(roles, "admin"), func(c *gin.Context) {
		c.String(http.StatusOK, Role(c))
	})
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := setupRouter(staticRoles{})

	w := do(r, "/me", signToken(t, testSecret, jwt.SigningMethodHS256, validClaims()))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testUser, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", signToken(t, "other-secret", jwt.SigningMethodHS256, validClaims())).Code)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", signToken(t, testSecret, jwt.SigningMethodHS256, expired)).Code)

	noExp := validClaims()
	noExp.ExpiresAt = nil
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", signToken(t, testSecret, jwt.SigningMethodHS256, noExp)).Code)

	badSub := validClaims()
	badSub.Subject = "service_role"
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", signToken(t, testSecret, jwt.SigningMethodHS256, badSub)).Code)

	// HS512 is not accepted even with the right secret
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", signToken(t, testSecret, jwt.SigningMethodHS512, validClaims())).Code)
}

func TestAuthQueryToken(t *testing.T) {
	r := setupRouter(staticRoles{})
	token := signToken(t, testSecret, jwt.SigningMethodHS256, validClaims())

	w := do(r, "/me?access_token="+token, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole(t *testing.T) {
	token := signToken(t, testSecret, jwt.SigningMethodHS256, validClaims())

	w := do(setupRouter(staticRoles{testUser: "admin"}), "/admin", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", w.Body.String())

	w = do(setupRouter(staticRoles{testUser: "creator"}), "/admin", token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Forbidden"}`, w.Body.String())
}

func TestRequestIDPassthrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}
