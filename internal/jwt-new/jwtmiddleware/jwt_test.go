package jwtmiddleware_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linemk/grocery-shop/internal/domain/models"
	"github.com/linemk/grocery-shop/internal/jwt-new/jwtmiddleware"
	"github.com/stretchr/testify/assert"
)

const testSecret = "testsecret"

// createTestToken создаёт JWT-токен с заданным userID, ролью и секретом.
func createTestToken(userID int64, role, secret string) (string, error) {
	claims := jwt.MapClaims{
		"sub": fmt.Sprintf("%d", userID),
	}
	if role != "" {
		claims["role"] = role
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestJWTMiddleware_MissingAuthorization(t *testing.T) {
	handler := jwtmiddleware.NewJWTMiddleware(testSecret)(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code, "Expected unauthorized status when no token provided")
	assert.True(t, strings.Contains(rr.Body.String(), "missing token"))
}

func TestJWTMiddleware_InvalidAuthorizationFormat(t *testing.T) {
	handler := jwtmiddleware.NewJWTMiddleware(testSecret)(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "InvalidFormat")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code, "Expected unauthorized status for invalid token format")
	assert.True(t, strings.Contains(rr.Body.String(), "invalid token format"))
}

func TestJWTMiddleware_InvalidToken(t *testing.T) {
	handler := jwtmiddleware.NewJWTMiddleware(testSecret)(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer invalid.token.value")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code, "Expected unauthorized status for invalid token")
	assert.True(t, strings.Contains(rr.Body.String(), "invalid token"))
}

func TestJWTMiddleware_WrongSecret(t *testing.T) {
	tokenStr, err := createTestToken(1, "", "another-secret")
	assert.NoError(t, err)

	handler := jwtmiddleware.NewJWTMiddleware(testSecret)(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	// Создаём токен для userID=123 с ролью менеджера.
	tokenStr, err := createTestToken(123, models.RoleManager, testSecret)
	assert.NoError(t, err)

	var (
		gotID   int64
		gotRole string
	)
	handler := jwtmiddleware.NewJWTMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = jwtmiddleware.FromContext(r.Context())
		gotRole, _ = jwtmiddleware.RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code, "Expected OK status for valid token")
	assert.Equal(t, int64(123), gotID)
	assert.Equal(t, models.RoleManager, gotRole)
}

func TestJWTMiddleware_TokenWithoutRoleIsCustomer(t *testing.T) {
	tokenStr, err := createTestToken(7, "", testSecret)
	assert.NoError(t, err)

	var gotRole string
	handler := jwtmiddleware.NewJWTMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRole, _ = jwtmiddleware.RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, models.RoleCustomer, gotRole)
}

func TestNewJWTMiddleware_EmptySecretPanics(t *testing.T) {
	assert.Panics(t, func() {
		jwtmiddleware.NewJWTMiddleware("")
	})
}

func TestRequireRole(t *testing.T) {
	handler := jwtmiddleware.RequireRole(models.RoleManager)(okHandler())

	tests := []struct {
		name string
		ctx  context.Context
		want int
	}{
		{"manager", context.WithValue(context.Background(), jwtmiddleware.RoleKey, models.RoleManager), http.StatusOK},
		{"customer", context.WithValue(context.Background(), jwtmiddleware.RoleKey, models.RoleCustomer), http.StatusForbidden},
		{"no role", context.Background(), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil).WithContext(tt.ctx)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), jwtmiddleware.UserIDKey, int64(456))
	userID, ok := jwtmiddleware.FromContext(ctx)
	assert.True(t, ok, "Expected to retrieve userID from context")
	assert.Equal(t, int64(456), userID, "Expected userID to match")
}
