package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"chatroom-service/internal/auth"
)

type stubVerifier map[string]string

func (s stubVerifier) Verify(_ context.Context, token string) (auth.Identity, error) {
	if id, ok := s[token]; ok {
		return auth.Identity{UserID: id}, nil
	}
	return auth.Identity{}, auth.ErrInvalidToken
}

func setupAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(stubVerifier{"good": "alice"}))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(UserIDKey))
	})
	return r
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	setupAuthRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(AuthHeader, "bad")
	rec := httptest.NewRecorder()
	setupAuthRouter().ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	for _, header := range []string{"good", "Bearer good"} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(AuthHeader, header)
		rec := httptest.NewRecorder()
		setupAuthRouter().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "alice", rec.Body.String())
	}
}
