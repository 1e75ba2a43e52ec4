package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"chatgate/service/storage"
	toolsec "chatgate/tools/security"
)

func testOptions() toolsec.Options {
	return toolsec.Options{Secret: []byte("test-secret"), Alg: "HS256", TTL: time.Hour}
}

func newAuthFixture(t *testing.T) (*gin.Engine, *storage.MemorySso) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	sso := storage.NewMemorySso()
	engine := gin.New()
	engine.GET("/whoami", Middleware(testOptions(), sso), func(c *gin.Context) {
		c.String(http.StatusOK, Username(c))
	})
	return engine, sso
}

func get(engine *gin.Engine, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	engine.ServeHTTP(w, req)
	return w
}

func TestMiddlewareMissingToken(t *testing.T) {
	engine, _ := newAuthFixture(t)
	require.Equal(t, http.StatusUnauthorized, get(engine, "").Code)
}

func TestMiddlewareInvalidToken(t *testing.T) {
	engine, _ := newAuthFixture(t)
	require.Equal(t, http.StatusUnauthorized, get(engine, "garbage").Code)
}

func TestMiddlewareSupersededToken(t *testing.T) {
	engine, sso := newAuthFixture(t)

	token, _, _, err := toolsec.Generate(testOptions(), "alice")
	require.NoError(t, err)
	// a later login bound a different jti
	require.NoError(t, sso.Bind(context.Background(), "alice", "other-jti", time.Hour))

	require.Equal(t, http.StatusUnauthorized, get(engine, token).Code)
}

func TestMiddlewarePassesCurrentToken(t *testing.T) {
	engine, sso := newAuthFixture(t)

	token, jti, _, err := toolsec.Generate(testOptions(), "alice")
	require.NoError(t, err)
	require.NoError(t, sso.Bind(context.Background(), "alice", jti, time.Hour))

	w := get(engine, token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "alice", w.Body.String())
}
