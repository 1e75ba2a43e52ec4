package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	usermodel "chatgate/module/user/model"
	"chatgate/service/storage"
	"chatgate/tools/security"
)

type fakeDirectory struct {
	users []*usermodel.User
}

func (d *fakeDirectory) FindByID(_ context.Context, id int) (*usermodel.User, error) {
	for _, u := range d.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (d *fakeDirectory) FindByUsername(_ context.Context, username string) (*usermodel.User, error) {
	for _, u := range d.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func testOptions() security.Options {
	return security.Options{Secret: []byte("test-secret"), Alg: "HS256", TTL: time.Hour}
}

func newLoginFixture(t *testing.T) (*gin.Engine, *storage.MemorySso) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	dir := &fakeDirectory{users: []*usermodel.User{
		{ID: 1, Username: "alice", Nickname: "Alice", Password: string(hash)},
	}}
	sso := storage.NewMemorySso()
	h := NewHandler(dir, sso, testOptions())

	engine := gin.New()
	engine.POST("/api/auth/login", h.Login)
	return engine, sso
}

func login(t *testing.T, engine *gin.Engine, username, password string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		return w, ""
	}
	var reply struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	return w, reply.Data.Token
}

func jtiOf(t *testing.T, token string) string {
	t.Helper()
	id, err := security.Verify(testOptions(), token)
	require.NoError(t, err)
	return id.JTI
}

func TestLoginIssuesCurrentToken(t *testing.T) {
	engine, sso := newLoginFixture(t)

	w, token := login(t, engine, "alice", "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, token)

	current, err := sso.IsCurrent(context.Background(), "alice", jtiOf(t, token))
	require.NoError(t, err)
	require.True(t, current)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	engine, _ := newLoginFixture(t)

	w, _ := login(t, engine, "alice", "wrong")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = login(t, engine, "nobody", "s3cret")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSecondLoginSupersedesFirst(t *testing.T) {
	engine, sso := newLoginFixture(t)

	_, t1 := login(t, engine, "alice", "s3cret")
	_, t2 := login(t, engine, "alice", "s3cret")

	current, err := sso.IsCurrent(context.Background(), "alice", jtiOf(t, t1))
	require.NoError(t, err)
	require.False(t, current)

	current, err = sso.IsCurrent(context.Background(), "alice", jtiOf(t, t2))
	require.NoError(t, err)
	require.True(t, current)
}

func TestLoginMalformedBody(t *testing.T) {
	engine, _ := newLoginFixture(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte(`{"username":"alice"}`)))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
