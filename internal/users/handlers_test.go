package users

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/chirpverse/chirp/backend/internal/config"
	"github.com/chirpverse/chirp/backend/internal/storage/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (*gin.Engine, *sqlx.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, conn.MigrateFrom(filepath.Join("..", "..", "sql", "sqlite", "schema.sql")))
	t.Cleanup(func() { conn.Db.Close() })

	cfg := config.Config{JWTSecret: "test-secret", JWTTTLMin: 60}
	r := gin.New()
	RegisterPublic(r.Group("/api"), conn.Db, cfg)
	return r, conn.Db
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterThenLogin(t *testing.T) {
	req := require.New(t)
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/auth/register",
		gin.H{"username": "alice", "email": "alice@example.com", "password": "secret1"})
	req.Equal(http.StatusCreated, w.Code)

	var created struct {
		Token    string `json:"token"`
		UserID   int64  `json:"userId"`
		Username string `json:"username"`
	}
	req.NoError(json.Unmarshal(w.Body.Bytes(), &created))
	req.NotEmpty(created.Token)
	req.NotZero(created.UserID)
	req.Equal("alice", created.Username)

	w = doJSON(t, r, http.MethodPost, "/api/auth/login",
		gin.H{"username": "alice", "password": "secret1"})
	req.Equal(http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/auth/login",
		gin.H{"username": "alice", "password": "wrong"})
	req.Equal(http.StatusUnauthorized, w.Code)
}

func TestRegister_DuplicateIsConflict(t *testing.T) {
	req := require.New(t)
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/auth/register",
		gin.H{"username": "alice", "email": "alice@example.com", "password": "secret1"})
	req.Equal(http.StatusCreated, w.Code)

	// Same username, different email.
	w = doJSON(t, r, http.MethodPost, "/api/auth/register",
		gin.H{"username": "alice", "email": "other@example.com", "password": "secret1"})
	req.Equal(http.StatusConflict, w.Code)

	// Same email, different username.
	w = doJSON(t, r, http.MethodPost, "/api/auth/register",
		gin.H{"username": "alice2", "email": "alice@example.com", "password": "secret1"})
	req.Equal(http.StatusConflict, w.Code)
}

func TestRegister_DatabaseErrorIs500(t *testing.T) {
	req := require.New(t)
	r, db := setupRouter(t)
	req.NoError(db.Close())

	w := doJSON(t, r, http.MethodPost, "/api/auth/register",
		gin.H{"username": "alice", "email": "alice@example.com", "password": "secret1"})
	req.Equal(http.StatusInternalServerError, w.Code)
}
