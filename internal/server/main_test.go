package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"devflow/internal/cache"
	"devflow/internal/config"
	"devflow/internal/database"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type testServer struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gcfg := database.GormConfig()
	gcfg.Logger = logger.Default.LogMode(logger.Silent)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:srv_%s?mode=memory&cache=shared", name)), gcfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	cache.SetClient(nil)
	srv, err := NewServerWithDeps(&config.Config{
		JWTSecret:              testSecret,
		Env:                    "test",
		InteractionWorkers:     1,
		InteractionQueueSize:   64,
		VoteRateLimitPerMinute: 60,
	}, db, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.recorder.Close(context.Background()) })

	return &testServer{srv: srv, app: srv.App(), db: db}
}

func tokenFor(t *testing.T, userID uint) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

// do sends a request as userID (0 for anonymous) and decodes a JSON response
// into out when out is non-nil.
func (ts *testServer) do(t *testing.T, method, path string, userID uint, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID))
	}

	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (ts *testServer) ask(t *testing.T, authorID uint, title string, tags ...string) uint {
	t.Helper()
	var q struct {
		ID uint `json:"id"`
	}
	status := ts.do(t, http.MethodPost, "/api/questions", authorID, questionRequest{
		Title:   title,
		Content: "Details about " + title,
		Tags:    tags,
	}, &q)
	require.Equal(t, http.StatusCreated, status)
	return q.ID
}
