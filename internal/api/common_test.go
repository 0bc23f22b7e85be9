package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frizerie/m/internal/config"
	"frizerie/m/internal/database"
	"frizerie/m/internal/migrations"
	"frizerie/m/internal/seed"
)

const (
	testAdminEmail    = "admin@frizerie.test"
	testAdminPassword = "admin-password"
	testPassword      = "testpassword123"
)

type testServer struct {
	handler *Handler
	router  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, nil)
}

// newTestServerWith lets a test adjust the configuration before the router
// is built.
func newTestServerWith(t *testing.T, configure func(*config.Config)) *testServer {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(db))

	_, err = seed.EnsureAdmin(db, "Admin", testAdminEmail, testAdminPassword)
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.Secret = "test-secret"
	cfg.CORSOrigins = []string{"http://localhost:5173"}
	if configure != nil {
		configure(&cfg)
	}

	h := New(db, cfg)
	return &testServer{handler: h, router: h.Router()}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if body != nil {
		setRequestBodyAndHeader(t, req, body)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.execute(req)
}

func (s *testServer) execute(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

// registerAndLogin creates a fresh customer and returns an access token
// obtained through the login endpoint.
func (s *testServer) registerAndLogin(t *testing.T, email string) string {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name":     "Test User",
		"email":    email,
		"password": testPassword,
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	return s.login(t, email, testPassword).AccessToken
}

func (s *testServer) login(t *testing.T, email, password string) tokenResponse {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var tokens tokenResponse
	decodeBody(t, rr, &tokens)
	require.NotEmpty(t, tokens.AccessToken)
	return tokens
}

func checkHeader(t *testing.T, h http.Header) {
	expected := "application/json"
	got := h.Get("Content-Type")
	assert.Equal(t, expected, got, "Content-Type expected %s, got %s", expected, got)
	assert.NotEmpty(t, h.Get("X-Request-Id"), "No Request Id")
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dest), rr.Body.String())
}

func setRequestBodyAndHeader(t *testing.T, req *http.Request, data interface{}) {
	// Marshal the data into JSON
	jsonData, err := json.Marshal(data)
	assert.NoError(t, err, "Failed to marshal data into JSON")

	// Set the request body to the JSON
	req.Body = io.NopCloser(bytes.NewReader(jsonData))
	req.ContentLength = int64(len(jsonData))

	// Set the Content-Type header to application/json
	req.Header.Set("Content-Type", "application/json")
}
