package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"civictrack-be/config"
	"civictrack-be/controllers"
	"civictrack-be/identity"
	"civictrack-be/logger"
	"civictrack-be/services"
	"civictrack-be/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-secret"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := identity.NewMemoryUsers()
	issues := services.NewIssueService(store.NewMemoryStore(), users)
	settings := &config.Settings{JWTSecret: testSecret, GoEnv: "development"}

	return NewRouter(
		controllers.NewIssueController(issues),
		controllers.NewAuthController(users, settings),
		Options{
			Logger:         logger.SetupWriter(io.Discard, "error", "text"),
			JWTSecret:      testSecret,
			AllowedOrigins: []string{"http://localhost:5173"},
		},
	)
}

func send(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r http.Handler, name, email string) string {
	t.Helper()
	w := send(t, r, http.MethodPost, "/api/auth/register", "", gin.H{"name": name, "email": email, "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = send(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func TestPingAndMetrics(t *testing.T) {
	r := newTestRouter(t)

	w := send(t, r, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())

	w = send(t, r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "civictrack_")
}

func TestReportQueryFlagFlow(t *testing.T) {
	r := newTestRouter(t)
	reporter := login(t, r, "Meera", "meera@example.com")

	w := send(t, r, http.MethodPost, "/api/issues/create", reporter, gin.H{
		"title":       "Streetlight out",
		"description": "Dark stretch near the bus stop",
		"category":    "Lighting",
		"location":    gin.H{"coordinates": []float64{77.5946, 12.9716}, "address": "Bus stop"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID           string `json:"id"`
		ReporterName string `json:"reporterName"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Meera", created.ReporterName)

	w = send(t, r, http.MethodGet, "/api/issues/filtered?latitude=12.9716&longitude=77.5946&radius=2&category=Lighting", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.ID)

	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		token := login(t, r, "Flagger", email)
		w = send(t, r, http.MethodPost, "/api/issues/"+created.ID+"/flag", token, nil)
		require.Equal(t, http.StatusOK, w.Code, "flag %d: %s", i, w.Body.String())
	}

	w = send(t, r, http.MethodGet, "/api/issues?lat=12.9716&lng=77.5946", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), created.ID)

	w = send(t, r, http.MethodGet, "/api/issues/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isHidden":true`)

	w = send(t, r, http.MethodGet, "/api/admin/stats", reporter, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"hiddenIssues":1`)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/issues", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
