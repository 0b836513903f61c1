package config

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:          8080,
			PublicURL:     "https://dashboard.example.org",
			EnableSwagger: true,
		},
		OIDC: OIDCConfig{
			Provider: OIDCProviderConfig{ClientID: "client-id", ClientSecret: "client-secret"},
		},
		Security: SecurityConfig{CORS: CORSConfig{
			AllowedOrigins:   []string{"https://dashboard.example.org"},
			AllowCredentials: true,
		}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestNewRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r, err := NewRouter(testConfig())
	require.NoError(t, err)

	tests := []struct {
		name     string
		method   string
		path     string
		status   int
		location string
	}{
		{name: "healthcheck is public", method: http.MethodGet, path: "/api/healthcheck", status: http.StatusOK},
		{name: "anonymous page", method: http.MethodGet, path: "/tasks", status: http.StatusTemporaryRedirect, location: "/sign-in"},
		{name: "sign-in page without frontend", method: http.MethodGet, path: "/sign-in", status: http.StatusNotFound},
		{name: "refresh without session", method: http.MethodPost, path: "/api/auth/refresh", status: http.StatusUnauthorized},
		{name: "status", method: http.MethodGet, path: "/api/auth/status", status: http.StatusOK},
		{name: "login", method: http.MethodGet, path: "/login", status: http.StatusSeeOther},
		{name: "logout", method: http.MethodGet, path: "/logout", status: http.StatusSeeOther, location: "/sign-in"},
		{name: "callback error", method: http.MethodGet, path: "/auth/callback?error=access_denied", status: http.StatusSeeOther, location: "/sign-in?error=oauth_failed"},
		{name: "swagger", method: http.MethodGet, path: "/swagger/index.html", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, w.Header().Get("Location"))
			}
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestNewRouter_CORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r, err := NewRouter(testConfig())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/refresh", nil)
	req.Header.Set("Origin", "https://dashboard.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://dashboard.example.org", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCorsMiddleware_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Security.CORS.AllowedOrigins = nil

	assert.Nil(t, corsMiddleware(cfg))
}

func TestNewRouter_InvalidFrontend(t *testing.T) {
	cfg := testConfig()
	cfg.Frontend.UpstreamURL = "not a url"

	_, err := NewRouter(cfg)
	assert.Error(t, err)
}
