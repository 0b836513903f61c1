package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"dashboard-gateway/internal/config"
	"dashboard-gateway/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigVars(t *testing.T) {
	t.Setenv("GLOBUS_CLIENT_ID", "client-id")
	t.Setenv("GLOBUS_SCOPES", "openid,email profile")
	t.Setenv("PORT", "")

	vars := getConfigVars("production")

	assert.Equal(t, "production", vars["environment"])
	assert.Equal(t, "client-id", vars["oidc_client_id"])
	assert.Equal(t, []string{"openid", "email", "profile"}, vars["oidc_scopes"])
	assert.Equal(t, 8080, vars["server_port"])
	assert.Equal(t, "warn", vars["log_level"])
	assert.Equal(t, false, vars["enable_swagger"])
}

func TestGetLogLevelForMode(t *testing.T) {
	assert.Equal(t, "warn", getLogLevelForMode("production"))
	assert.Equal(t, "info", getLogLevelForMode("staging"))
	assert.Equal(t, "debug", getLogLevelForMode("development"))
}

func TestConfigureCommand(t *testing.T) {
	t.Setenv("GLOBUS_CLIENT_ID", "client-id")
	t.Setenv("GLOBUS_CLIENT_SECRET", "client-secret")
	t.Setenv("PUBLIC_URL", "https://dashboard.example.org")

	output := filepath.Join(t.TempDir(), "_local.hcl")
	template := filepath.Join("..", "..", "configs", "dashboard.hcl.tmpl")

	err := NewApp().Run([]string{"dashboard", "configure", "-t", template, "-o", output, "-m", "staging"})
	require.NoError(t, err)

	cfg, err := config.LoadConfig(output)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Server.Environment)
	assert.Equal(t, "https://dashboard.example.org/auth/callback", cfg.RedirectURI())
	assert.Equal(t, []string{"funcx_service"}, cfg.OIDC.RequiredResourceServers)
}

func TestConfigureCommand_MissingTemplate(t *testing.T) {
	err := NewApp().Run([]string{"dashboard", "configure", "-t", filepath.Join(t.TempDir(), "nope.tmpl")})
	assert.Error(t, err)
}

func TestServerCommand_MissingConfig(t *testing.T) {
	err := NewApp().Run([]string{"dashboard", "server", "-c", filepath.Join(t.TempDir(), "nope.hcl")})
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	assert.NoError(t, NewApp().Run([]string{"dashboard", "version"}))
}

func TestWatchCommand_StopsOnCancel(t *testing.T) {
	seen := make(chan string, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case seen <- r.Header.Get("Cookie"):
		default:
		}
		_ = json.NewEncoder(w).Encode(models.AuthStatus{Authenticated: true})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewApp().RunContext(ctx, []string{
			"dashboard", "watch", "--url", srv.URL, "--cookie", "is_authenticated=true", "--interval", "10ms",
		})
	}()

	select {
	case cookie := <-seen:
		assert.Equal(t, "is_authenticated=true", cookie)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not poll the status endpoint")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
