package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"dashboard-gateway/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendNotifier_SendsSessionCookies(t *testing.T) {
	bundle := &models.TokenBundle{ByResourceServer: models.ByResourceServer{
		"funcx_service": recordExpiringAt("funcx_service", "", 100),
	}}

	var gotTokens string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, DefaultDataPrepPath, r.URL.Path)

		c, err := r.Cookie(CookieTokens)
		if assert.NoError(t, err) {
			gotTokens, _ = url.PathUnescape(c.Value)
		}
		auth, err := r.Cookie(CookieIsAuthenticated)
		if assert.NoError(t, err) {
			assert.Equal(t, "true", auth.Value)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notifier := NewBackendNotifier(BackendConfig{BaseURL: srv.URL + "/"}, srv.Client())

	require.NoError(t, notifier.NotifyLogin(context.Background(), bundle))

	byRS, err := DecodeByResourceServer(gotTokens)
	require.NoError(t, err)
	assert.Equal(t, bundle.ByResourceServer, byRS)
}

func TestBackendNotifier_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	notifier := NewBackendNotifier(BackendConfig{BaseURL: srv.URL}, nil)
	bundle := &models.TokenBundle{ByResourceServer: models.ByResourceServer{}}

	err := notifier.NotifyLogin(context.Background(), bundle)
	assert.Error(t, err)
	assert.False(t, IsTransient(err))

	srv.Close()
	err = notifier.NotifyLogin(context.Background(), bundle)
	assert.True(t, IsTransient(err))
}

func TestBackendNotifier_SkipsWithoutBaseURL(t *testing.T) {
	notifier := NewBackendNotifier(BackendConfig{}, nil)

	assert.NoError(t, notifier.NotifyLogin(context.Background(), &models.TokenBundle{}))
}
