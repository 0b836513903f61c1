package services

import (
	"context"
	"errors"
	"net/http/httptest"
	"net/url"
	"testing"

	"dashboard-gateway/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func successfulExchange() *TokenExchangeResult {
	return &TokenExchangeResult{
		Response: &models.ProviderTokenResponse{
			ProviderGrant: models.ProviderGrant{
				AccessToken:    "a",
				RefreshToken:   "r",
				ExpiresIn:      3600,
				ResourceServer: "auth.globus.org",
			},
			OtherTokens: []models.ProviderGrant{
				{AccessToken: "f", RefreshToken: "fr", ResourceServer: "funcx_service"},
			},
		},
		ReceivedAt: testReceivedAt,
	}
}

func newTestOrchestrator(provider IdentityProvider, notifier BackendNotifier, cfg CallbackConfig) *CallbackOrchestrator {
	codec := NewTokenCodec(DefaultResourceServer, "openid")
	store := NewTokenStore(DefaultCookieOptions(false), DefaultResourceServer)
	return NewCallbackOrchestrator(provider, codec, store, notifier, cfg)
}

func TestCallback_Success(t *testing.T) {
	// Given.
	notifier := &fakeNotifier{}
	o := newTestOrchestrator(&fakeProvider{exchangeResult: successfulExchange()}, notifier, CallbackConfig{
		RequiredResourceServers: []string{"funcx_service"},
	})
	rec := httptest.NewRecorder()

	// When.
	out := o.Handle(context.Background(), rec, CallbackParams{Code: "code"})

	// Then.
	require.False(t, out.Failed())
	assert.Equal(t, StateDone, out.State)
	assert.Equal(t, "/", out.RedirectTo)
	assert.Empty(t, out.Warnings)
	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, []string{"auth.globus.org", "funcx_service"}, out.Bundle.ResourceServers())

	names := map[string]bool{}
	for _, c := range liveCookies(rec.Result()) {
		names[c.Name] = true
	}
	assert.True(t, names[CookieTokens])
	assert.True(t, names[CookieIsAuthenticated])
	assert.True(t, names[CookieAccessToken])
}

func TestCallback_Failures(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
		params   CallbackParams
		failedAt CallbackState
		redirect string
	}{
		{
			name:     "provider denied",
			provider: &fakeProvider{},
			params:   CallbackParams{Error: "access_denied", ErrorDescription: "user cancelled"},
			failedAt: StateValidateCallback,
			redirect: "/sign-in?error=oauth_failed",
		},
		{
			name:     "missing code",
			provider: &fakeProvider{},
			params:   CallbackParams{},
			failedAt: StateValidateCallback,
			redirect: "/sign-in?error=no_code",
		},
		{
			name: "exchange rejected",
			provider: &fakeProvider{exchangeErr: &ProviderError{
				StatusCode: 400, Code: "invalid_grant",
			}},
			params:   CallbackParams{Code: "stale"},
			failedAt: StateExchangeCode,
			redirect: "/sign-in?error=token_exchange_failed",
		},
		{
			name:     "client not configured",
			provider: &fakeProvider{exchangeErr: ErrConfig},
			params:   CallbackParams{Code: "code"},
			failedAt: StateExchangeCode,
			redirect: "/sign-in?error=config_error",
		},
		{
			name:     "network failure",
			provider: &fakeProvider{exchangeErr: ErrTransientNetwork},
			params:   CallbackParams{Code: "code"},
			failedAt: StateExchangeCode,
			redirect: "/sign-in?error=callback_failed",
		},
		{
			name: "malformed response",
			provider: &fakeProvider{exchangeResult: &TokenExchangeResult{
				Response:   &models.ProviderTokenResponse{},
				ReceivedAt: testReceivedAt,
			}},
			params:   CallbackParams{Code: "code"},
			failedAt: StateFormatTokens,
			redirect: "/sign-in?error=callback_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &fakeNotifier{}
			o := newTestOrchestrator(tt.provider, notifier, CallbackConfig{})
			rec := httptest.NewRecorder()

			out := o.Handle(context.Background(), rec, tt.params)

			require.True(t, out.Failed())
			assert.Equal(t, tt.failedAt, out.FailedAt)
			assert.Equal(t, tt.redirect, out.RedirectTo)
			assert.Nil(t, out.Bundle)
			assert.Empty(t, rec.Header().Values("Set-Cookie"), "no cookies on failure")
			assert.Zero(t, notifier.calls)
		})
	}
}

func TestCallback_Warnings(t *testing.T) {
	t.Run("missing required resource server", func(t *testing.T) {
		result := successfulExchange()
		result.Response.OtherTokens = nil
		o := newTestOrchestrator(&fakeProvider{exchangeResult: result}, nil, CallbackConfig{
			RequiredResourceServers: []string{"funcx_service"},
		})

		out := o.Handle(context.Background(), httptest.NewRecorder(), CallbackParams{Code: "code"})

		require.False(t, out.Failed())
		assert.Equal(t, []string{WarningMissingResourceServer}, out.Warnings)
		assert.Equal(t, "/", out.RedirectTo)
	})

	t.Run("data prep failure keeps session", func(t *testing.T) {
		o := newTestOrchestrator(&fakeProvider{exchangeResult: successfulExchange()},
			&fakeNotifier{err: errors.New("backend down")}, CallbackConfig{})
		rec := httptest.NewRecorder()

		out := o.Handle(context.Background(), rec, CallbackParams{Code: "code"})

		require.False(t, out.Failed())
		assert.Equal(t, []string{WarningDataPrepFailed}, out.Warnings)
		assert.Equal(t, "/?login_warning=data_prep_failed", out.RedirectTo)
		assert.NotEmpty(t, liveCookies(rec.Result()))
	})

	t.Run("state mismatch is a warning unless enforced", func(t *testing.T) {
		params := CallbackParams{Code: "code", State: "got", ExpectedState: "issued"}

		lenient := newTestOrchestrator(&fakeProvider{exchangeResult: successfulExchange()}, nil, CallbackConfig{})
		out := lenient.Handle(context.Background(), httptest.NewRecorder(), params)
		require.False(t, out.Failed())
		assert.Contains(t, out.Warnings, WarningStateMismatch)

		strict := newTestOrchestrator(&fakeProvider{exchangeResult: successfulExchange()}, nil, CallbackConfig{EnforceState: true})
		rec := httptest.NewRecorder()
		out = strict.Handle(context.Background(), rec, params)
		require.True(t, out.Failed())
		assert.ErrorIs(t, out.Err, ErrStateMismatch)
		assert.Equal(t, "/sign-in?error=callback_failed", out.RedirectTo)
		assert.Empty(t, rec.Header().Values("Set-Cookie"))
	})

	t.Run("enforced state requires an issued state", func(t *testing.T) {
		provider := &fakeProvider{exchangeResult: successfulExchange()}
		strict := newTestOrchestrator(provider, nil, CallbackConfig{EnforceState: true})
		rec := httptest.NewRecorder()

		out := strict.Handle(context.Background(), rec, CallbackParams{Code: "code", State: "got"})

		require.True(t, out.Failed())
		assert.ErrorIs(t, out.Err, ErrStateMismatch)
		assert.Equal(t, ReasonCallbackFailed, ReasonFor(out.Err))
		assert.Equal(t, "/sign-in?error=callback_failed", out.RedirectTo)
		assert.Empty(t, rec.Header().Values("Set-Cookie"))

		out = strict.Handle(context.Background(), httptest.NewRecorder(), CallbackParams{Code: "code"})
		assert.ErrorIs(t, out.Err, ErrStateMismatch)
	})

	t.Run("lenient mode without issued state has no warning", func(t *testing.T) {
		o := newTestOrchestrator(&fakeProvider{exchangeResult: successfulExchange()}, nil, CallbackConfig{})

		out := o.Handle(context.Background(), httptest.NewRecorder(), CallbackParams{Code: "code", State: "got"})

		require.False(t, out.Failed())
		assert.NotContains(t, out.Warnings, WarningStateMismatch)
	})
}

func TestCallbackParamsFromQuery(t *testing.T) {
	q, err := url.ParseQuery("code=abc&state=s1&error=access_denied&error_description=nope")
	require.NoError(t, err)

	params := CallbackParamsFromQuery(q)

	assert.Equal(t, CallbackParams{
		Code:             "abc",
		Error:            "access_denied",
		ErrorDescription: "nope",
		State:            "s1",
	}, params)
}

func TestSignInRedirect(t *testing.T) {
	assert.Equal(t, "/sign-in?error=config_error", SignInRedirect("/sign-in", ReasonConfigError))
	assert.Equal(t, "/auth?error=no_code&next=%2F", SignInRedirect("/auth?next=/", ReasonNoCode))
}
