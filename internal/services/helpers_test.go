package services

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"dashboard-gateway/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// fakeProvider IdentityProvider з заданими відповідями
type fakeProvider struct {
	mu sync.Mutex

	exchangeResult *TokenExchangeResult
	exchangeErr    error

	// refreshErrs повертаються по черзі, далі refreshResult
	refreshErrs   []error
	refreshResult *TokenExchangeResult
	// refreshFn, якщо задано, відповідає замість черги
	refreshFn func(refreshToken string) (*TokenExchangeResult, error)

	refreshCalls []string
	revoked      []string
}

func (f *fakeProvider) ExchangeCode(context.Context, string, string) (*TokenExchangeResult, error) {
	return f.exchangeResult, f.exchangeErr
}

func (f *fakeProvider) Refresh(_ context.Context, refreshToken string) (*TokenExchangeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls = append(f.refreshCalls, refreshToken)
	if f.refreshFn != nil {
		return f.refreshFn(refreshToken)
	}
	if len(f.refreshErrs) > 0 {
		err := f.refreshErrs[0]
		f.refreshErrs = f.refreshErrs[1:]
		return nil, err
	}
	return f.refreshResult, nil
}

func (f *fakeProvider) Revoke(_ context.Context, token, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, token)
	return nil
}

// fakeNotifier BackendNotifier, що повертає err
type fakeNotifier struct {
	err   error
	calls int
}

func (f *fakeNotifier) NotifyLogin(context.Context, *models.TokenBundle) error {
	f.calls++
	return f.err
}

// signedIDToken будує id_token з claims провайдера
func signedIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return token
}

func testIdentityClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":                "3b6c9f2e-8a51-4f0e-9c6d-1f2a3b4c5d6e",
		"name":               "Ada Lovelace",
		"email":              "ada@example.org",
		"preferred_username": "ada@globusid.org",
		"organization":       "Diamond Light Source",
	}
}

var testReceivedAt = time.Unix(1_700_000_000, 0)

func recordExpiringAt(rs, refresh string, expiresAt int64) models.TokenRecord {
	return models.TokenRecord{
		AccessToken:    "access-" + rs,
		RefreshToken:   refresh,
		ExpiresAt:      expiresAt,
		ResourceServer: rs,
		TokenType:      DefaultTokenType,
		Scope:          "scope-" + rs,
	}
}

// liveCookies повертає cookie відповіді, які браузер збереже
func liveCookies(resp *http.Response) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range resp.Cookies() {
		if c.MaxAge >= 0 && c.Value != "" {
			out = append(out, c)
		}
	}
	return out
}
