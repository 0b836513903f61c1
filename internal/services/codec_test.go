package services

import (
	"encoding/json"
	"fmt"
	"testing"

	"dashboard-gateway/internal/models"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTokenResponse_PrimaryAndOtherTokens(t *testing.T) {
	// Given.
	codec := NewTokenCodec(DefaultResourceServer, "openid email profile")
	resp := &models.ProviderTokenResponse{
		ProviderGrant: models.ProviderGrant{
			AccessToken:    "primary-access",
			RefreshToken:   "primary-refresh",
			ExpiresIn:      172800,
			ResourceServer: "auth.globus.org",
			TokenType:      "Bearer",
			Scope:          "openid email profile",
		},
		IDToken: signedIDToken(t, testIdentityClaims()),
		OtherTokens: []models.ProviderGrant{
			{
				AccessToken:    "funcx-access",
				RefreshToken:   "funcx-refresh",
				ExpiresIn:      3600,
				ResourceServer: "funcx_service",
				Scope:          "https://auth.globus.org/scopes/facd7ccc/all",
			},
		},
	}

	// When.
	bundle, err := codec.FormatTokenResponse(resp, testReceivedAt)

	// Then.
	require.NoError(t, err)
	assert.Equal(t, []string{"auth.globus.org", "funcx_service"}, bundle.ResourceServers())

	primary, ok := bundle.Record("auth.globus.org")
	require.True(t, ok)
	assert.Equal(t, "primary-access", primary.AccessToken)
	assert.Equal(t, testReceivedAt.Unix()+172800, primary.ExpiresAt)

	funcx, ok := bundle.Record("funcx_service")
	require.True(t, ok)
	assert.Equal(t, "funcx-refresh", funcx.RefreshToken)
	assert.Equal(t, DefaultTokenType, funcx.TokenType)
	assert.Equal(t, testReceivedAt.Unix()+3600, funcx.ExpiresAt)

	require.NotNil(t, bundle.Claims)
	assert.Equal(t, "Ada Lovelace", bundle.Claims.Name)
	assert.Equal(t, "ada@globusid.org", bundle.Claims.Username)
	assert.Equal(t, "Diamond Light Source", bundle.Claims.Organization)
}

func TestFormatTokenResponse_Defaults(t *testing.T) {
	codec := NewTokenCodec("", "openid email")

	bundle, err := codec.FormatTokenResponse(&models.ProviderTokenResponse{
		ProviderGrant: models.ProviderGrant{AccessToken: "a"},
	}, testReceivedAt)

	require.NoError(t, err)
	rec, ok := bundle.Record(DefaultResourceServer)
	require.True(t, ok)
	assert.Equal(t, testReceivedAt.Unix()+DefaultExpiresIn, rec.ExpiresAt)
	assert.Equal(t, "openid email", rec.Scope)
	assert.Equal(t, DefaultTokenType, rec.TokenType)
	assert.False(t, rec.HasRefreshToken())
	assert.Nil(t, bundle.Claims)
}

func TestFormatTokenResponse_Malformed(t *testing.T) {
	codec := NewTokenCodec(DefaultResourceServer, "")

	tests := []struct {
		name string
		resp *models.ProviderTokenResponse
	}{
		{name: "nil response", resp: nil},
		{name: "missing access token", resp: &models.ProviderTokenResponse{}},
		{
			name: "other token without access token",
			resp: &models.ProviderTokenResponse{
				ProviderGrant: models.ProviderGrant{AccessToken: "a"},
				OtherTokens:   []models.ProviderGrant{{ResourceServer: "funcx_service"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.FormatTokenResponse(tt.resp, testReceivedAt)
			assert.ErrorIs(t, err, ErrMalformedTokenResponse)
			assert.Equal(t, ReasonCallbackFailed, ReasonFor(err))
		})
	}
}

func TestFormatTokenResponse_SkipsOtherTokenWithoutResourceServer(t *testing.T) {
	codec := NewTokenCodec(DefaultResourceServer, "")

	bundle, err := codec.FormatTokenResponse(&models.ProviderTokenResponse{
		ProviderGrant: models.ProviderGrant{AccessToken: "a"},
		OtherTokens:   []models.ProviderGrant{{AccessToken: "orphan"}},
	}, testReceivedAt)

	require.NoError(t, err)
	assert.Equal(t, []string{DefaultResourceServer}, bundle.ResourceServers())
}

func TestFormatTokenResponse_UnreadableIDTokenIsNotFatal(t *testing.T) {
	codec := NewTokenCodec(DefaultResourceServer, "")

	bundle, err := codec.FormatTokenResponse(&models.ProviderTokenResponse{
		ProviderGrant: models.ProviderGrant{AccessToken: "a"},
		IDToken:       "not-a-jwt",
	}, testReceivedAt)

	require.NoError(t, err)
	assert.Equal(t, "not-a-jwt", bundle.IDToken)
	assert.Nil(t, bundle.Claims)
	assert.Equal(t, models.NotAvailable, bundle.Claims.UserInfo().Name)
}

func TestParseTokenResponse(t *testing.T) {
	resp, err := ParseTokenResponse([]byte(`{
		"access_token": "a",
		"expires_in": 60,
		"resource_server": "auth.globus.org",
		"other_tokens": [{"access_token": "b", "resource_server": "transfer.api.globus.org"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, int64(60), resp.ExpiresIn)
	require.Len(t, resp.OtherTokens, 1)
	assert.Equal(t, "transfer.api.globus.org", resp.OtherTokens[0].ResourceServer)

	_, err = ParseTokenResponse([]byte(`{`))
	assert.ErrorIs(t, err, ErrMalformedTokenResponse)
}

func TestEncodeByResourceServer_NullRefreshToken(t *testing.T) {
	raw, err := EncodeByResourceServer(models.ByResourceServer{
		"auth.globus.org": recordExpiringAt("auth.globus.org", "", 100),
	})
	require.NoError(t, err)

	var decoded map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	entry := decoded["auth.globus.org"]
	assert.Contains(t, entry, "refresh_token")
	assert.Nil(t, entry["refresh_token"])
	assert.EqualValues(t, 100, entry["expires_at_seconds"])

	empty, err := EncodeByResourceServer(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", empty)
}

func TestDecodeByResourceServer_FillsResourceServerFromKey(t *testing.T) {
	byRS, err := DecodeByResourceServer(`{"funcx_service":{"access_token":"x","refresh_token":null,"expires_at_seconds":5}}`)
	require.NoError(t, err)
	rec := byRS["funcx_service"]
	assert.Equal(t, "funcx_service", rec.ResourceServer)
	assert.Equal(t, "", rec.RefreshToken)

	_, err = DecodeByResourceServer("not json")
	assert.Error(t, err)
}

func TestFormatTokenResponse_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	codec := NewTokenCodec(DefaultResourceServer, "openid")

	properties.Property("bundle has one record per distinct resource server", prop.ForAll(
		func(n int, expiresIn int64) bool {
			resp := &models.ProviderTokenResponse{
				ProviderGrant: models.ProviderGrant{AccessToken: "primary", ExpiresIn: expiresIn},
			}
			for i := 0; i < n; i++ {
				resp.OtherTokens = append(resp.OtherTokens, models.ProviderGrant{
					AccessToken:    fmt.Sprintf("other-%d", i),
					ResourceServer: fmt.Sprintf("rs-%d", i),
					ExpiresIn:      expiresIn,
				})
			}

			bundle, err := codec.FormatTokenResponse(resp, testReceivedAt)
			if err != nil {
				return false
			}
			return len(bundle.ByResourceServer) == n+1
		},
		gen.IntRange(0, 10),
		gen.Int64Range(1, 86400),
	))

	properties.Property("expires_at is received_at plus expires_in", prop.ForAll(
		func(expiresIn int64) bool {
			bundle, err := codec.FormatTokenResponse(&models.ProviderTokenResponse{
				ProviderGrant: models.ProviderGrant{AccessToken: "a", ExpiresIn: expiresIn},
			}, testReceivedAt)
			if err != nil {
				return false
			}
			rec, _ := bundle.Record(DefaultResourceServer)
			return rec.ExpiresAt == testReceivedAt.Unix()+expiresIn
		},
		gen.Int64Range(1, 1_000_000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
