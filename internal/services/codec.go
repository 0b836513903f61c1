package services

import (
	"encoding/json"
	"fmt"
	"time"

	"dashboard-gateway/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultResourceServer resource server самого провайдера, якщо відповідь його не вказує
	DefaultResourceServer = "auth.globus.org"
	// DefaultExpiresIn час життя гранту, коли провайдер не повернув expires_in
	DefaultExpiresIn = int64(3600)
	// DefaultTokenType тип токена за замовчуванням
	DefaultTokenType = "Bearer"
)

// TokenCodec конвертує відповіді провайдера у TokenBundle і назад у формат cookie
type TokenCodec struct {
	primaryResourceServer string
	requestedScope        string
}

// NewTokenCodec створює новий TokenCodec
func NewTokenCodec(primaryResourceServer, requestedScope string) *TokenCodec {
	if primaryResourceServer == "" {
		primaryResourceServer = DefaultResourceServer
	}
	return &TokenCodec{
		primaryResourceServer: primaryResourceServer,
		requestedScope:        requestedScope,
	}
}

// PrimaryResourceServer повертає resource server самого провайдера
func (c *TokenCodec) PrimaryResourceServer() string {
	return c.primaryResourceServer
}

// ParseTokenResponse розбирає тіло успішної відповіді token endpoint
func ParseTokenResponse(body []byte) (*models.ProviderTokenResponse, error) {
	var resp models.ProviderTokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTokenResponse, err)
	}
	return &resp, nil
}

// FormatTokenResponse будує TokenBundle з відповіді провайдера.
// expires_at рахується від receivedAt, а не від моменту відправки запиту.
func (c *TokenCodec) FormatTokenResponse(resp *models.ProviderTokenResponse, receivedAt time.Time) (*models.TokenBundle, error) {
	if resp == nil || resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: access_token is missing", ErrMalformedTokenResponse)
	}

	primary := resp.ResourceServer
	if primary == "" {
		primary = c.primaryResourceServer
	}

	scope := resp.Scope
	if scope == "" {
		scope = c.requestedScope
	}

	byRS := models.ByResourceServer{
		primary: buildRecord(resp.ProviderGrant, primary, scope, receivedAt),
	}

	for i, grant := range resp.OtherTokens {
		if grant.ResourceServer == "" {
			logrus.WithField("index", i).Warn("Skipping other_tokens entry without resource_server")
			continue
		}
		if grant.AccessToken == "" {
			return nil, fmt.Errorf("%w: access_token is missing for %s", ErrMalformedTokenResponse, grant.ResourceServer)
		}
		byRS[grant.ResourceServer] = buildRecord(grant, grant.ResourceServer, grant.Scope, receivedAt)
	}

	bundle := &models.TokenBundle{
		ByResourceServer: byRS,
		IDToken:          resp.IDToken,
	}

	if resp.IDToken != "" {
		claims, err := DecodeIDTokenClaims(resp.IDToken)
		if err != nil {
			logrus.WithError(err).Warn("Failed to decode id_token claims, continuing without identity")
		} else {
			bundle.Claims = claims
		}
	}

	logrus.WithFields(logrus.Fields{
		"resource_servers": bundle.ResourceServers(),
		"has_id_token":     bundle.IDToken != "",
		"has_claims":       bundle.Claims != nil,
	}).Debug("Formatted token response")

	return bundle, nil
}

func buildRecord(grant models.ProviderGrant, resourceServer, scope string, receivedAt time.Time) models.TokenRecord {
	expiresIn := grant.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = DefaultExpiresIn
	}

	tokenType := grant.TokenType
	if tokenType == "" {
		tokenType = DefaultTokenType
	}

	return models.TokenRecord{
		AccessToken:    grant.AccessToken,
		RefreshToken:   grant.RefreshToken,
		ExpiresAt:      receivedAt.Unix() + expiresIn,
		ResourceServer: resourceServer,
		TokenType:      tokenType,
		Scope:          scope,
	}
}

// idTokenClaims claims id_token у форматі провайдера
type idTokenClaims struct {
	jwt.RegisteredClaims
	Name              string `json:"name,omitempty"`
	Email             string `json:"email,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Organization      string `json:"organization,omitempty"`
}

// DecodeIDTokenClaims декодує payload id_token без перевірки підпису.
// Токен приходить напряму від провайдера по TLS одразу після обміну коду.
func DecodeIDTokenClaims(idToken string) (*models.IdentityClaims, error) {
	claims := &idTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("failed to parse id_token claims: %w", err)
	}

	return &models.IdentityClaims{
		Subject:      claims.Subject,
		Name:         claims.Name,
		Email:        claims.Email,
		Username:     claims.PreferredUsername,
		Organization: claims.Organization,
	}, nil
}

// EncodeByResourceServer серіалізує by_resource_server у JSON значення cookie tokens
func EncodeByResourceServer(byRS models.ByResourceServer) (string, error) {
	if byRS == nil {
		byRS = models.ByResourceServer{}
	}
	data, err := json.Marshal(byRS)
	if err != nil {
		return "", fmt.Errorf("failed to encode tokens: %w", err)
	}
	return string(data), nil
}

// DecodeByResourceServer розбирає JSON значення cookie tokens
func DecodeByResourceServer(raw string) (models.ByResourceServer, error) {
	var byRS models.ByResourceServer
	if err := json.Unmarshal([]byte(raw), &byRS); err != nil {
		return nil, fmt.Errorf("failed to decode tokens: %w", err)
	}
	for rs, rec := range byRS {
		if rec.ResourceServer == "" {
			rec.ResourceServer = rs
			byRS[rs] = rec
		}
	}
	return byRS, nil
}
