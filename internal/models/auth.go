package models

import (
	"encoding/json"
	"sort"
	"time"
)

// TokenRecord представляє один грант токенів для одного resource server
type TokenRecord struct {
	AccessToken    string `json:"access_token"`
	RefreshToken   string `json:"refresh_token"`
	ExpiresAt      int64  `json:"expires_at_seconds"` // абсолютний час у секундах epoch
	ResourceServer string `json:"resource_server"`
	TokenType      string `json:"token_type"`
	Scope          string `json:"scope"`
}

// MarshalJSON серіалізує відсутній refresh token як null (формат, який читає backend)
func (r TokenRecord) MarshalJSON() ([]byte, error) {
	type alias TokenRecord
	aux := struct {
		alias
		RefreshToken *string `json:"refresh_token"`
	}{alias: alias(r)}
	if r.RefreshToken != "" {
		aux.RefreshToken = &r.RefreshToken
	}
	return json.Marshal(aux)
}

// HasRefreshToken перевіряє чи грант має refresh token
func (r TokenRecord) HasRefreshToken() bool {
	return r.RefreshToken != ""
}

// ExpiresAtTime повертає час закінчення як time.Time
func (r TokenRecord) ExpiresAtTime() time.Time {
	return time.Unix(r.ExpiresAt, 0)
}

// IsExpiredAt перевіряє чи токен прострочений на момент now (now >= expires_at)
func (r TokenRecord) IsExpiredAt(now time.Time) bool {
	return now.Unix() >= r.ExpiresAt
}

// ByResourceServer мапа resource server -> грант
type ByResourceServer map[string]TokenRecord

// TokenBundle представляє повний набір токенів одного логіну
type TokenBundle struct {
	ByResourceServer ByResourceServer `json:"by_resource_server"`
	IDToken          string           `json:"id_token,omitempty"`
	Claims           *IdentityClaims  `json:"id_token_claims,omitempty"`
}

// ResourceServers повертає відсортований список resource servers у бандлі
func (b *TokenBundle) ResourceServers() []string {
	if b == nil {
		return nil
	}
	servers := make([]string, 0, len(b.ByResourceServer))
	for rs := range b.ByResourceServer {
		servers = append(servers, rs)
	}
	sort.Strings(servers)
	return servers
}

// Record повертає грант для resource server
func (b *TokenBundle) Record(resourceServer string) (TokenRecord, bool) {
	if b == nil {
		return TokenRecord{}, false
	}
	rec, ok := b.ByResourceServer[resourceServer]
	return rec, ok
}

// ProviderGrant представляє один грант у відповіді token endpoint
type ProviderGrant struct {
	AccessToken    string `json:"access_token"`
	RefreshToken   string `json:"refresh_token,omitempty"`
	ExpiresIn      int64  `json:"expires_in,omitempty"`
	ResourceServer string `json:"resource_server,omitempty"`
	TokenType      string `json:"token_type,omitempty"`
	Scope          string `json:"scope,omitempty"`
}

// ProviderTokenResponse представляє сиру відповідь token endpoint провайдера
type ProviderTokenResponse struct {
	ProviderGrant
	IDToken     string          `json:"id_token,omitempty"`
	OtherTokens []ProviderGrant `json:"other_tokens,omitempty"`
}

// ProviderErrorBody представляє тіло помилки token endpoint
type ProviderErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// TokenExchangeRequest представляє запит на обмін коду через JSON API
type TokenExchangeRequest struct {
	Code string `json:"code" binding:"required"`
}

// TokenExchangeResponse представляє відповідь JSON API обміну коду
type TokenExchangeResponse struct {
	Tokens   *TokenBundle `json:"tokens"`
	UserInfo *UserInfo    `json:"userInfo"`
}

// RefreshResponse представляє відповідь на успішне оновлення токенів
type RefreshResponse struct {
	Success bool         `json:"success"`
	Tokens  *TokenBundle `json:"tokens"`
}
