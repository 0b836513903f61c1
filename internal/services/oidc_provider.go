package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dashboard-gateway/internal/models"

	"github.com/sirupsen/logrus"
)

// DefaultProviderTimeout таймаут запитів до провайдера
const DefaultProviderTimeout = 30 * time.Second

// ProviderConfig налаштування клієнта token endpoint
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	RevokeURL    string
	Timeout      time.Duration
}

// TokenExchangeResult відповідь провайдера разом з моментом її отримання
type TokenExchangeResult struct {
	Response   *models.ProviderTokenResponse
	ReceivedAt time.Time
}

// providerClient реалізація IdentityProvider поверх HTTP
type providerClient struct {
	cfg        ProviderConfig
	httpClient *http.Client
	now        func() time.Time
}

// NewProviderClient створює клієнт token endpoint провайдера
func NewProviderClient(cfg ProviderConfig, httpClient *http.Client) IdentityProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultProviderTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &providerClient{
		cfg:        cfg,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// ExchangeCode обмінює authorization code на токени
func (p *providerClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenExchangeResult, error) {
	logrus.WithFields(logrus.Fields{
		"code_length":  len(code),
		"redirect_uri": redirectURI,
		"token_url":    p.cfg.TokenURL,
	}).Info("Exchanging authorization code for tokens")

	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", redirectURI)

	return p.tokenRequest(ctx, data)
}

// Refresh виконує refresh_token grant
func (p *providerClient) Refresh(ctx context.Context, refreshToken string) (*TokenExchangeResult, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	logrus.WithField("token_url", p.cfg.TokenURL).Info("Refreshing tokens")

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	return p.tokenRequest(ctx, data)
}

// Revoke відкликає токен на стороні провайдера
func (p *providerClient) Revoke(ctx context.Context, token, tokenTypeHint string) error {
	if p.cfg.RevokeURL == "" {
		return nil
	}
	if err := p.checkCredentials(); err != nil {
		return err
	}

	data := url.Values{}
	data.Set("token", token)
	if tokenTypeHint != "" {
		data.Set("token_type_hint", tokenTypeHint)
	}
	data.Set("client_id", p.cfg.ClientID)
	data.Set("client_secret", p.cfg.ClientSecret)

	status, body, err := p.post(ctx, p.cfg.RevokeURL, data)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return providerError(status, body)
	}
	return nil
}

func (p *providerClient) tokenRequest(ctx context.Context, data url.Values) (*TokenExchangeResult, error) {
	if err := p.checkCredentials(); err != nil {
		return nil, err
	}

	data.Set("client_id", p.cfg.ClientID)
	data.Set("client_secret", p.cfg.ClientSecret)

	status, body, err := p.post(ctx, p.cfg.TokenURL, data)
	if err != nil {
		return nil, err
	}
	receivedAt := p.now()

	if status < 200 || status >= 300 {
		perr := providerError(status, body)
		logrus.WithFields(logrus.Fields{
			"status_code": status,
			"error":       perr.Code,
			"description": perr.Description,
		}).Error("Identity provider returned error")
		return nil, perr
	}

	tokenResp, err := ParseTokenResponse(body)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"resource_server": tokenResp.ResourceServer,
		"other_tokens":    len(tokenResp.OtherTokens),
		"expires_in":      tokenResp.ExpiresIn,
		"has_refresh":     tokenResp.RefreshToken != "",
	}).Info("Successfully received tokens from identity provider")

	return &TokenExchangeResult{Response: tokenResp, ReceivedAt: receivedAt}, nil
}

func (p *providerClient) post(ctx context.Context, endpoint string, data url.Values) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: failed to create request: %v", ErrConfig, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: failed to read response: %v", ErrTransientNetwork, err)
	}
	return resp.StatusCode, body, nil
}

func (p *providerClient) checkCredentials() error {
	if p.cfg.ClientID == "" || p.cfg.ClientSecret == "" {
		return fmt.Errorf("%w: missing client id or secret", ErrConfig)
	}
	if p.cfg.TokenURL == "" {
		return fmt.Errorf("%w: missing token url", ErrConfig)
	}
	return nil
}

func providerError(status int, body []byte) *ProviderError {
	perr := &ProviderError{StatusCode: status, Body: string(body)}
	var errBody models.ProviderErrorBody
	if err := json.Unmarshal(body, &errBody); err == nil {
		perr.Code = errBody.Error
		perr.Description = errBody.ErrorDescription
	}
	return perr
}
