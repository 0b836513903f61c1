package services

import (
	"context"
	"net/http"

	"dashboard-gateway/internal/models"
)

// IdentityProvider інтерфейс token endpoint зовнішнього провайдера
type IdentityProvider interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenExchangeResult, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenExchangeResult, error)
	Revoke(ctx context.Context, token, tokenTypeHint string) error
}

// BackendNotifier інтерфейс post-login ініціалізації в backend
type BackendNotifier interface {
	NotifyLogin(ctx context.Context, bundle *models.TokenBundle) error
}

// SessionStore інтерфейс сховища сесії в cookie клієнта
type SessionStore interface {
	Set(w http.ResponseWriter, bundle *models.TokenBundle) error
	Get(r *http.Request) (*models.TokenBundle, error)
	Clear(w http.ResponseWriter)
}
