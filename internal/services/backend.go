package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dashboard-gateway/internal/models"

	"github.com/sirupsen/logrus"
)

// DefaultDataPrepPath шлях post-login ініціалізації в backend
const DefaultDataPrepPath = "/api/data_prep"

// BackendConfig налаштування клієнта backend
type BackendConfig struct {
	BaseURL      string
	DataPrepPath string
	Timeout      time.Duration
}

// backendNotifier викликає data_prep від імені щойно залогіненого користувача
type backendNotifier struct {
	cfg        BackendConfig
	httpClient *http.Client
}

// NewBackendNotifier створює клієнт post-login ініціалізації
func NewBackendNotifier(cfg BackendConfig, httpClient *http.Client) BackendNotifier {
	if cfg.DataPrepPath == "" {
		cfg.DataPrepPath = DefaultDataPrepPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &backendNotifier{cfg: cfg, httpClient: httpClient}
}

// NotifyLogin відправляє POST data_prep з cookie tokens поточної сесії
func (b *backendNotifier) NotifyLogin(ctx context.Context, bundle *models.TokenBundle) error {
	if b.cfg.BaseURL == "" {
		logrus.Debug("Backend base URL is not configured, skipping data_prep")
		return nil
	}

	tokens, err := EncodeByResourceServer(bundle.ByResourceServer)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	endpoint := strings.TrimRight(b.cfg.BaseURL, "/") + b.cfg.DataPrepPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create data_prep request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: CookieTokens, Value: url.PathEscape(tokens)})
	req.AddCookie(&http.Cookie{Name: CookieIsAuthenticated, Value: "true"})

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: data_prep: %v", ErrTransientNetwork, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("data_prep returned status %d", resp.StatusCode)
	}

	logrus.WithField("endpoint", endpoint).Info("Post-login data preparation triggered")
	return nil
}
