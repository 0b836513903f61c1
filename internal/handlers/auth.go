package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dashboard-gateway/internal/models"
	"dashboard-gateway/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// StateCookie cookie з state, виданим при /login
const StateCookie = "oauth_state"

// AuthConfig налаштування auth handlers
type AuthConfig struct {
	ClientID           string
	ClientSecret       string
	AuthURL            string
	TokenURL           string
	LogoutURL          string
	LogoutRedirectName string
	PublicURL          string
	RedirectURI        string
	SignInPath         string
	Scopes             []string
	StateMaxAge        time.Duration
	RevokeTimeout      time.Duration
	SecureCookies      bool
}

// AuthHandler містить handlers для OAuth2 логіну, callback, refresh і logout
type AuthHandler struct {
	orchestrator *services.CallbackOrchestrator
	refresher    *services.Refresher
	provider     services.IdentityProvider
	codec        *services.TokenCodec
	store        services.SessionStore
	oauth        *oauth2.Config
	cfg          AuthConfig
	now          func() time.Time
}

// NewAuthHandler створює новий AuthHandler
func NewAuthHandler(
	orchestrator *services.CallbackOrchestrator,
	refresher *services.Refresher,
	provider services.IdentityProvider,
	codec *services.TokenCodec,
	store services.SessionStore,
	cfg AuthConfig,
) *AuthHandler {
	if cfg.SignInPath == "" {
		cfg.SignInPath = "/sign-in"
	}
	if cfg.StateMaxAge <= 0 {
		cfg.StateMaxAge = 10 * time.Minute
	}
	if cfg.RevokeTimeout <= 0 {
		cfg.RevokeTimeout = 5 * time.Second
	}

	return &AuthHandler{
		orchestrator: orchestrator,
		refresher:    refresher,
		provider:     provider,
		codec:        codec,
		store:        store,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: cfg.RedirectURI,
			Scopes:      cfg.Scopes,
		},
		cfg: cfg,
		now: time.Now,
	}
}

// Login ініціює Authorization Code Flow
// @Summary Login
// @Description Перенаправляє на authorize endpoint провайдера з offline доступом
// @Tags auth
// @Success 303
// @Router /login [get]
func (h *AuthHandler) Login(c *gin.Context) {
	logrus.Info("🔐 Login initiation")

	if h.cfg.ClientID == "" || h.cfg.AuthURL == "" {
		logrus.Error("Identity provider client id or authorize URL is not configured")
		c.Redirect(http.StatusSeeOther, services.SignInRedirect(h.cfg.SignInPath, services.ReasonConfigError))
		return
	}

	state := uuid.NewString()
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(h.cfg.StateMaxAge / time.Second),
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	authURL := h.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
	logrus.WithFields(logrus.Fields{
		"redirect_uri": h.cfg.RedirectURI,
		"scopes":       len(h.cfg.Scopes),
	}).Info("Redirecting to identity provider")

	c.Redirect(http.StatusSeeOther, authURL)
}

// Callback обробляє повернення з authorize endpoint
// @Summary OAuth2 Callback
// @Description Обмінює authorization code на токени і зберігає сесію в cookie
// @Tags auth
// @Param code query string false "Authorization Code"
// @Param state query string false "State"
// @Param error query string false "Provider error"
// @Success 303
// @Router /auth/callback [get]
func (h *AuthHandler) Callback(c *gin.Context) {
	logrus.Info("🔄 Authorization code callback")

	params := services.CallbackParamsFromQuery(c.Request.URL.Query())
	if sc, err := c.Request.Cookie(StateCookie); err == nil {
		params.ExpectedState = sc.Value
	}

	outcome := h.orchestrator.Handle(c.Request.Context(), c.Writer, params)
	if outcome.Failed() {
		logrus.WithFields(logrus.Fields{
			"failed_at": outcome.FailedAt,
			"reason":    outcome.Reason,
		}).WithError(outcome.Err).Warn("Callback failed")
		c.Redirect(http.StatusSeeOther, outcome.RedirectTo)
		return
	}

	if params.ExpectedState != "" {
		http.SetCookie(c.Writer, &http.Cookie{Name: StateCookie, Path: "/", MaxAge: -1})
	}
	c.Redirect(http.StatusSeeOther, outcome.RedirectTo)
}

// Logout відкликає токени і очищає сесію
// @Summary Logout
// @Description Відкликає токени у провайдера, видаляє cookie сесії і перенаправляє на сторінку входу
// @Tags auth
// @Success 303
// @Router /logout [get]
func (h *AuthHandler) Logout(c *gin.Context) {
	logrus.Info("🚪 Logout request")

	if bundle, err := h.store.Get(c.Request); err == nil {
		h.revokeAll(c.Request.Context(), bundle)
	}
	h.store.Clear(c.Writer)

	c.Redirect(http.StatusSeeOther, h.logoutRedirect())
}

// Refresh оновлює токени сесії
// @Summary Refresh Tokens
// @Description Оновлює токени з cookie сесії; при відмові провайдера сесія видаляється
// @Tags auth
// @Produce json
// @Success 200 {object} models.RefreshResponse
// @Failure 401 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	logrus.Info("🔄 Token refresh request")

	bundle, err := h.store.Get(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No tokens found"})
		return
	}

	refreshed, err := h.refresher.RefreshSession(c.Request.Context(), bundle)

	// Частково оновлений бандл зберігається до відповіді з помилкою: старі refresh token уже недійсні
	partial := err != nil && refreshed != nil
	if partial {
		if setErr := h.store.Set(c.Writer, refreshed); setErr != nil {
			logrus.WithError(setErr).Error("Failed to persist partially refreshed tokens")
		} else {
			logrus.WithField("resource_servers", refreshed.ResourceServers()).Warn("Partially refreshed tokens persisted")
		}
	}

	switch {
	case err == nil:
	case errors.Is(err, services.ErrNoRefreshToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No refresh token available"})
		return
	case services.IsTransient(err):
		// Сесія лишається: інший запит міг щойно її оновити
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Identity provider unavailable",
			"details": err.Error(),
		})
		return
	case services.IsRejection(err):
		if !partial {
			h.store.Clear(c.Writer)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Failed to refresh tokens"})
		return
	case errors.Is(err, services.ErrMalformedTokenResponse):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Malformed token response",
			"details": err.Error(),
		})
		return
	default:
		logrus.WithError(err).Error("Unexpected refresh failure")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"details": err.Error(),
		})
		return
	}

	if err := h.store.Set(c.Writer, refreshed); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to persist tokens",
			"details": err.Error(),
		})
		return
	}

	logrus.WithField("resource_servers", refreshed.ResourceServers()).Info("Tokens refreshed successfully")
	c.JSON(http.StatusOK, models.RefreshResponse{Success: true, Tokens: refreshed})
}

// Token обмінює authorization code на токени без запису cookie
// @Summary Exchange Code
// @Description Обмінює authorization code на токени і повертає їх у JSON
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.TokenExchangeRequest true "Authorization Code"
// @Success 200 {object} models.TokenExchangeResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/auth/token [post]
func (h *AuthHandler) Token(c *gin.Context) {
	logrus.Info("🔑 Token exchange request")

	var req models.TokenExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No authorization code provided"})
		return
	}

	result, err := h.provider.ExchangeCode(c.Request.Context(), req.Code, h.cfg.RedirectURI)
	if err != nil {
		var perr *services.ProviderError
		switch {
		case errors.Is(err, services.ErrConfig):
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Server configuration error",
				"details": "Missing required authentication credentials",
			})
		case errors.As(err, &perr):
			details := perr.Description
			if details == "" {
				details = perr.Code
			}
			c.JSON(perr.StatusCode, gin.H{
				"error":   "Token exchange failed",
				"details": details,
				"status":  perr.StatusCode,
			})
		case services.IsTransient(err):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Network error", "details": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "details": err.Error()})
		}
		return
	}

	bundle, err := h.codec.FormatTokenResponse(result.Response, result.ReceivedAt)
	if err != nil {
		logrus.WithError(err).Error("Malformed token response")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Malformed token response", "details": err.Error()})
		return
	}

	resp := models.TokenExchangeResponse{Tokens: bundle}
	if bundle.Claims != nil {
		resp.UserInfo = bundle.Claims.UserInfo()
	}
	c.JSON(http.StatusOK, resp)
}

// Status повертає стан автентифікації для клієнтської перевірки
// @Summary Auth Status
// @Description Стан сесії за тими ж cookie, що перевіряє Route Gate; токени не оновлюються
// @Tags auth
// @Produce json
// @Success 200 {object} models.AuthStatus
// @Router /api/auth/status [get]
func (h *AuthHandler) Status(c *gin.Context) {
	now := h.now()
	status := models.AuthStatus{
		Authenticated:   services.HasAuthSignal(c.Request),
		ResourceServers: []string{},
		CheckedAt:       now.UTC(),
	}

	if bundle, err := h.store.Get(c.Request); err == nil {
		status.ResourceServers = bundle.ResourceServers()
		status.User = bundle.Claims.UserInfo()
		if exp, ok := earliestExpiry(bundle); ok {
			status.ExpiresAt = &exp
		}
		status.Expired = services.IsExpired(bundle, now)
	}

	c.JSON(http.StatusOK, status)
}

func (h *AuthHandler) revokeAll(ctx context.Context, bundle *models.TokenBundle) {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.RevokeTimeout)
	defer cancel()

	revoked := 0
	for _, rs := range bundle.ResourceServers() {
		rec := bundle.ByResourceServer[rs]
		tokens := [][2]string{{rec.AccessToken, "access_token"}, {rec.RefreshToken, "refresh_token"}}
		for _, t := range tokens {
			if t[0] == "" {
				continue
			}
			if err := h.provider.Revoke(ctx, t[0], t[1]); err != nil {
				logrus.WithFields(logrus.Fields{
					"resource_server": rs,
					"token_type_hint": t[1],
				}).WithError(err).Warn("Token revocation failed")
				continue
			}
			revoked++
		}
	}
	logrus.WithField("revoked", revoked).Info("Tokens revoked")
}

func (h *AuthHandler) logoutRedirect() string {
	if h.cfg.LogoutURL == "" {
		return h.cfg.SignInPath
	}

	returnTo := strings.TrimRight(h.cfg.PublicURL, "/") + h.cfg.SignInPath
	q := url.Values{}
	q.Set("client", h.cfg.ClientID)
	q.Set("redirect_uri", returnTo)
	if h.cfg.LogoutRedirectName != "" {
		q.Set("redirect_name", h.cfg.LogoutRedirectName)
	}
	return h.cfg.LogoutURL + "?" + q.Encode()
}

func earliestExpiry(bundle *models.TokenBundle) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, rec := range bundle.ByResourceServer {
		t := rec.ExpiresAtTime().UTC()
		if !found || t.Before(earliest) {
			earliest = t
			found = true
		}
	}
	return earliest, found
}
