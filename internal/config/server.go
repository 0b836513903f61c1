package config

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "dashboard-gateway/docs"
	"dashboard-gateway/internal/handlers"
	"dashboard-gateway/internal/middleware"
	"dashboard-gateway/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const serviceName = "dashboard-gateway"

// StartServer запускає HTTP сервер з конфігурацією
func StartServer(cfg *Config) error {
	setupLogging(cfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	r, err := NewRouter(cfg)
	if err != nil {
		return err
	}

	timeouts := cfg.Timeouts()
	srv := &http.Server{
		Addr:         cfg.GetAddress(),
		Handler:      r,
		ReadTimeout:  timeouts.Read,
		WriteTimeout: timeouts.Write,
		IdleTimeout:  timeouts.Idle,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("🚀 Starting dashboard gateway on %s", cfg.GetAddress())
		logrus.WithFields(logrus.Fields{
			"environment":  cfg.Server.Environment,
			"public_url":   cfg.Server.PublicURL,
			"redirect_uri": cfg.RedirectURI(),
		}).Info("Server configuration")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}
	logrus.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
		return err
	}

	logrus.Info("✅ Server exited gracefully")
	return nil
}

// NewRouter будує gin engine з усіма сервісами і маршрутами
func NewRouter(cfg *Config) (*gin.Engine, error) {
	r := gin.New()

	// Recovery першим: stack trace не має потрапити в браузер
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	if mw := corsMiddleware(cfg); mw != nil {
		r.Use(mw)
	}

	if err := setupRoutes(r, cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// setupLogging налаштовує логування
func setupLogging(cfg *Config) {
	level, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logrus.Warnf("Invalid log level '%s', using info", cfg.Server.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Server.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

// corsMiddleware налаштовує CORS; без дозволених origins CORS вимкнено
func corsMiddleware(cfg *Config) gin.HandlerFunc {
	c := cfg.Security.CORS
	if len(c.AllowedOrigins) == 0 {
		return nil
	}

	corsCfg := cors.Config{
		AllowMethods:     c.AllowedMethods,
		AllowHeaders:     c.AllowedHeaders,
		ExposeHeaders:    []string{middleware.HeaderRequestID},
		AllowCredentials: c.AllowCredentials,
		MaxAge:           time.Duration(c.MaxAge) * time.Second,
	}
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			corsCfg.AllowAllOrigins = true
			corsCfg.AllowCredentials = false
		}
	}
	if !corsCfg.AllowAllOrigins {
		corsCfg.AllowOrigins = c.AllowedOrigins
	}

	return cors.New(corsCfg)
}

// setupRoutes налаштовує сервіси і маршрути
func setupRoutes(r *gin.Engine, cfg *Config) error {
	timeouts := cfg.Timeouts()
	p := cfg.OIDC.Provider

	codec := services.NewTokenCodec(p.ResourceServer, strings.Join(cfg.OIDC.Scopes, " "))

	cookieOpts := services.DefaultCookieOptions(cfg.IsProduction())
	cookieOpts.MaxAge = timeouts.CookieMaxAge
	cookieOpts.Domain = cfg.Session.CookieDomain
	store := services.NewTokenStore(cookieOpts, p.ResourceServer)

	provider := services.NewProviderClient(services.ProviderConfig{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		TokenURL:     p.TokenURL,
		RevokeURL:    p.RevokeURL,
		Timeout:      timeouts.Provider,
	}, nil)

	notifier := services.NewBackendNotifier(services.BackendConfig{
		BaseURL:      cfg.Backend.BaseURL,
		DataPrepPath: cfg.Backend.DataPrepPath,
		Timeout:      timeouts.Backend,
	}, nil)

	refresher := services.NewRefresher(provider, codec, services.RefresherConfig{
		Buffer:     timeouts.RefreshBuffer,
		Attempts:   uint(cfg.Session.RefreshAttempts),
		RetryDelay: timeouts.RefreshRetryDelay,
	})

	orchestrator := services.NewCallbackOrchestrator(provider, codec, store, notifier, services.CallbackConfig{
		RedirectURI:             cfg.RedirectURI(),
		SignInPath:              cfg.Routes.SignInPath,
		SuccessPath:             "/",
		RequiredResourceServers: cfg.OIDC.RequiredResourceServers,
		EnforceState:            cfg.OIDC.EnforceState,
	})

	authHandler := handlers.NewAuthHandler(orchestrator, refresher, provider, codec, store, handlers.AuthConfig{
		ClientID:           p.ClientID,
		ClientSecret:       p.ClientSecret,
		AuthURL:            p.AuthURL,
		TokenURL:           p.TokenURL,
		LogoutURL:          p.LogoutURL,
		LogoutRedirectName: p.LogoutRedirectName,
		PublicURL:          cfg.Server.PublicURL,
		RedirectURI:        cfg.RedirectURI(),
		SignInPath:         cfg.Routes.SignInPath,
		Scopes:             cfg.OIDC.Scopes,
		RevokeTimeout:      timeouts.Provider,
		SecureCookies:      cfg.IsProduction(),
	})
	healthHandler := handlers.NewHealthHandler(serviceName)

	pagesHandler, err := handlers.NewPagesHandler(cfg.Frontend.UpstreamURL)
	if err != nil {
		return err
	}

	publicPrefixes := cfg.Routes.PublicPrefixes
	if publicPrefixes == nil {
		publicPrefixes = append([]string{}, middleware.DefaultPublicPrefixes...)
	}
	if cfg.Server.EnableSwagger {
		publicPrefixes = append(publicPrefixes, "/swagger/")
	}

	gate := middleware.NewRouteGate(middleware.GateConfig{
		SignInPath:            cfg.Routes.SignInPath,
		ProfilePrefix:         cfg.Routes.ProfilePrefix,
		PublicPrefixes:        publicPrefixes,
		LegacyProfileRedirect: cfg.LegacyProfileRedirect(),
	})
	r.Use(middleware.RouteGateMiddleware(gate))

	if cfg.Server.EnableSwagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.GET("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)
	r.GET("/auth/callback", authHandler.Callback)

	api := r.Group("/api")
	{
		api.GET("/healthcheck", healthHandler.Health)

		auth := api.Group("/auth")
		{
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/token", authHandler.Token)
			auth.GET("/status", authHandler.Status)
		}
	}

	// Сторінки рендерить frontend; gate вже відпрацював для них як global middleware
	r.NoRoute(pagesHandler.Serve)

	return nil
}
