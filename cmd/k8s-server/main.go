// Gateway для Kubernetes - читає конфігурацію зі змінних середовища
package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"dashboard-gateway/internal/config"
)

func main() {
	// .env опціональний, у кластері змінні приходять з Secret
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("Failed to load .env file")
	}

	cfg := loadConfigFromEnv()
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	if err := config.StartServer(cfg); err != nil {
		logrus.Fatalf("Failed to start server: %v", err)
	}
}

func loadConfigFromEnv() *config.Config {
	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		port = 8080
	}

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:            getEnv("HOST", "0.0.0.0"),
			Port:            port,
			Environment:     getEnv("MODE", "production"),
			PublicURL:       getEnv("PUBLIC_URL", ""),
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			LogFormat:       getEnv("LOG_FORMAT", "json"),
			ReadTimeout:     getEnv("READ_TIMEOUT", "30s"),
			WriteTimeout:    getEnv("WRITE_TIMEOUT", "30s"),
			IdleTimeout:     getEnv("IDLE_TIMEOUT", "120s"),
			ShutdownTimeout: getEnv("SHUTDOWN_TIMEOUT", "5s"),
			EnableSwagger:   getEnv("ENABLE_SWAGGER", "false") == "true",
		},

		OIDC: config.OIDCConfig{
			Provider: config.OIDCProviderConfig{
				ClientID:           getEnv("GLOBUS_CLIENT_ID", ""),
				ClientSecret:       getEnv("GLOBUS_CLIENT_SECRET", ""),
				AuthURL:            getEnv("GLOBUS_AUTH_URL", ""),
				TokenURL:           getEnv("GLOBUS_TOKEN_URL", ""),
				RevokeURL:          getEnv("GLOBUS_REVOKE_URL", ""),
				LogoutURL:          getEnv("GLOBUS_AUTH_LOGOUT_URI", ""),
				LogoutRedirectName: getEnv("GLOBUS_LOGOUT_REDIRECT_NAME", "Dashboard"),
				RequestTimeout:     getEnv("GLOBUS_REQUEST_TIMEOUT", "30s"),
			},
			Scopes:                  getList("GLOBUS_SCOPES"),
			RequiredResourceServers: getList("REQUIRED_RESOURCE_SERVERS"),
			EnforceState:            getEnv("ENFORCE_STATE", "false") == "true",
		},

		Session: config.SessionConfig{
			CookieMaxAge:  getEnv("COOKIE_MAX_AGE", "168h"),
			CookieDomain:  getEnv("COOKIE_DOMAIN", ""),
			RefreshBuffer: getEnv("REFRESH_BUFFER", "5m"),
		},

		Backend: config.BackendConfig{
			BaseURL: getEnv("BACKEND_URL", ""),
			Timeout: getEnv("BACKEND_TIMEOUT", "10s"),
		},

		Frontend: config.FrontendConfig{
			UpstreamURL: getEnv("FRONTEND_URL", ""),
		},

		Security: config.SecurityConfig{
			CORS: config.CORSConfig{
				AllowedOrigins:   getList("CORS_ALLOWED_ORIGINS"),
				AllowCredentials: true,
				MaxAge:           3600,
			},
		},
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getList повертає nil для незаданої змінної, щоб спрацювали дефолти конфігурації
func getList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' '
	})
}
