package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"dashboard-gateway/internal/services"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Адреси Globus Auth за замовчуванням
const (
	DefaultAuthURL   = "https://auth.globus.org/v2/oauth2/authorize"
	DefaultTokenURL  = "https://auth.globus.org/v2/oauth2/token"
	DefaultRevokeURL = "https://auth.globus.org/v2/oauth2/token/revoke"
)

// Config представляє повну конфігурацію додатку
type Config struct {
	Server   ServerConfig   `hcl:"server,block"`
	OIDC     OIDCConfig     `hcl:"oidc,block"`
	Session  SessionConfig  `hcl:"session,block"`
	Backend  BackendConfig  `hcl:"backend,block"`
	Routes   RoutesConfig   `hcl:"routes,block"`
	Frontend FrontendConfig `hcl:"frontend,block"`
	Security SecurityConfig `hcl:"security,block"`
}

// ServerConfig містить налаштування HTTP сервера
type ServerConfig struct {
	Host            string `hcl:"host,optional"`
	Port            int    `hcl:"port"`
	Environment     string `hcl:"environment,optional"`
	PublicURL       string `hcl:"public_url"`
	LogLevel        string `hcl:"log_level,optional"`
	LogFormat       string `hcl:"log_format,optional"`
	ReadTimeout     string `hcl:"read_timeout,optional"`
	WriteTimeout    string `hcl:"write_timeout,optional"`
	IdleTimeout     string `hcl:"idle_timeout,optional"`
	ShutdownTimeout string `hcl:"shutdown_timeout,optional"`
	EnableSwagger   bool   `hcl:"enable_swagger,optional"`
}

// OIDCConfig містить налаштування клієнта identity провайдера
type OIDCConfig struct {
	Provider                OIDCProviderConfig `hcl:"provider,block"`
	Scopes                  []string           `hcl:"scopes,optional"`
	RequiredResourceServers []string           `hcl:"required_resource_servers,optional"`
	EnforceState            bool               `hcl:"enforce_state,optional"`
}

// OIDCProviderConfig містить налаштування провайдера
type OIDCProviderConfig struct {
	ClientID           string `hcl:"client_id"`
	ClientSecret       string `hcl:"client_secret"`
	AuthURL            string `hcl:"auth_url,optional"`
	TokenURL           string `hcl:"token_url,optional"`
	RevokeURL          string `hcl:"revoke_url,optional"`
	LogoutURL          string `hcl:"logout_url,optional"`
	LogoutRedirectName string `hcl:"logout_redirect_name,optional"`
	ResourceServer     string `hcl:"resource_server,optional"`
	RequestTimeout     string `hcl:"request_timeout,optional"`
}

// SessionConfig містить налаштування cookie сесії і refresh
type SessionConfig struct {
	CookieMaxAge      string `hcl:"cookie_max_age,optional"`
	CookieDomain      string `hcl:"cookie_domain,optional"`
	RefreshBuffer     string `hcl:"refresh_buffer,optional"`
	RefreshAttempts   int    `hcl:"refresh_attempts,optional"`
	RefreshRetryDelay string `hcl:"refresh_retry_delay,optional"`
}

// BackendConfig містить налаштування backend для post-login ініціалізації
type BackendConfig struct {
	BaseURL      string `hcl:"base_url,optional"`
	DataPrepPath string `hcl:"data_prep_path,optional"`
	Timeout      string `hcl:"timeout,optional"`
}

// RoutesConfig містить налаштування Route Gate
type RoutesConfig struct {
	SignInPath            string   `hcl:"sign_in_path,optional"`
	ProfilePrefix         string   `hcl:"profile_prefix,optional"`
	PublicPrefixes        []string `hcl:"public_prefixes,optional"`
	LegacyProfileRedirect *bool    `hcl:"legacy_profile_redirect,optional"`
}

// FrontendConfig містить адресу рендерера сторінок
type FrontendConfig struct {
	UpstreamURL string `hcl:"upstream_url,optional"`
}

// SecurityConfig містить налаштування безпеки
type SecurityConfig struct {
	CORS CORSConfig `hcl:"cors,block"`
}

// CORSConfig містить налаштування CORS
type CORSConfig struct {
	AllowedOrigins   []string `hcl:"allowed_origins,optional"`
	AllowedMethods   []string `hcl:"allowed_methods,optional"`
	AllowedHeaders   []string `hcl:"allowed_headers,optional"`
	AllowCredentials bool     `hcl:"allow_credentials,optional"`
	MaxAge           int      `hcl:"max_age,optional"`
}

// LoadConfig завантажує конфігурацію з HCL файлу; значення env.NAME беруться з оточення
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	var config Config
	err := hclsimple.DecodeFile(configPath, envEvalContext(os.Environ()), &config)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// ApplyDefaults заповнює незадані поля значеннями за замовчуванням
func (c *Config) ApplyDefaults() {
	setDefault(&c.Server.Host, "0.0.0.0")
	setDefault(&c.Server.Environment, "development")
	setDefault(&c.Server.LogLevel, "info")
	setDefault(&c.Server.LogFormat, "text")
	c.Server.PublicURL = strings.TrimRight(c.Server.PublicURL, "/")

	setDefault(&c.OIDC.Provider.AuthURL, DefaultAuthURL)
	setDefault(&c.OIDC.Provider.TokenURL, DefaultTokenURL)
	setDefault(&c.OIDC.Provider.RevokeURL, DefaultRevokeURL)
	setDefault(&c.OIDC.Provider.ResourceServer, services.DefaultResourceServer)
	if c.OIDC.Scopes == nil {
		c.OIDC.Scopes = []string{"openid", "email", "profile"}
	}

	if c.Session.RefreshAttempts <= 0 {
		c.Session.RefreshAttempts = 3
	}

	setDefault(&c.Backend.DataPrepPath, services.DefaultDataPrepPath)

	setDefault(&c.Routes.SignInPath, "/sign-in")
	setDefault(&c.Routes.ProfilePrefix, "/profile")
	if c.Routes.LegacyProfileRedirect == nil {
		enabled := true
		c.Routes.LegacyProfileRedirect = &enabled
	}

	if c.Security.CORS.AllowedMethods == nil {
		c.Security.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if c.Security.CORS.AllowedHeaders == nil {
		c.Security.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}
	}
}

// Validate перевіряє валідність конфігурації
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if err := validateURL("server.public_url", c.Server.PublicURL); err != nil {
		return err
	}

	// Відсутні облікові дані клієнта це помилка деплою, зупиняємось одразу
	if c.OIDC.Provider.ClientID == "" {
		return fmt.Errorf("%w: oidc client ID is required", services.ErrConfig)
	}
	if c.OIDC.Provider.ClientSecret == "" {
		return fmt.Errorf("%w: oidc client secret is required", services.ErrConfig)
	}

	for name, value := range map[string]string{
		"oidc.provider.auth_url":  c.OIDC.Provider.AuthURL,
		"oidc.provider.token_url": c.OIDC.Provider.TokenURL,
	} {
		if err := validateURL(name, value); err != nil {
			return err
		}
	}

	if c.Backend.BaseURL != "" {
		if err := validateURL("backend.base_url", c.Backend.BaseURL); err != nil {
			return err
		}
	}
	if c.Frontend.UpstreamURL != "" {
		if err := validateURL("frontend.upstream_url", c.Frontend.UpstreamURL); err != nil {
			return err
		}
	}

	if !strings.HasPrefix(c.Routes.SignInPath, "/") {
		return fmt.Errorf("routes.sign_in_path must start with '/': %q", c.Routes.SignInPath)
	}

	return nil
}

// GetAddress повертає адресу для прослуховування сервера
func (c *Config) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// RedirectURI повертає фіксований redirect URI для authorization code
func (c *Config) RedirectURI() string {
	return c.Server.PublicURL + "/auth/callback"
}

// IsDevelopment перевіряє чи додаток працює в режимі розробки
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// IsProduction перевіряє чи додаток працює в продакшн режимі
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// LegacyProfileRedirect повертає стан правила редіректу з profile
func (c *Config) LegacyProfileRedirect() bool {
	return c.Routes.LegacyProfileRedirect == nil || *c.Routes.LegacyProfileRedirect
}

// GenerateConfigFromTemplate генерує HCL конфігурацію з шаблону використовуючи змінні
func GenerateConfigFromTemplate(templatePath, outputPath string, vars map[string]interface{}) error {
	return generateConfigWithVars(templatePath, outputPath, vars)
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func validateURL(name, value string) error {
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL: %q", name, value)
	}
	return nil
}
