package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"dashboard-gateway/internal/build"
	"dashboard-gateway/internal/config"
	"dashboard-gateway/internal/services"
)

// configureAction генерує конфігурацію з шаблону
func configureAction(c *cli.Context) error {
	templatePath := c.String("template")
	outputPath := c.String("output")
	mode := c.String("mode")

	fmt.Printf("🔧 Configuring dashboard gateway\n")
	fmt.Printf("Template: %s\n", templatePath)
	fmt.Printf("Output: %s\n", outputPath)
	fmt.Printf("Mode: %s\n", mode)

	templatePathAbs, err := absPath(templatePath)
	if err != nil {
		return err
	}
	outputPathAbs, err := absPath(outputPath)
	if err != nil {
		return err
	}

	if _, err := os.Stat(templatePathAbs); os.IsNotExist(err) {
		return fmt.Errorf("template file does not exist: %s", templatePathAbs)
	}

	vars := getConfigVars(mode)

	if err := config.GenerateConfigFromTemplate(templatePathAbs, outputPathAbs, vars); err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	fmt.Printf("✅ Configuration generated successfully: %s\n", outputPathAbs)
	return nil
}

// serverAction запускає сервер
func serverAction(c *cli.Context) error {
	configPath := c.String("config")

	fmt.Printf("🚀 Starting dashboard gateway\n")
	fmt.Printf("Config: %s\n", configPath)
	fmt.Printf("Version: %s\n", build.Version)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s. Run 'configure' command first", configPath)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	return config.StartServer(cfg)
}

// watchAction стежить за станом входу так само, як це робить сторінка
func watchAction(c *cli.Context) error {
	statusURL := strings.TrimRight(c.String("url"), "/") + "/api/auth/status"

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitor := services.NewLivenessMonitor(
		services.StatusProbe(nil, statusURL, c.String("cookie")),
		c.Duration("interval"),
		func(authenticated bool) {
			logrus.WithFields(logrus.Fields{
				"authenticated": authenticated,
				"url":           statusURL,
			}).Info("Sign-in state changed")
		},
	)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				monitor.Focus()
			}
		}
	}()

	monitor.Run(ctx)
	return nil
}

// versionAction показує інформацію про версію
func versionAction(c *cli.Context) error {
	info := build.Info()

	fmt.Printf("Dashboard Gateway\n")
	fmt.Printf("Version: %s\n", info["version"])
	fmt.Printf("Git Commit: %s\n", info["git_commit"])
	fmt.Printf("Build Time: %s\n", info["build_time"])

	return nil
}

// getConfigVars повертає мапу змінних для конфігурації
func getConfigVars(mode string) map[string]interface{} {
	vars := map[string]interface{}{
		"environment": mode,
	}

	setVarFromEnv(vars, "server_host", "HOST", "0.0.0.0")
	setVarFromEnv(vars, "server_port", "PORT", 8080)
	setVarFromEnv(vars, "public_url", "PUBLIC_URL", "http://localhost:8080")
	setVarFromEnv(vars, "log_level", "LOG_LEVEL", getLogLevelForMode(mode))
	setVarFromEnv(vars, "enable_swagger", "ENABLE_SWAGGER", mode != "production")

	setVarFromEnv(vars, "oidc_client_id", "GLOBUS_CLIENT_ID", "")
	setVarFromEnv(vars, "oidc_logout_url", "GLOBUS_AUTH_LOGOUT_URI", "")
	setListFromEnv(vars, "oidc_scopes", "GLOBUS_SCOPES", []string{"openid", "email", "profile"})
	setListFromEnv(vars, "required_resource_servers", "REQUIRED_RESOURCE_SERVERS", []string{"funcx_service"})

	setVarFromEnv(vars, "backend_url", "BACKEND_URL", "")
	setVarFromEnv(vars, "frontend_url", "FRONTEND_URL", "")
	setListFromEnv(vars, "cors_origins", "CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"})

	return vars
}

// setVarFromEnv встановлює змінну з оточення або дефолтне значення
func setVarFromEnv(vars map[string]interface{}, key, envKey string, defaultValue interface{}) {
	if envValue := os.Getenv(envKey); envValue != "" {
		vars[key] = envValue
	} else {
		vars[key] = defaultValue
	}
}

// setListFromEnv розбирає список з оточення; елементи розділені комою або пробілом
func setListFromEnv(vars map[string]interface{}, key, envKey string, defaultValue []string) {
	envValue := os.Getenv(envKey)
	if envValue == "" {
		vars[key] = defaultValue
		return
	}
	vars[key] = strings.FieldsFunc(envValue, func(r rune) bool {
		return r == ',' || r == ' '
	})
}

// getLogLevelForMode повертає рівень логування для режиму
func getLogLevelForMode(mode string) string {
	switch mode {
	case "production":
		return "warn"
	case "staging":
		return "info"
	default:
		return "debug"
	}
}

func absPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	workDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(workDir, path), nil
}
