package cli

import (
	"time"

	"github.com/urfave/cli/v2"
)

// NewApp створює новий CLI додаток
func NewApp() *cli.App {
	app := &cli.App{
		Commands: []*cli.Command{
			{
				Name:  "configure",
				Usage: "Generate configuration from template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "template",
						Aliases: []string{"t"},
						Usage:   "Path to HCL template file",
						Value:   "configs/dashboard.hcl.tmpl",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output configuration file path",
						Value:   "_local.hcl",
					},
					&cli.StringFlag{
						Name:    "mode",
						Aliases: []string{"m"},
						Usage:   "Configuration mode (development, staging, production)",
						Value:   "development",
					},
				},
				Action: configureAction,
			},
			{
				Name:  "server",
				Usage: "Start the dashboard gateway",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Configuration file path",
						Value:   "_local.hcl",
						EnvVars: []string{"DASHBOARD_CONFIG"},
					},
				},
				Action: serverAction,
			},
			{
				Name:  "watch",
				Usage: "Poll the auth status endpoint and report sign-in state changes (SIGHUP forces a check)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "url",
						Usage: "Dashboard base URL",
						Value: "http://localhost:8080",
					},
					&cli.StringFlag{
						Name:    "cookie",
						Usage:   "Cookie header of the browser session",
						EnvVars: []string{"DASHBOARD_COOKIE"},
					},
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Poll interval",
						Value: 2 * time.Second,
					},
				},
				Action: watchAction,
			},
			{
				Name:   "version",
				Usage:  "Show version information",
				Action: versionAction,
			},
		},
	}

	return app
}
