// @title Dashboard Gateway API
// @version 1.0
// @description Globus OAuth2 token lifecycle and route gate for the dashboard
// @BasePath /
package main

import (
	"log"
	"os"

	"dashboard-gateway/internal/build"
	"dashboard-gateway/internal/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "Dashboard Gateway"
	app.Version = build.Version
	app.Usage = "Globus sign-in gateway with configuration management"

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
