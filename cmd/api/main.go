package main

import (
	"os"

	"github.com/urfave/cli/v2"
	"github.com/yigit/scholarsphere/internal/bootstrap"
	"github.com/yigit/scholarsphere/internal/pkg/logger"
	"github.com/yigit/scholarsphere/internal/server"
)

// @title ScholarSphere API
// @version 1.0
// @description Scholarship application portal with two-tier OSAS and admin review
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@scholarsphere.app

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

func main() {
	app := &cli.App{
		Name:  "scholarsphere-api",
		Usage: "serve the scholarship portal REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   bootstrap.DefaultConfigPath,
				Usage:   "path to the YAML config file",
				EnvVars: []string{"SCHOLARSPHERE_CONFIG"},
			},
		},
		Action: func(c *cli.Context) error {
			srv, err := server.NewServer(c.String("config"))
			if err != nil {
				logger.Error().Err(err).Msg("Failed to initialize server")
				return err
			}
			return srv.Run()
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
