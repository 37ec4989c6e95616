package main

import (
	"github.com/spf13/cobra"

	"github.com/vadimtrunov/flicks/internal/catalog"
	"github.com/vadimtrunov/flicks/internal/config"
	mcpserver "github.com/vadimtrunov/flicks/internal/mcp"
)

// newMCPServeCmd returns the hidden "mcp-serve" subcommand.
// It exposes the catalog browser as MCP tools over stdin/stdout.
func newMCPServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "mcp-serve",
		Short:  "Start MCP server over stdio",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			// stdout carries the protocol.
			logger := config.SetupLogger(cfg.App.LogLevel, nil)
			svc := initServices(cfg, logger)

			srv := mcpserver.NewServer(mcpserver.Deps{
				Browser:         catalog.New(svc.tmdb, catalog.WithLogger(logger)),
				Details:         svc.tmdb,
				DefaultEndpoint: cfg.Browse.DefaultEndpoint,
				PosterURL:       svc.posterURL,
			}, logger)
			return srv.ServeStdio(cmd.Context())
		},
	}
}
