package main

import (
	"github.com/spf13/cobra"

	"github.com/jwulff/prompter/internal/db"
	"github.com/jwulff/prompter/internal/logging"
	"github.com/jwulff/prompter/internal/mcpserver"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve question history and the classifier over MCP (stdio)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// stdout carries the protocol.
			logger, err := logging.NewLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			path := cfg.DBPath
			if path == "" {
				path = db.DefaultDBPath()
			}

			var store mcpserver.Store
			s, err := db.Open(path)
			if err != nil {
				logger.Warn("store_open_failed", "path", path, "err", err)
			} else {
				defer s.Close()
				store = s
			}

			return mcpserver.New(store, logger).ServeStdio(version)
		},
	}
}
