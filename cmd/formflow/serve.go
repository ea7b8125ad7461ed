package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/internal/server"
	"github.com/goliatone/go-formflow/internal/userstore"
)

func newServeCmd() *cobra.Command {
	var addr, dbPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the stub user service (check-email, users, privacy-settings)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if dbPath != "" {
				cfg.Server.DBPath = dbPath
			}

			users, err := userstore.Open(cfg.Server.DBPath)
			if err != nil {
				return err
			}
			defer users.Close()

			srv, err := server.New(cmd.Context(), users)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(cmd.Context(), cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Override server.addr")
	cmd.Flags().StringVar(&dbPath, "db", "", "Override server.db_path")
	return cmd
}
