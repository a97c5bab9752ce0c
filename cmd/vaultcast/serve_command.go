package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vaultcast/internal/backend"
	"vaultcast/internal/daemon"
	"vaultcast/internal/logging"
	"vaultcast/internal/sqlitedb"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon and its HTTP API in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			db, err := sqlitedb.Open(cfg.DatabasePath())
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			d, err := daemon.New(cfg, db, backend.NewClient(cfg, logger), logger)
			if err != nil {
				_ = db.Close()
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			runCtx := cmd.Context()
			if err := d.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "vaultcast listening on %s\n", d.APIAddress())

			<-runCtx.Done()
			logger.Info("vaultcast shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
			return nil
		},
	}
}
