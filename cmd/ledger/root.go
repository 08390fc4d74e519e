package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/config"
	applog "ledger/internal/log"
	"ledger/internal/services"
)

// app holds what the subcommands share. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfg          *config.Config
	logger       *applog.Logger
	backend      *backend.BackendResult
	transactions *services.TransactionService
	imports      *services.ImportService
}

// newRootCmd builds the command tree. The returned app must be released with
// execute or close once the command has run.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	var envFile string

	root := &cobra.Command{
		Use:           "ledger",
		Short:         "Personal finance ledger",
		Long:          "ledger records income and outcome transactions, grouped by category,\nand bulk-loads them from CSV files.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd, envFile)
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(createCmd(a))
	root.AddCommand(deleteCmd(a))
	root.AddCommand(importCmd(a))
	root.AddCommand(balanceCmd(a))
	root.AddCommand(listCmd(a))

	return root, a
}

// execute runs root and releases the backend whether or not the command
// failed.
func execute(ctx context.Context, root *cobra.Command, a *app) error {
	err := root.ExecuteContext(ctx)
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	return err
}

func (a *app) init(cmd *cobra.Command, envFile string) error {
	if envFile != "" {
		cli.LoadEnvFile(envFile)
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cli.SetupLogger(cfg, cmd.ErrOrStderr())

	res, err := cli.InitBackend(cmd.Context(), a.logger.Logger, cfg)
	if err != nil {
		return err
	}
	a.backend = res

	svcCfg := services.ServiceConfig{DefaultCategory: cfg.DefaultCategory}
	a.transactions = services.NewTransactionService(res.Store, res.Store, res.Publisher, svcCfg)
	a.imports = services.NewImportService(res.Store, res.Store, res.Publisher, services.ImportConfig{
		ServiceConfig:     svcCfg,
		UploadDir:         cfg.UploadDir,
		RemoveAfterImport: cfg.RemoveAfterImport,
	})

	a.logger.WithComponent(applog.ComponentCLI).Debug("Ledger initialized",
		applog.FieldOperation, applog.OpStartup,
		"backend", cfg.DataBackend,
		"events", res.Publisher != nil)
	return nil
}

func (a *app) close() error {
	if a.backend == nil {
		return nil
	}
	cleanup := a.backend.Cleanup
	a.backend = nil
	if cleanup == nil {
		return nil
	}
	if err := cleanup(); err != nil {
		slog.Error("Failed to release backend", applog.FieldOperation, applog.OpShutdown, "error", err)
		return fmt.Errorf("close backend: %w", err)
	}
	return nil
}
