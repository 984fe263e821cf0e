package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/expense-claims/internal/config"
	"github.com/garyjia/expense-claims/internal/container"
	"github.com/garyjia/expense-claims/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expense-claims/pkg/database"
	httpserver "github.com/garyjia/expense-claims/internal/interfaces/http"
	"github.com/garyjia/expense-claims/pkg/utils"
)

const version = "1.0.0"

var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "claims: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claims",
		Short: "Expense claims service",
		Long: `claims runs the expense reimbursement service: employees file claims with
itemized expenses and receipts, approvers decide them, and every change is audited.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the configuration file")
	cmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newImportDirectoryCmd(),
	)
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()

			logger.Info("Starting expense claims service",
				zap.String("version", version),
				zap.Int("port", cfg.Server.Port))

			c, err := startContainer(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := c.Close(); err != nil {
					logger.Error("Container shutdown failed", zap.Error(err))
				}
			}()

			services := c.Services()
			server := httpserver.NewServer(serverConfig(cfg), httpserver.Services{
				Claims:      services.Claims,
				Expenses:    services.Expenses,
				Attachments: services.Attachments,
				Audit:       services.Audit,
				Query:       services.Query,
			}, func(ctx context.Context) (bool, interface{}) {
				status := c.Health(ctx)
				return status.Overall, status
			}, utils.NewKeyValueLogger(logger))

			if err := server.Start(ctx); err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			logger.Info("Server exited successfully")
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()

			containerCfg := cfg.ToContainerConfig()
			if dryRun {
				return listPendingMigrations(cmd, &containerCfg.Database, logger)
			}

			bundle, err := container.ProvideDatabase(cmd.Context(), &containerCfg.Database, logger)
			if err != nil {
				return err
			}
			return bundle.DB.Close()
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list pending migrations without applying them")
	return cmd
}

func listPendingMigrations(cmd *cobra.Command, cfg *container.DatabaseConfig, logger *zap.Logger) error {
	db, err := database.Open(cmd.Context(), database.Config{Path: cfg.Path, BusyTimeout: cfg.BusyTimeout}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	pending, err := database.NewMigrator(db, logger).Pending(cmd.Context(), sqlite.Migrations())
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	}
	for _, m := range pending {
		fmt.Fprintf(cmd.OutOrStdout(), "pending %03d_%s\n", m.Version, m.Name)
	}
	return nil
}

func newImportDirectoryCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import-directory",
		Short: "Load employees and event types from an .xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open workbook: %w", err)
			}
			defer f.Close()

			c, err := startContainer(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer c.Close()

			summary, err := c.Services().Directory.Import(ctx, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d employees and %d event types\n", summary.Employees, summary.EventTypes)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Workbook with Employees and EventTypes sheets")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "expense-claims",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

func startContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*container.Container, error) {
	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to start container: %w", err)
	}
	return c, nil
}

func serverConfig(cfg *config.Config) httpserver.ServerConfig {
	sc := httpserver.DefaultServerConfig()
	sc.Host = cfg.Server.Host
	sc.Port = cfg.Server.Port
	sc.ReadTimeout = cfg.Server.ReadTimeout
	sc.WriteTimeout = cfg.Server.WriteTimeout
	if cfg.Server.Mode != "" {
		sc.Mode = cfg.Server.Mode
	}
	if cfg.Attachments.MaxSize > 0 {
		sc.MaxUploadBytes = cfg.Attachments.MaxSize
	}
	sc.MetricsPath = ""
	if cfg.Metrics.Enabled {
		sc.MetricsPath = cfg.Metrics.Path
	}
	return sc
}
