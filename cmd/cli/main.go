package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/manpower/cmd/cli/commands"
	"github.com/jakechorley/manpower/internal/config"
	"github.com/jakechorley/manpower/pkg/core/scoring"
	"github.com/jakechorley/manpower/pkg/core/services"
	"github.com/jakechorley/manpower/pkg/postgres"
	"github.com/jakechorley/manpower/pkg/utils/logging"
)

var (
	env     string
	logDir  string
	verbose bool
	app     = &commands.AppContext{}
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "manpower",
		Short: "Manpower CLI - Rank and allocate employees to manpower requests",
		Long: `A CLI tool for ranking employees against manpower requests, allocating
them to positions and production lines, and training the scoring models.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Database != nil {
				app.Database.Close()
			}
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", logging.DefaultDir, "Directory for JSON log files")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logs on the console")

	rootCmd.AddCommand(commands.RankCmd(app))
	rootCmd.AddCommand(commands.AllocateCmd(app))
	rootCmd.AddCommand(commands.TrainCmd(app))
	rootCmd.AddCommand(commands.ModelInfoCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, database and the scoring engine
func initApp() error {
	var err error
	app.Ctx = context.Background()

	app.Logger, err = logging.InitLogger(env, logDir, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	app.Logger.Debug("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully")

	app.Logger.Debug("Connecting to database")
	pg, err := postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pg.RunMigrations(app.Ctx); err != nil {
		pg.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	pg.SetHistoryDays(max(postgres.DefaultHistoryDays, app.Cfg.HistoryDays()))
	app.Database = pg
	app.Logger.Debug("Database initialized successfully")

	var models scoring.BlobStore = pg
	if app.Cfg.StorageKind() == config.StorageFile {
		models = scoring.NewFileStore(app.Cfg.ModelDir())
	}

	app.Engine, err = services.NewEngine(app.Ctx, app.Cfg, models, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize scoring engine: %w", err)
	}
	app.Logger.Debug("Scoring engine ready",
		zap.String("backend", app.Cfg.Backend()),
		zap.String("model_storage", app.Cfg.StorageKind()))

	return nil
}
