package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/caregiver-planner/cmd/cli/commands"
	"github.com/jakechorley/caregiver-planner/internal/config"
	"github.com/jakechorley/caregiver-planner/pkg/clients/sheetsclient"
	"github.com/jakechorley/caregiver-planner/pkg/lock"
	"github.com/jakechorley/caregiver-planner/pkg/metrics"
	"github.com/jakechorley/caregiver-planner/pkg/postgres"
	"github.com/jakechorley/caregiver-planner/pkg/utils"
	"github.com/jakechorley/caregiver-planner/pkg/utils/logging"
	"github.com/jakechorley/caregiver-planner/pkg/utils/telemetry"
)

var (
	env      string
	logLevel string
	trace    bool
)

func main() {
	app := &commands.AppContext{}

	rootCmd := &cobra.Command{
		Use:   "planner",
		Short: "Caregiver planner CLI - Generate weekly mission assignments",
		Long:  `A CLI tool for generating, editing, exporting and publishing weekly caregiver plannings.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(app)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Console log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "Print trace spans to stderr")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.GenerateWeekCmd(app))
	rootCmd.AddCommand(commands.ViewWeekCmd(app))
	rootCmd.AddCommand(commands.SwapAssignmentCmd(app))
	rootCmd.AddCommand(commands.ExportWeekCmd(app))
	rootCmd.AddCommand(commands.PublishWeekCmd(app))
	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	err := rootCmd.Execute()
	app.Close()
	if err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, tracing, config, database and the week lock
func initApp(app *commands.AppContext) error {
	var err error
	app.Env = env
	app.Ctx = context.Background()

	// Initialize logger
	var closeLog logging.CloseFunc
	app.Logger, closeLog, err = logging.InitLogger(logging.Options{Env: env, ConsoleLevel: logLevel})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.OnClose(func() { _ = closeLog() })

	app.Logger.Info("Starting application", zap.String("environment", env))

	// Initialize tracing
	var traceOut io.Writer
	if trace {
		traceOut = os.Stderr
	}
	shutdownTracing, err := telemetry.Setup(traceOut, env)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	app.OnClose(func() {
		if err := shutdownTracing(context.Background()); err != nil {
			app.Logger.Warn("Failed to flush traces", zap.Error(err))
		}
	})

	// Load configuration
	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully")

	// Connect to the database
	app.Logger.Info("Connecting to database")
	app.Postgres, err = postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.Database = app.Postgres
	app.OnClose(app.Postgres.Close)
	app.Logger.Debug("Database connected successfully")

	// Week lock
	if app.Cfg.RedisAddr != "" {
		app.Logger.Info("Connecting to redis", zap.String("addr", app.Cfg.RedisAddr))
		rdb, err := lock.Connect(app.Ctx, app.Cfg.RedisAddr)
		if err != nil {
			return err
		}
		app.OnClose(func() { _ = rdb.Close() })
		app.Locker = lock.NewRedisLocker(rdb, app.Cfg.LockTTL, app.Logger)
	} else {
		app.Logger.Debug("No redisAddr configured, week lock disabled")
		app.Locker = lock.NopLocker{}
	}

	app.Metrics = metrics.NewNop()

	// Sheets client is built on first use since it may open a browser for OAuth
	app.NewSheetsClient = func(ctx context.Context) (*sheetsclient.Client, error) {
		oauthCfg, err := config.LoadOAuthClientWithEnv(env)
		if err != nil {
			return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
		}
		store, err := utils.DefaultTokenStore()
		if err != nil {
			return nil, err
		}
		return sheetsclient.NewClient(ctx, oauthCfg, store, env, app.Logger)
	}

	return nil
}
