package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/amankumarsingh77/pixiescale/internal/config"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "config.yml"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "pixiescale",
	Short:         "Distributed video transcoding pipeline",
	Long:          `pixiescale runs the job orchestrator, the transcoding worker and the storage finalizer, either as separate processes or all in one.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigFile, "config file")
	rootCmd.AddCommand(jobsCmd, workerCmd, storageCmd, allCmd, versionCmd)
}

// loadConfig falls back to built-in defaults when the default config file
// is absent. An explicitly named file must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	v, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, errors.Wrap(err, "loadConfig")
	}
	cfg, err := config.ParseConfig(v)
	if err != nil {
		return nil, errors.Wrap(err, "parseConfig")
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) logger.Logger {
	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()
	appLogger.Infof("AppVersion: %s, LogLevel: %s, Mode: %s", cfg.Server.AppVersion, cfg.Logger.Level, cfg.Server.Mode)
	return appLogger
}

// runServices is the shared body of every service command.
func runServices(cmd *cobra.Command, build ...serviceBuilder) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, log, build...)
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
