package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/chxlky/trello-timers/api"
	"github.com/chxlky/trello-timers/internal/config"
	"github.com/chxlky/trello-timers/internal/models"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(verbose bool) *zap.Logger {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if levelStr == "" {
		levelStr = "info"
	}
	level, err := zapcore.ParseLevel(levelStr)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      verbose,
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// fatalMessage names the missing resource behind a startup failure.
func fatalMessage(err error) string {
	var cfgErr *config.ConfigError
	var credErr *config.CredentialError
	var resErr *models.ResolutionError
	switch {
	case errors.As(err, &credErr):
		return fmt.Sprintf("missing credentials: set %s", credErr.Var)
	case errors.As(err, &resErr):
		return fmt.Sprintf("could not resolve %s %q on the board", resErr.Kind, resErr.Name)
	case errors.As(err, &cfgErr):
		return fmt.Sprintf("invalid configuration (%s): %s", cfgErr.Key, cfgErr.Msg)
	default:
		return err.Error()
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "trello-timers",
		Short:         "Revive archived Trello timer cards when they fall due",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "config.yml"
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultPath, "path to the YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run a single reconciliation pass and print a summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context(), cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.runner.Run(cmd.Context())
			if err != nil {
				return err
			}
			if a.cfg.Verbose {
				for _, cardErr := range res.Errors {
					fmt.Fprintln(cmd.ErrOrStderr(), "card error:", cardErr.Error())
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Summary())
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run a pass every schedule.interval",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context(), cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(a)
		},
	})

	return root
}

func serve(a *app) error {
	logger := a.logger

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))

	apiHandler := &api.Handler{Runner: a.runner, Runs: a.store}
	apiHandler.Register(router.Group("/api"))

	srv := &http.Server{
		Addr:    ":" + a.cfg.ServerPort,
		Handler: router,
	}

	logger.Info("Starting server", zap.String("port", a.cfg.ServerPort))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	ctx, stop := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(a.cfg.Interval)
		defer ticker.Stop()
		for {
			if _, err := a.runner.TryRun(ctx); err != nil {
				logger.Warn("Scheduled pass did not complete", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("Shutdown initiated", zap.String("reason", sig.String()))

	// if a second signal is caught, exit immediately
	go func() {
		<-sigCh
		logger.Info("Second interrupt signal received. Exiting immediately.")
		os.Exit(1)
	}()

	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down server", zap.Error(err))
	} else {
		logger.Info("HTTP server shut down gracefully.")
	}

	wg.Wait()
	logger.Info("Exiting...")
	return nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "trello-timers:", fatalMessage(err))
		os.Exit(1)
	}
}
