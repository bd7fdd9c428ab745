package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tazhibayda/library-service/internal/config"
	"github.com/tazhibayda/library-service/internal/log"
	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// @title Library API
// @version 0.1.0
// @description Books, borrows, reviews and users behind Google sign-in sessions.
// @schemes http https
// @BasePath /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "library",
		Short:         "Library service: HTTP API, notifier and admin tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newNotifyCommand())
	cmd.AddCommand(newIndexesCommand())
	cmd.AddCommand(newPromoteCommand())
	return cmd
}

// setup loads config, installs the logger and, when enabled, starts the Datadog tracer.
// The returned func flushes both.
func setup(service string) (config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := log.Init(cfg.LogProd)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.DDEnabled {
		tracer.Start(tracer.WithService(service), tracer.WithLogStartup(false))
	}
	return cfg, func() {
		if cfg.DDEnabled {
			tracer.Stop()
		}
		_ = logger.Sync()
	}, nil
}

func fatal(msg string, err error) error {
	log.L().Error(msg, zap.Error(err))
	return fmt.Errorf("%s: %w", msg, err)
}
