// Package cli implements the slipcheck commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/slipcheck/internal/infrastructure/config"
	"github.com/eshaffer321/slipcheck/internal/infrastructure/logging"
	"github.com/eshaffer321/slipcheck/internal/infrastructure/storage"
)

// Store constructors, replaced in tests to observe store contact. openStore
// verifies the connection up front; connectStore leaves that to first use.
var (
	openStore    = storage.Open
	connectStore = storage.Connect
)

// app carries what PersistentPreRunE resolved for the subcommands.
type app struct {
	cfgFile   string
	logLevel  string
	logFormat string

	cfg    *config.Config
	errOut io.Writer
}

func (a *app) logger(component string) *slog.Logger {
	return logging.NewLoggerWithComponent(a.errOut, a.cfg.Observability.Logging, component)
}

func (a *app) open(ctx context.Context, component string) (*storage.Gateway, *slog.Logger, error) {
	logger := a.logger(component)
	store, err := openStore(ctx, a.cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, logger, nil
}

// connect prepares the store without contacting it, so connection failures
// are reported by the first call that needs the store.
func (a *app) connect(component string) (*storage.Gateway, *slog.Logger, error) {
	logger := a.logger(component)
	store, err := connectStore(a.cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, logger, nil
}

// NewRootCmd builds the slipcheck command tree. Command output goes to
// out; logs go to errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{errOut: errOut}

	root := &cobra.Command{
		Use:   "slipcheck",
		Short: "Reconcile payment slips against recorded incoming transfers",
		Long: `slipcheck decides whether an extracted payment slip corresponds to a
recorded incoming bank transfer and can mark that transfer as reconciled.

Configuration is read from --config, ./config.yaml, or DB_* / API_CALLER_ID
environment variables.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.init,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./config.yaml, then environment)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (text, json)")

	root.AddCommand(checkCmd(a))
	root.AddCommand(serveCmd(a))
	root.AddCommand(migrateCmd(a))
	root.AddCommand(importCmd(a))

	return root
}

func (a *app) init(_ *cobra.Command, _ []string) error {
	if a.cfgFile != "" {
		cfg, err := config.Load(a.cfgFile)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		a.cfg = cfg
	} else {
		a.cfg = config.LoadOrEnv()
	}

	if a.logLevel != "" {
		a.cfg.Observability.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		a.cfg.Observability.Logging.Format = a.logFormat
	}

	return a.cfg.Validate()
}
