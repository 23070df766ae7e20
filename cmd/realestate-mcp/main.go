// Command realestate-mcp serves Korean real estate public APIs as MCP tools
// over stdio or streamable HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/jonwraymond/realestate/config"
	"github.com/jonwraymond/realestate/observe"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type options struct {
	envFile   string
	transport string
	httpAddr  string
	logLevel  string
	exporter  string

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	opts := options{
		envFile: ".env",
		logger:  zap.NewNop(),
	}

	root := &cobra.Command{
		Use:          "realestate-mcp",
		Short:        "MCP server for Korean real estate transaction, subscription and auction APIs",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context(), opts.envFile)
			if err != nil {
				return err
			}
			applyFlagBindings(cmd.Flags(), &opts, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			log, err := observe.NewZap(cfg.Telemetry.LogLevel)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = log.Named("realestate")
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			a, err := newApp(ctx, opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.shutdown()

			err = a.run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", opts.envFile, "dotenv file to seed the environment from (missing file is ignored)")
	root.PersistentFlags().StringVar(&opts.transport, "transport", "", "MCP transport: stdio or http (overrides MCP_TRANSPORT)")
	root.PersistentFlags().StringVar(&opts.httpAddr, "http-addr", "", "HTTP listen address (overrides MCP_HTTP_ADDR)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	root.PersistentFlags().StringVar(&opts.exporter, "otel-exporter", "", "none, stdout, otlp or prometheus (overrides OTEL_EXPORTER)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})

	if err := root.ExecuteContext(context.Background()); err != nil {
		opts.logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

// applyFlagBindings copies explicitly set flags over the environment.
func applyFlagBindings(flags *pflag.FlagSet, opts *options, cfg *config.Config) {
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "transport":
			cfg.Server.Transport = opts.transport
		case "http-addr":
			cfg.Server.HTTPAddr = opts.httpAddr
		case "log-level":
			cfg.Telemetry.LogLevel = opts.logLevel
		case "otel-exporter":
			cfg.Telemetry.Exporter = opts.exporter
		}
	})
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
