// Package app provides the commands of the clerk-example server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/toolhive-core/logging"

	"github.com/alexlup06-authgate/clerk-go/clerk"
)

const shutdownTimeout = 10 * time.Second

// NewRootCmd creates the root command of the clerk-example CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "clerk-example",
		DisableAutoGenTag: true,
		Short:             "Example server protected by Clerk authentication",
		Long: `clerk-example serves a few routes behind the Clerk request authentication
middleware. Keys and instance settings are read from the CLERK_* environment
variables (CLERK_SECRET_KEY, CLERK_PUBLISHABLE_KEY, CLERK_DOMAIN, ...).`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				slog.Error(fmt.Sprintf("Error displaying help: %v", err))
			}
		},
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			var opts []logging.Option
			if viper.GetBool("debug") {
				opts = append(opts, logging.WithLevel(slog.LevelDebug))
			}
			if viper.GetBool("text-logs") {
				opts = append(opts, logging.WithFormat(logging.FormatText))
			}
			slog.SetDefault(logging.New(opts...))
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("text-logs", false, "Log in human-readable text format")
	bindFlag(rootCmd, "debug")
	bindFlag(rootCmd, "text-logs")

	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the example server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), serveConfigFromViper())
		},
	}

	cmd.Flags().String("addr", ":8080", "Address to listen on")
	cmd.Flags().StringSlice("public-routes", []string{"/health", "/metrics"}, "Glob patterns served without authentication")
	cmd.Flags().StringSlice("authorized-parties", nil, "Accepted azp claims of session tokens")
	bindFlag(cmd, "addr")
	bindFlag(cmd, "public-routes")
	bindFlag(cmd, "authorized-parties")

	viper.SetEnvPrefix("CLERK_EXAMPLE")
	viper.AutomaticEnv()

	return cmd
}

func bindFlag(cmd *cobra.Command, name string) {
	flags := cmd.PersistentFlags()
	if flags.Lookup(name) == nil {
		flags = cmd.Flags()
	}
	if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
		slog.Error(fmt.Sprintf("Error binding %s flag: %v", name, err))
	}
}

type serveConfig struct {
	Addr              string
	PublicRoutes      []string
	AuthorizedParties []string
}

func serveConfigFromViper() serveConfig {
	return serveConfig{
		Addr:              viper.GetString("addr"),
		PublicRoutes:      viper.GetStringSlice("public-routes"),
		AuthorizedParties: viper.GetStringSlice("authorized-parties"),
	}
}

func runServe(ctx context.Context, cfg serveConfig) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sdk, err := clerk.New(ctx, clerk.LoadEnvFromOS(),
		clerk.WithLogger(slog.Default()),
		clerk.WithMetrics(reg),
		clerk.WithPublicRoutes(cfg.PublicRoutes...),
		clerk.WithOptions(clerk.Options{AuthorizedParties: cfg.AuthorizedParties}),
	)
	if err != nil {
		return fmt.Errorf("failed to create clerk sdk: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(sdk, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
