package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chimp-sync/internal/adapters/driven/auth"
	"github.com/custodia-labs/chimp-sync/internal/adapters/driven/postgres"
	"github.com/custodia-labs/chimp-sync/internal/core/services"
	"github.com/custodia-labs/chimp-sync/internal/tracing"
)

// Run modes of the serve command
const (
	modeAPI    = "api"
	modeWorker = "worker"
	modeAll    = "all"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chimp-sync",
		Short:         "Keep a MailChimp account in step with the shop database",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", getEnv("CONFIG_FILE", ""), "path to a YAML config file")

	root.AddCommand(newServeCmd(), newSyncCmd(), newTokenCmd(), newMigrateCmd())
	return root
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newServeCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the change event worker and the scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch mode {
			case modeAPI, modeWorker, modeAll:
			default:
				return fmt.Errorf("unknown mode %q (use: api, worker, or all)", mode)
			}
			return runServe(mode)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", getEnv("RUN_MODE", modeAll), "run mode: api, worker or all")
	return cmd
}

func runServe(mode string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)
	logger.Info("chimp-sync starting", "version", version, "mode", mode)
	if cfg.Auth.JWTSecret == devJWTSecret {
		logger.Warn("JWT_SECRET not set, using the development secret")
	}

	ctx, cancel := signalContext()
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if mode == modeWorker || mode == modeAll {
		w, err := a.newWorker(ctx)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("start worker: %w", err)
		}
		defer w.Stop()
	}

	if mode == modeWorker {
		<-ctx.Done()
		logger.Info("shutdown signal received, stopping")
		return nil
	}

	return a.newServer().Start(ctx)
}

func newSyncCmd() *cobra.Command {
	var periodic bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronization pass and exit",
		Long: "Runs a manual pass by default: the ledger is rebuilt from the shop database and dispatched.\n" +
			"With --periodic only the pending ledger records are dispatched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Log)

			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			var count int
			if periodic {
				count, err = a.synchronizer.Synchronize(ctx, false)
			} else {
				count, err = a.synchronizer.StartManual(ctx)
			}
			if err != nil {
				return fmt.Errorf("synchronization did not start: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dispatched %d operations\n", count)
			return nil
		},
	}
	cmd.Flags().BoolVar(&periodic, "periodic", false, "dispatch pending records only")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var ttl time.Duration
	var hashPassword string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin bearer token, or hash an admin password with --hash-password",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			adapter := auth.NewAdapter(cfg.Auth.JWTSecret)

			if hashPassword != "" {
				hash, err := adapter.HashPassword(hashPassword)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), hash)
				return nil
			}

			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}
			resp, err := services.IssueAdminToken(adapter, cfg.Auth.AdminUsername, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default: configured token ttl)")
	cmd.Flags().StringVar(&hashPassword, "hash-password", "", "print the bcrypt hash of this password instead")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	var catalog bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the synchronization tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Log)
			ctx := cmd.Context()

			db, err := postgres.Connect(ctx, postgres.Config{
				URL:          cfg.Database.URL,
				MaxOpenConns: 2,
				MaxIdleConns: 1,
			})
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.InitSchema(ctx); err != nil {
				return err
			}
			logger.Info("synchronization schema ready")

			if catalog {
				if err := db.InitCatalogSchema(ctx); err != nil {
					return err
				}
				logger.Info("shop catalog schema ready")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&catalog, "catalog", false, "also create the shop catalog tables (development)")
	return cmd
}

func execute() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
