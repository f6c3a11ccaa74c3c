// Package cmd implements the spendgrid CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"
	"github.com/theirongolddev/spendgrid/internal/authz"
	"github.com/theirongolddev/spendgrid/internal/config"
	"github.com/theirongolddev/spendgrid/internal/platform"
	"github.com/theirongolddev/spendgrid/internal/reconcile"
	"github.com/theirongolddev/spendgrid/internal/store"
	"github.com/theirongolddev/spendgrid/internal/tui/theme"
)

var (
	flagConfig string
	flagDB     string
	flagQuiet  bool
	flagAs     string
	flagOrg    string
)

var rootCmd = &cobra.Command{
	Use:   "spendgrid",
	Short: "Marketing spend reconciliation",
	Long: "Import daily ad spend per platform, reconcile it against what is " +
		"already recorded, and keep an audit trail of every change.",
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default "+config.ConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite path or postgres:// URL, overrides config")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVar(&flagAs, "as", "", "Act as this user id (default $SPENDGRID_USER or login name)")
	rootCmd.PersistentFlags().StringVarP(&flagOrg, "org", "o", "", "Organization id")
}

// loadConfig reads the config file and applies --db.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	if flagDB != "" {
		if strings.HasPrefix(flagDB, "postgres://") || strings.HasPrefix(flagDB, "postgresql://") {
			cfg.Database.Driver = "postgres"
			cfg.Database.URL = flagDB
		} else {
			cfg.Database.Driver = "sqlite"
			cfg.Database.Path = flagDB
		}
	}
	theme.SetActive(cfg.Appearance.Theme)
	return cfg, nil
}

// app bundles what most subcommands need: config, an open store and the
// services over it.
type app struct {
	cfg       config.Config
	store     store.Store
	gate      *authz.Gate
	engine    *reconcile.Engine
	platforms *platform.Registry
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	s, err := store.Open(ctx, cfg.Database.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := store.SeedPlatforms(ctx, s); err != nil {
		_ = s.Close()
		return nil, err
	}
	return &app{
		cfg:       cfg,
		store:     s,
		gate:      authz.NewGate(s),
		engine:    reconcile.NewEngine(s, cfg.Spend.Currency),
		platforms: platform.NewRegistry(s),
	}, nil
}

func (a *app) Close() error { return a.store.Close() }

// require resolves the acting user and checks action against the --org.
func (a *app) require(ctx context.Context, action authz.Action) (authz.Principal, error) {
	if flagOrg == "" {
		return authz.Principal{}, errors.New("--org is required")
	}
	return a.gate.Require(authz.WithUserID(ctx, actingUser()), flagOrg, action)
}

func actingUser() string {
	if flagAs != "" {
		return flagAs
	}
	if u := os.Getenv("SPENDGRID_USER"); u != "" {
		return u
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

func progressf(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}

// cmdContext returns the command's context, or Background when cobra
// didn't set one.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
