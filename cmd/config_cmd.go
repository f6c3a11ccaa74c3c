package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/theirongolddev/spendgrid/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := flagConfig
	if path == "" {
		path = config.ConfigPath()
	}
	fmt.Printf("  Config file: %s\n", path)
	if config.Exists(flagConfig) {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [Server]")
	fmt.Printf("    Address:         %s\n", cfg.Server.Addr)
	fmt.Printf("    Identity header: %s\n", cfg.Server.UserHeader)
	if len(cfg.Server.AllowedOrigins) > 0 {
		fmt.Printf("    CORS origins:    %s\n", strings.Join(cfg.Server.AllowedOrigins, ", "))
	}
	if cfg.Server.DevUser != "" {
		fmt.Printf("    Dev user:        %s\n", cfg.Server.DevUser)
	}
	fmt.Println()

	fmt.Println("  [Database]")
	fmt.Printf("    Driver: %s\n", cfg.Database.Driver)
	if cfg.Database.URL != "" {
		fmt.Printf("    URL:    %s\n", maskURL(cfg.Database.URL))
	} else {
		fmt.Printf("    Path:   %s\n", cfg.Database.Path)
	}
	fmt.Println()

	fmt.Println("  [Spend]")
	fmt.Printf("    Currency: %s\n", cfg.Spend.Currency)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `spendgrid setup` to reconfigure.")
	return nil
}

// maskURL hides the password of a connection URL.
func maskURL(u string) string {
	scheme, rest, ok := strings.Cut(u, "://")
	if !ok {
		return u
	}
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return u
	}
	user, _, hasPass := strings.Cut(creds, ":")
	if !hasPass {
		return u
	}
	return scheme + "://" + user + ":****@" + host
}
