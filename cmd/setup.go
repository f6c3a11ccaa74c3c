package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/theirongolddev/spendgrid/internal/config"
	"github.com/theirongolddev/spendgrid/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	// Start from the existing config, or defaults.
	cfg, err := config.Load(flagConfig)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	if err := tui.NewSetupForm(&cfg).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup canceled, nothing saved.")
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := config.Save(flagConfig, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	path := flagConfig
	if path == "" {
		path = config.ConfigPath()
	}
	fmt.Println()
	fmt.Printf("  Saved to %s\n", path)
	fmt.Println("  Grant yourself a role with: spendgrid members grant <you> ADMIN --org <org>")
	fmt.Println("  Run `spendgrid setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
