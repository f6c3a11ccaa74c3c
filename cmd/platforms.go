package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/theirongolddev/spendgrid/internal/authz"
	"github.com/theirongolddev/spendgrid/internal/cli"
)

var flagProvider string

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List the platforms an organization can record spend for",
	Args:  cobra.NoArgs,
	RunE:  runPlatformsList,
}

var platformsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an organization-specific platform",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlatformsAdd,
}

func init() {
	platformsAddCmd.Flags().StringVar(&flagProvider, "provider", "", "Upstream provider id, unique per organization")
	platformsCmd.AddCommand(platformsAddCmd)
	rootCmd.AddCommand(platformsCmd)
}

func runPlatformsList(cmd *cobra.Command, _ []string) error {
	ctx := cmdContext(cmd)
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if _, err := a.require(ctx, authz.SpendRead); err != nil {
		return err
	}
	list, err := a.platforms.List(ctx, flagOrg)
	if err != nil {
		return err
	}
	fmt.Print(cli.RenderPlatforms(list))
	return nil
}

func runPlatformsAdd(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if _, err := a.require(ctx, authz.SpendWrite); err != nil {
		return err
	}
	p, err := a.platforms.Create(ctx, flagOrg, args[0], flagProvider)
	if err != nil {
		return err
	}
	fmt.Printf("  Added %s (id %s, key %s)\n", p.Name, p.ID, p.Key)
	return nil
}
