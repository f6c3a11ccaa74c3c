package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/theirongolddev/spendgrid/internal/authz"
	"github.com/theirongolddev/spendgrid/internal/cli"
)

var flagLimit int

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "List recorded spend, newest day first",
	Args:  cobra.NoArgs,
	RunE:  runEntries,
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the amount-change history of an organization",
	Args:  cobra.NoArgs,
	RunE:  runAudit,
}

func init() {
	entriesCmd.Flags().StringVarP(&flagPlatform, "platform", "p", "", "Only this platform")
	entriesCmd.Flags().IntVarP(&flagLimit, "limit", "n", 50, "Max entries, 0 for all")
	auditCmd.Flags().IntVarP(&flagLimit, "limit", "n", 50, "Max records, 0 for all")
	rootCmd.AddCommand(entriesCmd, auditCmd)
}

func runEntries(cmd *cobra.Command, _ []string) error {
	ctx := cmdContext(cmd)
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if _, err := a.require(ctx, authz.SpendRead); err != nil {
		return err
	}
	entries, err := a.store.ListEntries(ctx, flagOrg, flagPlatform, flagLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("  No spend recorded.")
		return nil
	}
	fmt.Print(cli.RenderEntries(entries))

	if total, err := a.store.CountEntries(ctx, flagOrg); err == nil && total > len(entries) {
		progressf("  Showing %d of %s entries\n", len(entries), cli.FormatNumber(int64(total)))
	}
	return nil
}

func runAudit(cmd *cobra.Command, _ []string) error {
	ctx := cmdContext(cmd)
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if _, err := a.require(ctx, authz.SpendRead); err != nil {
		return err
	}
	logs, err := a.store.ListEditLogs(ctx, flagOrg, flagLimit)
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		fmt.Println("  No amount changes recorded.")
		return nil
	}
	fmt.Print(cli.RenderEditLogs(logs, a.cfg.Spend.Currency))
	return nil
}
