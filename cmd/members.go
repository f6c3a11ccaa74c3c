package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/theirongolddev/spendgrid/internal/authz"
	"github.com/theirongolddev/spendgrid/internal/cli"
	"github.com/theirongolddev/spendgrid/internal/model"
)

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "List an organization's members and roles",
	Args:  cobra.NoArgs,
	RunE:  runMembersList,
}

var membersGrantCmd = &cobra.Command{
	Use:   "grant <user> <VIEWER|EDITOR|ADMIN>",
	Short: "Give a user a role in an organization",
	Long: "Requires ADMIN in the organization. The first grant in an organization " +
		"without members bootstraps it and needs no role.",
	Args: cobra.ExactArgs(2),
	RunE: runMembersGrant,
}

func init() {
	membersCmd.AddCommand(membersGrantCmd)
	rootCmd.AddCommand(membersCmd)
}

func runMembersList(cmd *cobra.Command, _ []string) error {
	ctx := cmdContext(cmd)
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if _, err := a.require(ctx, authz.OrgManage); err != nil {
		return err
	}
	members, err := a.store.ListMemberships(ctx, flagOrg)
	if err != nil {
		return err
	}
	fmt.Print(cli.RenderMemberships(members))
	return nil
}

func runMembersGrant(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)
	role, err := model.ParseRole(args[1])
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.authorizeGrant(ctx); err != nil {
		return err
	}
	if err := a.store.PutMembership(ctx, model.Membership{
		OrgID:     flagOrg,
		UserID:    args[0],
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}
	fmt.Printf("  %s is now %s in %s\n", args[0], role, flagOrg)
	return nil
}

// authorizeGrant requires ORG_MANAGE unless the org has no members yet.
func (a *app) authorizeGrant(ctx context.Context) error {
	if flagOrg == "" {
		return fmt.Errorf("--org is required")
	}
	members, err := a.store.ListMemberships(ctx, flagOrg)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		progressf("  %s has no members yet, bootstrapping\n", flagOrg)
		return nil
	}
	_, err = a.require(ctx, authz.OrgManage)
	return err
}
