package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/theirongolddev/spendgrid/internal/authz"
	"github.com/theirongolddev/spendgrid/internal/bulk"
	"github.com/theirongolddev/spendgrid/internal/cli"
	"github.com/theirongolddev/spendgrid/internal/reconcile"
)

var (
	flagAddDate   string
	flagAddAmount string
	flagAddNotes  string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record spend for one platform and day",
	Long: "Creates one entry. If the day is already recorded with a different " +
		"amount you are asked before it is overwritten.",
	Args: cobra.NoArgs,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&flagPlatform, "platform", "p", "", "Platform id")
	addCmd.Flags().StringVarP(&flagAddDate, "date", "d", "", "Day, MM/DD/YYYY or YYYY-MM-DD")
	addCmd.Flags().StringVarP(&flagAddAmount, "amount", "a", "", "Amount, e.g. 1234.50 or $1,234.50")
	addCmd.Flags().StringVar(&flagAddNotes, "notes", "", "Free-form note")
	addCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "Overwrite a different amount without asking")
	_ = addCmd.MarkFlagRequired("platform")
	_ = addCmd.MarkFlagRequired("date")
	_ = addCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmdContext(cmd)

	day, err := reconcile.ParseDay(flagAddDate)
	if err != nil {
		return err
	}
	cents, reason := bulk.ParseAmountCents(flagAddAmount)
	if reason != "" {
		return errors.New(reason)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	p, err := a.require(ctx, authz.SpendWrite)
	if err != nil {
		return err
	}
	currency := a.cfg.Spend.Currency

	entry, err := a.engine.Create(ctx, p.UserID, flagOrg, flagPlatform, day, cents, flagAddNotes)
	if err == nil {
		fmt.Printf("  Recorded %s for %s (%s)\n", cli.FormatCents(cents, currency), cli.FormatDay(day), entry.ID)
		return nil
	}

	var conflict *reconcile.ConflictError
	if !errors.As(err, &conflict) {
		return err
	}
	if conflict.Kind == reconcile.DuplicateSame {
		fmt.Printf("  %s already recorded for %s, nothing to do\n", cli.FormatCents(cents, currency), cli.FormatDay(day))
		return nil
	}

	ok := flagYes
	if !ok {
		err := huh.NewConfirm().
			Title(fmt.Sprintf("%s is recorded as %s. Overwrite with %s?",
				cli.FormatDay(day),
				cli.FormatCents(conflict.ExistingAmountCents, currency),
				cli.FormatCents(cents, currency))).
			Affirmative("Overwrite").
			Negative("Keep").
			Value(&ok).
			Run()
		if err != nil && !errors.Is(err, huh.ErrUserAborted) {
			return err
		}
	}
	if !ok {
		fmt.Println("  Kept the recorded amount.")
		return nil
	}

	id, err := a.engine.Overwrite(ctx, p.UserID, flagOrg, flagPlatform, day, cents, reconcile.ConfirmOverwrite)
	if err != nil {
		return err
	}
	fmt.Printf("  Overwrote %s: %s -> %s (%s)\n", cli.FormatDay(day),
		cli.FormatCents(conflict.ExistingAmountCents, currency), cli.FormatCents(cents, currency), id)
	return nil
}
