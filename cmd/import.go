package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/theirongolddev/spendgrid/internal/authz"
	"github.com/theirongolddev/spendgrid/internal/bulk"
	"github.com/theirongolddev/spendgrid/internal/cli"
	"github.com/theirongolddev/spendgrid/internal/reconcile"
	"github.com/theirongolddev/spendgrid/internal/tui"
)

var (
	flagPlatform    string
	flagYes         bool
	flagReview      bool
	flagPreviewRows int
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import daily spend from a CSV, TSV or XLSX file (stdin when omitted)",
	Long: "Parses (date, spend) rows, shows a preview, and applies the valid rows " +
		"to one platform in a single transaction. Dates already recorded with the " +
		"same amount are left alone; different amounts are updated and audited.",
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&flagPlatform, "platform", "p", "", "Platform id")
	importCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "Apply without asking")
	importCmd.Flags().BoolVar(&flagReview, "review", false, "Review rows in an interactive screen before applying")
	importCmd.Flags().IntVar(&flagPreviewRows, "preview-rows", 20, "Rows shown in the preview, 0 for all")
	_ = importCmd.MarkFlagRequired("platform")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)

	name, text, err := readInput(args)
	if err != nil {
		return err
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
	plat, err := a.engine.Platform(ctx, flagOrg, flagPlatform)
	if err != nil {
		return fmt.Errorf("platform %q: %w", flagPlatform, err)
	}

	rows := bulk.Parse(text)
	summary := bulk.Summarize(rows)
	progressf("  Parsed %s rows from %s\n", cli.FormatNumber(int64(summary.Total)), name)
	if summary.Valid == 0 {
		fmt.Print(cli.RenderParsedRows(rows, a.cfg.Spend.Currency, flagPreviewRows))
		return errors.New("no valid rows to import")
	}

	ok, err := confirmImport(rows, summary, flagOrg+" / "+plat.Name, a.cfg.Spend.Currency)
	if err != nil || !ok {
		if err == nil {
			fmt.Println("  Import canceled.")
		}
		return err
	}

	res, err := a.engine.ApplyBatch(ctx, p.UserID, flagOrg, plat.ID, reconcile.RowsFromEntries(bulk.ValidEntries(rows)))
	if err != nil {
		return err
	}
	fmt.Print(cli.RenderResult(res))
	if summary.Invalid() > 0 {
		progressf("  Skipped %d invalid rows\n", summary.Invalid())
	}
	return nil
}

// confirmImport shows the rows and asks the user to proceed, via the
// review screen, a prompt, or not at all with --yes.
func confirmImport(rows []bulk.ParsedRow, summary bulk.Summary, title, currency string) (bool, error) {
	if flagReview {
		lipgloss.SetColorProfile(termenv.TrueColor)
		return tui.RunReview(title, rows, currency)
	}

	fmt.Print(cli.RenderParsedRows(rows, currency, flagPreviewRows))
	fmt.Println()
	fmt.Print(cli.RenderSummary(summary))
	fmt.Println()
	if flagYes {
		return true, nil
	}

	var ok bool
	err := huh.NewConfirm().
		Title(fmt.Sprintf("Apply %d valid rows to %s?", summary.Valid, title)).
		Affirmative("Import").
		Negative("Cancel").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

// readInput returns the named file's text, or stdin's when args is empty
// or "-". Spreadsheets are flattened to tab-separated text.
func readInput(args []string) (string, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return "stdin", string(data), nil
	}

	f, err := os.Open(args[0])
	if err != nil {
		return "", "", err
	}
	defer func() { _ = f.Close() }()

	text, err := bulk.ReadUpload(args[0], f)
	if err != nil {
		return "", "", err
	}
	return args[0], text, nil
}
