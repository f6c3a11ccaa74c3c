package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/theirongolddev/spendgrid/internal/bulk"
	"github.com/theirongolddev/spendgrid/internal/cli"
	"github.com/theirongolddev/spendgrid/internal/config"
)

var (
	flagPreviewJSON  bool
	flagPreviewLimit int
)

var previewCmd = &cobra.Command{
	Use:   "preview [file]",
	Short: "Parse and validate spend rows without touching the database",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPreview,
}

func init() {
	previewCmd.Flags().BoolVar(&flagPreviewJSON, "json", false, "Print rows and summary as JSON")
	previewCmd.Flags().IntVarP(&flagPreviewLimit, "limit", "n", 0, "Rows shown, 0 for all")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(_ *cobra.Command, args []string) error {
	_, text, err := readInput(args)
	if err != nil {
		return err
	}
	rows := bulk.Parse(text)
	summary := bulk.Summarize(rows)

	if flagPreviewJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Rows    []bulk.ParsedRow `json:"rows"`
			Summary bulk.Summary     `json:"summary"`
			Valid   []bulk.Entry     `json:"valid"`
		}{rows, summary, bulk.ValidEntries(rows)})
	}

	currency := config.DefaultConfig().Spend.Currency
	if cfg, err := loadConfig(); err == nil {
		currency = cfg.Spend.Currency
	}
	fmt.Print(cli.RenderParsedRows(rows, currency, flagPreviewLimit))
	fmt.Println()
	fmt.Print(cli.RenderSummary(summary))
	return nil
}
