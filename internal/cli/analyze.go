package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd() *cobra.Command {
	var jsonOut, xlsxOut string

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze one invoice and print the analysis as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), c)
			if err != nil {
				return err
			}
			defer a.Close()

			analysis, err := a.Processor.AnalyzeFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOut != "" {
				if err := writeJSONFile(jsonOut, analysis.Items); err != nil {
					return fmt.Errorf("write %s: %w", jsonOut, err)
				}
				c.Logger.Info("cli.analyze.items_written", "path", jsonOut)
			}
			if xlsxOut != "" {
				data, err := a.Export.AnalysisXLSX(analysis)
				if err != nil {
					return err
				}
				if err := os.WriteFile(xlsxOut, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", xlsxOut, err)
				}
				c.Logger.Info("cli.analyze.xlsx_written", "path", xlsxOut)
			}
			return writeJSON(c.Out, analysis)
		},
	}
	cmd.Flags().StringVar(&jsonOut, "json-out", "", "also write the enriched line items to this JSON file")
	cmd.Flags().StringVar(&xlsxOut, "xlsx", "", "also write an XLSX report to this path")
	return cmd
}
