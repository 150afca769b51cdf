package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"finboard/internal/export"
)

func (a *app) exportCmd() *cobra.Command {
	var output string

	formats := make([]string, 0, len(export.Formats()))
	for _, f := range export.Formats() {
		formats = append(formats, string(f))
	}

	cmd := &cobra.Command{
		Use:       "export FORMAT",
		Short:     "Export the ledger as " + strings.Join(formats, ", "),
		Long:      `Write the ledger as a JSON backup, a CSV file, a PDF report or an Excel workbook. Use "-o -" to write to stdout.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: formats,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			ledger, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer ledger.Close()

			l, err := ledger.Ledger(ctx)
			if err != nil {
				return err
			}
			data, err := export.Render(f, l, export.Options{Symbol: ledger.Symbol()})
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := a.out.Write(data)
				return err
			}
			path := output
			if path == "" {
				path = f.Filename()
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(a.errOut, "Wrote %d transactions to %s\n", len(l), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: the format's standard file name)")
	return cmd
}
