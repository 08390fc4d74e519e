package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledger/internal/services"
)

func importCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Bulk import transactions from a CSV file",
		Long: `Import reads a CSV file with the header

  title,type,value,category

from the upload directory (UPLOAD_DIR). Pass "-" to read from stdin.
Malformed rows are skipped; missing categories are created in one batch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				res services.ImportResult
				err error
			)
			if args[0] == "-" {
				res, err = a.imports.ImportReader(cmd.Context(), cmd.InOrStdin())
			} else {
				res, err = a.imports.Import(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d transactions (skipped %d, new categories %d)\n",
				len(res.Transactions), res.Skipped, len(res.CreatedCategories))
			return nil
		},
	}
}
