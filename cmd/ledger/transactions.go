package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ledger/internal/core"
	"ledger/internal/services"
)

func createCmd(a *app) *cobra.Command {
	var (
		title    string
		value    string
		typ      string
		category string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record one income or outcome transaction",
		Long: `Record one transaction. An outcome larger than the current balance is
rejected. The category is created on first use; an empty category falls
back to the configured default.`,
		Example: `  ledger create --title Salary --value 1000 --type income --category Work
  ledger create --title Rent --value 450,50 --type outcome --category Home`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !core.TransactionType(typ).IsValid() {
				return fmt.Errorf("%w: %q", core.ErrInvalidType, typ)
			}
			v, err := core.ParseValue(value)
			if err != nil {
				return fmt.Errorf("%w: %q", core.ErrInvalidValue, value)
			}

			t, err := a.transactions.Create(cmd.Context(), services.CreateTransactionRequest{
				Title:    title,
				Value:    v,
				Type:     core.TransactionType(typ),
				Category: category,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", t.ID)
			return printTransactions(cmd.OutOrStdout(), []core.Transaction{t})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "transaction title")
	cmd.Flags().StringVarP(&value, "value", "v", "", "amount, comma or dot decimal separator")
	cmd.Flags().StringVar(&typ, "type", "", "income or outcome")
	cmd.Flags().StringVarP(&category, "category", "c", "", "category title")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("value")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func deleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <transaction-id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.transactions.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func balanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show total income, outcome and net balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.transactions.Balance(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Income\t%s\n", core.FormatValue(b.Income))
			fmt.Fprintf(w, "Outcome\t%s\n", core.FormatValue(b.Outcome))
			fmt.Fprintf(w, "Total\t%s\n", core.FormatValue(b.Total))
			return w.Flush()
		},
	}
}

func listCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every transaction, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			txs, err := a.transactions.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(txs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transactions")
				return nil
			}
			return printTransactions(cmd.OutOrStdout(), txs)
		},
	}
}

func printTransactions(out io.Writer, txs []core.Transaction) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tTYPE\tVALUE\tCATEGORY")
	for _, t := range txs {
		category := t.CategoryID
		if t.Category != nil {
			category = t.Category.Title
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Type, core.FormatValue(t.Value), category)
	}
	return w.Flush()
}
