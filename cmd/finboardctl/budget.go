package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"finboard/internal/metrics"
)

func (a *app) budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Show and change monthly category budgets",
		Long: `List budget against this month's spend, set a category limit or add a
category. Changes are written to the budget file.`,
	}

	cmd.AddCommand(a.budgetListCmd())
	cmd.AddCommand(a.budgetSetCmd())
	cmd.AddCommand(a.budgetAddCmd())

	return cmd
}

func (a *app) budgetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List budget against actual spend for this month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ledger, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer ledger.Close()

			view, err := ledger.Analytics(ctx, metrics.Filter{})
			if err != nil {
				return err
			}

			symbol := ledger.Symbol()
			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "CATEGORY\tBUDGET\tACTUAL\tVARIANCE\t\t")
			for _, row := range view.Budget {
				flag := ""
				if row.Over() {
					flag = "over"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
					row.Category,
					row.Budget.Format(symbol),
					row.Actual.Format(symbol),
					row.Variance.Format(symbol),
					flag)
			}
			return w.Flush()
		},
	}
}

func (a *app) budgetSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set CATEGORY AMOUNT",
		Short: "Set the monthly limit of a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ledger, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer ledger.Close()

			if err := ledger.SetBudgetLimit(ctx, args[0], args[1]); err != nil {
				return err
			}
			if err := ledger.SaveBudget(ctx); err != nil {
				return err
			}

			limit, _ := ledger.Policy().Limit(args[0])
			fmt.Fprintf(a.out, "%s budget set to %s\n", args[0], limit.Format(ledger.Symbol()))
			return nil
		},
	}
}

func (a *app) budgetAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add NAME",
		Short: "Add a category with a zero limit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ledger, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer ledger.Close()

			added, err := ledger.AddCategory(ctx, args[0])
			if err != nil {
				return err
			}
			if !added {
				fmt.Fprintf(a.out, "Category %s already exists\n", args[0])
				return nil
			}
			if err := ledger.SaveBudget(ctx); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Category %s added\n", args[0])
			return nil
		},
	}
}
