package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"finboard/internal/core"
	"finboard/internal/metrics"
	"finboard/internal/services"
)

func (a *app) addCmd() *cobra.Command {
	var date, category, receipt string

	cmd := &cobra.Command{
		Use:   "add AMOUNT",
		Short: "Add a transaction",
		Long: `Add a transaction to the ledger. The date defaults to today and must
not be in the future. A budget alert is printed when the amount takes the
category over its monthly limit; the transaction is added anyway.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ledger, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer ledger.Close()

			in := services.Input{Date: date, Amount: args[0], Category: category}
			if in.Date == "" {
				in.Date = core.Today(time.Now()).String()
			}
			if receipt != "" {
				raw, err := os.ReadFile(receipt)
				if err != nil {
					return fmt.Errorf("read receipt: %w", err)
				}
				in.Receipt = base64.StdEncoding.EncodeToString(raw)
			}

			res, err := ledger.SubmitTransaction(ctx, in)
			if err != nil {
				return err
			}

			symbol := ledger.Symbol()
			t := res.Transaction
			fmt.Fprintf(a.out, "Added #%d: %s %s on %s\n", t.ID, t.Amount.Format(symbol), t.Category, t.Date)
			if res.Alert != nil {
				fmt.Fprintln(a.out, "Warning:", res.Alert.Message(symbol))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "transaction date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&category, "category", "c", core.DefaultCategory, "category")
	cmd.Flags().StringVar(&receipt, "receipt", "", "receipt image to attach")

	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var from, to string
	var categories []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		Long:  `List transactions in stored order, optionally filtered by date range and category.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFilter(from, to, categories)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			ledger, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer ledger.Close()

			rows, err := ledger.Transactions(ctx, f)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(a.out, "No transactions found.")
				return nil
			}

			symbol := ledger.Symbol()
			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "ID\tDATE\tAMOUNT\tCATEGORY\tRECEIPT\t")
			for _, t := range rows {
				r := ""
				if t.HasReceipt() {
					r = "yes"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t\n", t.ID, t.Date, t.Amount.Format(symbol), t.Category, r)
			}
			fmt.Fprintf(w, "\t\t%s\t%d rows\t\t\n", rows.Total().Format(symbol), len(rows))
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")
	cmd.Flags().StringSliceVarP(&categories, "category", "c", nil, "categories to include")

	return cmd
}

func parseFilter(from, to string, categories []string) (metrics.Filter, error) {
	var f metrics.Filter
	var err error
	if from != "" {
		if f.From, err = core.ParseDate(from); err != nil {
			return f, fmt.Errorf("--from: %w", err)
		}
	}
	if to != "" {
		if f.To, err = core.ParseDate(to); err != nil {
			return f, fmt.Errorf("--to: %w", err)
		}
	}
	for _, c := range categories {
		if c = strings.TrimSpace(c); c != "" {
			f.Categories = append(f.Categories, c)
		}
	}
	return f, nil
}

type metricsOutput struct {
	AsOf          string  `json:"as_of"`
	Count         int     `json:"count"`
	TotalBalance  string  `json:"total_balance"`
	MonthlySpend  string  `json:"monthly_spend"`
	BudgetTotal   string  `json:"budget_total"`
	BudgetUsedPct float64 `json:"budget_used_pct"`
	OverBudget    bool    `json:"over_budget"`
}

func (a *app) metricsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show dashboard metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ledger, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer ledger.Close()

			snap, err := ledger.RequestMetrics(ctx)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(metricsOutput{
					AsOf:          snap.AsOf.String(),
					Count:         snap.Count,
					TotalBalance:  snap.TotalBalance.String(),
					MonthlySpend:  snap.MonthlySpend.String(),
					BudgetTotal:   snap.BudgetTotal.String(),
					BudgetUsedPct: snap.BudgetUsedRawPct,
					OverBudget:    snap.OverBudget(),
				})
			}

			symbol := ledger.Symbol()
			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "As of\t%s\n", snap.AsOf)
			fmt.Fprintf(w, "Transactions\t%d\n", snap.Count)
			fmt.Fprintf(w, "Total balance\t%s\n", snap.TotalBalance.Format(symbol))
			fmt.Fprintf(w, "Spent this month\t%s\n", snap.MonthlySpend.Format(symbol))
			fmt.Fprintf(w, "Budget used\t%.1f%% of %s\n", snap.BudgetUsedRawPct, snap.BudgetTotal.Format(symbol))
			if len(snap.TopExpenses) > 0 {
				top := snap.TopExpenses[0]
				fmt.Fprintf(w, "Largest expense\t%s %s on %s\n", top.Amount.Format(symbol), top.Category, top.Date)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a transaction by id",
		Long:  `Delete a transaction. Ids are the ones shown by "finboardctl list".`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid id %q", args[0])
			}

			ctx := cmd.Context()
			ledger, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer ledger.Close()

			if err := ledger.DeleteTransaction(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted #%d\n", id)
			return nil
		},
	}
}
