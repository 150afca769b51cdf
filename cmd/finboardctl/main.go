package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"finboard/internal/backend"
	"finboard/internal/cli"
	"finboard/internal/config"
	applog "finboard/internal/log"
	"finboard/internal/services"
)

var version = "dev"

// app carries the per-invocation settings shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
	out     io.Writer
	errOut  io.Writer
	opts    []services.Option
}

func newRootCmd(out, errOut io.Writer, opts ...services.Option) *cobra.Command {
	a := &app{v: viper.New(), out: out, errOut: errOut, opts: opts}

	root := &cobra.Command{
		Use:   "finboardctl",
		Short: "Manage the finboard ledger from the command line",
		Long: `finboardctl reads and changes the same ledger and budget files as the
finboard server. Settings come from flags, FINBOARD_* environment
variables, an optional config file and finally the server's own
environment variables.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./finboard.yaml)")
	pf.String("ledger", "", "ledger CSV file (overrides LEDGER_FILE)")
	pf.String("budget", "", "budget JSON file (overrides BUDGET_FILE)")
	pf.String("backend", "", "data backend: "+strings.Join(backend.GetBackendTypeStrings(), ", ")+" (overrides DATA_BACKEND)")
	pf.String("currency", "", "display currency (overrides CURRENCY)")
	pf.String("log-level", "warn", "log level (debug, info, warn, error)")

	_ = a.v.BindPFlag("ledger", pf.Lookup("ledger"))
	_ = a.v.BindPFlag("budget", pf.Lookup("budget"))
	_ = a.v.BindPFlag("backend", pf.Lookup("backend"))
	_ = a.v.BindPFlag("currency", pf.Lookup("currency"))
	_ = a.v.BindPFlag("log_level", pf.Lookup("log-level"))

	root.AddCommand(a.addCmd())
	root.AddCommand(a.listCmd())
	root.AddCommand(a.metricsCmd())
	root.AddCommand(a.deleteCmd())
	root.AddCommand(a.budgetCmd())
	root.AddCommand(a.exportCmd())

	return root
}

func main() {
	cli.LoadEnvFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) initConfig(_ *cobra.Command, _ []string) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("finboard")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("FINBOARD")
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || a.cfgFile != "" {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// config overlays viper settings on the server's environment configuration.
func (a *app) config() (*config.Config, error) {
	cfg := config.Load()
	if s := a.v.GetString("ledger"); s != "" {
		cfg.LedgerFile = s
	}
	if s := a.v.GetString("budget"); s != "" {
		cfg.BudgetFile = s
	}
	if s := a.v.GetString("backend"); s != "" {
		cfg.DataBackend = s
	}
	if s := a.v.GetString("currency"); s != "" {
		cfg.Currency = strings.ToUpper(s)
	}
	if s := a.v.GetString("sqlite_db_path"); s != "" {
		cfg.SQLiteDBPath = s
	}
	cfg.LogLevel = a.v.GetString("log_level")

	// The CLI never publishes events or mirrors inline.
	cfg.AMQPURL = ""
	cfg.GoogleSpreadsheetID = ""

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) logger() *applog.Logger {
	return applog.NewWriter(a.errOut, applog.ParseLevel(a.v.GetString("log_level")), applog.ComponentCLI)
}

// openLedger opens the ledger service for one command.
func (a *app) openLedger(ctx context.Context) (*services.LedgerService, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	return cli.OpenLedger(ctx, a.logger(), cfg, a.opts...)
}
