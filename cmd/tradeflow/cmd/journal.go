package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mhlam/tradeflow/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query recorded runs",
	Long: `Query the SQLite run journal.

Subcommands:
  list - List recorded runs, most recent first
  show - Print one run as an Org-mode report

Examples:
  tradeflow journal list --limit 10
  tradeflow journal show 01HV3Y7B8QJ4 > run.org`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one run as an Org-mode report",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalShow,
}

var (
	journalDBPath string
	journalLimit  int
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalShowCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./tradeflow.db", "path to SQLite journal")
	journalListCmd.Flags().IntVar(&journalLimit, "limit", 20, "maximum runs to list (0 for all)")
}

func runJournalList(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns(journalLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Printf("%-26s  %-8s  %-12s  %10s  %8s  %8s  %s\n",
		"ID", "KIND", "STRATEGY", "RETURN%", "MAXDD%", "WIN%", "SYMBOLS")
	for _, run := range runs {
		fmt.Printf("%-26s  %-8s  %-12s  %10.2f  %8.2f  %8.1f  %s\n",
			run.ID, run.Kind, run.Strategy, run.TotalReturn, run.MaxDrawdown,
			run.WinRate, strings.Join(run.Symbols, ","))
	}
	return nil
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return err
	}
	defer j.Close()

	run, err := j.GetRun(args[0])
	if err != nil {
		return err
	}
	trades, err := j.ListTradesByRun(run.ID)
	if err != nil {
		return fmt.Errorf("list trades: %w", err)
	}

	return journal.Report{Run: run, Trades: trades}.WriteOrg(os.Stdout)
}
