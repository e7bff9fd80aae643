package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mhlam/tradeflow/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage tradeflow configuration files.

Subcommands:
  init     - Write a default configuration file
  validate - Check that a configuration file loads cleanly

Examples:
  tradeflow config init -o tradeflow.yaml
  tradeflow config validate -f tradeflow.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE:  runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "tradeflow.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "config file to validate (default $TRADEFLOW_CONFIG, then tradeflow.yaml)")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  tradeflow backtest -f %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configPath(configValidatePath)
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	strategy := cfg.Strategy.Name
	if len(cfg.Strategy.Children) > 0 {
		names := make([]string, len(cfg.Strategy.Children))
		for i, child := range cfg.Strategy.Children {
			names[i] = child.Name
		}
		strategy = fmt.Sprintf("composite(%s)", strings.Join(names, ", "))
	}

	fmt.Printf("✓ Configuration valid: %s\n", path)
	fmt.Printf("  Capital: $%.2f (commission %.4f)\n", cfg.Account.InitialCapital, cfg.Account.CommissionRate)
	fmt.Printf("  Symbols: %s\n", strings.Join(cfg.Trading.Symbols, ", "))
	fmt.Printf("  Strategy: %s\n", strategy)
	fmt.Printf("  Journal: %s\n", journalLabel(cfg))
	return nil
}

func journalLabel(cfg *config.Config) string {
	switch cfg.Journal.Type {
	case "csv":
		return fmt.Sprintf("csv (%s)", cfg.Journal.Dir)
	case "sqlite":
		return fmt.Sprintf("sqlite (%s)", cfg.Journal.DBPath)
	default:
		return "none"
	}
}
