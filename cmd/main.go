package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/LeanerCloud/rds-extended-support/internal/config"
)

var (
	flagCfg    config.Config
	configFile string

	// toolCfg is the validated configuration built in PreRunE
	toolCfg *config.Config

	refreshOutput  string
	refreshProfile string
)

var rootCmd = &cobra.Command{
	Use:   "rds-extended-support",
	Short: "Estimate RDS Extended Support charges across AWS accounts",
	Long: `Scans RDS and Aurora instances across one account, a list of accounts or a whole
AWS Organization and estimates the yearly Extended Support charges for every
instance running an engine version past the end of standard support.

Results are written to a CSV report and summarized on the console.`,
	PreRunE: validateFlags,
	Run:     runTool,
}

var pricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Manage Extended Support pricing data",
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Write a regional pricing override file from the AWS Price List API",
	Run:   runRefresh,
}

func init() {
	rootCmd.Flags().StringSliceVarP(&flagCfg.Accounts, "accounts", "a", nil, "Comma separated account IDs to scan")
	rootCmd.Flags().StringVar(&flagCfg.AccountsFile, "accounts-file", "", "CSV file with one account ID per row")
	rootCmd.Flags().BoolVar(&flagCfg.AllAccounts, "all", false, "Scan every active account in the organization")
	rootCmd.Flags().StringSliceVar(&flagCfg.ExcludeAccounts, "exclude-accounts", nil, "Account IDs to skip (only with --all)")
	rootCmd.Flags().StringSliceVarP(&flagCfg.Regions, "regions", "r", nil, "Regions to scan (default: every enabled region)")
	rootCmd.Flags().StringVar(&flagCfg.RegionsFile, "regions-file", "", "CSV file with one region code per row")
	rootCmd.Flags().BoolVar(&flagCfg.GenerateAccountsFile, "generate-accounts-file", false, "Write the organization account IDs to accounts.csv and exit")
	rootCmd.Flags().BoolVar(&flagCfg.GenerateRegionsFile, "generate-regions-file", false, "Write the enabled region codes to regions.csv and exit")
	rootCmd.Flags().StringVar(&flagCfg.RoleName, "role-name", config.DefaultRoleName, "Role assumed in member accounts")
	rootCmd.Flags().StringVar(&flagCfg.Profile, "profile", "", "AWS shared config profile")
	rootCmd.Flags().StringVarP(&flagCfg.OutputDir, "output-dir", "o", config.DefaultOutputDir, "Directory for the CSV report")
	rootCmd.Flags().IntVar(&flagCfg.Workers, "workers", config.DefaultWorkers, "Concurrent account/region scans")
	rootCmd.Flags().IntVar(&flagCfg.MaxRetries, "max-retries", config.DefaultMaxRetries, "Retries for throttled API calls")
	rootCmd.Flags().StringVar(&flagCfg.AsOf, "as-of", "", "Reference date (YYYY-MM-DD), default today")
	rootCmd.Flags().StringVar(&flagCfg.PricingFile, "pricing-file", "", "Regional pricing override file (YAML or TOML)")
	rootCmd.Flags().BoolVarP(&flagCfg.Verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().StringVar(&configFile, "config", "", "Config file (YAML, TOML or JSON); flags override its values")

	refreshCmd.Flags().StringVar(&refreshOutput, "output", "pricing.yaml", "Path of the pricing override file to write")
	refreshCmd.Flags().StringVar(&refreshProfile, "profile", "", "AWS shared config profile")

	pricingCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(pricingCmd)
}

// validateFlags builds toolCfg from the config file and the flags set on the command line
func validateFlags(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(configFile, &flagCfg, cmd.Flags().Changed)
	if err != nil {
		return err
	}
	toolCfg = cfg
	return nil
}

func buildConfig(path string, flags *config.Config, changed func(string) bool) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.Merge(flags, changed)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
