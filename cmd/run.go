package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/spf13/cobra"

	"github.com/LeanerCloud/rds-extended-support/internal/common"
	"github.com/LeanerCloud/rds-extended-support/internal/config"
	"github.com/LeanerCloud/rds-extended-support/internal/csv"
	"github.com/LeanerCloud/rds-extended-support/internal/ec2"
	"github.com/LeanerCloud/rds-extended-support/internal/estimate"
	"github.com/LeanerCloud/rds-extended-support/internal/instanceclass"
	"github.com/LeanerCloud/rds-extended-support/internal/inventory"
	"github.com/LeanerCloud/rds-extended-support/internal/lifecycle"
	"github.com/LeanerCloud/rds-extended-support/internal/pricing"
	"github.com/LeanerCloud/rds-extended-support/internal/report"
)

const (
	// defaultAPIRegion is used when the profile has no region; Organizations and STS are global
	defaultAPIRegion = "us-east-1"

	accountsListFile = "accounts.csv"
	regionsListFile  = "regions.csv"
)

func runTool(cmd *cobra.Command, args []string) {
	if err := run(cmd.Context(), toolCfg); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	common.AppLogger.SetDebug(cfg.Verbose)

	now := time.Now()
	asOf, err := cfg.ReferenceDate(now)
	if err != nil {
		return err
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.Profile)
	if err != nil {
		return err
	}

	caller, err := inventory.GetCallerIdentity(ctx, sts.NewFromConfig(awsCfg))
	if err != nil {
		return err
	}
	common.AppLogger.Printf("🔑 Running as %s\n", caller.ARN)
	if common.IsChinaPartition(caller.Partition) && cfg.PricingFile == "" {
		common.AppLogger.Warnf("Built-in prices are USD list prices; pass --pricing-file for %s regions", caller.Partition)
	}

	selector := inventory.NewSelector(awsCfg, caller.AccountID)

	switch {
	case cfg.GenerateAccountsFile:
		return generateAccountsFile(ctx, selector, csv.NewWriter(), accountsListFile)
	case cfg.GenerateRegionsFile:
		return generateRegionsFile(ctx, ec2.NewRegionClient(awsCfg), csv.NewWriter(), regionsListFile)
	}

	sel, regions, err := resolveInputs(cfg, csv.NewReader())
	if err != nil {
		return err
	}

	calc, err := buildCalculator(cfg)
	if err != nil {
		return err
	}

	accounts, err := selector.Select(ctx, sel)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return common.NewValidationError("no accounts left to scan")
	}
	common.AppLogger.Printf("🏢 Scanning %d account(s) as of %s\n", len(accounts), asOf.Format(config.DateLayout))

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	reportFile, err := csv.NewWriter().CreateReport(cfg.ReportFileName(now))
	if err != nil {
		return err
	}

	creds := inventory.NewAssumeRoleProvider(awsCfg, sts.NewFromConfig(awsCfg), caller, cfg.RoleName)
	enumerator := inventory.NewEnumerator(creds, inventory.Options{
		Regions:    regions,
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
	})

	agg := report.NewAggregator(calc, reportFile, asOf)
	agg.SetAccounts(accounts)

	summary, scanErr := scan(ctx, enumerator, accounts, agg, cfg.Workers)
	if err := reportFile.Close(); err != nil && scanErr == nil {
		scanErr = err
	}

	if summary != nil {
		if err := summary.Render(os.Stdout); err != nil {
			common.AppLogger.Errorf("Failed to render summary: %v", err)
		}
	}
	if scanErr != nil {
		return scanErr
	}

	common.AppLogger.Printf("📄 Report written to %s (%d rows)\n", reportFile.Name(), reportFile.Rows())
	if n := common.AppLogger.WarningCount(); n > 0 {
		common.AppLogger.Printf("⚠️  %d warning(s) were logged during the run\n", n)
	}
	return nil
}

// loadAWSConfig loads the base config for the management (or single) account
func loadAWSConfig(ctx context.Context, profile string) (aws.Config, error) {
	var configOptions []func(*awsconfig.LoadOptions) error
	if profile != "" {
		configOptions = append(configOptions, awsconfig.WithSharedConfigProfile(profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("%w: failed to load AWS config: %v", common.ErrAuthentication, err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = defaultAPIRegion
	}
	return awsCfg, nil
}

// accountLister lists the organization's accounts
type accountLister interface {
	OrganizationAccounts(ctx context.Context) ([]common.Account, error)
}

// regionLister lists the caller's enabled regions
type regionLister interface {
	EnabledRegions(ctx context.Context) ([]string, error)
}

func generateAccountsFile(ctx context.Context, lister accountLister, w *csv.Writer, filename string) error {
	accounts, err := lister.OrganizationAccounts(ctx)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(accounts))
	for _, acct := range accounts {
		ids = append(ids, acct.ID)
	}
	if err := w.WriteList(ids, filename); err != nil {
		return err
	}
	common.AppLogger.Printf("📝 Wrote %d account IDs to %s\n", len(ids), filename)
	return nil
}

func generateRegionsFile(ctx context.Context, lister regionLister, w *csv.Writer, filename string) error {
	regions, err := lister.EnabledRegions(ctx)
	if err != nil {
		return err
	}
	if err := w.WriteList(regions, filename); err != nil {
		return err
	}
	common.AppLogger.Printf("📝 Wrote %d region codes to %s\n", len(regions), filename)
	return nil
}

// resolveInputs reads the list files named in cfg and returns the account
// selection and the region restriction
func resolveInputs(cfg *config.Config, r *csv.Reader) (inventory.Selection, []string, error) {
	sel := inventory.Selection{
		AllAccounts: cfg.AllAccounts,
		AccountIDs:  cfg.Accounts,
		Exclude:     cfg.ExcludeAccounts,
	}
	if cfg.AccountsFile != "" {
		ids, err := r.ReadAccounts(cfg.AccountsFile)
		if err != nil {
			return sel, nil, err
		}
		if len(ids) == 0 {
			return sel, nil, common.NewValidationError("accounts file %s has no account IDs", cfg.AccountsFile)
		}
		sel.AccountIDs = ids
	}
	if err := sel.Validate(); err != nil {
		return sel, nil, err
	}

	regions := cfg.Regions
	if cfg.RegionsFile != "" {
		fromFile, err := r.ReadRegions(cfg.RegionsFile)
		if err != nil {
			return sel, nil, err
		}
		if len(fromFile) == 0 {
			return sel, nil, common.NewValidationError("regions file %s has no regions", cfg.RegionsFile)
		}
		regions = fromFile
	}
	return sel, regions, nil
}

// buildCalculator assembles the pricing table and classifier from the defaults and overrides
func buildCalculator(cfg *config.Config) (*estimate.Calculator, error) {
	rules := lifecycle.NewDefaultRules()
	table := pricing.NewDefaultTable()
	if cfg.PricingFile != "" {
		overrides, err := pricing.LoadOverrides(cfg.PricingFile)
		if err != nil {
			return nil, err
		}
		if err := table.Apply(overrides, rules); err != nil {
			return nil, err
		}
		common.AppLogger.Printf("💲 Loaded %d regional prices from %s\n", table.RegionalCount(), cfg.PricingFile)
	}
	classifier := instanceclass.NewClassifier(cfg.InstanceClasses)
	return estimate.NewCalculator(rules, table, classifier), nil
}

// scan runs the enumerator and feeds its results to the aggregator. A fatal
// aggregation error cancels the remaining scopes.
func scan(ctx context.Context, enumerator *inventory.Enumerator, accounts []common.Account, agg *report.Aggregator, workers int) (*report.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if workers < 1 {
		workers = 1
	}
	results := make(chan common.ScopeResult, workers)
	runErr := make(chan error, 1)
	go func() {
		runErr <- enumerator.Run(ctx, accounts, results)
	}()

	summary, err := agg.Consume(ctx, results)
	if err != nil {
		cancel()
		for range results {
		}
		<-runErr
		return summary, err
	}
	if err := <-runErr; err != nil {
		return summary, err
	}
	return summary, nil
}

func runRefresh(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	awsCfg, err := loadAWSConfig(ctx, refreshProfile)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	refresher := pricing.NewRefresher(awsCfg, lifecycle.NewDefaultRules())
	refresher.ShowProgress = true
	if err := refreshPricing(ctx, refresher, refreshOutput); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

// pricingRefresher fetches regional schedules
type pricingRefresher interface {
	Refresh(ctx context.Context) (*pricing.OverrideFile, error)
}

func refreshPricing(ctx context.Context, r pricingRefresher, output string) error {
	overrides, err := r.Refresh(ctx)
	if err != nil {
		return err
	}
	if err := pricing.WriteOverrides(output, overrides); err != nil {
		return err
	}
	regions := 0
	for _, byRegion := range overrides.Schedules {
		regions += len(byRegion)
	}
	common.AppLogger.Printf("💾 Wrote %d regional schedules for %d profiles to %s\n", regions, len(overrides.Schedules), output)
	return nil
}
