package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeanerCloud/rds-extended-support/internal/common"
	"github.com/LeanerCloud/rds-extended-support/internal/config"
	"github.com/LeanerCloud/rds-extended-support/internal/csv"
	"github.com/LeanerCloud/rds-extended-support/internal/estimate"
	"github.com/LeanerCloud/rds-extended-support/internal/inventory"
	"github.com/LeanerCloud/rds-extended-support/internal/lifecycle"
	"github.com/LeanerCloud/rds-extended-support/internal/pricing"
	"github.com/LeanerCloud/rds-extended-support/internal/report"
)

var asOf = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type fakeAccounts struct {
	accounts []common.Account
	err      error
}

func (f fakeAccounts) OrganizationAccounts(ctx context.Context) ([]common.Account, error) {
	return f.accounts, f.err
}

type fakeRegions struct {
	regions []string
	err     error
}

func (f fakeRegions) EnabledRegions(ctx context.Context) ([]string, error) {
	return f.regions, f.err
}

func TestGenerateAccountsFile(t *testing.T) {
	common.DisableLoggingForTesting()
	defer common.EnableLogging()

	path := filepath.Join(t.TempDir(), "accounts.csv")
	lister := fakeAccounts{accounts: []common.Account{
		{ID: "111111111111", Name: "prod"},
		{ID: "222222222222", Name: "dev"},
	}}
	require.NoError(t, generateAccountsFile(context.Background(), lister, csv.NewWriter(), path))

	ids, err := csv.NewReader().ReadAccounts(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"111111111111", "222222222222"}, ids)
}

func TestGenerateAccountsFile_Error(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.csv")
	err := generateAccountsFile(context.Background(), fakeAccounts{err: errors.New("not management account")}, csv.NewWriter(), path)
	assert.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestGenerateRegionsFile(t *testing.T) {
	common.DisableLoggingForTesting()
	defer common.EnableLogging()

	path := filepath.Join(t.TempDir(), "regions.csv")
	require.NoError(t, generateRegionsFile(context.Background(), fakeRegions{regions: []string{"eu-west-1", "us-east-1"}}, csv.NewWriter(), path))

	regions, err := csv.NewReader().ReadRegions(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"eu-west-1", "us-east-1"}, regions)

	err = generateRegionsFile(context.Background(), fakeRegions{err: errors.New("denied")}, csv.NewWriter(), path)
	assert.Error(t, err)
}

func TestResolveInputs(t *testing.T) {
	accountsFile := writeFile(t, "accounts.csv", "111111111111\n\n222222222222\n")
	regionsFile := writeFile(t, "regions.csv", "eu-west-1\nus-east-1\n")

	cfg := config.Default()
	cfg.AccountsFile = accountsFile
	cfg.RegionsFile = regionsFile

	sel, regions, err := resolveInputs(cfg, csv.NewReader())
	require.NoError(t, err)
	assert.False(t, sel.AllAccounts)
	assert.Equal(t, []string{"111111111111", "222222222222"}, sel.AccountIDs)
	assert.Equal(t, []string{"eu-west-1", "us-east-1"}, regions)
}

func TestResolveInputs_FlagValues(t *testing.T) {
	cfg := config.Default()
	cfg.AllAccounts = true
	cfg.ExcludeAccounts = []string{"333333333333"}
	cfg.Regions = []string{"us-west-2"}

	sel, regions, err := resolveInputs(cfg, csv.NewReader())
	require.NoError(t, err)
	assert.Equal(t, inventory.Selection{AllAccounts: true, Exclude: []string{"333333333333"}}, sel)
	assert.Equal(t, []string{"us-west-2"}, regions)
}

func TestResolveInputs_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(cfg *config.Config)
	}{
		{"invalid account in file", func(cfg *config.Config) {
			cfg.AccountsFile = writeFile(t, "accounts.csv", "12345\n")
		}},
		{"empty accounts file", func(cfg *config.Config) {
			cfg.AccountsFile = writeFile(t, "accounts.csv", "\n")
		}},
		{"invalid region in file", func(cfg *config.Config) {
			cfg.RegionsFile = writeFile(t, "regions.csv", "Ireland\n")
		}},
		{"empty regions file", func(cfg *config.Config) {
			cfg.RegionsFile = writeFile(t, "regions.csv", "")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.setup(cfg)
			_, _, err := resolveInputs(cfg, csv.NewReader())
			require.Error(t, err)
			assert.True(t, common.IsValidationError(err))
		})
	}
}

func TestBuildCalculator(t *testing.T) {
	common.DisableLoggingForTesting()
	defer common.EnableLogging()

	pricingFile := writeFile(t, "pricing.yaml", `source: test
schedules:
  postgres-11:
    sa-east-1:
      year1: 1000
      year2: 1000
      year3: 2000
`)
	cfg := config.Default()
	cfg.PricingFile = pricingFile
	cfg.InstanceClasses = map[string]int{"db.r9.large": 4}

	calc, err := buildCalculator(cfg)
	require.NoError(t, err)

	rec, outcome, err := calc.Calculate(common.InstanceDescriptor{
		Identifier:    "db-1",
		InstanceClass: "db.r9.large",
		Engine:        "postgres",
		EngineVersion: "11.19",
		Region:        "sa-east-1",
	}, asOf)
	require.NoError(t, err)
	assert.Equal(t, estimate.Priced, outcome)
	assert.Equal(t, 4, rec.VCPUs)
	assert.Equal(t, 4000.0, rec.Year1Price)
	assert.Equal(t, 8000.0, rec.Year3Price)
}

func TestBuildCalculator_BadPricingFile(t *testing.T) {
	cfg := config.Default()
	cfg.PricingFile = writeFile(t, "pricing.yaml", "schedules:\n  oracle-19:\n    us-east-1:\n      year1: 1\n")
	_, err := buildCalculator(cfg)
	assert.Error(t, err)
}

// staticCredentials hands out a config for every account except the failing ones
type staticCredentials struct {
	failing map[string]error
}

func (s staticCredentials) ConfigFor(ctx context.Context, accountID string) (aws.Config, error) {
	if err := s.failing[accountID]; err != nil {
		return aws.Config{}, err
	}
	return aws.Config{Region: "us-east-1"}, nil
}

type staticLister struct {
	instances []common.InstanceDescriptor
}

func (s staticLister) ListInstances(ctx context.Context) ([]common.InstanceDescriptor, error) {
	return s.instances, nil
}

type memorySink struct {
	mu      sync.Mutex
	records []estimate.Record
}

func (m *memorySink) Write(rec estimate.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func newTestEnumerator(creds inventory.CredentialProvider, regions []string) *inventory.Enumerator {
	e := inventory.NewEnumerator(creds, inventory.Options{Regions: regions, Workers: 2})
	e.SetInstanceListerFactory(func(cfg aws.Config, accountID string) inventory.InstanceLister {
		return staticLister{instances: []common.InstanceDescriptor{
			{
				Identifier:    "orders-" + cfg.Region,
				InstanceClass: "db.r5.large",
				Engine:        "postgres",
				EngineVersion: "11.19",
				MultiAZ:       true,
				AccountID:     accountID,
				Region:        cfg.Region,
			},
			{
				Identifier:    "users-" + cfg.Region,
				InstanceClass: "db.r5.large",
				Engine:        "mysql",
				EngineVersion: "8.0.30",
				AccountID:     accountID,
				Region:        cfg.Region,
			},
		}}
	})
	return e
}

func TestScan(t *testing.T) {
	common.DisableLoggingForTesting()
	defer common.EnableLogging()

	creds := staticCredentials{failing: map[string]error{"222222222222": errors.New("AccessDenied")}}
	enumerator := newTestEnumerator(creds, []string{"us-east-1", "eu-west-1"})
	accounts := []common.Account{{ID: "111111111111", Name: "prod"}, {ID: "222222222222"}}

	sink := &memorySink{}
	agg := report.NewAggregator(estimate.NewDefaultCalculator(), sink, asOf)
	agg.SetAccounts(accounts)

	summary, err := scan(context.Background(), enumerator, accounts, agg, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.ScannedScopes)
	assert.Equal(t, 2, summary.Priced())
	assert.Equal(t, 2, summary.NotApplicable)
	require.Len(t, summary.Skipped, 1)
	assert.Equal(t, "222222222222", summary.Skipped[0].Scope.AccountID)
	assert.Equal(t, 2*3504.0, summary.Total.Year1)

	require.Len(t, sink.records, 2)
	for _, rec := range sink.records {
		assert.Equal(t, 4, rec.TotalVCPUs)
	}
}

// failingCalculator reports an internal consistency fault for every instance
type failingCalculator struct{}

func (failingCalculator) Calculate(d common.InstanceDescriptor, now time.Time) (estimate.Record, estimate.Outcome, error) {
	return estimate.Record{}, estimate.Unpriced, fmt.Errorf("%w: no schedule", common.ErrInternalConsistency)
}

func TestScan_FatalErrorStopsEnumeration(t *testing.T) {
	common.DisableLoggingForTesting()
	defer common.EnableLogging()

	regions := []string{"us-east-1", "us-east-2", "us-west-1", "us-west-2", "eu-west-1", "eu-west-2"}
	enumerator := newTestEnumerator(staticCredentials{}, regions)
	accounts := []common.Account{{ID: "111111111111"}, {ID: "222222222222"}}

	agg := report.NewAggregator(failingCalculator{}, &memorySink{}, asOf)

	done := make(chan struct{})
	var err error
	go func() {
		defer close(done)
		_, err = scan(context.Background(), enumerator, accounts, agg, 1)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not return after a fatal error")
	}
	assert.ErrorIs(t, err, common.ErrInternalConsistency)
}

type fakeRefresher struct {
	out *pricing.OverrideFile
	err error
}

func (f fakeRefresher) Refresh(ctx context.Context) (*pricing.OverrideFile, error) {
	return f.out, f.err
}

func TestRefreshPricing(t *testing.T) {
	common.DisableLoggingForTesting()
	defer common.EnableLogging()

	path := filepath.Join(t.TempDir(), "pricing.yaml")
	in := &pricing.OverrideFile{
		Source: "unit",
		Schedules: map[string]map[string]pricing.Schedule{
			lifecycle.KeyMySQL57: {
				"us-east-1": {Year1: 876, Year2: 876, Year3: 1752},
				"eu-west-1": {Year1: 963.6, Year2: 963.6, Year3: 1927.2},
			},
		},
	}
	require.NoError(t, refreshPricing(context.Background(), fakeRefresher{out: in}, path))

	out, err := pricing.LoadOverrides(path)
	require.NoError(t, err)
	assert.Equal(t, in.Schedules, out.Schedules)

	err = refreshPricing(context.Background(), fakeRefresher{err: errors.New("throttled")}, path)
	assert.Error(t, err)
}
