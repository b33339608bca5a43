// Package config loads the run configuration from an optional file and command line flags.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/LeanerCloud/rds-extended-support/internal/common"
	"github.com/LeanerCloud/rds-extended-support/internal/inventory"
)

const (
	// DateLayout is the format of the reference date
	DateLayout = "2006-01-02"

	DefaultRoleName   = inventory.DefaultRoleName
	DefaultOutputDir  = "./output"
	DefaultWorkers    = 10
	DefaultMaxRetries = 3

	maxWorkers = 100
)

// Config holds all run settings. Fields tagged "-" are only settable from flags.
type Config struct {
	Accounts        []string       `yaml:"accounts" toml:"accounts" json:"accounts"`
	AccountsFile    string         `yaml:"accounts_file" toml:"accounts_file" json:"accounts_file"`
	AllAccounts     bool           `yaml:"all" toml:"all" json:"all"`
	ExcludeAccounts []string       `yaml:"exclude_accounts" toml:"exclude_accounts" json:"exclude_accounts"`
	Regions         []string       `yaml:"regions" toml:"regions" json:"regions"`
	RegionsFile     string         `yaml:"regions_file" toml:"regions_file" json:"regions_file"`
	RoleName        string         `yaml:"role_name" toml:"role_name" json:"role_name"`
	Profile         string         `yaml:"profile" toml:"profile" json:"profile"`
	OutputDir       string         `yaml:"output_dir" toml:"output_dir" json:"output_dir"`
	Workers         int            `yaml:"workers" toml:"workers" json:"workers"`
	MaxRetries      int            `yaml:"max_retries" toml:"max_retries" json:"max_retries"`
	AsOf            string         `yaml:"as_of" toml:"as_of" json:"as_of"`
	PricingFile     string         `yaml:"pricing_file" toml:"pricing_file" json:"pricing_file"`
	InstanceClasses map[string]int `yaml:"instance_classes" toml:"instance_classes" json:"instance_classes"`
	Verbose         bool           `yaml:"verbose" toml:"verbose" json:"verbose"`

	GenerateAccountsFile bool `yaml:"-" toml:"-" json:"-"`
	GenerateRegionsFile  bool `yaml:"-" toml:"-" json:"-"`
}

// Default returns a config with default values
func Default() *Config {
	return &Config{
		RoleName:   DefaultRoleName,
		OutputDir:  DefaultOutputDir,
		Workers:    DefaultWorkers,
		MaxRetries: DefaultMaxRetries,
	}
}

// LoadFile reads a TOML, YAML or JSON config file over the defaults
func LoadFile(filePath string) (*Config, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("error accessing config file: %w", err)
	}
	if fileInfo.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a file", filePath)
	}

	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".toml":
		if err := toml.Unmarshal(fileData, cfg); err != nil {
			return nil, fmt.Errorf("error parsing TOML file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(fileData, cfg); err != nil {
			return nil, fmt.Errorf("error parsing YAML file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(fileData, cfg); err != nil {
			return nil, fmt.Errorf("error parsing JSON file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}
	return cfg, nil
}

// Merge copies the flag values that were explicitly set onto c.
// changed reports whether a flag was set on the command line.
func (c *Config) Merge(flags *Config, changed func(name string) bool) {
	if changed("accounts") {
		c.Accounts = flags.Accounts
	}
	if changed("accounts-file") {
		c.AccountsFile = flags.AccountsFile
	}
	if changed("all") {
		c.AllAccounts = flags.AllAccounts
	}
	if changed("exclude-accounts") {
		c.ExcludeAccounts = flags.ExcludeAccounts
	}
	if changed("regions") {
		c.Regions = flags.Regions
	}
	if changed("regions-file") {
		c.RegionsFile = flags.RegionsFile
	}
	if changed("role-name") {
		c.RoleName = flags.RoleName
	}
	if changed("profile") {
		c.Profile = flags.Profile
	}
	if changed("output-dir") {
		c.OutputDir = flags.OutputDir
	}
	if changed("workers") {
		c.Workers = flags.Workers
	}
	if changed("max-retries") {
		c.MaxRetries = flags.MaxRetries
	}
	if changed("as-of") {
		c.AsOf = flags.AsOf
	}
	if changed("pricing-file") {
		c.PricingFile = flags.PricingFile
	}
	if changed("verbose") {
		c.Verbose = flags.Verbose
	}
	c.GenerateAccountsFile = flags.GenerateAccountsFile
	c.GenerateRegionsFile = flags.GenerateRegionsFile
}

// Normalize splits comma separated list values and trims blanks
func (c *Config) Normalize() {
	c.Accounts = common.Dedupe(common.SplitList(c.Accounts))
	c.ExcludeAccounts = common.Dedupe(common.SplitList(c.ExcludeAccounts))
	c.Regions = common.Dedupe(common.SplitList(c.Regions))
	c.RoleName = strings.TrimSpace(c.RoleName)
	if len(c.InstanceClasses) > 0 {
		classes := make(map[string]int, len(c.InstanceClasses))
		for class, vcpus := range c.InstanceClasses {
			classes[normalizeClass(class)] = vcpus
		}
		c.InstanceClasses = classes
	}
}

func normalizeClass(class string) string {
	return strings.ToLower(strings.TrimSpace(class))
}

// Validate checks the configuration before any AWS call is made
func (c *Config) Validate() error {
	selectors := 0
	for _, set := range []bool{len(c.Accounts) > 0, c.AccountsFile != "", c.AllAccounts} {
		if set {
			selectors++
		}
	}
	if selectors > 1 {
		return common.NewValidationError("--accounts, --accounts-file and --all are mutually exclusive")
	}
	if len(c.ExcludeAccounts) > 0 && !c.AllAccounts {
		return common.NewValidationError("--exclude-accounts can only be used with --all")
	}
	if c.GenerateAccountsFile && c.GenerateRegionsFile {
		return common.NewValidationError("--generate-accounts-file and --generate-regions-file are mutually exclusive")
	}
	if len(c.Regions) > 0 && c.RegionsFile != "" {
		return common.NewValidationError("--regions and --regions-file are mutually exclusive")
	}

	for _, id := range append(append([]string{}, c.Accounts...), c.ExcludeAccounts...) {
		if !common.IsValidAccountID(id) {
			return common.NewValidationError("invalid account ID %q: must be %d digits", id, common.AccountIDLength)
		}
	}
	for _, region := range c.Regions {
		if !common.IsRegionCode(region) {
			return common.NewValidationError("invalid region %q", region)
		}
	}

	if c.RoleName == "" {
		return common.NewValidationError("role name cannot be empty")
	}
	if c.OutputDir == "" {
		return common.NewValidationError("output directory cannot be empty")
	}
	if c.Workers < 1 || c.Workers > maxWorkers {
		return common.NewValidationError("workers must be between 1 and %d, got %d", maxWorkers, c.Workers)
	}
	if c.MaxRetries < 0 {
		return common.NewValidationError("max retries cannot be negative, got %d", c.MaxRetries)
	}
	if _, err := c.ReferenceDate(time.Now()); err != nil {
		return err
	}
	for class, vcpus := range c.InstanceClasses {
		if !strings.HasPrefix(normalizeClass(class), "db.") || vcpus < 1 {
			return common.NewValidationError("invalid instance class entry %s=%d", class, vcpus)
		}
	}
	return nil
}

// ReferenceDate returns the date prices are computed for: AsOf when set, otherwise today (UTC)
func (c *Config) ReferenceDate(now time.Time) (time.Time, error) {
	if c.AsOf == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(DateLayout, c.AsOf)
	if err != nil {
		return time.Time{}, common.NewValidationError("invalid --as-of date %q, expected YYYY-MM-DD", c.AsOf)
	}
	return t, nil
}

// ReportFileName returns the timestamped report path
func (c *Config) ReportFileName(now time.Time) string {
	return filepath.Join(c.OutputDir, fmt.Sprintf("rds_extended_support_instances-%s.csv", now.Format("2006-01-02 15-04")))
}
